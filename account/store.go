package account

import (
	"context"

	"github.com/xraph/teller/id"
)

type Store interface {
	Create(ctx context.Context, a *SavingsAccount) error
	Get(ctx context.Context, accountID id.AccountID) (*SavingsAccount, error)
	GetByNumber(ctx context.Context, number string) (*SavingsAccount, error)
	GetPrincipal(ctx context.Context, customerID string) (*SavingsAccount, error)
	List(ctx context.Context, customerID string) ([]*SavingsAccount, error)
	Deactivate(ctx context.Context, accountID id.AccountID) error
}
