package card

import (
	"context"

	"github.com/xraph/teller/id"
)

type Store interface {
	Create(ctx context.Context, c *CreditCard) error
	Get(ctx context.Context, cardID id.CardID) (*CreditCard, error)
	GetByNumber(ctx context.Context, number string) (*CreditCard, error)
	List(ctx context.Context, customerID string) ([]*CreditCard, error)
	// ListConsumptions returns the append-only purchase history for a card,
	// newest first.
	ListConsumptions(ctx context.Context, cardID id.CardID) ([]*Consumption, error)
}
