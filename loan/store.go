package loan

import (
	"context"

	"github.com/xraph/teller/id"
)

type Store interface {
	// Create persists the loan together with its installment schedule.
	Create(ctx context.Context, l *Loan) error
	Get(ctx context.Context, loanID id.LoanID) (*Loan, error)
	// GetWithSchedule returns the loan with Schedule populated, ordered by
	// sequence number.
	GetWithSchedule(ctx context.Context, loanID id.LoanID) (*Loan, error)
	ListActive(ctx context.Context, customerID string) ([]*Loan, error)
}
