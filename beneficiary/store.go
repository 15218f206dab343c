package beneficiary

import "context"

type Store interface {
	// Add registers a destination account. Duplicate (customer, account)
	// pairs are rejected.
	Add(ctx context.Context, b *Beneficiary) error
	Remove(ctx context.Context, customerID, accountNumber string) error
	Get(ctx context.Context, customerID, accountNumber string) (*Beneficiary, error)
	List(ctx context.Context, customerID string) ([]*Beneficiary, error)
}
