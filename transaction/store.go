package transaction

import (
	"context"

	"github.com/xraph/teller/id"
)

type Store interface {
	Get(ctx context.Context, txnID id.TransactionID) (*Transaction, error)
	// List returns the records where accountRef appears as source or
	// destination, newest first.
	List(ctx context.Context, accountRef string, opts ListOpts) ([]*Transaction, error)
	// ListByCommerce returns the paginated settlement history of a commerce.
	// page is 1-based.
	ListByCommerce(ctx context.Context, commerceID id.CommerceID, page, pageSize int) (Page, error)
}
