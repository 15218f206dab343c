package commerce

import (
	"context"

	"github.com/xraph/teller/id"
)

type Store interface {
	Create(ctx context.Context, c *Commerce) error
	Get(ctx context.Context, commerceID id.CommerceID) (*Commerce, error)
}
