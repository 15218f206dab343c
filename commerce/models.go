// Package commerce defines merchant entities that receive card-payment
// settlement proceeds.
package commerce

import (
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

// Commerce is an external merchant. Card payments processed for it credit its
// settlement account and are tagged with its identity in the ledger.
type Commerce struct {
	types.Entity
	ID                      id.CommerceID `json:"id"`
	Name                    string        `json:"name"`
	SettlementAccountNumber string        `json:"settlement_account_number"`
	Active                  bool          `json:"active"`
}
