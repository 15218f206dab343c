// Package beneficiary defines the per-customer allow-list of external
// accounts eligible for beneficiary transfers. The registry never moves
// money; the settlement engine only consults it.
package beneficiary

import (
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

// Beneficiary is one registered destination account. Holder names are
// denormalized at add time for display and never refreshed.
type Beneficiary struct {
	types.Entity
	ID            id.BeneficiaryID `json:"id"`
	CustomerID    string           `json:"customer_id"`
	AccountNumber string           `json:"account_number"`
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
}

// Key returns the uniqueness key for the registry: one registration per
// (owning customer, destination account).
func (b *Beneficiary) Key() string {
	return b.CustomerID + "/" + b.AccountNumber
}
