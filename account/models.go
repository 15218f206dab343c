// Package account defines savings accounts, the only entities that hold a
// customer balance.
package account

import (
	"crypto/rand"
	"fmt"

	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

// NumberLength is the fixed length of an account number digit string.
const NumberLength = 14

// SavingsAccount represents a customer balance. Balances never go negative
// and are mutated only through a store settlement; accounts are deactivated,
// never deleted.
type SavingsAccount struct {
	types.Entity
	ID         id.AccountID `json:"id"`
	Number     string       `json:"number"`
	CustomerID string       `json:"customer_id"`
	Balance    types.Money  `json:"balance"`
	Principal  bool         `json:"principal"`
	Active     bool         `json:"active"`
}

// CanDebit reports whether the account can cover a debit of the given amount.
func (a *SavingsAccount) CanDebit(amount types.Money) bool {
	return !a.Balance.LessThan(amount)
}

// GenerateNumber produces a random fixed-format digit string for a new
// account. Uniqueness is enforced by the store, not here.
func GenerateNumber() string {
	buf := make([]byte, NumberLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("account: generate number: %v", err))
	}

	digits := make([]byte, NumberLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits)
}

// ValidNumber reports whether s is a well-formed account number: the fixed
// length, digits only.
func ValidNumber(s string) bool {
	if len(s) != NumberLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
