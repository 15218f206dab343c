// Package card defines credit cards and their consumption records.
package card

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

// CreditCard represents a credit instrument. Debt grows only through recorded
// consumptions and shrinks only through recorded payments; it stays within
// [0, Limit] at all observable times.
type CreditCard struct {
	types.Entity
	ID         id.CardID   `json:"id"`
	Number     string      `json:"number"`
	CustomerID string      `json:"customer_id"`
	Limit      types.Money `json:"limit"`
	Debt       types.Money `json:"debt"`
	CVCHash    string      `json:"-"`
	Active     bool        `json:"active"`
}

// Consumption is one purchase event charged against a card. Consumptions are
// append-only; reversals are modeled as payments, never as deletions.
type Consumption struct {
	types.Entity
	ID          id.ConsumptionID `json:"id"`
	CardID      id.CardID        `json:"card_id"`
	Amount      types.Money      `json:"amount"`
	MerchantRef string           `json:"merchant_ref"`
}

// Available returns the remaining credit before the limit is reached.
func (c *CreditCard) Available() types.Money {
	return c.Limit.Subtract(c.Debt)
}

// CanConsume reports whether a consumption of the given amount keeps debt
// within the credit limit.
func (c *CreditCard) CanConsume(amount types.Money) bool {
	return !c.Debt.Add(amount).GreaterThan(c.Limit)
}

// HashCVC returns the lowercase hex encoding of the SHA-256 digest of a card
// verification code. Only this hash is ever persisted.
func HashCVC(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// VerifyCVC compares a presented verification code against the stored hash
// in constant time.
func (c *CreditCard) VerifyCVC(plain string) bool {
	presented := HashCVC(plain)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(c.CVCHash)) == 1
}
