// Package transaction defines the append-only audit trail of money
// movements. Records are written exactly once and never updated or deleted.
package transaction

import (
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

// Type is the business intent behind a money movement.
type Type string

const (
	TypeDeposit             Type = "deposit"
	TypeWithdrawal          Type = "withdrawal"
	TypeCardPayment         Type = "card_payment"
	TypeLoanPayment         Type = "loan_payment"
	TypeThirdParty          Type = "third_party_transfer"
	TypeCashierThirdParty   Type = "cashier_third_party_transfer"
	TypeExpress             Type = "express_transfer"
	TypeBeneficiaryTransfer Type = "beneficiary_transfer"
	TypeOwnAccounts         Type = "own_accounts_transfer"
	TypeCommercePayment     Type = "commerce_payment"
)

// TransferTypes lists the transfer intents that move money between two
// accounts and therefore write a correlated pair of records.
var TransferTypes = map[Type]bool{
	TypeThirdParty:          true,
	TypeCashierThirdParty:   true,
	TypeExpress:             true,
	TypeBeneficiaryTransfer: true,
	TypeOwnAccounts:         true,
}

// Status records whether the movement settled or was refused.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Transaction is one immutable ledger record. Transfers produce two records
// (a source-side and a destination-side leg) sharing a CorrelationID.
type Transaction struct {
	types.Entity
	ID            id.TransactionID `json:"id"`
	Type          Type             `json:"type"`
	Amount        types.Money      `json:"amount"`
	SourceRef     string           `json:"source_ref"`
	DestRef       string           `json:"dest_ref"`
	Status        Status           `json:"status"`
	CorrelationID id.TransactionID `json:"correlation_id,omitempty"`
	CommerceID    id.CommerceID    `json:"commerce_id,omitempty"`
	Detail        string           `json:"detail,omitempty"`
}

// Approved reports whether the transaction settled.
func (t *Transaction) Approved() bool { return t.Status == StatusApproved }

// ListOpts filters transaction listings.
type ListOpts struct {
	Type   Type
	Status Status
	Limit  int
	Offset int
}

// DefaultPageSize is used when a caller asks for a page without a size.
const DefaultPageSize = 20

// Page is one page of transaction history plus the paging bookkeeping the
// reporting surface depends on.
type Page struct {
	Data       []*Transaction `json:"data"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	TotalCount int            `json:"total_count"`
}

// NewPage assembles a Page from a slice of records and the overall count.
func NewPage(data []*Transaction, page, pageSize, totalCount int) Page {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return Page{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: totalCount,
	}
}
