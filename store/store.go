package store

import (
	"context"
	"time"

	"github.com/xraph/teller/account"
	"github.com/xraph/teller/beneficiary"
	"github.com/xraph/teller/card"
	"github.com/xraph/teller/commerce"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/loan"
	"github.com/xraph/teller/transaction"
)

// Store is the unified storage interface for all Teller entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.SavingsAccount) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.SavingsAccount, error)
	GetAccountByNumber(ctx context.Context, number string) (*account.SavingsAccount, error)
	GetPrincipalAccount(ctx context.Context, customerID string) (*account.SavingsAccount, error)
	ListAccounts(ctx context.Context, customerID string) ([]*account.SavingsAccount, error)
	DeactivateAccount(ctx context.Context, accountID id.AccountID) error

	// Loan methods
	CreateLoan(ctx context.Context, l *loan.Loan) error
	GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error)
	GetLoanWithSchedule(ctx context.Context, loanID id.LoanID) (*loan.Loan, error)
	ListActiveLoans(ctx context.Context, customerID string) ([]*loan.Loan, error)

	// Card methods
	CreateCard(ctx context.Context, c *card.CreditCard) error
	GetCard(ctx context.Context, cardID id.CardID) (*card.CreditCard, error)
	GetCardByNumber(ctx context.Context, number string) (*card.CreditCard, error)
	ListCards(ctx context.Context, customerID string) ([]*card.CreditCard, error)
	ListConsumptions(ctx context.Context, cardID id.CardID) ([]*card.Consumption, error)

	// Beneficiary methods
	AddBeneficiary(ctx context.Context, b *beneficiary.Beneficiary) error
	RemoveBeneficiary(ctx context.Context, customerID, accountNumber string) error
	GetBeneficiary(ctx context.Context, customerID, accountNumber string) (*beneficiary.Beneficiary, error)
	ListBeneficiaries(ctx context.Context, customerID string) ([]*beneficiary.Beneficiary, error)

	// Commerce methods
	CreateCommerce(ctx context.Context, c *commerce.Commerce) error
	GetCommerce(ctx context.Context, commerceID id.CommerceID) (*commerce.Commerce, error)

	// Transaction methods
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, accountRef string, opts transaction.ListOpts) ([]*transaction.Transaction, error)
	ListCommerceTransactions(ctx context.Context, commerceID id.CommerceID, page, pageSize int) (transaction.Page, error)

	// ApplySettlement commits every mutation in the settlement atomically:
	// either all balance deltas, installment flag updates, card mutations and
	// transaction appends land, or none do. Balance and debt guards are
	// enforced inside the commit scope.
	ApplySettlement(ctx context.Context, s *Settlement) error

	// ReconcileInstallments flips installment flags against the calendar in
	// one atomic pass: unpaid installments strictly past due become overdue,
	// and paid installments with a stale overdue flag are repaired. The pass
	// is idempotent and touches no other rows.
	ReconcileInstallments(ctx context.Context, asOf time.Time) (ReconcileStats, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// AccountDelta is one signed balance mutation inside a settlement. The store
// rejects the whole settlement with ErrInsufficientFunds if applying the
// delta would take the balance negative.
type AccountDelta struct {
	AccountID id.AccountID
	Delta     int64 // minor units; negative for debits
}

// InstallmentUpdate sets the flag pair of one installment. The store rejects
// an update that would clear a Paid flag: paid is terminal.
type InstallmentUpdate struct {
	InstallmentID id.InstallmentID
	Paid          bool
	Overdue       bool
}

// CardMutation adjusts a card's debt inside a settlement. DebtDelta is
// positive for consumptions and negative for payments. The store rejects the
// settlement with ErrCreditLimitExceeded if debt would exceed the limit, and
// with ErrPaymentExceedsDebt if debt would go below zero. A non-nil
// Consumption is appended in the same commit scope.
type CardMutation struct {
	CardID      id.CardID
	DebtDelta   int64 // minor units
	Consumption *card.Consumption
}

// Settlement is the unit of atomic mutation produced by one engine
// operation. Stores must serialize settlements per entity and, when multiple
// accounts are involved, acquire their scopes in ascending account-number
// order so opposite-direction transfers cannot deadlock.
type Settlement struct {
	Deltas       []AccountDelta
	Installments []InstallmentUpdate
	Card         *CardMutation
	Transactions []*transaction.Transaction
}

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	MarkedOverdue  int `json:"marked_overdue"`
	ClearedOverdue int `json:"cleared_overdue"`
}

// Total returns the number of installments the pass touched.
func (s ReconcileStats) Total() int { return s.MarkedOverdue + s.ClearedOverdue }
