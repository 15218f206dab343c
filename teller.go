package teller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/teller/account"
	"github.com/xraph/teller/beneficiary"
	"github.com/xraph/teller/card"
	"github.com/xraph/teller/commerce"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/loan"
	"github.com/xraph/teller/plugin"
	"github.com/xraph/teller/store"
	"github.com/xraph/teller/transaction"
	"github.com/xraph/teller/types"
)

// OverpaymentPolicy decides what happens when a card payment exceeds the
// card's current debt.
type OverpaymentPolicy int

const (
	// OverpaymentReject refuses the payment with ErrPaymentExceedsDebt.
	OverpaymentReject OverpaymentPolicy = iota
	// OverpaymentClamp settles only the outstanding debt and debits the
	// account for that clamped amount.
	OverpaymentClamp
)

// Teller is the settlement engine. Every operation is atomic: it validates,
// mutates all affected entities as one store settlement, and appends the
// matching transaction records — or does nothing at all.
type Teller struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Background reconciliation
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	currency          string
	overpayment       OverpaymentPolicy
	reconcileInterval time.Duration
	now               func() time.Time
}

// New creates a new Teller instance.
func New(s store.Store, opts ...Option) *Teller {
	t := &Teller{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		stopChan:    make(chan struct{}),
		currency:    "usd",
		overpayment: OverpaymentReject,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Option configures a Teller instance.
type Option func(*Teller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Teller) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Teller) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCurrency sets the operating currency for all settlements.
func WithCurrency(currency string) Option {
	return func(t *Teller) {
		t.currency = currency
	}
}

// WithOverpaymentPolicy sets the card overpayment policy.
func WithOverpaymentPolicy(p OverpaymentPolicy) Option {
	return func(t *Teller) {
		t.overpayment = p
	}
}

// WithReconcileInterval enables the background reconciliation worker. With a
// zero interval (the default) reconciliation only runs when an external
// scheduler calls Reconcile.
func WithReconcileInterval(interval time.Duration) Option {
	return func(t *Teller) {
		t.reconcileInterval = interval
	}
}

// WithClock sets the time source used by the background worker. Tests use
// this to pin "today".
func WithClock(now func() time.Time) Option {
	return func(t *Teller) {
		t.now = now
	}
}

// Start begins background workers.
func (t *Teller) Start(ctx context.Context) error {
	// Migrate database
	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	t.plugins.EmitInit(ctx, t)

	// Start reconciliation worker when scheduled in-process
	if t.reconcileInterval > 0 {
		t.wg.Add(1)
		go t.reconcileWorker(ctx)
	}

	t.logger.Info("teller started",
		"currency", t.currency,
		"reconcile_interval", t.reconcileInterval,
	)

	return nil
}

// Stop shuts down the Teller.
func (t *Teller) Stop() error {
	close(t.stopChan)
	t.wg.Wait()

	ctx := context.Background()
	t.plugins.EmitShutdown(ctx)

	return t.store.Close()
}

// ──────────────────────────────────────────────────
// Onboarding
// ──────────────────────────────────────────────────

// OpenAccount opens a savings account for a customer. At most one principal
// account may exist per customer; the store enforces the invariant.
func (t *Teller) OpenAccount(ctx context.Context, customerID string, principal bool) (*account.SavingsAccount, error) {
	if customerID == "" {
		return nil, ValidationError{Field: "customer_id", Message: "must not be empty"}
	}

	acct := &account.SavingsAccount{
		Entity:     types.NewEntity(),
		ID:         id.NewAccountID(),
		Number:     account.GenerateNumber(),
		CustomerID: customerID,
		Balance:    types.Zero(t.currency),
		Principal:  principal,
		Active:     true,
	}

	if err := t.store.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}

	t.plugins.EmitAccountCreated(ctx, acct)
	return acct, nil
}

// DeactivateAccount marks an account inactive. Accounts are never deleted;
// their history stays queryable.
func (t *Teller) DeactivateAccount(ctx context.Context, accountID id.AccountID) error {
	if err := t.store.DeactivateAccount(ctx, accountID); err != nil {
		return err
	}

	t.plugins.EmitAccountDeactivated(ctx, accountID.String())
	return nil
}

// OpenLoan creates a loan with a monthly installment schedule that repays
// the principal exactly.
func (t *Teller) OpenLoan(ctx context.Context, customerID string, principal types.Money, termMonths int, firstDue time.Time) (*loan.Loan, error) {
	if err := t.validAmount(principal); err != nil {
		return nil, err
	}
	if termMonths <= 0 {
		return nil, ValidationError{Field: "term_months", Message: "must be positive"}
	}

	l := &loan.Loan{
		Entity:     types.NewEntity(),
		ID:         id.NewLoanID(),
		CustomerID: customerID,
		Principal:  principal,
		Active:     true,
	}
	l.Schedule = loan.BuildSchedule(l.ID, principal, termMonths, firstDue)

	if err := t.store.CreateLoan(ctx, l); err != nil {
		return nil, err
	}

	t.plugins.EmitLoanCreated(ctx, l)
	return l, nil
}

// IssueCard issues a credit card. Only the SHA-256 hash of the verification
// code is retained.
func (t *Teller) IssueCard(ctx context.Context, customerID, number string, limit types.Money, cvc string) (*card.CreditCard, error) {
	if err := t.validAmount(limit); err != nil {
		return nil, err
	}
	if number == "" || cvc == "" {
		return nil, ValidationError{Field: "card", Message: "number and cvc must not be empty"}
	}

	c := &card.CreditCard{
		Entity:     types.NewEntity(),
		ID:         id.NewCardID(),
		Number:     number,
		CustomerID: customerID,
		Limit:      limit,
		Debt:       types.Zero(t.currency),
		CVCHash:    card.HashCVC(cvc),
		Active:     true,
	}

	if err := t.store.CreateCard(ctx, c); err != nil {
		return nil, err
	}

	t.plugins.EmitCardIssued(ctx, c)
	return c, nil
}

// RegisterCommerce registers a merchant and the account its card proceeds
// settle into.
func (t *Teller) RegisterCommerce(ctx context.Context, name, settlementAccountNumber string) (*commerce.Commerce, error) {
	if name == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	if _, err := t.store.GetAccountByNumber(ctx, settlementAccountNumber); err != nil {
		return nil, err
	}

	c := &commerce.Commerce{
		Entity:                  types.NewEntity(),
		ID:                      id.NewCommerceID(),
		Name:                    name,
		SettlementAccountNumber: settlementAccountNumber,
		Active:                  true,
	}

	if err := t.store.CreateCommerce(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ──────────────────────────────────────────────────
// Beneficiary registry
// ──────────────────────────────────────────────────

// AddBeneficiary registers a destination account on a customer's allow-list.
// Holder names are denormalized at add time for display.
func (t *Teller) AddBeneficiary(ctx context.Context, customerID, accountNumber, firstName, lastName string) (*beneficiary.Beneficiary, error) {
	if !account.ValidNumber(accountNumber) {
		return nil, ValidationError{Field: "account_number", Message: "malformed account number"}
	}
	if _, err := t.store.GetAccountByNumber(ctx, accountNumber); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrDestinationNotFound
		}
		return nil, err
	}

	b := &beneficiary.Beneficiary{
		Entity:        types.NewEntity(),
		ID:            id.NewBeneficiaryID(),
		CustomerID:    customerID,
		AccountNumber: accountNumber,
		FirstName:     firstName,
		LastName:      lastName,
	}

	if err := t.store.AddBeneficiary(ctx, b); err != nil {
		return nil, err
	}

	t.plugins.EmitBeneficiaryAdded(ctx, b)
	return b, nil
}

// RemoveBeneficiary removes a destination account from a customer's
// allow-list.
func (t *Teller) RemoveBeneficiary(ctx context.Context, customerID, accountNumber string) error {
	if err := t.store.RemoveBeneficiary(ctx, customerID, accountNumber); err != nil {
		return err
	}

	t.plugins.EmitBeneficiaryRemoved(ctx, customerID, accountNumber)
	return nil
}

// ──────────────────────────────────────────────────
// Settlements
// ──────────────────────────────────────────────────

// Deposit credits an account.
func (t *Teller) Deposit(ctx context.Context, accountNumber string, amount types.Money) (*transaction.Transaction, error) {
	if err := t.validAmount(amount); err != nil {
		return nil, err
	}

	acct, err := t.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	txn := t.newTransaction(transaction.TypeDeposit, amount, "", acct.Number)
	if !acct.Active {
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrAccountInactive)
	}

	set := &store.Settlement{
		Deltas:       []store.AccountDelta{{AccountID: acct.ID, Delta: amount.Amount}},
		Transactions: []*transaction.Transaction{txn},
	}
	if err := t.commit(ctx, acct.CustomerID, set); err != nil {
		return nil, err
	}
	return txn, nil
}

// Withdraw debits an account. The balance may never go negative; an
// overdraft attempt fails with ErrInsufficientFunds and changes nothing.
func (t *Teller) Withdraw(ctx context.Context, accountNumber string, amount types.Money) (*transaction.Transaction, error) {
	if err := t.validAmount(amount); err != nil {
		return nil, err
	}

	acct, err := t.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	txn := t.newTransaction(transaction.TypeWithdrawal, amount, acct.Number, "")
	if !acct.Active {
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrAccountInactive)
	}

	set := &store.Settlement{
		Deltas:       []store.AccountDelta{{AccountID: acct.ID, Delta: -amount.Amount}},
		Transactions: []*transaction.Transaction{txn},
	}
	if err := t.commit(ctx, acct.CustomerID, set); err != nil {
		return nil, err
	}
	return txn, nil
}

// Transfer moves money between two accounts and writes a correlated pair of
// transaction records. Beneficiary-kind transfers require the destination to
// be on the source owner's allow-list; own-accounts transfers skip the
// registry but require both accounts to share a customer.
func (t *Teller) Transfer(ctx context.Context, sourceNumber, destNumber string, amount types.Money, kind transaction.Type) ([]*transaction.Transaction, error) {
	if err := t.validAmount(amount); err != nil {
		return nil, err
	}
	if !transaction.TransferTypes[kind] {
		return nil, ValidationError{Field: "kind", Message: fmt.Sprintf("%q is not a transfer type", kind)}
	}
	if sourceNumber == destNumber {
		return nil, ValidationError{Field: "destination", Message: "source and destination are the same account"}
	}

	src, err := t.store.GetAccountByNumber(ctx, sourceNumber)
	if err != nil {
		return nil, err
	}

	correlation := id.NewTransactionID()
	debit := t.newTransaction(kind, amount, src.Number, destNumber)
	debit.CorrelationID = correlation
	debit.Detail = "debit leg"

	if !src.Active {
		return nil, t.recordRejection(ctx, src.CustomerID, []*transaction.Transaction{debit}, ErrAccountInactive)
	}

	dst, err := t.store.GetAccountByNumber(ctx, destNumber)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, t.recordRejection(ctx, src.CustomerID, []*transaction.Transaction{debit}, ErrDestinationNotFound)
		}
		return nil, err
	}
	if !dst.Active {
		return nil, t.recordRejection(ctx, src.CustomerID, []*transaction.Transaction{debit}, ErrAccountInactive)
	}

	switch kind {
	case transaction.TypeBeneficiaryTransfer:
		if _, err := t.store.GetBeneficiary(ctx, src.CustomerID, dst.Number); err != nil {
			if errors.Is(err, ErrBeneficiaryNotFound) {
				return nil, t.recordRejection(ctx, src.CustomerID, []*transaction.Transaction{debit}, ErrBeneficiaryNotRegistered)
			}
			return nil, err
		}
	case transaction.TypeOwnAccounts:
		if src.CustomerID != dst.CustomerID {
			reason := ValidationError{Field: "destination", Message: "own-accounts transfer requires a shared owner"}
			return nil, t.recordRejection(ctx, src.CustomerID, []*transaction.Transaction{debit}, reason)
		}
	}

	credit := t.newTransaction(kind, amount, src.Number, dst.Number)
	credit.CorrelationID = correlation
	credit.Detail = "credit leg"

	pair := []*transaction.Transaction{debit, credit}
	set := &store.Settlement{
		Deltas: []store.AccountDelta{
			{AccountID: src.ID, Delta: -amount.Amount},
			{AccountID: dst.ID, Delta: amount.Amount},
		},
		Transactions: pair,
	}
	if err := t.commit(ctx, src.CustomerID, set); err != nil {
		return nil, err
	}
	return pair, nil
}

// PayCreditCard debits an account and decreases card debt in one unit. If
// either side cannot settle, neither does.
func (t *Teller) PayCreditCard(ctx context.Context, accountNumber, cardNumber string, amount types.Money) (*transaction.Transaction, error) {
	if err := t.validAmount(amount); err != nil {
		return nil, err
	}

	acct, err := t.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	c, err := t.store.GetCardByNumber(ctx, cardNumber)
	if err != nil {
		return nil, err
	}

	txn := t.newTransaction(transaction.TypeCardPayment, amount, acct.Number, c.Number)
	switch {
	case !acct.Active:
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrAccountInactive)
	case !c.Active:
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrCardInactive)
	}

	applied := amount
	if amount.GreaterThan(c.Debt) {
		if t.overpayment == OverpaymentReject {
			return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrPaymentExceedsDebt)
		}
		applied = c.Debt
	}
	if !applied.IsPositive() {
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrPaymentExceedsDebt)
	}
	txn.Amount = applied

	set := &store.Settlement{
		Deltas: []store.AccountDelta{{AccountID: acct.ID, Delta: -applied.Amount}},
		Card: &store.CardMutation{
			CardID:    c.ID,
			DebtDelta: -applied.Amount,
		},
		Transactions: []*transaction.Transaction{txn},
	}
	if err := t.commit(ctx, acct.CustomerID, set); err != nil {
		return nil, err
	}
	return txn, nil
}

// PayLoanInstallment debits an account and marks one installment paid in the
// same unit. With a Nil installment ID the earliest-due unpaid installment is
// selected; the paid amount must equal the installment amount exactly.
// Paying an overdue installment clears its overdue flag; a paid installment
// never becomes unpaid again.
func (t *Teller) PayLoanInstallment(ctx context.Context, accountNumber string, loanID id.LoanID, installmentID id.InstallmentID, amount types.Money) (*transaction.Transaction, error) {
	if err := t.validAmount(amount); err != nil {
		return nil, err
	}

	acct, err := t.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	l, err := t.store.GetLoanWithSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}

	txn := t.newTransaction(transaction.TypeLoanPayment, amount, acct.Number, l.ID.String())
	switch {
	case !acct.Active:
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrAccountInactive)
	case !l.Active:
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrLoanInactive)
	}

	var inst *loan.Installment
	if installmentID.IsNil() {
		inst = l.NextUnpaid()
		if inst == nil {
			return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrInstallmentNotFound)
		}
	} else {
		inst = l.FindInstallment(installmentID)
		if inst == nil {
			return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrInstallmentNotFound)
		}
		if inst.Paid {
			return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, ErrInstallmentPaid)
		}
	}
	if !amount.Equal(inst.Amount) {
		reason := ValidationError{Field: "amount", Message: "must equal the installment amount"}
		return nil, t.recordRejection(ctx, acct.CustomerID, []*transaction.Transaction{txn}, reason)
	}

	set := &store.Settlement{
		Deltas: []store.AccountDelta{{AccountID: acct.ID, Delta: -amount.Amount}},
		Installments: []store.InstallmentUpdate{
			{InstallmentID: inst.ID, Paid: true, Overdue: false},
		},
		Transactions: []*transaction.Transaction{txn},
	}
	if err := t.commit(ctx, acct.CustomerID, set); err != nil {
		return nil, err
	}
	return txn, nil
}

// ProcessCommercePayment authorizes a card purchase for a commerce: verifies
// the card verification code, records the consumption, raises the card debt
// and credits the commerce settlement account, all in one unit. Declines
// mutate nothing.
func (t *Teller) ProcessCommercePayment(ctx context.Context, cardNumber string, commerceID id.CommerceID, cvc string, amount types.Money) (*transaction.Transaction, error) {
	if err := t.validAmount(amount); err != nil {
		return nil, err
	}

	c, err := t.store.GetCardByNumber(ctx, cardNumber)
	if err != nil {
		return nil, err
	}
	com, err := t.store.GetCommerce(ctx, commerceID)
	if err != nil {
		return nil, err
	}
	if !com.Active {
		return nil, ErrCommerceInactive
	}
	settleAcct, err := t.store.GetAccountByNumber(ctx, com.SettlementAccountNumber)
	if err != nil {
		return nil, fmt.Errorf("commerce settlement account: %w", err)
	}

	txn := t.newTransaction(transaction.TypeCommercePayment, amount, c.Number, settleAcct.Number)
	txn.CommerceID = com.ID

	if !c.Active {
		return nil, t.decline(ctx, c, txn, fmt.Errorf("%w: card inactive", ErrCardDeclined))
	}
	if !c.VerifyCVC(cvc) {
		return nil, t.decline(ctx, c, txn, fmt.Errorf("%w: invalid verification code", ErrCardDeclined))
	}
	if !c.CanConsume(amount) {
		return nil, t.decline(ctx, c, txn, fmt.Errorf("%w: credit limit exceeded", ErrCardDeclined))
	}

	cons := &card.Consumption{
		Entity:      types.NewEntity(),
		ID:          id.NewConsumptionID(),
		CardID:      c.ID,
		Amount:      amount,
		MerchantRef: com.Name,
	}

	set := &store.Settlement{
		Deltas: []store.AccountDelta{{AccountID: settleAcct.ID, Delta: amount.Amount}},
		Card: &store.CardMutation{
			CardID:      c.ID,
			DebtDelta:   amount.Amount,
			Consumption: cons,
		},
		Transactions: []*transaction.Transaction{txn},
	}
	if err := t.commit(ctx, c.CustomerID, set); err != nil {
		if errors.Is(err, ErrCreditLimitExceeded) {
			return nil, fmt.Errorf("%w: credit limit exceeded", ErrCardDeclined)
		}
		return nil, err
	}
	return txn, nil
}

// decline records a rejected commerce payment and notifies card-declined
// hooks. It returns the decline reason.
func (t *Teller) decline(ctx context.Context, c *card.CreditCard, txn *transaction.Transaction, reason error) error {
	t.plugins.EmitCardDeclined(ctx, c.Number, reason)
	return t.recordRejection(ctx, c.CustomerID, []*transaction.Transaction{txn}, reason)
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// Reconcile runs one installment reconciliation pass against the calendar
// day of today. The pass is a pure function of (today, store state): unpaid
// installments strictly past due become overdue, and paid installments with
// a stale overdue flag are repaired. Running it twice for the same day is a
// no-op the second time, so any external scheduler may re-trigger it safely.
func (t *Teller) Reconcile(ctx context.Context, today time.Time) (store.ReconcileStats, error) {
	start := time.Now()

	stats, err := t.store.ReconcileInstallments(ctx, today)
	if err != nil {
		return store.ReconcileStats{}, fmt.Errorf("reconcile installments: %w", err)
	}

	elapsed := time.Since(start)
	t.plugins.EmitInstallmentsReconciled(ctx, stats, elapsed)

	t.logger.Info("reconciliation pass completed",
		"as_of", today.Format("2006-01-02"),
		"marked_overdue", stats.MarkedOverdue,
		"cleared_overdue", stats.ClearedOverdue,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return stats, nil
}

// reconcileWorker triggers a daily-style reconciliation pass on a ticker.
func (t *Teller) reconcileWorker(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			if _, err := t.Reconcile(ctx, t.now()); err != nil {
				t.logger.Error("scheduled reconciliation failed", "error", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Query surface
// ──────────────────────────────────────────────────

// GetAccount retrieves an account by ID.
func (t *Teller) GetAccount(ctx context.Context, accountID id.AccountID) (*account.SavingsAccount, error) {
	return t.store.GetAccount(ctx, accountID)
}

// GetAccountByNumber retrieves an account by its number.
func (t *Teller) GetAccountByNumber(ctx context.Context, number string) (*account.SavingsAccount, error) {
	return t.store.GetAccountByNumber(ctx, number)
}

// GetPrincipalAccount retrieves the customer's principal account.
func (t *Teller) GetPrincipalAccount(ctx context.Context, customerID string) (*account.SavingsAccount, error) {
	return t.store.GetPrincipalAccount(ctx, customerID)
}

// ListAccounts lists a customer's accounts.
func (t *Teller) ListAccounts(ctx context.Context, customerID string) ([]*account.SavingsAccount, error) {
	return t.store.ListAccounts(ctx, customerID)
}

// ListLoans lists a customer's active loans.
func (t *Teller) ListLoans(ctx context.Context, customerID string) ([]*loan.Loan, error) {
	return t.store.ListActiveLoans(ctx, customerID)
}

// GetLoanWithSchedule retrieves a loan with its full installment schedule.
func (t *Teller) GetLoanWithSchedule(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	return t.store.GetLoanWithSchedule(ctx, loanID)
}

// ListCards lists a customer's credit cards.
func (t *Teller) ListCards(ctx context.Context, customerID string) ([]*card.CreditCard, error) {
	return t.store.ListCards(ctx, customerID)
}

// ListConsumptions lists a card's purchase history, newest first.
func (t *Teller) ListConsumptions(ctx context.Context, cardID id.CardID) ([]*card.Consumption, error) {
	return t.store.ListConsumptions(ctx, cardID)
}

// ListBeneficiaries lists a customer's registered beneficiaries.
func (t *Teller) ListBeneficiaries(ctx context.Context, customerID string) ([]*beneficiary.Beneficiary, error) {
	return t.store.ListBeneficiaries(ctx, customerID)
}

// GetTransaction retrieves a single ledger record.
func (t *Teller) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	return t.store.GetTransaction(ctx, txnID)
}

// ListTransactions lists the ledger records touching an account reference,
// newest first.
func (t *Teller) ListTransactions(ctx context.Context, accountRef string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	return t.store.ListTransactions(ctx, accountRef, opts)
}

// ListCommerceTransactions returns the paginated settlement history of a
// commerce.
func (t *Teller) ListCommerceTransactions(ctx context.Context, commerceID id.CommerceID, page, pageSize int) (transaction.Page, error) {
	return t.store.ListCommerceTransactions(ctx, commerceID, page, pageSize)
}

// GetCommerce retrieves a commerce by ID.
func (t *Teller) GetCommerce(ctx context.Context, commerceID id.CommerceID) (*commerce.Commerce, error) {
	return t.store.GetCommerce(ctx, commerceID)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (t *Teller) validAmount(amount types.Money) error {
	if amount.Currency != t.currency {
		return ValidationError{Field: "amount", Message: fmt.Sprintf("currency %q not supported", amount.Currency)}
	}
	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}
	return nil
}

func (t *Teller) newTransaction(typ transaction.Type, amount types.Money, sourceRef, destRef string) *transaction.Transaction {
	return &transaction.Transaction{
		Entity:    types.NewEntity(),
		ID:        id.NewTransactionID(),
		Type:      typ,
		Amount:    amount,
		SourceRef: sourceRef,
		DestRef:   destRef,
		Status:    transaction.StatusApproved,
	}
}

// commit applies a settlement. Business rejections surfaced by the store are
// recorded in the ledger as rejected attempts; infrastructure failures abort
// with no record, since nothing committed.
func (t *Teller) commit(ctx context.Context, customerID string, set *store.Settlement) error {
	start := time.Now()

	if err := t.store.ApplySettlement(ctx, set); err != nil {
		if IsRejection(err) {
			return t.recordRejection(ctx, customerID, set.Transactions, err)
		}
		return fmt.Errorf("apply settlement: %w", err)
	}

	t.plugins.EmitSettlementCompleted(ctx, customerID, set.Transactions)

	t.logger.Debug("settlement committed",
		"records", len(set.Transactions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// recordRejection appends rejected copies of the attempted records to the
// ledger (best-effort) and notifies rejection hooks. It returns reason so
// callers can `return t.recordRejection(...)`.
func (t *Teller) recordRejection(ctx context.Context, customerID string, txns []*transaction.Transaction, reason error) error {
	rejected := make([]*transaction.Transaction, 0, len(txns))
	for _, txn := range txns {
		cp := *txn
		cp.Status = transaction.StatusRejected
		cp.Detail = reason.Error()
		rejected = append(rejected, &cp)
	}

	if err := t.store.ApplySettlement(ctx, &store.Settlement{Transactions: rejected}); err != nil {
		t.logger.Warn("failed to record rejected settlement",
			"reason", reason,
			"error", err,
		)
	}

	opType := ""
	if len(txns) > 0 {
		opType = string(txns[0].Type)
	}
	t.plugins.EmitSettlementRejected(ctx, customerID, opType, reason)

	return reason
}
