package teller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	teller "github.com/xraph/teller"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/store/memory"
	"github.com/xraph/teller/transaction"
	"github.com/xraph/teller/types"
)

func newTeller(t *testing.T, opts ...teller.Option) *teller.Teller {
	t.Helper()

	tl := teller.New(memory.New(), opts...)
	if err := tl.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := tl.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	return tl
}

func mustOpenAccount(t *testing.T, tl *teller.Teller, customerID string, principal bool) string {
	t.Helper()

	acct, err := tl.OpenAccount(context.Background(), customerID, principal)
	if err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	return acct.Number
}

func mustDeposit(t *testing.T, tl *teller.Teller, number string, cents int64) {
	t.Helper()

	if _, err := tl.Deposit(context.Background(), number, types.USD(cents)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
}

func balance(t *testing.T, tl *teller.Teller, number string) int64 {
	t.Helper()

	acct, err := tl.GetAccountByNumber(context.Background(), number)
	if err != nil {
		t.Fatalf("GetAccountByNumber failed: %v", err)
	}
	return acct.Balance.Amount
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

func TestOpenAccount(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	acct, err := tl.OpenAccount(ctx, "cust_1", true)
	if err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	if !acct.Active {
		t.Error("new account should be active")
	}
	if !acct.Balance.IsZero() {
		t.Errorf("new account balance should be zero, got %v", acct.Balance)
	}
	if len(acct.Number) != 14 {
		t.Errorf("account number should be 14 digits, got %q", acct.Number)
	}

	// Second principal account for the same customer is refused.
	if _, err := tl.OpenAccount(ctx, "cust_1", true); !errors.Is(err, teller.ErrPrincipalExists) {
		t.Errorf("expected ErrPrincipalExists, got %v", err)
	}

	// A non-principal account is fine.
	if _, err := tl.OpenAccount(ctx, "cust_1", false); err != nil {
		t.Errorf("second non-principal account failed: %v", err)
	}

	got, err := tl.GetPrincipalAccount(ctx, "cust_1")
	if err != nil {
		t.Fatalf("GetPrincipalAccount failed: %v", err)
	}
	if got.ID.String() != acct.ID.String() {
		t.Errorf("principal account mismatch: %q != %q", got.ID, acct.ID)
	}
}

func TestDepositWithdraw(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()
	number := mustOpenAccount(t, tl, "cust_1", true)

	if _, err := tl.Deposit(ctx, number, types.USD(100000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := tl.Withdraw(ctx, number, types.USD(30000)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if got := balance(t, tl, number); got != 70000 {
		t.Errorf("balance: got %d, want 70000", got)
	}
}

func TestWithdrawOverdraftRejected(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()
	number := mustOpenAccount(t, tl, "cust_1", true)
	mustDeposit(t, tl, number, 100000)

	_, err := tl.Withdraw(ctx, number, types.USD(150000))
	if !errors.Is(err, teller.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Balance untouched.
	if got := balance(t, tl, number); got != 100000 {
		t.Errorf("balance after rejected overdraft: got %d, want 100000", got)
	}

	// The refused attempt is still on the ledger, marked rejected.
	txns, err := tl.ListTransactions(ctx, number, transaction.ListOpts{Status: transaction.StatusRejected})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 rejected record, got %d", len(txns))
	}
	if txns[0].Type != transaction.TypeWithdrawal {
		t.Errorf("rejected record type: got %q, want %q", txns[0].Type, transaction.TypeWithdrawal)
	}
	if txns[0].Detail == "" {
		t.Error("rejected record should carry the rejection reason")
	}
}

func TestDepositValidation(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()
	number := mustOpenAccount(t, tl, "cust_1", true)

	if _, err := tl.Deposit(ctx, number, types.USD(-100)); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("negative deposit: expected ErrInvalidInput, got %v", err)
	}
	if _, err := tl.Deposit(ctx, number, types.USD(0)); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("zero deposit: expected ErrInvalidInput, got %v", err)
	}
	if _, err := tl.Deposit(ctx, number, types.EUR(100)); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("wrong currency: expected ErrInvalidInput, got %v", err)
	}
	if _, err := tl.Deposit(ctx, "00000000000000", types.USD(100)); !errors.Is(err, teller.ErrAccountNotFound) {
		t.Errorf("unknown account: expected ErrAccountNotFound, got %v", err)
	}
}

func TestDeactivatedAccountRefusesMovements(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	acct, err := tl.OpenAccount(ctx, "cust_1", true)
	if err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	mustDeposit(t, tl, acct.Number, 5000)

	if err := tl.DeactivateAccount(ctx, acct.ID); err != nil {
		t.Fatalf("DeactivateAccount failed: %v", err)
	}

	if _, err := tl.Deposit(ctx, acct.Number, types.USD(100)); !errors.Is(err, teller.ErrAccountInactive) {
		t.Errorf("deposit: expected ErrAccountInactive, got %v", err)
	}
	if _, err := tl.Withdraw(ctx, acct.Number, types.USD(100)); !errors.Is(err, teller.ErrAccountInactive) {
		t.Errorf("withdraw: expected ErrAccountInactive, got %v", err)
	}

	// History stays queryable.
	txns, err := tl.ListTransactions(ctx, acct.Number, transaction.ListOpts{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) == 0 {
		t.Error("expected history to remain queryable after deactivation")
	}
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

func TestTransferBeneficiary(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	srcNumber := mustOpenAccount(t, tl, "alice", true)
	dstNumber := mustOpenAccount(t, tl, "bob", true)
	mustDeposit(t, tl, srcNumber, 100000)

	// Unregistered destination is refused.
	_, err := tl.Transfer(ctx, srcNumber, dstNumber, types.USD(20000), transaction.TypeBeneficiaryTransfer)
	if !errors.Is(err, teller.ErrBeneficiaryNotRegistered) {
		t.Fatalf("expected ErrBeneficiaryNotRegistered, got %v", err)
	}
	if got := balance(t, tl, srcNumber); got != 100000 {
		t.Errorf("source balance after refused transfer: got %d, want 100000", got)
	}

	if _, err := tl.AddBeneficiary(ctx, "alice", dstNumber, "Bob", "Jones"); err != nil {
		t.Fatalf("AddBeneficiary failed: %v", err)
	}

	pair, err := tl.Transfer(ctx, srcNumber, dstNumber, types.USD(20000), transaction.TypeBeneficiaryTransfer)
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if len(pair) != 2 {
		t.Fatalf("expected a correlated pair, got %d records", len(pair))
	}
	if pair[0].CorrelationID.IsNil() || pair[0].CorrelationID.String() != pair[1].CorrelationID.String() {
		t.Error("both legs must share a correlation ID")
	}
	if pair[0].ID.String() == pair[1].ID.String() {
		t.Error("legs must be distinct records")
	}

	// Conservation: money moved, none created.
	if got := balance(t, tl, srcNumber); got != 80000 {
		t.Errorf("source balance: got %d, want 80000", got)
	}
	if got := balance(t, tl, dstNumber); got != 20000 {
		t.Errorf("destination balance: got %d, want 20000", got)
	}
}

func TestTransferOwnAccounts(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	first := mustOpenAccount(t, tl, "alice", true)
	second := mustOpenAccount(t, tl, "alice", false)
	other := mustOpenAccount(t, tl, "bob", true)
	mustDeposit(t, tl, first, 50000)

	// No beneficiary registration needed between own accounts.
	if _, err := tl.Transfer(ctx, first, second, types.USD(10000), transaction.TypeOwnAccounts); err != nil {
		t.Fatalf("own-accounts transfer failed: %v", err)
	}
	if got := balance(t, tl, second); got != 10000 {
		t.Errorf("second account balance: got %d, want 10000", got)
	}

	// But both accounts must share an owner.
	if _, err := tl.Transfer(ctx, first, other, types.USD(100), transaction.TypeOwnAccounts); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("cross-customer own-accounts transfer: expected ErrInvalidInput, got %v", err)
	}
}

func TestTransferValidation(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	src := mustOpenAccount(t, tl, "alice", true)
	mustDeposit(t, tl, src, 10000)

	if _, err := tl.Transfer(ctx, src, src, types.USD(100), transaction.TypeOwnAccounts); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("self transfer: expected ErrInvalidInput, got %v", err)
	}
	if _, err := tl.Transfer(ctx, src, "123", types.USD(100), transaction.TypeDeposit); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("non-transfer kind: expected ErrInvalidInput, got %v", err)
	}

	_, err := tl.Transfer(ctx, src, "00000000000000", types.USD(100), transaction.TypeBeneficiaryTransfer)
	if !errors.Is(err, teller.ErrDestinationNotFound) {
		t.Errorf("unknown destination: expected ErrDestinationNotFound, got %v", err)
	}
}

func TestTransferInsufficientFundsLeavesNothing(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	src := mustOpenAccount(t, tl, "alice", true)
	dst := mustOpenAccount(t, tl, "alice", false)
	mustDeposit(t, tl, src, 5000)

	_, err := tl.Transfer(ctx, src, dst, types.USD(6000), transaction.TypeOwnAccounts)
	if !errors.Is(err, teller.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balance(t, tl, src); got != 5000 {
		t.Errorf("source balance: got %d, want 5000", got)
	}
	if got := balance(t, tl, dst); got != 0 {
		t.Errorf("destination balance: got %d, want 0", got)
	}

	// Both legs recorded as rejected.
	txns, err := tl.ListTransactions(ctx, src, transaction.ListOpts{Status: transaction.StatusRejected})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("expected 2 rejected legs, got %d", len(txns))
	}
}

// ──────────────────────────────────────────────────
// Beneficiaries
// ──────────────────────────────────────────────────

func TestBeneficiaryRegistry(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	dstNumber := mustOpenAccount(t, tl, "bob", true)

	b, err := tl.AddBeneficiary(ctx, "alice", dstNumber, "Bob", "Jones")
	if err != nil {
		t.Fatalf("AddBeneficiary failed: %v", err)
	}
	if b.FirstName != "Bob" || b.LastName != "Jones" {
		t.Errorf("holder names not retained: %q %q", b.FirstName, b.LastName)
	}

	// Duplicate registration is refused.
	if _, err := tl.AddBeneficiary(ctx, "alice", dstNumber, "Bob", "Jones"); !errors.Is(err, teller.ErrBeneficiaryExists) {
		t.Errorf("duplicate: expected ErrBeneficiaryExists, got %v", err)
	}

	// Nonexistent destination is refused.
	if _, err := tl.AddBeneficiary(ctx, "alice", "00000000000000", "No", "One"); !errors.Is(err, teller.ErrDestinationNotFound) {
		t.Errorf("missing destination: expected ErrDestinationNotFound, got %v", err)
	}

	// Malformed number is refused before any lookup.
	if _, err := tl.AddBeneficiary(ctx, "alice", "12ab", "No", "One"); !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("malformed number: expected ErrInvalidInput, got %v", err)
	}

	list, err := tl.ListBeneficiaries(ctx, "alice")
	if err != nil {
		t.Fatalf("ListBeneficiaries failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 beneficiary, got %d", len(list))
	}

	if err := tl.RemoveBeneficiary(ctx, "alice", dstNumber); err != nil {
		t.Fatalf("RemoveBeneficiary failed: %v", err)
	}
	if err := tl.RemoveBeneficiary(ctx, "alice", dstNumber); !errors.Is(err, teller.ErrBeneficiaryNotFound) {
		t.Errorf("remove twice: expected ErrBeneficiaryNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Loans
// ──────────────────────────────────────────────────

func TestOpenLoanSchedule(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	firstDue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	l, err := tl.OpenLoan(ctx, "cust_1", types.USD(100000), 12, firstDue)
	if err != nil {
		t.Fatalf("OpenLoan failed: %v", err)
	}
	if len(l.Schedule) != 12 {
		t.Fatalf("expected 12 installments, got %d", len(l.Schedule))
	}

	var total int64
	for i, inst := range l.Schedule {
		total += inst.Amount.Amount
		if inst.Sequence != i+1 {
			t.Errorf("installment %d: sequence %d", i, inst.Sequence)
		}
		want := firstDue.AddDate(0, i, 0)
		if !inst.DueDate.Equal(want) {
			t.Errorf("installment %d: due %v, want %v", i, inst.DueDate, want)
		}
		if inst.Paid || inst.Overdue {
			t.Errorf("installment %d: should start unpaid and not overdue", i)
		}
	}
	if total != 100000 {
		t.Errorf("schedule sums to %d, want 100000", total)
	}
}

func TestPayLoanInstallment(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	number := mustOpenAccount(t, tl, "cust_1", true)
	mustDeposit(t, tl, number, 100000)

	firstDue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	l, err := tl.OpenLoan(ctx, "cust_1", types.USD(12000), 12, firstDue)
	if err != nil {
		t.Fatalf("OpenLoan failed: %v", err)
	}

	// Nil installment ID selects the earliest-due unpaid installment.
	txn, err := tl.PayLoanInstallment(ctx, number, l.ID, id.Nil, types.USD(1000))
	if err != nil {
		t.Fatalf("PayLoanInstallment failed: %v", err)
	}
	if !txn.Approved() {
		t.Error("expected an approved record")
	}
	if got := balance(t, tl, number); got != 99000 {
		t.Errorf("balance: got %d, want 99000", got)
	}

	reloaded, err := tl.GetLoanWithSchedule(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLoanWithSchedule failed: %v", err)
	}
	if !reloaded.Schedule[0].Paid {
		t.Error("first installment should be paid")
	}
	if reloaded.Schedule[1].Paid {
		t.Error("second installment should remain unpaid")
	}

	// Paying the same installment again by explicit ID is refused.
	_, err = tl.PayLoanInstallment(ctx, number, l.ID, reloaded.Schedule[0].ID, types.USD(1000))
	if !errors.Is(err, teller.ErrInstallmentPaid) {
		t.Errorf("expected ErrInstallmentPaid, got %v", err)
	}

	// The amount must match the installment exactly.
	_, err = tl.PayLoanInstallment(ctx, number, l.ID, id.Nil, types.USD(999))
	if !errors.Is(err, teller.ErrInvalidInput) {
		t.Errorf("partial payment: expected ErrInvalidInput, got %v", err)
	}
	if got := balance(t, tl, number); got != 99000 {
		t.Errorf("balance after refused payments: got %d, want 99000", got)
	}
}

// ──────────────────────────────────────────────────
// Cards
// ──────────────────────────────────────────────────

func TestCommercePaymentLifecycle(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	merchantAcct := mustOpenAccount(t, tl, "merchant", true)
	com, err := tl.RegisterCommerce(ctx, "Corner Store", merchantAcct)
	if err != nil {
		t.Fatalf("RegisterCommerce failed: %v", err)
	}

	c, err := tl.IssueCard(ctx, "cust_1", "4111111111111111", types.USD(500000), "123")
	if err != nil {
		t.Fatalf("IssueCard failed: %v", err)
	}
	if c.CVCHash == "123" {
		t.Error("verification code must not be stored in the clear")
	}

	// First purchase within the limit settles.
	txn, err := tl.ProcessCommercePayment(ctx, c.Number, com.ID, "123", types.USD(490000))
	if err != nil {
		t.Fatalf("ProcessCommercePayment failed: %v", err)
	}
	if txn.CommerceID.String() != com.ID.String() {
		t.Error("record should reference the commerce")
	}
	if got := balance(t, tl, merchantAcct); got != 490000 {
		t.Errorf("settlement account: got %d, want 490000", got)
	}

	// A second purchase past the limit is declined atomically.
	_, err = tl.ProcessCommercePayment(ctx, c.Number, com.ID, "123", types.USD(20000))
	if !errors.Is(err, teller.ErrCardDeclined) {
		t.Fatalf("expected ErrCardDeclined, got %v", err)
	}

	cards, err := tl.ListCards(ctx, "cust_1")
	if err != nil {
		t.Fatalf("ListCards failed: %v", err)
	}
	if got := cards[0].Debt.Amount; got != 490000 {
		t.Errorf("debt after decline: got %d, want 490000", got)
	}
	if got := balance(t, tl, merchantAcct); got != 490000 {
		t.Errorf("settlement account after decline: got %d, want 490000", got)
	}

	// Wrong verification code declines without touching anything.
	_, err = tl.ProcessCommercePayment(ctx, c.Number, com.ID, "999", types.USD(100))
	if !errors.Is(err, teller.ErrCardDeclined) {
		t.Errorf("wrong code: expected ErrCardDeclined, got %v", err)
	}

	// One consumption recorded, newest first.
	cons, err := tl.ListConsumptions(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListConsumptions failed: %v", err)
	}
	if len(cons) != 1 {
		t.Fatalf("expected 1 consumption, got %d", len(cons))
	}
	if cons[0].MerchantRef != "Corner Store" {
		t.Errorf("merchant ref: got %q", cons[0].MerchantRef)
	}

	// Commerce settlement history is paginated.
	page, err := tl.ListCommerceTransactions(ctx, com.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListCommerceTransactions failed: %v", err)
	}
	if page.TotalCount < 1 {
		t.Errorf("expected at least one commerce record, got %d", page.TotalCount)
	}
}

func TestPayCreditCard(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	number := mustOpenAccount(t, tl, "cust_1", true)
	mustDeposit(t, tl, number, 100000)

	merchantAcct := mustOpenAccount(t, tl, "merchant", true)
	com, err := tl.RegisterCommerce(ctx, "Shop", merchantAcct)
	if err != nil {
		t.Fatalf("RegisterCommerce failed: %v", err)
	}

	c, err := tl.IssueCard(ctx, "cust_1", "4000000000000002", types.USD(50000), "456")
	if err != nil {
		t.Fatalf("IssueCard failed: %v", err)
	}
	if _, err := tl.ProcessCommercePayment(ctx, c.Number, com.ID, "456", types.USD(30000)); err != nil {
		t.Fatalf("ProcessCommercePayment failed: %v", err)
	}

	// Pay down part of the debt.
	if _, err := tl.PayCreditCard(ctx, number, c.Number, types.USD(10000)); err != nil {
		t.Fatalf("PayCreditCard failed: %v", err)
	}
	if got := balance(t, tl, number); got != 90000 {
		t.Errorf("account balance: got %d, want 90000", got)
	}

	cards, _ := tl.ListCards(ctx, "cust_1")
	if got := cards[0].Debt.Amount; got != 20000 {
		t.Errorf("debt: got %d, want 20000", got)
	}

	// Paying more than the debt is refused under the default policy.
	_, err = tl.PayCreditCard(ctx, number, c.Number, types.USD(30000))
	if !errors.Is(err, teller.ErrPaymentExceedsDebt) {
		t.Errorf("overpayment: expected ErrPaymentExceedsDebt, got %v", err)
	}
	if got := balance(t, tl, number); got != 90000 {
		t.Errorf("balance after refused overpayment: got %d, want 90000", got)
	}
}

func TestPayCreditCardClampPolicy(t *testing.T) {
	tl := newTeller(t, teller.WithOverpaymentPolicy(teller.OverpaymentClamp))
	ctx := context.Background()

	number := mustOpenAccount(t, tl, "cust_1", true)
	mustDeposit(t, tl, number, 100000)

	merchantAcct := mustOpenAccount(t, tl, "merchant", true)
	com, err := tl.RegisterCommerce(ctx, "Shop", merchantAcct)
	if err != nil {
		t.Fatalf("RegisterCommerce failed: %v", err)
	}

	c, err := tl.IssueCard(ctx, "cust_1", "4000000000000002", types.USD(50000), "456")
	if err != nil {
		t.Fatalf("IssueCard failed: %v", err)
	}
	if _, err := tl.ProcessCommercePayment(ctx, c.Number, com.ID, "456", types.USD(20000)); err != nil {
		t.Fatalf("ProcessCommercePayment failed: %v", err)
	}

	// Overpayment settles only the outstanding debt.
	txn, err := tl.PayCreditCard(ctx, number, c.Number, types.USD(30000))
	if err != nil {
		t.Fatalf("PayCreditCard failed: %v", err)
	}
	if txn.Amount.Amount != 20000 {
		t.Errorf("clamped amount: got %d, want 20000", txn.Amount.Amount)
	}
	if got := balance(t, tl, number); got != 80000 {
		t.Errorf("balance: got %d, want 80000", got)
	}

	cards, _ := tl.ListCards(ctx, "cust_1")
	if got := cards[0].Debt.Amount; got != 0 {
		t.Errorf("debt: got %d, want 0", got)
	}

	// With zero debt the clamp leaves nothing to settle.
	_, err = tl.PayCreditCard(ctx, number, c.Number, types.USD(100))
	if !errors.Is(err, teller.ErrPaymentExceedsDebt) {
		t.Errorf("payment with no debt: expected ErrPaymentExceedsDebt, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

func TestReconcileMarksOverdue(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	firstDue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l, err := tl.OpenLoan(ctx, "cust_1", types.USD(3000), 3, firstDue)
	if err != nil {
		t.Fatalf("OpenLoan failed: %v", err)
	}

	// The day after the first due date: exactly one installment is past due.
	today := time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC)
	stats, err := tl.Reconcile(ctx, today)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if stats.MarkedOverdue != 1 || stats.ClearedOverdue != 0 {
		t.Errorf("stats: got %+v, want 1 marked, 0 cleared", stats)
	}

	reloaded, err := tl.GetLoanWithSchedule(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLoanWithSchedule failed: %v", err)
	}
	if !reloaded.Schedule[0].Overdue {
		t.Error("first installment should be overdue")
	}
	if reloaded.Schedule[1].Overdue {
		t.Error("second installment should not be overdue")
	}

	// Re-running the same day is a no-op.
	stats, err = tl.Reconcile(ctx, today)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if stats.Total() != 0 {
		t.Errorf("second pass should change nothing, got %+v", stats)
	}
}

func TestReconcileDueDateBoundary(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	firstDue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := tl.OpenLoan(ctx, "cust_1", types.USD(1000), 1, firstDue); err != nil {
		t.Fatalf("OpenLoan failed: %v", err)
	}

	// On the due date itself the installment is not yet overdue.
	stats, err := tl.Reconcile(ctx, time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if stats.MarkedOverdue != 0 {
		t.Errorf("due today should not be overdue, got %+v", stats)
	}
}

func TestPayingOverdueInstallmentClearsFlag(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()

	number := mustOpenAccount(t, tl, "cust_1", true)
	mustDeposit(t, tl, number, 10000)

	firstDue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l, err := tl.OpenLoan(ctx, "cust_1", types.USD(2000), 2, firstDue)
	if err != nil {
		t.Fatalf("OpenLoan failed: %v", err)
	}

	if _, err := tl.Reconcile(ctx, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if _, err := tl.PayLoanInstallment(ctx, number, l.ID, id.Nil, types.USD(1000)); err != nil {
		t.Fatalf("PayLoanInstallment failed: %v", err)
	}

	reloaded, err := tl.GetLoanWithSchedule(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLoanWithSchedule failed: %v", err)
	}
	if !reloaded.Schedule[0].Paid || reloaded.Schedule[0].Overdue {
		t.Errorf("paid installment should not stay overdue: %+v", reloaded.Schedule[0])
	}
}

// ──────────────────────────────────────────────────
// Ledger queries
// ──────────────────────────────────────────────────

func TestListTransactionsFilters(t *testing.T) {
	tl := newTeller(t)
	ctx := context.Background()
	number := mustOpenAccount(t, tl, "cust_1", true)

	mustDeposit(t, tl, number, 1000)
	mustDeposit(t, tl, number, 2000)
	if _, err := tl.Withdraw(ctx, number, types.USD(500)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	all, err := tl.ListTransactions(ctx, number, transaction.ListOpts{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	// Newest first.
	if all[0].Type != transaction.TypeWithdrawal {
		t.Errorf("expected the withdrawal first, got %q", all[0].Type)
	}

	deposits, err := tl.ListTransactions(ctx, number, transaction.ListOpts{Type: transaction.TypeDeposit})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(deposits) != 2 {
		t.Errorf("expected 2 deposits, got %d", len(deposits))
	}

	limited, err := tl.ListTransactions(ctx, number, transaction.ListOpts{Limit: 1})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 record with limit, got %d", len(limited))
	}

	one, err := tl.GetTransaction(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if one.ID.String() != all[0].ID.String() {
		t.Errorf("GetTransaction mismatch: %q != %q", one.ID, all[0].ID)
	}
}
