package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	teller "github.com/xraph/teller"
	"github.com/xraph/teller/account"
	"github.com/xraph/teller/card"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/loan"
	"github.com/xraph/teller/store"
	"github.com/xraph/teller/transaction"
	"github.com/xraph/teller/types"
)

func seedAccount(t *testing.T, s *Store, customerID string, cents int64) *account.SavingsAccount {
	t.Helper()

	a := &account.SavingsAccount{
		Entity:     types.NewEntity(),
		ID:         id.NewAccountID(),
		Number:     account.GenerateNumber(),
		CustomerID: customerID,
		Balance:    types.USD(cents),
		Active:     true,
	}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return a
}

func seedCard(t *testing.T, s *Store, customerID string, debt, limit int64) *card.CreditCard {
	t.Helper()

	c := &card.CreditCard{
		Entity:     types.NewEntity(),
		ID:         id.NewCardID(),
		Number:     "4111111111111111",
		CustomerID: customerID,
		Debt:       types.USD(debt),
		Limit:      types.USD(limit),
		Active:     true,
	}
	if err := s.CreateCard(context.Background(), c); err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}
	return c
}

func seedLoan(t *testing.T, s *Store, customerID string, principal int64, months int, firstDue time.Time) *loan.Loan {
	t.Helper()

	l := &loan.Loan{
		Entity:     types.NewEntity(),
		ID:         id.NewLoanID(),
		CustomerID: customerID,
		Principal:  types.USD(principal),
		Active:     true,
	}
	l.Schedule = loan.BuildSchedule(l.ID, l.Principal, months, firstDue)
	if err := s.CreateLoan(context.Background(), l); err != nil {
		t.Fatalf("CreateLoan failed: %v", err)
	}
	return l
}

func record(typ transaction.Type, cents int64) *transaction.Transaction {
	return &transaction.Transaction{
		Entity: types.NewEntity(),
		ID:     id.NewTransactionID(),
		Type:   typ,
		Amount: types.USD(cents),
		Status: transaction.StatusApproved,
	}
}

func TestPrincipalAccountUnique(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &account.SavingsAccount{
		Entity: types.NewEntity(), ID: id.NewAccountID(),
		Number: account.GenerateNumber(), CustomerID: "cust_1",
		Balance: types.Zero("usd"), Principal: true, Active: true,
	}
	if err := s.CreateAccount(ctx, first); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	second := &account.SavingsAccount{
		Entity: types.NewEntity(), ID: id.NewAccountID(),
		Number: account.GenerateNumber(), CustomerID: "cust_1",
		Balance: types.Zero("usd"), Principal: true, Active: true,
	}
	if err := s.CreateAccount(ctx, second); !errors.Is(err, teller.ErrPrincipalExists) {
		t.Errorf("expected ErrPrincipalExists, got %v", err)
	}

	// A second principal for a different customer is fine.
	other := &account.SavingsAccount{
		Entity: types.NewEntity(), ID: id.NewAccountID(),
		Number: account.GenerateNumber(), CustomerID: "cust_2",
		Balance: types.Zero("usd"), Principal: true, Active: true,
	}
	if err := s.CreateAccount(ctx, other); err != nil {
		t.Errorf("other customer's principal failed: %v", err)
	}
}

func TestApplySettlementRejectionLeavesNoPartialEffect(t *testing.T) {
	s := New()
	ctx := context.Background()

	src := seedAccount(t, s, "alice", 5000)
	dst := seedAccount(t, s, "bob", 0)

	err := s.ApplySettlement(ctx, &store.Settlement{
		Deltas: []store.AccountDelta{
			{AccountID: src.ID, Delta: -6000},
			{AccountID: dst.ID, Delta: 6000},
		},
		Transactions: []*transaction.Transaction{record(transaction.TypeBeneficiaryTransfer, 6000)},
	})
	if !errors.Is(err, teller.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Nothing moved, nothing written.
	reloaded, _ := s.GetAccount(ctx, src.ID)
	if reloaded.Balance.Amount != 5000 {
		t.Errorf("source balance: got %d, want 5000", reloaded.Balance.Amount)
	}
	reloaded, _ = s.GetAccount(ctx, dst.ID)
	if reloaded.Balance.Amount != 0 {
		t.Errorf("destination balance: got %d, want 0", reloaded.Balance.Amount)
	}
	txns, _ := s.ListTransactions(ctx, "", transaction.ListOpts{})
	if len(txns) != 0 {
		t.Errorf("expected no ledger records, got %d", len(txns))
	}
}

func TestApplySettlementNetsDeltasPerAccount(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "alice", 1000)

	// -1500 and +600 individually would overdraw; the net effect (-900) does not.
	err := s.ApplySettlement(ctx, &store.Settlement{
		Deltas: []store.AccountDelta{
			{AccountID: a.ID, Delta: -1500},
			{AccountID: a.ID, Delta: 600},
		},
	})
	if err != nil {
		t.Fatalf("ApplySettlement failed: %v", err)
	}

	reloaded, _ := s.GetAccount(ctx, a.ID)
	if reloaded.Balance.Amount != 100 {
		t.Errorf("balance: got %d, want 100", reloaded.Balance.Amount)
	}
}

func TestApplySettlementPaidIsTerminal(t *testing.T) {
	s := New()
	ctx := context.Background()

	l := seedLoan(t, s, "cust_1", 2000, 2, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	instID := l.Schedule[0].ID

	if err := s.ApplySettlement(ctx, &store.Settlement{
		Installments: []store.InstallmentUpdate{{InstallmentID: instID, Paid: true}},
	}); err != nil {
		t.Fatalf("ApplySettlement failed: %v", err)
	}

	// Unpaying is refused.
	err := s.ApplySettlement(ctx, &store.Settlement{
		Installments: []store.InstallmentUpdate{{InstallmentID: instID, Paid: false}},
	})
	if !errors.Is(err, teller.ErrInstallmentPaid) {
		t.Errorf("expected ErrInstallmentPaid, got %v", err)
	}
}

func TestApplySettlementCardGuards(t *testing.T) {
	s := New()
	ctx := context.Background()
	c := seedCard(t, s, "cust_1", 1000, 5000)

	// Debt above the limit is refused.
	err := s.ApplySettlement(ctx, &store.Settlement{
		Card: &store.CardMutation{CardID: c.ID, DebtDelta: 4500},
	})
	if !errors.Is(err, teller.ErrCreditLimitExceeded) {
		t.Errorf("expected ErrCreditLimitExceeded, got %v", err)
	}

	// Debt below zero is refused.
	err = s.ApplySettlement(ctx, &store.Settlement{
		Card: &store.CardMutation{CardID: c.ID, DebtDelta: -1500},
	})
	if !errors.Is(err, teller.ErrPaymentExceedsDebt) {
		t.Errorf("expected ErrPaymentExceedsDebt, got %v", err)
	}

	reloaded, _ := s.GetCard(ctx, c.ID)
	if reloaded.Debt.Amount != 1000 {
		t.Errorf("debt after refused mutations: got %d, want 1000", reloaded.Debt.Amount)
	}

	// Exactly reaching the limit settles, and the consumption is recorded.
	cons := &card.Consumption{
		Entity: types.NewEntity(), ID: id.NewConsumptionID(),
		CardID: c.ID, Amount: types.USD(4000), MerchantRef: "Shop",
	}
	if err := s.ApplySettlement(ctx, &store.Settlement{
		Card: &store.CardMutation{CardID: c.ID, DebtDelta: 4000, Consumption: cons},
	}); err != nil {
		t.Fatalf("ApplySettlement failed: %v", err)
	}

	history, err := s.ListConsumptions(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListConsumptions failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 consumption, got %d", len(history))
	}
}

func TestReconcileInstallments(t *testing.T) {
	s := New()
	ctx := context.Background()

	l := seedLoan(t, s, "cust_1", 3000, 3, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	// Simulate the stale (paid && overdue) pair reconciliation must repair:
	// mark installment 2 overdue, then pay it without clearing the flag.
	if err := s.ApplySettlement(ctx, &store.Settlement{
		Installments: []store.InstallmentUpdate{
			{InstallmentID: l.Schedule[1].ID, Paid: true, Overdue: true},
		},
	}); err != nil {
		t.Fatalf("ApplySettlement failed: %v", err)
	}

	stats, err := s.ReconcileInstallments(ctx, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReconcileInstallments failed: %v", err)
	}
	// Installment 1 (due Jan 1) becomes overdue; installment 2's stale flag
	// is cleared; installment 3 (due Mar 1) is untouched.
	if stats.MarkedOverdue != 1 {
		t.Errorf("marked overdue: got %d, want 1", stats.MarkedOverdue)
	}
	if stats.ClearedOverdue != 1 {
		t.Errorf("cleared overdue: got %d, want 1", stats.ClearedOverdue)
	}

	reloaded, err := s.GetLoanWithSchedule(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLoanWithSchedule failed: %v", err)
	}
	if got := reloaded.Schedule[0].State(); got != loan.StateOverdue {
		t.Errorf("installment 1: got %q, want overdue", got)
	}
	if got := reloaded.Schedule[1].State(); got != loan.StatePaid {
		t.Errorf("installment 2: got %q, want paid", got)
	}
	if reloaded.Schedule[1].Overdue {
		t.Error("installment 2 overdue flag should be repaired")
	}
	if got := reloaded.Schedule[2].State(); got != loan.StatePending {
		t.Errorf("installment 3: got %q, want pending", got)
	}

	// Second pass for the same day changes nothing.
	stats, err = s.ReconcileInstallments(ctx, time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReconcileInstallments failed: %v", err)
	}
	if stats.Total() != 0 {
		t.Errorf("second pass should be a no-op, got %+v", stats)
	}
}

func TestListCommerceTransactionsPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	comID := id.NewCommerceID()

	for i := 0; i < 25; i++ {
		txn := record(transaction.TypeCommercePayment, int64(100+i))
		txn.CommerceID = comID
		if err := s.ApplySettlement(ctx, &store.Settlement{
			Transactions: []*transaction.Transaction{txn},
		}); err != nil {
			t.Fatalf("ApplySettlement failed: %v", err)
		}
	}

	page, err := s.ListCommerceTransactions(ctx, comID, 1, 10)
	if err != nil {
		t.Fatalf("ListCommerceTransactions failed: %v", err)
	}
	if len(page.Data) != 10 || page.TotalCount != 25 || page.TotalPages != 3 {
		t.Errorf("page 1: got %d records, total %d, pages %d", len(page.Data), page.TotalCount, page.TotalPages)
	}
	// Newest first.
	if page.Data[0].Amount.Amount != 124 {
		t.Errorf("expected the newest record first, got amount %d", page.Data[0].Amount.Amount)
	}

	last, err := s.ListCommerceTransactions(ctx, comID, 3, 10)
	if err != nil {
		t.Fatalf("ListCommerceTransactions failed: %v", err)
	}
	if len(last.Data) != 5 {
		t.Errorf("page 3: got %d records, want 5", len(last.Data))
	}

	beyond, err := s.ListCommerceTransactions(ctx, comID, 9, 10)
	if err != nil {
		t.Fatalf("ListCommerceTransactions failed: %v", err)
	}
	if len(beyond.Data) != 0 {
		t.Errorf("page beyond the end: got %d records, want 0", len(beyond.Data))
	}
}

func TestTransactionsAppendOnlyCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	txn := record(transaction.TypeDeposit, 500)
	txn.DestRef = "12345678901234"
	if err := s.ApplySettlement(ctx, &store.Settlement{
		Transactions: []*transaction.Transaction{txn},
	}); err != nil {
		t.Fatalf("ApplySettlement failed: %v", err)
	}

	// Mutating the caller's record must not reach the ledger.
	txn.Status = transaction.StatusRejected

	stored, err := s.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if stored.Status != transaction.StatusApproved {
		t.Error("ledger record should be isolated from caller mutation")
	}
}
