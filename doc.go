// Package teller provides an embeddable ledger and settlement core for
// retail-banking applications.
//
// Teller is designed as a library, not a service. Import it directly into
// your Go application and put your own transport in front of it. It provides:
//
//   - Savings accounts with strict no-overdraft balances
//   - Loans with installment schedules and calendar reconciliation
//   - Credit cards with limit enforcement and consumption history
//   - Beneficiary allow-lists for third-party transfers
//   - An append-only transaction log, rejected attempts included
//   - Atomic multi-entity settlements with all-or-nothing semantics
//
// # Quick Start
//
// Create a teller instance with your preferred store:
//
//	import (
//	    "github.com/xraph/teller"
//	    "github.com/xraph/teller/store/postgres"
//	)
//
//	// Initialize store (db is a *grove.DB, pool the matching *pgxpool.Pool)
//	store := postgres.New(db, pool)
//
//	// Create teller
//	t := teller.New(store)
//
//	// Start the teller (runs migrations, begins background workers)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
// # Core Concepts
//
// Accounts hold customer funds; every settlement debits or credits them:
//
//	acct, err := t.OpenAccount(ctx, customerID, true)
//	_, err = t.Deposit(ctx, acct.Number, teller.USD(50000))
//
// Loans carry an installment schedule that repays the principal exactly:
//
//	l, err := t.OpenLoan(ctx, customerID, teller.USD(1200000), 12, firstDue)
//	_, err = t.PayLoanInstallment(ctx, acct.Number, l.ID, id.Nil, teller.USD(100000))
//
// Credit cards consume against a limit and are paid down from an account:
//
//	c, err := t.IssueCard(ctx, customerID, "4111111111111111", teller.USD(500000), "123")
//	_, err = t.PayCreditCard(ctx, acct.Number, c.Number, teller.USD(20000))
//
// # Settlement Semantics
//
// Every operation settles atomically: all affected balances, flags and
// transaction records change together, or nothing changes at all. Business
// rejections (insufficient funds, credit limit, unregistered beneficiary)
// still leave a rejected record in the transaction log, so the ledger shows
// attempts as well as outcomes.
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, pence for GBP, etc).
//
// # Reconciliation
//
// A reconciliation pass compares every installment against the calendar:
// unpaid installments strictly past due become overdue, and paid
// installments with a stale overdue flag are repaired. The pass is
// idempotent, so a scheduler may re-trigger it freely:
//
//	stats, err := t.Reconcile(ctx, time.Now())
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account ID
//	loan_01h2xcejqtf2nbrexx3vqjhp41  // Loan ID
//	txn_01h455vb4pex5vsknk084sn02q   // Transaction ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package teller
