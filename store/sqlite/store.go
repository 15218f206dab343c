package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	teller "github.com/xraph/teller"
	"github.com/xraph/teller/account"
	"github.com/xraph/teller/beneficiary"
	"github.com/xraph/teller/card"
	"github.com/xraph/teller/commerce"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/loan"
	tellerstore "github.com/xraph/teller/store"
	"github.com/xraph/teller/transaction"
)

// compile-time interface check
var _ tellerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite. Reads and single-entity writes
// go through Grove ORM; settlements run as database/sql transactions behind a
// process-local writer mutex, since SQLite allows a single writer anyway.
type Store struct {
	db    *grove.DB
	sdb   *sqlitedriver.SqliteDB
	sqlDB *sql.DB

	writeMu sync.Mutex
}

// New creates a new SQLite store backed by Grove ORM and a database/sql
// handle for transactional settlements. Both must point at the same file.
func New(db *grove.DB, sqlDB *sql.DB) *Store {
	return &Store{
		db:    db,
		sdb:   sqlitedriver.Unwrap(db),
		sqlDB: sqlDB,
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("teller/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("teller/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connections.
func (s *Store) Close() error {
	if err := s.sqlDB.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.SavingsAccount) error {
	m := toAccountModel(a)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			if a.Principal {
				return teller.ErrPrincipalExists
			}
			return teller.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.SavingsAccount, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*account.SavingsAccount, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("number = ?", number).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) GetPrincipalAccount(ctx context.Context, customerID string) (*account.SavingsAccount, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("customer_id = ?", customerID).
		Where("principal = ?", true).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) ListAccounts(ctx context.Context, customerID string) ([]*account.SavingsAccount, error) {
	var models []accountModel
	err := s.sdb.NewSelect(&models).
		Where("customer_id = ?", customerID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*account.SavingsAccount, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) DeactivateAccount(ctx context.Context, accountID id.AccountID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.sdb.NewUpdate((*accountModel)(nil)).
		Set("active = ?", false).
		Set("updated_at = ?", now()).
		Where("id = ?", accountID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return teller.ErrAccountNotFound
	}
	return nil
}

// ==================== Loan Store ====================

// CreateLoan inserts the loan and its full schedule in one transaction.
func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teller_loans (id, customer_id, principal_cents, principal_currency, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID.String(), l.CustomerID, l.Principal.Amount, l.Principal.Currency, l.Active, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range l.Schedule {
		inst := &l.Schedule[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO teller_installments (id, loan_id, sequence, due_date, amount_cents, amount_currency, paid, overdue)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, inst.ID.String(), inst.LoanID.String(), inst.Sequence, inst.DueDate, inst.Amount.Amount, inst.Amount.Currency, inst.Paid, inst.Overdue)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	m := new(loanModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", loanID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrLoanNotFound
		}
		return nil, err
	}
	return fromLoanModel(m)
}

func (s *Store) GetLoanWithSchedule(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.loadSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}
	l.Schedule = schedule
	return l, nil
}

func (s *Store) ListActiveLoans(ctx context.Context, customerID string) ([]*loan.Loan, error) {
	var models []loanModel
	err := s.sdb.NewSelect(&models).
		Where("customer_id = ?", customerID).
		Where("active = ?", true).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*loan.Loan, len(models))
	for i := range models {
		l, err := fromLoanModel(&models[i])
		if err != nil {
			return nil, err
		}
		schedule, err := s.loadSchedule(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		l.Schedule = schedule
		result[i] = l
	}
	return result, nil
}

func (s *Store) loadSchedule(ctx context.Context, loanID id.LoanID) ([]loan.Installment, error) {
	var models []installmentModel
	err := s.sdb.NewSelect(&models).
		Where("loan_id = ?", loanID.String()).
		OrderExpr("sequence ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	schedule := make([]loan.Installment, len(models))
	for i := range models {
		inst, err := fromInstallmentModel(&models[i])
		if err != nil {
			return nil, err
		}
		schedule[i] = *inst
	}
	return schedule, nil
}

// ==================== Card Store ====================

func (s *Store) CreateCard(ctx context.Context, c *card.CreditCard) error {
	m := toCardModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return teller.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, cardID id.CardID) (*card.CreditCard, error) {
	m := new(cardModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", cardID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrCardNotFound
		}
		return nil, err
	}
	return fromCardModel(m)
}

func (s *Store) GetCardByNumber(ctx context.Context, number string) (*card.CreditCard, error) {
	m := new(cardModel)
	err := s.sdb.NewSelect(m).
		Where("number = ?", number).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrCardNotFound
		}
		return nil, err
	}
	return fromCardModel(m)
}

func (s *Store) ListCards(ctx context.Context, customerID string) ([]*card.CreditCard, error) {
	var models []cardModel
	err := s.sdb.NewSelect(&models).
		Where("customer_id = ?", customerID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*card.CreditCard, len(models))
	for i := range models {
		c, err := fromCardModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) ListConsumptions(ctx context.Context, cardID id.CardID) ([]*card.Consumption, error) {
	var models []consumptionModel
	err := s.sdb.NewSelect(&models).
		Where("card_id = ?", cardID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*card.Consumption, len(models))
	for i := range models {
		c, err := fromConsumptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Beneficiary Store ====================

func (s *Store) AddBeneficiary(ctx context.Context, b *beneficiary.Beneficiary) error {
	m := toBeneficiaryModel(b)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return teller.ErrBeneficiaryExists
		}
		return err
	}
	return nil
}

func (s *Store) RemoveBeneficiary(ctx context.Context, customerID, accountNumber string) error {
	res, err := s.sdb.NewDelete((*beneficiaryModel)(nil)).
		Where("customer_id = ?", customerID).
		Where("account_number = ?", accountNumber).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return teller.ErrBeneficiaryNotFound
	}
	return nil
}

func (s *Store) GetBeneficiary(ctx context.Context, customerID, accountNumber string) (*beneficiary.Beneficiary, error) {
	m := new(beneficiaryModel)
	err := s.sdb.NewSelect(m).
		Where("customer_id = ?", customerID).
		Where("account_number = ?", accountNumber).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrBeneficiaryNotFound
		}
		return nil, err
	}
	return fromBeneficiaryModel(m)
}

func (s *Store) ListBeneficiaries(ctx context.Context, customerID string) ([]*beneficiary.Beneficiary, error) {
	var models []beneficiaryModel
	err := s.sdb.NewSelect(&models).
		Where("customer_id = ?", customerID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*beneficiary.Beneficiary, len(models))
	for i := range models {
		b, err := fromBeneficiaryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// ==================== Commerce Store ====================

func (s *Store) CreateCommerce(ctx context.Context, c *commerce.Commerce) error {
	m := toCommerceModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCommerce(ctx context.Context, commerceID id.CommerceID) (*commerce.Commerce, error) {
	m := new(commerceModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", commerceID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrCommerceNotFound
		}
		return nil, err
	}
	return fromCommerceModel(m)
}

// ==================== Transaction Store ====================

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", txnID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, teller.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

func (s *Store) ListTransactions(ctx context.Context, accountRef string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	q := s.sdb.NewSelect(&models).
		Where("(source_ref = ? OR dest_ref = ?)", accountRef, accountRef)

	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*transaction.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) ListCommerceTransactions(ctx context.Context, commerceID id.CommerceID, page, pageSize int) (transaction.Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = transaction.DefaultPageSize
	}

	var total int64
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM teller_transactions WHERE commerce_id = ?
	`, commerceID.String()).Scan(&total)
	if err != nil {
		return transaction.Page{}, err
	}

	var models []transactionModel
	err = s.sdb.NewSelect(&models).
		Where("commerce_id = ?", commerceID.String()).
		OrderExpr("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(ctx)
	if err != nil {
		return transaction.Page{}, err
	}

	data := make([]*transaction.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return transaction.Page{}, err
		}
		data[i] = t
	}
	return transaction.NewPage(data, page, pageSize, int(total)), nil
}

// ==================== Settlement ====================

// ApplySettlement commits the settlement in one database/sql transaction
// behind the writer mutex. Guards read the current rows inside the
// transaction; any refusal rolls back everything.
func (s *Store) ApplySettlement(ctx context.Context, set *tellerstore.Settlement) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	deltas := make([]tellerstore.AccountDelta, len(set.Deltas))
	copy(deltas, set.Deltas)
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].AccountID.String() < deltas[j].AccountID.String()
	})

	for _, d := range deltas {
		var balance int64
		err := tx.QueryRowContext(ctx, `
			SELECT balance_cents FROM teller_accounts WHERE id = ?
		`, d.AccountID.String()).Scan(&balance)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return teller.ErrAccountNotFound
			}
			return err
		}
		if balance+d.Delta < 0 {
			return teller.ErrInsufficientFunds
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE teller_accounts SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?
		`, d.Delta, now(), d.AccountID.String())
		if err != nil {
			return err
		}
	}

	for _, upd := range set.Installments {
		var paid bool
		err := tx.QueryRowContext(ctx, `
			SELECT paid FROM teller_installments WHERE id = ?
		`, upd.InstallmentID.String()).Scan(&paid)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return teller.ErrInstallmentNotFound
			}
			return err
		}
		if paid {
			return teller.ErrInstallmentPaid
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE teller_installments SET paid = ?, overdue = ? WHERE id = ?
		`, upd.Paid, upd.Overdue, upd.InstallmentID.String())
		if err != nil {
			return err
		}
	}

	if set.Card != nil {
		var debt, limit int64
		err := tx.QueryRowContext(ctx, `
			SELECT debt_cents, limit_cents FROM teller_cards WHERE id = ?
		`, set.Card.CardID.String()).Scan(&debt, &limit)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return teller.ErrCardNotFound
			}
			return err
		}
		newDebt := debt + set.Card.DebtDelta
		if newDebt < 0 {
			return teller.ErrPaymentExceedsDebt
		}
		if newDebt > limit {
			return teller.ErrCreditLimitExceeded
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE teller_cards SET debt_cents = ?, updated_at = ? WHERE id = ?
		`, newDebt, now(), set.Card.CardID.String())
		if err != nil {
			return err
		}

		if c := set.Card.Consumption; c != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO teller_consumptions (id, card_id, amount_cents, amount_currency, merchant_ref, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, c.ID.String(), c.CardID.String(), c.Amount.Amount, c.Amount.Currency, c.MerchantRef, c.CreatedAt, c.UpdatedAt)
			if err != nil {
				return err
			}
		}
	}

	for _, t := range set.Transactions {
		m := toTransactionModel(t)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO teller_transactions (id, type, amount_cents, amount_currency, source_ref, dest_ref, status, correlation_id, commerce_id, detail, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, m.Type, m.AmountCents, m.AmountCurrency, m.SourceRef, m.DestRef, m.Status, m.CorrelationID, m.CommerceID, m.Detail, m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReconcileInstallments flips overdue flags against the calendar in one
// transaction. Both updates are exact predicates, so a repeated pass for the
// same day affects zero rows.
func (s *Store) ReconcileInstallments(ctx context.Context, asOf time.Time) (tellerstore.ReconcileStats, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dayStart := asOf.UTC().Truncate(24 * time.Hour)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	marked, err := tx.ExecContext(ctx, `
		UPDATE teller_installments SET overdue = 1
		WHERE NOT paid AND NOT overdue AND due_date < ?
	`, dayStart)
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}
	markedRows, err := marked.RowsAffected()
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}

	cleared, err := tx.ExecContext(ctx, `
		UPDATE teller_installments SET overdue = 0
		WHERE paid AND overdue
	`)
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}
	clearedRows, err := cleared.RowsAffected()
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}

	if err := tx.Commit(); err != nil {
		return tellerstore.ReconcileStats{}, err
	}

	return tellerstore.ReconcileStats{
		MarkedOverdue:  int(markedRows),
		ClearedOverdue: int(clearedRows),
	}, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation checks for a SQLite unique constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
