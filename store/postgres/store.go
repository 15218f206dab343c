package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store implements store.Store using PostgreSQL. Reads and single-entity
// writes go through Grove ORM; settlements and reconciliation run as pgx
// transactions with row locks.
type Store struct {
	db   *grove.DB
	pg   *pgdriver.PgDB
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store backed by Grove ORM and a pgx pool for
// transactional settlements.
func New(db *grove.DB, pool *pgxpool.Pool) *Store {
	return &Store{
		db:   db,
		pg:   pgdriver.Unwrap(db),
		pool: pool,
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("teller/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("teller/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connections.
func (s *Store) Close() error {
	s.pool.Close()
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.SavingsAccount) error {
	m := toAccountModel(a)
	_, err := s.pg.NewInsert(m).Exec(ctx)
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
	err := s.pg.NewSelect(m).
		Where("id = $1", accountID.String()).
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
	err := s.pg.NewSelect(m).
		Where("number = $1", number).
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
	err := s.pg.NewSelect(m).
		Where("customer_id = $1", customerID).
		Where("principal = $2", true).
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
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID).
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
	res, err := s.pg.NewUpdate((*accountModel)(nil)).
		Set("active = $1", false).
		Set("updated_at = $2", now()).
		Where("id = $3", accountID.String()).
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
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO teller_loans (id, customer_id, principal_cents, principal_currency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID.String(), l.CustomerID, l.Principal.Amount, l.Principal.Currency, l.Active, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range l.Schedule {
		inst := &l.Schedule[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO teller_installments (id, loan_id, sequence, due_date, amount_cents, amount_currency, paid, overdue)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, inst.ID.String(), inst.LoanID.String(), inst.Sequence, inst.DueDate, inst.Amount.Amount, inst.Amount.Currency, inst.Paid, inst.Overdue)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	m := new(loanModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", loanID.String()).
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
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID).
		Where("active = $2", true).
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
	err := s.pg.NewSelect(&models).
		Where("loan_id = $1", loanID.String()).
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
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
	err := s.pg.NewSelect(m).
		Where("id = $1", cardID.String()).
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
	err := s.pg.NewSelect(m).
		Where("number = $1", number).
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
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID).
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
	err := s.pg.NewSelect(&models).
		Where("card_id = $1", cardID.String()).
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return teller.ErrBeneficiaryExists
		}
		return err
	}
	return nil
}

func (s *Store) RemoveBeneficiary(ctx context.Context, customerID, accountNumber string) error {
	res, err := s.pg.NewDelete((*beneficiaryModel)(nil)).
		Where("customer_id = $1", customerID).
		Where("account_number = $2", accountNumber).
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
	err := s.pg.NewSelect(m).
		Where("customer_id = $1", customerID).
		Where("account_number = $2", accountNumber).
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
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID).
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCommerce(ctx context.Context, commerceID id.CommerceID) (*commerce.Commerce, error) {
	m := new(commerceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", commerceID.String()).
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
	err := s.pg.NewSelect(m).
		Where("id = $1", txnID.String()).
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
	q := s.pg.NewSelect(&models).
		Where("(source_ref = $1 OR dest_ref = $1)", accountRef)

	argIdx := 1
	if opts.Type != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("type = $%d", argIdx), string(opts.Type))
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
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
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM teller_transactions WHERE commerce_id = $1
	`, commerceID.String()).Scan(ctx, &total)
	if err != nil {
		return transaction.Page{}, err
	}

	var models []transactionModel
	err = s.pg.NewSelect(&models).
		Where("commerce_id = $1", commerceID.String()).
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

// ApplySettlement commits the settlement in one pgx transaction. Account rows
// are locked in ascending ID order so concurrent opposite-direction transfers
// cannot deadlock; guards run against the locked rows.
func (s *Store) ApplySettlement(ctx context.Context, set *tellerstore.Settlement) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	deltas := make([]tellerstore.AccountDelta, len(set.Deltas))
	copy(deltas, set.Deltas)
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].AccountID.String() < deltas[j].AccountID.String()
	})

	for _, d := range deltas {
		var balance int64
		err := tx.QueryRow(ctx, `
			SELECT balance_cents FROM teller_accounts WHERE id = $1 FOR UPDATE
		`, d.AccountID.String()).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return teller.ErrAccountNotFound
			}
			return err
		}
		if balance+d.Delta < 0 {
			return teller.ErrInsufficientFunds
		}
		_, err = tx.Exec(ctx, `
			UPDATE teller_accounts SET balance_cents = balance_cents + $1, updated_at = $2 WHERE id = $3
		`, d.Delta, now(), d.AccountID.String())
		if err != nil {
			return err
		}
	}

	for _, upd := range set.Installments {
		var paid bool
		err := tx.QueryRow(ctx, `
			SELECT paid FROM teller_installments WHERE id = $1 FOR UPDATE
		`, upd.InstallmentID.String()).Scan(&paid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return teller.ErrInstallmentNotFound
			}
			return err
		}
		if paid {
			return teller.ErrInstallmentPaid
		}
		_, err = tx.Exec(ctx, `
			UPDATE teller_installments SET paid = $1, overdue = $2 WHERE id = $3
		`, upd.Paid, upd.Overdue, upd.InstallmentID.String())
		if err != nil {
			return err
		}
	}

	if set.Card != nil {
		var debt, limit int64
		err := tx.QueryRow(ctx, `
			SELECT debt_cents, limit_cents FROM teller_cards WHERE id = $1 FOR UPDATE
		`, set.Card.CardID.String()).Scan(&debt, &limit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
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
		_, err = tx.Exec(ctx, `
			UPDATE teller_cards SET debt_cents = $1, updated_at = $2 WHERE id = $3
		`, newDebt, now(), set.Card.CardID.String())
		if err != nil {
			return err
		}

		if c := set.Card.Consumption; c != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO teller_consumptions (id, card_id, amount_cents, amount_currency, merchant_ref, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, c.ID.String(), c.CardID.String(), c.Amount.Amount, c.Amount.Currency, c.MerchantRef, c.CreatedAt, c.UpdatedAt)
			if err != nil {
				return err
			}
		}
	}

	for _, t := range set.Transactions {
		m := toTransactionModel(t)
		_, err = tx.Exec(ctx, `
			INSERT INTO teller_transactions (id, type, amount_cents, amount_currency, source_ref, dest_ref, status, correlation_id, commerce_id, detail, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, m.ID, m.Type, m.AmountCents, m.AmountCurrency, m.SourceRef, m.DestRef, m.Status, m.CorrelationID, m.CommerceID, m.Detail, m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ReconcileInstallments flips overdue flags against the calendar in one
// transaction. Both updates are exact predicates, so a repeated pass for the
// same day affects zero rows.
func (s *Store) ReconcileInstallments(ctx context.Context, asOf time.Time) (tellerstore.ReconcileStats, error) {
	dayStart := asOf.UTC().Truncate(24 * time.Hour)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	marked, err := tx.Exec(ctx, `
		UPDATE teller_installments SET overdue = TRUE
		WHERE NOT paid AND NOT overdue AND due_date < $1
	`, dayStart)
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}

	cleared, err := tx.Exec(ctx, `
		UPDATE teller_installments SET overdue = FALSE
		WHERE paid AND overdue
	`)
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return tellerstore.ReconcileStats{}, err
	}

	return tellerstore.ReconcileStats{
		MarkedOverdue:  int(marked.RowsAffected()),
		ClearedOverdue: int(cleared.RowsAffected()),
	}, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
