package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colAccounts      = "teller_accounts"
	colLoans         = "teller_loans"
	colInstallments  = "teller_installments"
	colCards         = "teller_cards"
	colConsumptions  = "teller_consumptions"
	colBeneficiaries = "teller_beneficiaries"
	colCommerces     = "teller_commerces"
	colTransactions  = "teller_transactions"
)

// compile-time interface check
var _ tellerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM. Settlements run
// inside driver sessions, so a replica set (or serverless equivalent) is
// required for full atomicity.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all teller collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("teller/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		},
		colLoans: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "active", Value: 1}}},
		},
		colInstallments: {
			{Keys: bson.D{{Key: "loan_id", Value: 1}, {Key: "sequence", Value: 1}}},
			{Keys: bson.D{{Key: "paid", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		colCards: {
			{
				Keys:    bson.D{{Key: "number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		},
		colConsumptions: {
			{Keys: bson.D{{Key: "card_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colBeneficiaries: {
			{
				Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "account_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "source_ref", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "dest_ref", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "commerce_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "correlation_id", Value: 1}}},
		},
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.SavingsAccount) error {
	m := toAccountModel(a)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if a.Principal {
				return teller.ErrPrincipalExists
			}
			return teller.ErrAlreadyExists
		}
		return fmt.Errorf("teller/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.SavingsAccount, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrAccountNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*account.SavingsAccount, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"number": number}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrAccountNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get account by number: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) GetPrincipalAccount(ctx context.Context, customerID string) (*account.SavingsAccount, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"customer_id": customerID, "principal": true}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrAccountNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get principal account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) ListAccounts(ctx context.Context, customerID string) ([]*account.SavingsAccount, error) {
	var models []accountModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("teller/mongo: list accounts: %w", err)
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
	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": accountID.String()}).
		SetUpdate(bson.M{"$set": bson.M{
			"active":     false,
			"updated_at": now(),
		}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("teller/mongo: deactivate account: %w", err)
	}
	if res.MatchedCount() == 0 {
		return teller.ErrAccountNotFound
	}
	return nil
}

// ==================== Loan Store ====================

// CreateLoan inserts the loan and its full schedule in one session.
func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.mdb.Collection(colLoans).InsertOne(ctx, toLoanModel(l)); err != nil {
			return err
		}
		for i := range l.Schedule {
			if _, err := s.mdb.Collection(colInstallments).InsertOne(ctx, toInstallmentModel(&l.Schedule[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	var m loanModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": loanID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrLoanNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get loan: %w", err)
	}
	return fromLoanModel(&m)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID, "active": true}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("teller/mongo: list loans: %w", err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"loan_id": loanID.String()}).
		Sort(bson.D{{Key: "sequence", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("teller/mongo: load schedule: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return teller.ErrAlreadyExists
		}
		return fmt.Errorf("teller/mongo: create card: %w", err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, cardID id.CardID) (*card.CreditCard, error) {
	var m cardModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": cardID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrCardNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get card: %w", err)
	}
	return fromCardModel(&m)
}

func (s *Store) GetCardByNumber(ctx context.Context, number string) (*card.CreditCard, error) {
	var m cardModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"number": number}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrCardNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get card by number: %w", err)
	}
	return fromCardModel(&m)
}

func (s *Store) ListCards(ctx context.Context, customerID string) ([]*card.CreditCard, error) {
	var models []cardModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("teller/mongo: list cards: %w", err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"card_id": cardID.String()}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("teller/mongo: list consumptions: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return teller.ErrBeneficiaryExists
		}
		return fmt.Errorf("teller/mongo: add beneficiary: %w", err)
	}
	return nil
}

func (s *Store) RemoveBeneficiary(ctx context.Context, customerID, accountNumber string) error {
	res, err := s.mdb.NewDelete((*beneficiaryModel)(nil)).
		Filter(bson.M{"customer_id": customerID, "account_number": accountNumber}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("teller/mongo: remove beneficiary: %w", err)
	}
	if res.DeletedCount() == 0 {
		return teller.ErrBeneficiaryNotFound
	}
	return nil
}

func (s *Store) GetBeneficiary(ctx context.Context, customerID, accountNumber string) (*beneficiary.Beneficiary, error) {
	var m beneficiaryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"customer_id": customerID, "account_number": accountNumber}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrBeneficiaryNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get beneficiary: %w", err)
	}
	return fromBeneficiaryModel(&m)
}

func (s *Store) ListBeneficiaries(ctx context.Context, customerID string) ([]*beneficiary.Beneficiary, error) {
	var models []beneficiaryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("teller/mongo: list beneficiaries: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("teller/mongo: create commerce: %w", err)
	}
	return nil
}

func (s *Store) GetCommerce(ctx context.Context, commerceID id.CommerceID) (*commerce.Commerce, error) {
	var m commerceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": commerceID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrCommerceNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get commerce: %w", err)
	}
	return fromCommerceModel(&m)
}

// ==================== Transaction Store ====================

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txnID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, teller.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("teller/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) ListTransactions(ctx context.Context, accountRef string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"source_ref": accountRef},
			bson.M{"dest_ref": accountRef},
		},
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []transactionModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("teller/mongo: list transactions: %w", err)
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

	filter := bson.M{"commerce_id": commerceID.String()}

	total, err := s.mdb.Collection(colTransactions).CountDocuments(ctx, filter)
	if err != nil {
		return transaction.Page{}, fmt.Errorf("teller/mongo: count commerce transactions: %w", err)
	}

	var models []transactionModel
	err = s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Limit(int64(pageSize)).
		Skip(int64((page - 1) * pageSize)).
		Scan(ctx)
	if err != nil {
		return transaction.Page{}, fmt.Errorf("teller/mongo: list commerce transactions: %w", err)
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

// ApplySettlement commits the settlement inside one driver session. Guards
// read the current documents within the transaction; any refusal aborts it.
func (s *Store) ApplySettlement(ctx context.Context, set *tellerstore.Settlement) error {
	deltas := make([]tellerstore.AccountDelta, len(set.Deltas))
	copy(deltas, set.Deltas)
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].AccountID.String() < deltas[j].AccountID.String()
	})

	return s.withTransaction(ctx, func(ctx context.Context) error {
		accounts := s.mdb.Collection(colAccounts)
		for _, d := range deltas {
			var m accountModel
			err := accounts.FindOne(ctx, bson.M{"_id": d.AccountID.String()}).Decode(&m)
			if err != nil {
				if isNoDocuments(err) {
					return teller.ErrAccountNotFound
				}
				return err
			}
			if m.BalanceCents+d.Delta < 0 {
				return teller.ErrInsufficientFunds
			}
			_, err = accounts.UpdateOne(ctx, bson.M{"_id": d.AccountID.String()}, bson.M{
				"$inc": bson.M{"balance_cents": d.Delta},
				"$set": bson.M{"updated_at": now()},
			})
			if err != nil {
				return err
			}
		}

		installments := s.mdb.Collection(colInstallments)
		for _, upd := range set.Installments {
			var m installmentModel
			err := installments.FindOne(ctx, bson.M{"_id": upd.InstallmentID.String()}).Decode(&m)
			if err != nil {
				if isNoDocuments(err) {
					return teller.ErrInstallmentNotFound
				}
				return err
			}
			if m.Paid {
				return teller.ErrInstallmentPaid
			}
			_, err = installments.UpdateOne(ctx, bson.M{"_id": upd.InstallmentID.String()}, bson.M{
				"$set": bson.M{"paid": upd.Paid, "overdue": upd.Overdue},
			})
			if err != nil {
				return err
			}
		}

		if set.Card != nil {
			cards := s.mdb.Collection(colCards)
			var m cardModel
			err := cards.FindOne(ctx, bson.M{"_id": set.Card.CardID.String()}).Decode(&m)
			if err != nil {
				if isNoDocuments(err) {
					return teller.ErrCardNotFound
				}
				return err
			}
			newDebt := m.DebtCents + set.Card.DebtDelta
			if newDebt < 0 {
				return teller.ErrPaymentExceedsDebt
			}
			if newDebt > m.LimitCents {
				return teller.ErrCreditLimitExceeded
			}
			_, err = cards.UpdateOne(ctx, bson.M{"_id": set.Card.CardID.String()}, bson.M{
				"$set": bson.M{"debt_cents": newDebt, "updated_at": now()},
			})
			if err != nil {
				return err
			}

			if c := set.Card.Consumption; c != nil {
				if _, err := s.mdb.Collection(colConsumptions).InsertOne(ctx, toConsumptionModel(c)); err != nil {
					return err
				}
			}
		}

		for _, t := range set.Transactions {
			if _, err := s.mdb.Collection(colTransactions).InsertOne(ctx, toTransactionModel(t)); err != nil {
				return err
			}
		}

		return nil
	})
}

// ReconcileInstallments flips overdue flags against the calendar in one
// session. Both updates are exact predicates, so a repeated pass for the same
// day matches zero documents.
func (s *Store) ReconcileInstallments(ctx context.Context, asOf time.Time) (tellerstore.ReconcileStats, error) {
	dayStart := asOf.UTC().Truncate(24 * time.Hour)

	var stats tellerstore.ReconcileStats
	err := s.withTransaction(ctx, func(ctx context.Context) error {
		installments := s.mdb.Collection(colInstallments)

		marked, err := installments.UpdateMany(ctx, bson.M{
			"paid":     false,
			"overdue":  false,
			"due_date": bson.M{"$lt": dayStart},
		}, bson.M{
			"$set": bson.M{"overdue": true},
		})
		if err != nil {
			return err
		}

		cleared, err := installments.UpdateMany(ctx, bson.M{
			"paid":    true,
			"overdue": true,
		}, bson.M{
			"$set": bson.M{"overdue": false},
		})
		if err != nil {
			return err
		}

		stats = tellerstore.ReconcileStats{
			MarkedOverdue:  int(marked.ModifiedCount),
			ClearedOverdue: int(cleared.ModifiedCount),
		}
		return nil
	})
	if err != nil {
		return tellerstore.ReconcileStats{}, err
	}
	return stats, nil
}

// ==================== Helpers ====================

// withTransaction runs fn inside a driver session transaction.
func (s *Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	client := s.mdb.Collection(colAccounts).Database().Client()

	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("teller/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
