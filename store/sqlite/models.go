package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/teller/account"
	"github.com/xraph/teller/beneficiary"
	"github.com/xraph/teller/card"
	"github.com/xraph/teller/commerce"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/loan"
	"github.com/xraph/teller/transaction"
	"github.com/xraph/teller/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:teller_accounts"`

	ID              string    `grove:"id,pk"`
	Number          string    `grove:"number"`
	CustomerID      string    `grove:"customer_id"`
	BalanceCents    int64     `grove:"balance_cents"`
	BalanceCurrency string    `grove:"balance_currency"`
	Principal       bool      `grove:"principal"`
	Active          bool      `grove:"active"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
}

func toAccountModel(a *account.SavingsAccount) *accountModel {
	return &accountModel{
		ID:              a.ID.String(),
		Number:          a.Number,
		CustomerID:      a.CustomerID,
		BalanceCents:    a.Balance.Amount,
		BalanceCurrency: a.Balance.Currency,
		Principal:       a.Principal,
		Active:          a.Active,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.SavingsAccount, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}

	return &account.SavingsAccount{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         accountID,
		Number:     m.Number,
		CustomerID: m.CustomerID,
		Balance:    types.Money{Amount: m.BalanceCents, Currency: m.BalanceCurrency},
		Principal:  m.Principal,
		Active:     m.Active,
	}, nil
}

// ==================== Loan models ====================

type loanModel struct {
	grove.BaseModel `grove:"table:teller_loans"`

	ID                string    `grove:"id,pk"`
	CustomerID        string    `grove:"customer_id"`
	PrincipalCents    int64     `grove:"principal_cents"`
	PrincipalCurrency string    `grove:"principal_currency"`
	Active            bool      `grove:"active"`
	CreatedAt         time.Time `grove:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"`
}

func toLoanModel(l *loan.Loan) *loanModel {
	return &loanModel{
		ID:                l.ID.String(),
		CustomerID:        l.CustomerID,
		PrincipalCents:    l.Principal.Amount,
		PrincipalCurrency: l.Principal.Currency,
		Active:            l.Active,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func fromLoanModel(m *loanModel) (*loan.Loan, error) {
	loanID, err := id.ParseLoanID(m.ID)
	if err != nil {
		return nil, err
	}

	return &loan.Loan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         loanID,
		CustomerID: m.CustomerID,
		Principal:  types.Money{Amount: m.PrincipalCents, Currency: m.PrincipalCurrency},
		Active:     m.Active,
	}, nil
}

type installmentModel struct {
	grove.BaseModel `grove:"table:teller_installments"`

	ID             string    `grove:"id,pk"`
	LoanID         string    `grove:"loan_id"`
	Sequence       int       `grove:"sequence"`
	DueDate        time.Time `grove:"due_date"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	Paid           bool      `grove:"paid"`
	Overdue        bool      `grove:"overdue"`
}

func toInstallmentModel(inst *loan.Installment) *installmentModel {
	return &installmentModel{
		ID:             inst.ID.String(),
		LoanID:         inst.LoanID.String(),
		Sequence:       inst.Sequence,
		DueDate:        inst.DueDate,
		AmountCents:    inst.Amount.Amount,
		AmountCurrency: inst.Amount.Currency,
		Paid:           inst.Paid,
		Overdue:        inst.Overdue,
	}
}

func fromInstallmentModel(m *installmentModel) (*loan.Installment, error) {
	instID, err := id.ParseInstallmentID(m.ID)
	if err != nil {
		return nil, err
	}
	loanID, err := id.ParseLoanID(m.LoanID)
	if err != nil {
		return nil, err
	}

	return &loan.Installment{
		ID:       instID,
		LoanID:   loanID,
		Sequence: m.Sequence,
		DueDate:  m.DueDate,
		Amount:   types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		Paid:     m.Paid,
		Overdue:  m.Overdue,
	}, nil
}

// ==================== Card models ====================

type cardModel struct {
	grove.BaseModel `grove:"table:teller_cards"`

	ID            string    `grove:"id,pk"`
	Number        string    `grove:"number"`
	CustomerID    string    `grove:"customer_id"`
	LimitCents    int64     `grove:"limit_cents"`
	LimitCurrency string    `grove:"limit_currency"`
	DebtCents     int64     `grove:"debt_cents"`
	DebtCurrency  string    `grove:"debt_currency"`
	CVCHash       string    `grove:"cvc_hash"`
	Active        bool      `grove:"active"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toCardModel(c *card.CreditCard) *cardModel {
	return &cardModel{
		ID:            c.ID.String(),
		Number:        c.Number,
		CustomerID:    c.CustomerID,
		LimitCents:    c.Limit.Amount,
		LimitCurrency: c.Limit.Currency,
		DebtCents:     c.Debt.Amount,
		DebtCurrency:  c.Debt.Currency,
		CVCHash:       c.CVCHash,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromCardModel(m *cardModel) (*card.CreditCard, error) {
	cardID, err := id.ParseCardID(m.ID)
	if err != nil {
		return nil, err
	}

	return &card.CreditCard{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         cardID,
		Number:     m.Number,
		CustomerID: m.CustomerID,
		Limit:      types.Money{Amount: m.LimitCents, Currency: m.LimitCurrency},
		Debt:       types.Money{Amount: m.DebtCents, Currency: m.DebtCurrency},
		CVCHash:    m.CVCHash,
		Active:     m.Active,
	}, nil
}

type consumptionModel struct {
	grove.BaseModel `grove:"table:teller_consumptions"`

	ID             string    `grove:"id,pk"`
	CardID         string    `grove:"card_id"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	MerchantRef    string    `grove:"merchant_ref"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toConsumptionModel(c *card.Consumption) *consumptionModel {
	return &consumptionModel{
		ID:             c.ID.String(),
		CardID:         c.CardID.String(),
		AmountCents:    c.Amount.Amount,
		AmountCurrency: c.Amount.Currency,
		MerchantRef:    c.MerchantRef,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromConsumptionModel(m *consumptionModel) (*card.Consumption, error) {
	consID, err := id.ParseConsumptionID(m.ID)
	if err != nil {
		return nil, err
	}
	cardID, err := id.ParseCardID(m.CardID)
	if err != nil {
		return nil, err
	}

	return &card.Consumption{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          consID,
		CardID:      cardID,
		Amount:      types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		MerchantRef: m.MerchantRef,
	}, nil
}

// ==================== Beneficiary models ====================

type beneficiaryModel struct {
	grove.BaseModel `grove:"table:teller_beneficiaries"`

	ID            string    `grove:"id,pk"`
	CustomerID    string    `grove:"customer_id"`
	AccountNumber string    `grove:"account_number"`
	FirstName     string    `grove:"first_name"`
	LastName      string    `grove:"last_name"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toBeneficiaryModel(b *beneficiary.Beneficiary) *beneficiaryModel {
	return &beneficiaryModel{
		ID:            b.ID.String(),
		CustomerID:    b.CustomerID,
		AccountNumber: b.AccountNumber,
		FirstName:     b.FirstName,
		LastName:      b.LastName,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func fromBeneficiaryModel(m *beneficiaryModel) (*beneficiary.Beneficiary, error) {
	beneID, err := id.ParseBeneficiaryID(m.ID)
	if err != nil {
		return nil, err
	}

	return &beneficiary.Beneficiary{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            beneID,
		CustomerID:    m.CustomerID,
		AccountNumber: m.AccountNumber,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
	}, nil
}

// ==================== Commerce models ====================

type commerceModel struct {
	grove.BaseModel `grove:"table:teller_commerces"`

	ID                      string    `grove:"id,pk"`
	Name                    string    `grove:"name"`
	SettlementAccountNumber string    `grove:"settlement_account_number"`
	Active                  bool      `grove:"active"`
	CreatedAt               time.Time `grove:"created_at"`
	UpdatedAt               time.Time `grove:"updated_at"`
}

func toCommerceModel(c *commerce.Commerce) *commerceModel {
	return &commerceModel{
		ID:                      c.ID.String(),
		Name:                    c.Name,
		SettlementAccountNumber: c.SettlementAccountNumber,
		Active:                  c.Active,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
	}
}

func fromCommerceModel(m *commerceModel) (*commerce.Commerce, error) {
	commerceID, err := id.ParseCommerceID(m.ID)
	if err != nil {
		return nil, err
	}

	return &commerce.Commerce{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                      commerceID,
		Name:                    m.Name,
		SettlementAccountNumber: m.SettlementAccountNumber,
		Active:                  m.Active,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:teller_transactions"`

	ID             string    `grove:"id,pk"`
	Type           string    `grove:"type"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	SourceRef      string    `grove:"source_ref"`
	DestRef        string    `grove:"dest_ref"`
	Status         string    `grove:"status"`
	CorrelationID  string    `grove:"correlation_id"`
	CommerceID     string    `grove:"commerce_id"`
	Detail         string    `grove:"detail"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	m := &transactionModel{
		ID:             t.ID.String(),
		Type:           string(t.Type),
		AmountCents:    t.Amount.Amount,
		AmountCurrency: t.Amount.Currency,
		SourceRef:      t.SourceRef,
		DestRef:        t.DestRef,
		Status:         string(t.Status),
		Detail:         t.Detail,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if !t.CorrelationID.IsNil() {
		m.CorrelationID = t.CorrelationID.String()
	}
	if !t.CommerceID.IsNil() {
		m.CommerceID = t.CommerceID.String()
	}
	return m
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}

	t := &transaction.Transaction{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        txnID,
		Type:      transaction.Type(m.Type),
		Amount:    types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		SourceRef: m.SourceRef,
		DestRef:   m.DestRef,
		Status:    transaction.Status(m.Status),
		Detail:    m.Detail,
	}
	if m.CorrelationID != "" {
		correlationID, err := id.ParseTransactionID(m.CorrelationID)
		if err != nil {
			return nil, err
		}
		t.CorrelationID = correlationID
	}
	if m.CommerceID != "" {
		commerceID, err := id.ParseCommerceID(m.CommerceID)
		if err != nil {
			return nil, err
		}
		t.CommerceID = commerceID
	}
	return t, nil
}
