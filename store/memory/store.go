package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	teller "github.com/xraph/teller"
	"github.com/xraph/teller/account"
	"github.com/xraph/teller/beneficiary"
	"github.com/xraph/teller/card"
	"github.com/xraph/teller/commerce"
	"github.com/xraph/teller/id"
	"github.com/xraph/teller/loan"
	"github.com/xraph/teller/store"
	"github.com/xraph/teller/transaction"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is the in-memory backend. A single mutex serializes every mutation,
// and ApplySettlement validates all guards before touching any entity, so a
// rejected settlement leaves no partial effect.
type Store struct {
	mu sync.RWMutex

	// Account storage
	accounts         map[string]*account.SavingsAccount
	accountsByNumber map[string]string // number -> account id

	// Loan storage
	loans        map[string]*loan.Loan
	installments map[string]*loan.Installment
	schedules    map[string][]string // loan id -> installment ids by sequence

	// Card storage
	cards         map[string]*card.CreditCard
	cardsByNumber map[string]string // number -> card id
	consumptions  map[string][]*card.Consumption

	// Beneficiary storage
	beneficiaries map[string]*beneficiary.Beneficiary // customer/account key

	// Commerce storage
	commerces map[string]*commerce.Commerce

	// Transaction storage (append-only)
	transactions []*transaction.Transaction
	txnByID      map[string]*transaction.Transaction
}

func New() *Store {
	return &Store{
		accounts:         make(map[string]*account.SavingsAccount),
		accountsByNumber: make(map[string]string),
		loans:            make(map[string]*loan.Loan),
		installments:     make(map[string]*loan.Installment),
		schedules:        make(map[string][]string),
		cards:            make(map[string]*card.CreditCard),
		cardsByNumber:    make(map[string]string),
		consumptions:     make(map[string][]*card.Consumption),
		beneficiaries:    make(map[string]*beneficiary.Beneficiary),
		commerces:        make(map[string]*commerce.Commerce),
		transactions:     make([]*transaction.Transaction, 0),
		txnByID:          make(map[string]*transaction.Transaction),
	}
}

// Account Store implementation

func (s *Store) CreateAccount(_ context.Context, a *account.SavingsAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return teller.ErrAlreadyExists
	}
	if _, exists := s.accountsByNumber[a.Number]; exists {
		return teller.ErrAlreadyExists
	}
	if a.Principal {
		for _, other := range s.accounts {
			if other.CustomerID == a.CustomerID && other.Principal {
				return teller.ErrPrincipalExists
			}
		}
	}

	s.accounts[a.ID.String()] = a
	s.accountsByNumber[a.Number] = a.ID.String()
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.SavingsAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, teller.ErrAccountNotFound
}

func (s *Store) GetAccountByNumber(_ context.Context, number string) (*account.SavingsAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.accountByNumberLocked(number)
}

func (s *Store) accountByNumberLocked(number string) (*account.SavingsAccount, error) {
	if aid, ok := s.accountsByNumber[number]; ok {
		cp := *s.accounts[aid]
		return &cp, nil
	}
	return nil, teller.ErrAccountNotFound
}

func (s *Store) GetPrincipalAccount(_ context.Context, customerID string) (*account.SavingsAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.CustomerID == customerID && a.Principal {
			cp := *a
			return &cp, nil
		}
	}
	return nil, teller.ErrAccountNotFound
}

func (s *Store) ListAccounts(_ context.Context, customerID string) ([]*account.SavingsAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.SavingsAccount, 0)
	for _, a := range s.accounts {
		if a.CustomerID == customerID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) DeactivateAccount(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID.String()]
	if !ok {
		return teller.ErrAccountNotFound
	}
	a.Active = false
	a.Touch()
	return nil
}

// Loan Store implementation

func (s *Store) CreateLoan(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loans[l.ID.String()]; exists {
		return teller.ErrAlreadyExists
	}

	stored := *l
	stored.Schedule = nil
	s.loans[l.ID.String()] = &stored

	ids := make([]string, 0, len(l.Schedule))
	for i := range l.Schedule {
		inst := l.Schedule[i]
		s.installments[inst.ID.String()] = &inst
		ids = append(ids, inst.ID.String())
	}
	s.schedules[l.ID.String()] = ids
	return nil
}

func (s *Store) GetLoan(_ context.Context, loanID id.LoanID) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.loans[loanID.String()]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, teller.ErrLoanNotFound
}

func (s *Store) GetLoanWithSchedule(_ context.Context, loanID id.LoanID) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.loans[loanID.String()]
	if !ok {
		return nil, teller.ErrLoanNotFound
	}

	cp := *l
	cp.Schedule = make([]loan.Installment, 0, len(s.schedules[loanID.String()]))
	for _, instID := range s.schedules[loanID.String()] {
		cp.Schedule = append(cp.Schedule, *s.installments[instID])
	}
	sort.Slice(cp.Schedule, func(i, j int) bool { return cp.Schedule[i].Sequence < cp.Schedule[j].Sequence })
	return &cp, nil
}

func (s *Store) ListActiveLoans(_ context.Context, customerID string) ([]*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*loan.Loan, 0)
	for _, l := range s.loans {
		if l.CustomerID == customerID && l.Active {
			cp := *l
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

// Card Store implementation

func (s *Store) CreateCard(_ context.Context, c *card.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cards[c.ID.String()]; exists {
		return teller.ErrAlreadyExists
	}
	if _, exists := s.cardsByNumber[c.Number]; exists {
		return teller.ErrAlreadyExists
	}

	s.cards[c.ID.String()] = c
	s.cardsByNumber[c.Number] = c.ID.String()
	return nil
}

func (s *Store) GetCard(_ context.Context, cardID id.CardID) (*card.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.cards[cardID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, teller.ErrCardNotFound
}

func (s *Store) GetCardByNumber(_ context.Context, number string) (*card.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cid, ok := s.cardsByNumber[number]; ok {
		cp := *s.cards[cid]
		return &cp, nil
	}
	return nil, teller.ErrCardNotFound
}

func (s *Store) ListCards(_ context.Context, customerID string) ([]*card.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*card.CreditCard, 0)
	for _, c := range s.cards {
		if c.CustomerID == customerID {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) ListConsumptions(_ context.Context, cardID id.CardID) ([]*card.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.cards[cardID.String()]; !ok {
		return nil, teller.ErrCardNotFound
	}

	history := s.consumptions[cardID.String()]
	result := make([]*card.Consumption, 0, len(history))
	// Newest first
	for i := len(history) - 1; i >= 0; i-- {
		cp := *history[i]
		result = append(result, &cp)
	}
	return result, nil
}

// Beneficiary Store implementation

func (s *Store) AddBeneficiary(_ context.Context, b *beneficiary.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.beneficiaries[b.Key()]; exists {
		return teller.ErrBeneficiaryExists
	}
	s.beneficiaries[b.Key()] = b
	return nil
}

func (s *Store) RemoveBeneficiary(_ context.Context, customerID, accountNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := customerID + "/" + accountNumber
	if _, exists := s.beneficiaries[key]; !exists {
		return teller.ErrBeneficiaryNotFound
	}
	delete(s.beneficiaries, key)
	return nil
}

func (s *Store) GetBeneficiary(_ context.Context, customerID, accountNumber string) (*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.beneficiaries[customerID+"/"+accountNumber]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, teller.ErrBeneficiaryNotFound
}

func (s *Store) ListBeneficiaries(_ context.Context, customerID string) ([]*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*beneficiary.Beneficiary, 0)
	for _, b := range s.beneficiaries {
		if b.CustomerID == customerID {
			cp := *b
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AccountNumber < result[j].AccountNumber })
	return result, nil
}

// Commerce Store implementation

func (s *Store) CreateCommerce(_ context.Context, c *commerce.Commerce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commerces[c.ID.String()]; exists {
		return teller.ErrAlreadyExists
	}
	s.commerces[c.ID.String()] = c
	return nil
}

func (s *Store) GetCommerce(_ context.Context, commerceID id.CommerceID) (*commerce.Commerce, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.commerces[commerceID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, teller.ErrCommerceNotFound
}

// Transaction Store implementation

func (s *Store) GetTransaction(_ context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.txnByID[txnID.String()]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, teller.ErrTransactionNotFound
}

func (s *Store) ListTransactions(_ context.Context, accountRef string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*transaction.Transaction, 0)
	// Newest first
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.SourceRef != accountRef && t.DestRef != accountRef {
			continue
		}
		if opts.Type != "" && t.Type != opts.Type {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}

	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *Store) ListCommerceTransactions(_ context.Context, commerceID id.CommerceID, page, pageSize int) (transaction.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	matched := make([]*transaction.Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.CommerceID == commerceID {
			cp := *t
			matched = append(matched, &cp)
		}
	}

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return transaction.NewPage(matched[start:end], page, pageSize, len(matched)), nil
}

// Settlement

// ApplySettlement validates every guard against current state, then applies
// all mutations while still holding the lock. No partial effect is ever
// visible, including to a concurrent reader.
func (s *Store) ApplySettlement(ctx context.Context, set *store.Settlement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate balance deltas. Aggregate per account first so a settlement
	// with two deltas against one account is judged on the net effect.
	net := make(map[string]int64)
	for _, d := range set.Deltas {
		key := d.AccountID.String()
		if _, ok := s.accounts[key]; !ok {
			return teller.ErrAccountNotFound
		}
		net[key] += d.Delta
	}
	for key, delta := range net {
		if s.accounts[key].Balance.Amount+delta < 0 {
			return teller.ErrInsufficientFunds
		}
	}

	// Validate installment updates. Paid is terminal.
	for _, u := range set.Installments {
		inst, ok := s.installments[u.InstallmentID.String()]
		if !ok {
			return teller.ErrInstallmentNotFound
		}
		if inst.Paid && !u.Paid {
			return teller.ErrInstallmentPaid
		}
	}

	// Validate the card mutation.
	if set.Card != nil {
		c, ok := s.cards[set.Card.CardID.String()]
		if !ok {
			return teller.ErrCardNotFound
		}
		debt := c.Debt.Amount + set.Card.DebtDelta
		if debt < 0 {
			return teller.ErrPaymentExceedsDebt
		}
		if debt > c.Limit.Amount {
			return teller.ErrCreditLimitExceeded
		}
	}

	// Commit.
	for key, delta := range net {
		a := s.accounts[key]
		a.Balance.Amount += delta
		a.Touch()
	}
	for _, u := range set.Installments {
		inst := s.installments[u.InstallmentID.String()]
		inst.Paid = u.Paid
		inst.Overdue = u.Overdue
	}
	if set.Card != nil {
		c := s.cards[set.Card.CardID.String()]
		c.Debt.Amount += set.Card.DebtDelta
		c.Touch()
		if set.Card.Consumption != nil {
			cons := *set.Card.Consumption
			s.consumptions[c.ID.String()] = append(s.consumptions[c.ID.String()], &cons)
		}
	}
	for _, t := range set.Transactions {
		cp := *t
		s.transactions = append(s.transactions, &cp)
		s.txnByID[cp.ID.String()] = &cp
	}
	return nil
}

// Reconciliation

func (s *Store) ReconcileInstallments(ctx context.Context, asOf time.Time) (store.ReconcileStats, error) {
	if err := ctx.Err(); err != nil {
		return store.ReconcileStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stats store.ReconcileStats
	for _, inst := range s.installments {
		switch {
		case !inst.Paid && !inst.Overdue && inst.PastDue(asOf):
			inst.Overdue = true
			stats.MarkedOverdue++
		case inst.Paid && inst.Overdue:
			inst.Overdue = false
			stats.ClearedOverdue++
		}
	}
	return stats, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
