// Package loan defines loans and their installment schedules.
package loan

import (
	"time"

	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

// State is the lifecycle state of a single installment. The storage boundary
// serializes it back to the (paid, overdue) flag pair; everything in between
// reasons in terms of this three-state machine so the paid flag can never
// regress.
type State string

const (
	// StatePending means the installment is unpaid and not yet past due.
	StatePending State = "pending"
	// StateOverdue means the installment is unpaid and past its due date.
	StateOverdue State = "overdue"
	// StatePaid is terminal. A paid installment never leaves this state.
	StatePaid State = "paid"
)

// Loan represents a lending instrument owned by a customer. The loan owns an
// ordered installment schedule; installment amounts and due dates are
// immutable once created.
type Loan struct {
	types.Entity
	ID         id.LoanID   `json:"id"`
	CustomerID string      `json:"customer_id"`
	Principal  types.Money `json:"principal"`
	Active     bool        `json:"active"`

	// Schedule is populated by GetLoanWithSchedule, ordered by Sequence.
	Schedule []Installment `json:"schedule,omitempty"`
}

// Installment is one scheduled repayment obligation. Only the Paid and
// Overdue flags ever mutate.
type Installment struct {
	ID       id.InstallmentID `json:"id"`
	LoanID   id.LoanID        `json:"loan_id"`
	Sequence int              `json:"sequence"`
	DueDate  time.Time        `json:"due_date"`
	Amount   types.Money      `json:"amount"`
	Paid     bool             `json:"paid"`
	Overdue  bool             `json:"overdue"`
}

// State derives the installment state from the persisted flag pair.
// The illegal pair (paid && overdue) reads as paid; reconciliation repairs
// the stale overdue flag without treating it as a business event.
func (i Installment) State() State {
	switch {
	case i.Paid:
		return StatePaid
	case i.Overdue:
		return StateOverdue
	default:
		return StatePending
	}
}

// PastDue reports whether the installment's due date is strictly before the
// given day. Comparison is by calendar day in UTC, not by instant.
func (i Installment) PastDue(today time.Time) bool {
	due := i.DueDate.UTC().Truncate(24 * time.Hour)
	day := today.UTC().Truncate(24 * time.Hour)
	return due.Before(day)
}

// BuildSchedule creates n monthly installments that together repay principal
// exactly. The first installment is due at firstDue; each following one a
// calendar month later. Integer remainder from the split lands on the last
// installment.
func BuildSchedule(loanID id.LoanID, principal types.Money, n int, firstDue time.Time) []Installment {
	parts := principal.SplitEven(n)

	schedule := make([]Installment, n)
	for s := range schedule {
		schedule[s] = Installment{
			ID:       id.NewInstallmentID(),
			LoanID:   loanID,
			Sequence: s + 1,
			DueDate:  firstDue.AddDate(0, s, 0),
			Amount:   parts[s],
		}
	}
	return schedule
}

// NextUnpaid returns the earliest-due unpaid installment of the schedule,
// or nil if the loan is fully repaid.
func (l *Loan) NextUnpaid() *Installment {
	var next *Installment
	for s := range l.Schedule {
		inst := &l.Schedule[s]
		if inst.Paid {
			continue
		}
		if next == nil || inst.DueDate.Before(next.DueDate) {
			next = inst
		}
	}
	return next
}

// FindInstallment returns the schedule entry with the given ID, or nil.
func (l *Loan) FindInstallment(instID id.InstallmentID) *Installment {
	for s := range l.Schedule {
		if l.Schedule[s].ID == instID {
			return &l.Schedule[s]
		}
	}
	return nil
}
