package loan

import (
	"testing"
	"time"

	"github.com/xraph/teller/id"
	"github.com/xraph/teller/types"
)

func TestInstallmentState(t *testing.T) {
	tests := []struct {
		name     string
		paid     bool
		overdue  bool
		expected State
	}{
		{"Pending", false, false, StatePending},
		{"Overdue", false, true, StateOverdue},
		{"Paid", true, false, StatePaid},
		{"Paid with stale overdue flag", true, true, StatePaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := Installment{Paid: tt.paid, Overdue: tt.overdue}
			if got := inst.State(); got != tt.expected {
				t.Errorf("State: got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInstallmentPastDue(t *testing.T) {
	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	inst := Installment{DueDate: due}

	tests := []struct {
		name    string
		today   time.Time
		pastDue bool
	}{
		{"Day before", time.Date(2026, 1, 14, 23, 59, 59, 0, time.UTC), false},
		{"Due date morning", time.Date(2026, 1, 15, 0, 0, 1, 0, time.UTC), false},
		{"Due date evening", time.Date(2026, 1, 15, 23, 59, 59, 0, time.UTC), false},
		{"Day after midnight", time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), true},
		{"Weeks later", time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inst.PastDue(tt.today); got != tt.pastDue {
				t.Errorf("PastDue(%v): got %v, want %v", tt.today, got, tt.pastDue)
			}
		})
	}
}

func TestBuildSchedule(t *testing.T) {
	loanID := id.NewLoanID()
	firstDue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	schedule := BuildSchedule(loanID, types.USD(100000), 12, firstDue)
	if len(schedule) != 12 {
		t.Fatalf("expected 12 installments, got %d", len(schedule))
	}

	var total int64
	for s, inst := range schedule {
		total += inst.Amount.Amount
		if inst.Sequence != s+1 {
			t.Errorf("installment %d: sequence %d", s, inst.Sequence)
		}
		if inst.LoanID != loanID {
			t.Errorf("installment %d: wrong loan ID", s)
		}
		if want := firstDue.AddDate(0, s, 0); !inst.DueDate.Equal(want) {
			t.Errorf("installment %d: due %v, want %v", s, inst.DueDate, want)
		}
		if inst.Paid || inst.Overdue {
			t.Errorf("installment %d: flags should start clear", s)
		}
		if inst.ID.IsNil() {
			t.Errorf("installment %d: missing ID", s)
		}
	}
	if total != 100000 {
		t.Errorf("schedule sums to %d, want 100000", total)
	}
}

func TestBuildScheduleRemainder(t *testing.T) {
	schedule := BuildSchedule(id.NewLoanID(), types.USD(1000), 3, time.Now())

	if schedule[0].Amount.Amount != 333 || schedule[1].Amount.Amount != 333 {
		t.Errorf("even parts: got %d, %d, want 333, 333",
			schedule[0].Amount.Amount, schedule[1].Amount.Amount)
	}
	if schedule[2].Amount.Amount != 334 {
		t.Errorf("remainder should land on the last installment: got %d, want 334",
			schedule[2].Amount.Amount)
	}
}

func TestNextUnpaid(t *testing.T) {
	firstDue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &Loan{ID: id.NewLoanID()}
	l.Schedule = BuildSchedule(l.ID, types.USD(3000), 3, firstDue)

	next := l.NextUnpaid()
	if next == nil || next.Sequence != 1 {
		t.Fatalf("expected installment 1, got %+v", next)
	}

	l.Schedule[0].Paid = true
	next = l.NextUnpaid()
	if next == nil || next.Sequence != 2 {
		t.Fatalf("after paying 1, expected installment 2, got %+v", next)
	}

	// Earliest due wins even when sequence order is shuffled.
	l.Schedule[1], l.Schedule[2] = l.Schedule[2], l.Schedule[1]
	next = l.NextUnpaid()
	if next == nil || next.Sequence != 2 {
		t.Fatalf("expected the earliest-due installment, got %+v", next)
	}

	for s := range l.Schedule {
		l.Schedule[s].Paid = true
	}
	if next := l.NextUnpaid(); next != nil {
		t.Errorf("fully repaid loan should have no next installment, got %+v", next)
	}
}

func TestFindInstallment(t *testing.T) {
	l := &Loan{ID: id.NewLoanID()}
	l.Schedule = BuildSchedule(l.ID, types.USD(2000), 2, time.Now())

	found := l.FindInstallment(l.Schedule[1].ID)
	if found == nil || found.Sequence != 2 {
		t.Fatalf("expected installment 2, got %+v", found)
	}

	if got := l.FindInstallment(id.NewInstallmentID()); got != nil {
		t.Errorf("unknown ID should return nil, got %+v", got)
	}
}
