package card

import (
	"testing"

	"github.com/xraph/teller/types"
)

func TestHashCVC(t *testing.T) {
	h := HashCVC("123")
	if h == "123" {
		t.Error("hash must not equal the plain code")
	}
	if len(h) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h))
	}
	if HashCVC("123") != h {
		t.Error("hashing must be deterministic")
	}
	if HashCVC("124") == h {
		t.Error("different codes must hash differently")
	}
}

func TestVerifyCVC(t *testing.T) {
	c := &CreditCard{CVCHash: HashCVC("456")}

	if !c.VerifyCVC("456") {
		t.Error("correct code should verify")
	}
	if c.VerifyCVC("455") {
		t.Error("wrong code should not verify")
	}
	if c.VerifyCVC("") {
		t.Error("empty code should not verify")
	}
}

func TestCanConsume(t *testing.T) {
	tests := []struct {
		name   string
		debt   int64
		limit  int64
		amount int64
		ok     bool
	}{
		{"Within limit", 0, 500000, 490000, true},
		{"Exactly at limit", 490000, 500000, 10000, true},
		{"Exceeds limit", 490000, 500000, 20000, false},
		{"Zero available", 500000, 500000, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CreditCard{Debt: types.USD(tt.debt), Limit: types.USD(tt.limit)}
			if got := c.CanConsume(types.USD(tt.amount)); got != tt.ok {
				t.Errorf("CanConsume: got %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	c := &CreditCard{Debt: types.USD(30000), Limit: types.USD(50000)}
	if got := c.Available(); !got.Equal(types.USD(20000)) {
		t.Errorf("Available: got %v, want %v", got, types.USD(20000))
	}
}
