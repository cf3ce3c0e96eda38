package core

import (
	"errors"
	"strings"
	"testing"
)

func validEntry() Entry {
	return Entry{
		Type:     Expense,
		Amount:   Money{Cents: 1250},
		Category: "Groceries",
		Note:     "weekly shop",
		Date:     NewDate(2025, 3, 14),
	}
}

func TestEntryValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Entry)
		want   error
	}{
		{"valid", func(e *Entry) {}, nil},
		{"bad type", func(e *Entry) { e.Type = "transfer" }, ErrInvalidEntryType},
		{"zero amount", func(e *Entry) { e.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(e *Entry) { e.Amount.Cents = -5 }, ErrInvalidAmount},
		{"zero date", func(e *Entry) { e.Date = Date{} }, ErrInvalidDate},
		{"long note", func(e *Entry) { e.Note = strings.Repeat("x", 501) }, ErrNoteTooLong},
		{"long category", func(e *Entry) { e.Category = strings.Repeat("c", 101) }, ErrCategoryTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEntry()
			tc.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-08-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ISO() != "2025-08-01" {
		t.Fatalf("round trip mismatch: %s", d.ISO())
	}
	if _, err := ParseDate("01/08/2025"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestYearSummaryNet(t *testing.T) {
	s := YearSummary{TotalIncome: Money{Cents: 500000}, TotalExpense: Money{Cents: 230050}}
	if got := s.Net().Cents; got != 269950 {
		t.Fatalf("expected 269950, got %d", got)
	}
}
