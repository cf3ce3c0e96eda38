package storage

import (
	"context"
	"path/filepath"
	"testing"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndListEntries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateEntry(ctx, core.Entry{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 1250},
		Category: "Groceries",
		Note:     "weekly shop",
		Date:     core.NewDate(2025, 3, 10),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if first == 0 {
		t.Fatalf("expected non-zero id")
	}
	if _, err := repo.CreateEntry(ctx, core.Entry{
		Type:   core.Income,
		Amount: core.Money{Cents: 500000},
		Date:   core.NewDate(2025, 3, 25),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}

	entries, err := repo.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest entry_date first.
	if entries[0].Type != core.Income || entries[0].Date.ISO() != "2025-03-25" {
		t.Fatalf("unexpected ordering: %+v", entries[0])
	}
	if entries[1].Category != "Groceries" || entries[1].Amount.Cents != 1250 {
		t.Fatalf("expense fields lost: %+v", entries[1])
	}
}

func TestRecentEntriesLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for day := 1; day <= 8; day++ {
		if _, err := repo.CreateEntry(ctx, core.Entry{
			Type:   core.Expense,
			Amount: core.Money{Cents: int64(day * 100)},
			Date:   core.NewDate(2025, 1, day),
		}); err != nil {
			t.Fatalf("create entry %d: %v", day, err)
		}
	}

	recent, err := repo.RecentEntries(ctx, 6)
	if err != nil {
		t.Fatalf("recent entries: %v", err)
	}
	if len(recent) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(recent))
	}
	if recent[0].Date.ISO() != "2025-01-08" {
		t.Fatalf("expected newest first, got %s", recent[0].Date.ISO())
	}
}

func TestCreateAndListReceipts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entryID, err := repo.CreateEntry(ctx, core.Entry{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 4250},
		Category: "Receipt",
		Date:     core.NewDate(2025, 3, 14),
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	amount := core.Money{Cents: 4250}
	if _, err := repo.CreateReceipt(ctx, Receipt{
		Filename:       "groceries-abc.png",
		OCRText:        "Total: $42.50",
		DetectedAmount: &amount,
		DetectedDate:   "2025-03-14",
		Status:         "extracted",
		EntryID:        &entryID,
	}); err != nil {
		t.Fatalf("create linked receipt: %v", err)
	}
	if _, err := repo.CreateReceipt(ctx, Receipt{
		Filename: "blurry-def.jpg",
		Status:   "no_amount_found",
	}); err != nil {
		t.Fatalf("create unlinked receipt: %v", err)
	}

	receipts, err := repo.ListReceipts(ctx)
	if err != nil {
		t.Fatalf("list receipts: %v", err)
	}
	if len(receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(receipts))
	}

	var linked, unlinked *Receipt
	for i := range receipts {
		if receipts[i].EntryID != nil {
			linked = &receipts[i]
		} else {
			unlinked = &receipts[i]
		}
	}
	if linked == nil || unlinked == nil {
		t.Fatalf("expected one linked and one unlinked receipt")
	}
	if linked.DetectedAmount == nil || linked.DetectedAmount.Cents != 4250 {
		t.Fatalf("detected amount lost: %+v", linked)
	}
	if linked.EntryDate != "2025-03-14" || linked.EntryAmount == nil {
		t.Fatalf("joined entry fields missing: %+v", linked)
	}
	if unlinked.DetectedAmount != nil || unlinked.EntryAmount != nil {
		t.Fatalf("unlinked receipt should carry no amounts: %+v", unlinked)
	}
}

func TestYearSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []core.Entry{
		{Type: core.Income, Amount: core.Money{Cents: 300000}, Date: core.NewDate(2025, 1, 15)},
		{Type: core.Expense, Amount: core.Money{Cents: 50000}, Category: "Rent", Date: core.NewDate(2025, 1, 20)},
		{Type: core.Expense, Amount: core.Money{Cents: 12000}, Category: "Groceries", Date: core.NewDate(2025, 2, 3)},
		{Type: core.Expense, Amount: core.Money{Cents: 8000}, Category: "Groceries", Date: core.NewDate(2025, 2, 18)},
		// Different year, must not leak into 2025.
		{Type: core.Expense, Amount: core.Money{Cents: 99999}, Category: "Rent", Date: core.NewDate(2024, 12, 31)},
	}
	for _, e := range seed {
		if _, err := repo.CreateEntry(ctx, e); err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	s, err := repo.YearSummary(ctx, 2025)
	if err != nil {
		t.Fatalf("year summary: %v", err)
	}
	if s.TotalIncome.Cents != 300000 {
		t.Fatalf("income: expected 300000, got %d", s.TotalIncome.Cents)
	}
	if s.TotalExpense.Cents != 70000 {
		t.Fatalf("expense: expected 70000, got %d", s.TotalExpense.Cents)
	}
	if s.Net().Cents != 230000 {
		t.Fatalf("net: expected 230000, got %d", s.Net().Cents)
	}
	if len(s.Months) != 2 {
		t.Fatalf("expected 2 month rows, got %d", len(s.Months))
	}
	if s.Months[0].Month != 1 || s.Months[0].Expense.Cents != 50000 {
		t.Fatalf("january row wrong: %+v", s.Months[0])
	}
	if s.Months[1].Month != 2 || s.Months[1].Expense.Cents != 20000 {
		t.Fatalf("february row wrong: %+v", s.Months[1])
	}
	// Category rows sorted by total, descending.
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Rent" || s.ByCategory[1].Amount.Cents != 20000 {
		t.Fatalf("category rows wrong: %+v", s.ByCategory)
	}
}

func TestEntriesForYear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []core.Entry{
		{Type: core.Expense, Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 6, 2)},
		{Type: core.Expense, Amount: core.Money{Cents: 200}, Date: core.NewDate(2025, 2, 9)},
		{Type: core.Expense, Amount: core.Money{Cents: 300}, Date: core.NewDate(2024, 2, 9)},
	} {
		if _, err := repo.CreateEntry(ctx, e); err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	entries, err := repo.EntriesForYear(ctx, 2025)
	if err != nil {
		t.Fatalf("entries for year: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Date.ISO() != "2025-02-09" {
		t.Fatalf("expected oldest first, got %s", entries[0].Date.ISO())
	}
}
