// Package storage persists entries and receipt records in a local SQLite
// database. Dates are stored as ISO-8601 text, money as integer cents.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// Receipt is the persisted form of a processed upload, optionally linked to
// the entry that was auto-created from it.
type Receipt struct {
	ID             int64
	Filename       string
	OCRText        string
	DetectedAmount *core.Money
	DetectedDate   string // ISO date or empty
	Status         string
	EntryID        *int64
	CreatedAt      time.Time

	// Populated by ListReceipts from the joined entry, when linked.
	EntryDate   string
	EntryAmount *core.Money
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateEntry inserts an entry and returns its ID.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (entry_type, amount_cents, category, note, entry_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Type), e.Amount.Cents, e.Category, e.Note, e.Date.ISO(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("create entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("entry id: %w", err)
	}

	slog.InfoContext(ctx, "entry saved",
		"id", id,
		"type", string(e.Type),
		"amount_cents", e.Amount.Cents,
		"entry_date", e.Date.ISO())
	return id, nil
}

// ListEntries returns all entries, newest first.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.Entry, error) {
	return r.queryEntries(ctx, `
		SELECT id, entry_type, amount_cents, category, note, entry_date, created_at
		FROM entries
		ORDER BY entry_date DESC, created_at DESC`)
}

// RecentEntries returns the newest n entries for the dashboard.
func (r *SQLiteRepository) RecentEntries(ctx context.Context, n int) ([]core.Entry, error) {
	return r.queryEntries(ctx, `
		SELECT id, entry_type, amount_cents, category, note, entry_date, created_at
		FROM entries
		ORDER BY entry_date DESC, created_at DESC
		LIMIT ?`, n)
}

// EntriesForYear returns all entries of a calendar year, oldest first, for
// the export workbook.
func (r *SQLiteRepository) EntriesForYear(ctx context.Context, year int) ([]core.Entry, error) {
	return r.queryEntries(ctx, `
		SELECT id, entry_type, amount_cents, category, note, entry_date, created_at
		FROM entries
		WHERE strftime('%Y', entry_date) = ?
		ORDER BY entry_date ASC, created_at ASC`, fmt.Sprintf("%04d", year))
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e         core.Entry
			entryType string
			dateStr   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &entryType, &e.Amount.Cents, &e.Category, &e.Note, &dateStr, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = core.EntryType(entryType)
		if d, err := core.ParseDate(dateStr); err == nil {
			e.Date = d
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateReceipt inserts a receipt record and returns its ID.
func (r *SQLiteRepository) CreateReceipt(ctx context.Context, rec Receipt) (int64, error) {
	var amount any
	if rec.DetectedAmount != nil {
		amount = rec.DetectedAmount.Cents
	}
	var entryID any
	if rec.EntryID != nil {
		entryID = *rec.EntryID
	}
	var date any
	if rec.DetectedDate != "" {
		date = rec.DetectedDate
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (filename, ocr_text, detected_amount_cents, detected_date, status, entry_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename, rec.OCRText, amount, date, rec.Status, entryID,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("create receipt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("receipt id: %w", err)
	}

	slog.InfoContext(ctx, "receipt saved",
		"id", id,
		"filename", rec.Filename,
		"status", rec.Status)
	return id, nil
}

// ListReceipts returns all receipts newest first, joined with the entry each
// one may have produced.
func (r *SQLiteRepository) ListReceipts(ctx context.Context) ([]Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.filename, r.ocr_text, r.detected_amount_cents, r.detected_date,
		       r.status, r.entry_id, r.created_at,
		       e.entry_date, e.amount_cents
		FROM receipts r
		LEFT JOIN entries e ON r.entry_id = e.id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var (
			rec         Receipt
			amount      sql.NullInt64
			date        sql.NullString
			entryID     sql.NullInt64
			createdAt   string
			entryDate   sql.NullString
			entryAmount sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.OCRText, &amount, &date,
			&rec.Status, &entryID, &createdAt, &entryDate, &entryAmount); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if amount.Valid {
			rec.DetectedAmount = &core.Money{Cents: amount.Int64}
		}
		if date.Valid {
			rec.DetectedDate = date.String
		}
		if entryID.Valid {
			id := entryID.Int64
			rec.EntryID = &id
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		if entryDate.Valid {
			rec.EntryDate = entryDate.String
		}
		if entryAmount.Valid {
			rec.EntryAmount = &core.Money{Cents: entryAmount.Int64}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// YearSummary aggregates totals, monthly rows and expense-by-category rows
// for one calendar year.
func (r *SQLiteRepository) YearSummary(ctx context.Context, year int) (core.YearSummary, error) {
	summary := core.YearSummary{Year: year}
	yearStr := fmt.Sprintf("%04d", year)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM entries
		WHERE strftime('%Y', entry_date) = ?`, yearStr).
		Scan(&summary.TotalIncome.Cents, &summary.TotalExpense.Cents)
	if err != nil {
		return summary, fmt.Errorf("year totals: %w", err)
	}

	monthRows, err := r.db.QueryContext(ctx, `
		SELECT
			CAST(strftime('%m', entry_date) AS INTEGER),
			COALESCE(SUM(CASE WHEN entry_type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM entries
		WHERE strftime('%Y', entry_date) = ?
		GROUP BY strftime('%m', entry_date)
		ORDER BY strftime('%m', entry_date)`, yearStr)
	if err != nil {
		return summary, fmt.Errorf("monthly totals: %w", err)
	}
	defer monthRows.Close()
	for monthRows.Next() {
		var mt core.MonthTotal
		if err := monthRows.Scan(&mt.Month, &mt.Income.Cents, &mt.Expense.Cents); err != nil {
			return summary, fmt.Errorf("scan month total: %w", err)
		}
		summary.Months = append(summary.Months, mt)
	}
	if err := monthRows.Err(); err != nil {
		return summary, err
	}

	catRows, err := r.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount_cents), 0) AS total
		FROM entries
		WHERE entry_type = 'expense' AND strftime('%Y', entry_date) = ?
		GROUP BY category
		ORDER BY total DESC`, yearStr)
	if err != nil {
		return summary, fmt.Errorf("category totals: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var ca core.CategoryAmount
		if err := catRows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return summary, fmt.Errorf("scan category total: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, ca)
	}
	return summary, catRows.Err()
}
