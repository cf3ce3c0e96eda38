// Package export produces XLSX workbooks from stored entries.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"tally/internal/core"
	applog "tally/internal/log"
)

// Repository is the slice of storage the exporter needs.
type Repository interface {
	EntriesForYear(ctx context.Context, year int) ([]core.Entry, error)
	YearSummary(ctx context.Context, year int) (core.YearSummary, error)
}

// Service renders one calendar year of entries into a two-sheet workbook,
// one sheet of raw entries and one of aggregated totals.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// YearXLSX returns the workbook bytes for the given year.
func (s *Service) YearXLSX(ctx context.Context, year int) ([]byte, error) {
	start := time.Now()

	entries, err := s.repo.EntriesForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	summary, err := s.repo.YearSummary(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	f := excelize.NewFile()

	if err := s.writeEntriesSheet(f, entries); err != nil {
		return nil, err
	}
	if err := s.writeSummarySheet(f, summary); err != nil {
		return nil, err
	}

	// excelize starts every file with a default sheet; drop it.
	_ = f.DeleteSheet("Sheet1")
	if idx, _ := f.GetSheetIndex("Entries"); idx != -1 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		applog.FieldComponent, applog.ComponentExport,
		applog.FieldYear, year,
		"rows", len(entries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeEntriesSheet(f *excelize.File, entries []core.Entry) error {
	const sheet = "Entries"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Date", "Type", "Category", "Amount", "Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, e := range entries {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, e.Date.ISO())
		write(2, string(e.Type))
		write(3, e.Category)
		write(4, e.Amount.Dollars())
		write(5, truncate(e.Note, 140))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 10)
	_ = f.SetColWidth(sheet, "C", "C", 22)
	_ = f.SetColWidth(sheet, "D", "D", 14)
	_ = f.SetColWidth(sheet, "E", "E", 48)
	return nil
}

func (s *Service) writeSummarySheet(f *excelize.File, summary core.YearSummary) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(1, 1, fmt.Sprintf("Year %d", summary.Year))
	write(1, 2, "Total income")
	write(2, 2, summary.TotalIncome.Dollars())
	write(1, 3, "Total expense")
	write(2, 3, summary.TotalExpense.Dollars())
	write(1, 4, "Net")
	write(2, 4, summary.Net().Dollars())

	row := 6
	write(1, row, "Month")
	write(2, row, "Income")
	write(3, row, "Expense")
	row++
	for _, mt := range summary.Months {
		write(1, row, time.Month(mt.Month).String())
		write(2, row, mt.Income.Dollars())
		write(3, row, mt.Expense.Dollars())
		row++
	}

	row++
	write(1, row, "Expense category")
	write(2, row, "Amount")
	row++
	for _, ca := range summary.ByCategory {
		write(1, row, ca.Name)
		write(2, row, ca.Amount.Dollars())
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	return nil
}

func truncate(s string, n int) string {
	if n <= 1 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
