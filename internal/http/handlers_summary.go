package http

import (
	"fmt"
	"net/http"
	"time"

	applog "tally/internal/log"
)

func (s *Server) handleYearlySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	year := parseYear(r)
	summary, err := s.getSummary(r.Context(), year)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "year summary error",
			applog.FieldError, err,
			applog.FieldYear, year)
		http.Error(w, "error loading summary", http.StatusInternalServerError)
		return
	}

	type monthRow struct {
		Name    string
		Income  string
		Expense string
	}
	type categoryRow struct {
		Name   string
		Amount string
		Width  int
	}

	data := struct {
		Year         int
		PrevYear     int
		NextYear     int
		TotalIncome  string
		TotalExpense string
		Net          string
		Months       []monthRow
		Categories   []categoryRow
	}{
		Year:         summary.Year,
		PrevYear:     summary.Year - 1,
		NextYear:     summary.Year + 1,
		TotalIncome:  formatDollars(summary.TotalIncome.Cents),
		TotalExpense: formatDollars(summary.TotalExpense.Cents),
		Net:          formatDollars(summary.Net().Cents),
	}

	for _, mt := range summary.Months {
		data.Months = append(data.Months, monthRow{
			Name:    time.Month(mt.Month).String(),
			Income:  formatDollars(mt.Income.Cents),
			Expense: formatDollars(mt.Expense.Cents),
		})
	}

	// Scale category bars against the largest category.
	var maxCents int64
	for _, ca := range summary.ByCategory {
		if ca.Amount.Cents > maxCents {
			maxCents = ca.Amount.Cents
		}
	}
	for _, ca := range summary.ByCategory {
		width := 0
		if maxCents > 0 && ca.Amount.Cents > 0 {
			width = int((ca.Amount.Cents*100 + maxCents/2) / maxCents)
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Categories = append(data.Categories, categoryRow{
			Name:   ca.Name,
			Amount: formatDollars(ca.Amount.Cents),
			Width:  width,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "yearly_summary.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "summary template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	year := parseYear(r)
	data, err := s.exporter.YearXLSX(r.Context(), year)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "export failed",
			applog.FieldError, err,
			applog.FieldYear, year)
		http.Error(w, "error generating export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tally-%d.xlsx"`, year))
	_, _ = w.Write(data)
}
