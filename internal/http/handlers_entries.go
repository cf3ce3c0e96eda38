package http

import (
	"html/template"
	"net/http"
	"time"

	"tally/internal/core"
)

// entryRow is the template-facing shape of an entry.
type entryRow struct {
	Date     string
	Type     string
	Category string
	Note     string
	Amount   string
	Income   bool
}

func toEntryRows(entries []core.Entry) []entryRow {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{
			Date:     e.Date.ISO(),
			Type:     string(e.Type),
			Category: e.Category,
			Note:     e.Note,
			Amount:   formatDollars(e.Amount.Cents),
			Income:   e.Type == core.Income,
		})
	}
	return rows
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	year := time.Now().Year()
	recent, err := s.repo.RecentEntries(r.Context(), 10)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "recent entries error", "error", err)
	}
	summary, err := s.getSummary(r.Context(), year)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "dashboard summary error", "error", err, "year", year)
	}

	data := struct {
		Year         int
		TotalIncome  string
		TotalExpense string
		Net          string
		Recent       []entryRow
		OCRAvailable bool
	}{
		Year:         year,
		TotalIncome:  formatDollars(summary.TotalIncome.Cents),
		TotalExpense: formatDollars(summary.TotalExpense.Cents),
		Net:          formatDollars(summary.Net().Cents),
		Recent:       toEntryRows(recent),
		OCRAvailable: s.ocrAvailable,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "index template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	entries, err := s.repo.ListEntries(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list entries error", "error", err)
		http.Error(w, "error loading entries", http.StatusInternalServerError)
		return
	}

	data := struct {
		Entries []entryRow
	}{Entries: toEntryRows(entries)}

	if err := s.templates.ExecuteTemplate(w, "entries.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "entries template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleNewEntry shows the entry form on GET and creates the entry on POST.
func (s *Server) handleNewEntry(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderEntryForm(w, r, "")
	case http.MethodPost:
		s.createEntry(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderEntryForm(w http.ResponseWriter, r *http.Request, errMsg string) {
	data := struct {
		Today string
		Error string
	}{
		Today: time.Now().Format("2006-01-02"),
		Error: errMsg,
	}
	if err := s.templates.ExecuteTemplate(w, "entry_form.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "entry form template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "parse form error", "error", err, "path", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		s.renderEntryForm(w, r, "Invalid request format")
		return
	}

	entryType := sanitizeInput(r.Form.Get("type"))
	amountStr := sanitizeInput(r.Form.Get("amount"))
	category := sanitizeInput(r.Form.Get("category"))
	note := sanitizeInput(r.Form.Get("note"))
	dateStr := sanitizeInput(r.Form.Get("date"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderEntryForm(w, r, "Invalid amount")
		return
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderEntryForm(w, r, "Invalid date, expected YYYY-MM-DD")
		return
	}

	entry := core.Entry{
		Type:     core.EntryType(entryType),
		Amount:   core.Money{Cents: cents},
		Category: category,
		Note:     note,
		Date:     date,
	}
	if err := entry.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderEntryForm(w, r, "Invalid data: "+template.HTMLEscapeString(err.Error()))
		return
	}

	if _, err := s.repo.CreateEntry(r.Context(), entry); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to save entry",
			"error", err,
			"type", string(entry.Type),
			"amount_cents", entry.Amount.Cents)
		w.WriteHeader(http.StatusInternalServerError)
		s.renderEntryForm(w, r, "Error saving entry")
		return
	}

	s.invalidateSummary(date.Year())
	http.Redirect(w, r, "/entries", http.StatusSeeOther)
}
