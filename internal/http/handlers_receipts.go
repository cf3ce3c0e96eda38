package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/receipt"
	"tally/internal/storage"
)

// maxUploadBytes caps receipt uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// receiptRow is the template-facing shape of a stored receipt.
type receiptRow struct {
	Filename  string
	Status    string
	Amount    string
	Date      string
	EntryDate string
	Uploaded  string
	HasEntry  bool
	Extracted bool
	NoAmount  bool
	NoOCR     bool
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	receipts, err := s.repo.ListReceipts(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list receipts error", "error", err)
		http.Error(w, "error loading receipts", http.StatusInternalServerError)
		return
	}

	rows := make([]receiptRow, 0, len(receipts))
	for _, rec := range receipts {
		row := receiptRow{
			Filename:  rec.Filename,
			Status:    rec.Status,
			Date:      rec.DetectedDate,
			EntryDate: rec.EntryDate,
			Uploaded:  rec.CreatedAt.Format("2006-01-02 15:04"),
			HasEntry:  rec.EntryID != nil,
			Extracted: rec.Status == string(receipt.StatusExtracted),
			NoAmount:  rec.Status == string(receipt.StatusNoAmountFound),
			NoOCR:     rec.Status == string(receipt.StatusOCRUnavailable),
		}
		if rec.DetectedAmount != nil {
			row.Amount = formatDollars(rec.DetectedAmount.Cents)
		}
		rows = append(rows, row)
	}

	data := struct {
		Receipts     []receiptRow
		OCRAvailable bool
		Uploaded     bool
	}{
		Receipts:     rows,
		OCRAvailable: s.ocrAvailable,
		Uploaded:     r.URL.Query().Get("uploaded") == "1",
	}

	if err := s.templates.ExecuteTemplate(w, "receipts.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "receipts template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleUploadReceipt shows the upload form on GET and runs the pipeline on
// POST.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderUploadForm(w, r, "")
	case http.MethodPost:
		s.uploadReceipt(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderUploadForm(w http.ResponseWriter, r *http.Request, errMsg string) {
	data := struct {
		OCRAvailable bool
		Error        string
	}{OCRAvailable: s.ocrAvailable, Error: errMsg}
	if err := s.templates.ExecuteTemplate(w, "upload.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "upload template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.logger.WarnContext(r.Context(), "multipart parse error", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		s.renderUploadForm(w, r, "Upload too large or malformed (max 10 MB)")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderUploadForm(w, r, "No file selected")
		return
	}
	defer file.Close()

	up := receipt.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
	}

	rec, err := s.processor.Process(r.Context(), up)
	if err != nil {
		if errors.Is(err, receipt.ErrNotAnImage) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.renderUploadForm(w, r, "Only PNG and JPEG images are accepted")
			return
		}
		s.logger.ErrorContext(r.Context(), "receipt processing failed",
			applog.FieldError, err,
			applog.FieldFilename, header.Filename)
		w.WriteHeader(http.StatusInternalServerError)
		s.renderUploadForm(w, r, "Error saving receipt")
		return
	}

	stored := storage.Receipt{
		Filename:       rec.StoredName,
		OCRText:        rec.Text,
		DetectedAmount: rec.Amount,
		Status:         string(rec.Status),
	}
	if !rec.Date.IsZero() {
		stored.DetectedDate = rec.Date.ISO()
	}

	// A detected amount becomes an expense entry automatically, linked to
	// the receipt so the list can show where each entry came from.
	if rec.Amount != nil {
		entryDate := rec.Date
		if entryDate.IsZero() {
			entryDate = core.Date{Time: time.Now()}
		}
		entry := core.Entry{
			Type:     core.Expense,
			Amount:   *rec.Amount,
			Category: "Receipt",
			Note:     "Auto-imported from receipt",
			Date:     entryDate,
		}
		entryID, err := s.repo.CreateEntry(r.Context(), entry)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "auto entry creation failed",
				applog.FieldError, err,
				applog.FieldFilename, rec.StoredName)
		} else {
			stored.EntryID = &entryID
			s.invalidateSummary(entryDate.Year())
		}
	}

	if _, err := s.repo.CreateReceipt(r.Context(), stored); err != nil {
		s.logger.ErrorContext(r.Context(), "receipt record save failed",
			applog.FieldError, err,
			applog.FieldFilename, rec.StoredName)
		w.WriteHeader(http.StatusInternalServerError)
		s.renderUploadForm(w, r, "Error saving receipt record")
		return
	}

	http.Redirect(w, r, "/receipts?uploaded=1", http.StatusSeeOther)
}

// handleServeUpload streams a stored receipt image back to the browser.
func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/uploads/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	f, err := s.files.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		w.Header().Set("Content-Type", "image/png")
	case ".jpg", ".jpeg":
		w.Header().Set("Content-Type", "image/jpeg")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")

	if _, err := io.Copy(w, f); err != nil {
		s.logger.WarnContext(r.Context(), "serving upload interrupted",
			applog.FieldError, err,
			applog.FieldFilename, name)
	}
}
