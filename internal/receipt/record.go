package receipt

import "tally/internal/core"

// Status reflects how extraction went for a stored receipt.
type Status string

const (
	StatusExtracted      Status = "extracted"
	StatusNoAmountFound  Status = "no_amount_found"
	StatusOCRUnavailable Status = "ocr_unavailable"
)

// Outcome tags an ExtractionResult. Callers switch on it instead of
// catching errors; extraction itself never fails the request.
type Outcome int

const (
	OutcomeUnavailable Outcome = iota
	OutcomeNotFound
	OutcomeAmount
)

// ExtractionResult is the tagged outcome of running OCR over a stored
// receipt: an amount, nothing recognizable, or "OCR not installed".
type ExtractionResult struct {
	Outcome Outcome
	Amount  core.Money // valid only when Outcome == OutcomeAmount
	Date    core.Date  // zero when no date-shaped token was found
	Text    string     // raw OCR text, empty when unavailable
}

// Unavailable is the result used when the OCR capability is absent.
func Unavailable() ExtractionResult {
	return ExtractionResult{Outcome: OutcomeUnavailable}
}

// Record combines the durable file with the extraction outcome. It is what
// the page handlers persist alongside an entry.
type Record struct {
	StoredName string
	StoredPath string
	Status     Status
	Amount     *core.Money // nil unless Status == StatusExtracted
	Date       core.Date
	Text       string
}

// BuildRecord is a pure mapping from a stored file and an extraction result
// to a Record. No I/O, no failure modes.
func BuildRecord(stored StoredFile, res ExtractionResult) Record {
	rec := Record{
		StoredName: stored.Name,
		StoredPath: stored.Path,
		Date:       res.Date,
		Text:       res.Text,
	}
	switch res.Outcome {
	case OutcomeAmount:
		amt := res.Amount
		rec.Amount = &amt
		rec.Status = StatusExtracted
	case OutcomeNotFound:
		rec.Status = StatusNoAmountFound
	default:
		rec.Status = StatusOCRUnavailable
	}
	return rec
}
