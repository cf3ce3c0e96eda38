package receipt

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"tally/internal/core"
)

// ExtractorConfig controls the external OCR invocation.
type ExtractorConfig struct {
	Tesseract string        // binary name or absolute path; empty -> "tesseract"
	Lang      string        // default "eng"
	Timeout   time.Duration // upper bound per invocation; default 30s
}

// Extractor runs OCR over a stored receipt image and parses monetary and
// date tokens out of the recognized text. It holds the capability flag
// computed once by ProbeOCR; when the flag is false Extract returns
// Unavailable without touching the engine.
type Extractor struct {
	cfg       ExtractorConfig
	available bool
	runner    Runner
	logger    *slog.Logger
}

func NewExtractor(cfg ExtractorConfig, available bool, logger *slog.Logger) *Extractor {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, available: available, runner: execRunner{}, logger: logger}
}

// Available reports the capability flag the extractor was built with.
func (e *Extractor) Available() bool {
	return e.available
}

// Extract runs OCR over the image at path. Engine failures of any kind
// (crash, corrupt image, timeout) degrade to NotFound; the caller always
// gets a usable result and the saved receipt stays valid.
func (e *Extractor) Extract(ctx context.Context, path string) ExtractionResult {
	if !e.available {
		return Unavailable()
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	// tesseract <file> stdout -l <lang>
	out, _, err := e.runner.Run(cctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang)
	if err != nil {
		e.logger.Warn("ocr extraction failed; saving receipt without amount",
			"path", path, "error", err)
		return ExtractionResult{Outcome: OutcomeNotFound}
	}

	text := string(out)
	res := ExtractionResult{Outcome: OutcomeNotFound, Text: text}
	if date, ok := DetectDate(text); ok {
		res.Date = date
	}
	if cents, ok := ParseAmount(text); ok {
		res.Outcome = OutcomeAmount
		res.Amount = core.Money{Cents: cents}
	}
	return res
}

var (
	// A labeled total wins outright over any other token on the receipt.
	keywordAmountRe = regexp.MustCompile(`(?i)(total|amount due|balance)\s*[:$]?\s*([0-9,]+\.\d{2})`)

	// Free-standing amounts: grouped digits with exactly two decimals. The
	// leading non-digit guard keeps us from slicing tokens such as 1234.56
	// into a bogus 234.56.
	amountRe = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,3}(?:,[0-9]{3})*\.[0-9]{2})`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{4}/\d{2}/\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
	}

	dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006"}
)

// ParseAmount scans OCR text for monetary-amount-shaped tokens and returns
// the best guess in cents. A keyword-labeled amount (Total, Amount Due,
// Balance) takes priority; otherwise the largest value wins, since receipts
// typically print a prominent total larger than any line item. That
// tie-break is a heuristic, not a guarantee.
func ParseAmount(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	if m := keywordAmountRe.FindStringSubmatch(text); m != nil {
		if cents, err := tokenToCents(m[2]); err == nil {
			return cents, true
		}
	}

	var best int64
	found := false
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		cents, err := tokenToCents(m[1])
		if err != nil {
			continue
		}
		if !found || cents > best {
			best = cents
			found = true
		}
	}
	return best, found
}

// DetectDate returns the first date-shaped token that parses cleanly.
func DetectDate(text string) (core.Date, bool) {
	for _, re := range datePatterns {
		for _, raw := range re.FindAllString(text, -1) {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, raw); err == nil {
					return core.Date{Time: t}, true
				}
			}
		}
	}
	return core.Date{}, false
}

func tokenToCents(token string) (int64, error) {
	return core.ParseDecimalToCents(strings.ReplaceAll(token, ",", ""))
}
