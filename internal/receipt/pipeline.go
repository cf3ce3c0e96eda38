package receipt

import (
	"context"
	"log/slog"
)

// Pipeline ties the upload receiver, the extraction engine and the record
// builder into one request-scoped computation: save the file, then OCR the
// durable copy and parse an amount if the capability flag allows.
//
// Only validation of the upload itself can fail; every OCR-related problem
// degrades into the record's status instead.
type Pipeline struct {
	store     *Store
	extractor *Extractor
	logger    *slog.Logger
}

func NewPipeline(store *Store, extractor *Extractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: store, extractor: extractor, logger: logger}
}

// Store exposes the underlying file store for read access to saved receipts.
func (p *Pipeline) Store() *Store {
	return p.store
}

// Process validates and persists the upload, then extracts an amount from
// the stored copy. The file is durable before extraction starts, so a crash
// mid-extraction never loses the original image.
func (p *Pipeline) Process(ctx context.Context, up Upload) (Record, error) {
	stored, err := p.store.Save(up)
	if err != nil {
		return Record{}, err
	}

	res := p.extractor.Extract(ctx, stored.Path)
	rec := BuildRecord(stored, res)

	p.logger.InfoContext(ctx, "receipt processed",
		"stored_name", rec.StoredName,
		"status", string(rec.Status),
		"amount_found", rec.Amount != nil)
	return rec, nil
}
