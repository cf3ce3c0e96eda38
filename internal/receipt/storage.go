// Package receipt implements the receipt ingestion pipeline: saving an
// uploaded image to durable storage, optionally running OCR over the saved
// copy, and building the record handed back to the page handlers.
//
// OCR is strictly optional: a missing engine degrades the pipeline, never
// the upload itself.
package receipt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrNotAnImage rejects uploads whose declared type is outside the
// allow-list. It is the only fatal outcome of the pipeline.
var ErrNotAnImage = errors.New("upload is not a supported image type")

var allowedContentTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
}

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Upload is the transient form of an incoming file; it lives only for the
// duration of one request.
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// StoredFile is the durable on-disk copy of an uploaded receipt.
type StoredFile struct {
	Name string // filename inside the receipts directory
	Path string // absolute or base-relative path on disk
}

// Store persists uploads into a single receipts directory with
// collision-free names.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the receipts directory the store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates the upload and writes it to the receipts directory.
// The write is all-or-nothing: data goes to a temp file first and is
// renamed into place only after a successful flush, so a failure never
// leaves a partial receipt behind.
func (s *Store) Save(up Upload) (StoredFile, error) {
	if !acceptable(up) {
		return StoredFile{}, fmt.Errorf("%w: %q (%s)", ErrNotAnImage, up.Filename, up.ContentType)
	}

	name := uniqueName(up.Filename)
	dst := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return StoredFile{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, up.Data); err != nil {
		tmp.Close()
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return StoredFile{}, fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return StoredFile{}, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("chmod upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return StoredFile{}, fmt.Errorf("finalize upload: %w", err)
	}

	return StoredFile{Name: name, Path: dst}, nil
}

// Open returns a reader for a stored receipt by name. The name is reduced
// to its base to keep callers from escaping the receipts directory.
func (s *Store) Open(name string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, filepath.Base(name)))
}

func acceptable(up Upload) bool {
	ct := strings.ToLower(strings.TrimSpace(up.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != "" {
		_, ok := allowedContentTypes[ct]
		return ok
	}
	// No declared type; fall back to the extension.
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(up.Filename))]
	return ok
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// uniqueName builds a filesystem-safe name from the original filename plus
// a UUID suffix, so repeated uploads of the same file never overwrite.
func uniqueName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + "-" + uuid.NewString() + ext
}
