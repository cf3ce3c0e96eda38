// Package http serves the web UI: entry forms, receipt uploads and the
// yearly summary, rendered server-side from embedded templates.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/receipt"
	"tally/internal/storage"
	appweb "tally/web"
)

// Repository is the slice of storage the handlers need.
type Repository interface {
	CreateEntry(ctx context.Context, e core.Entry) (int64, error)
	ListEntries(ctx context.Context) ([]core.Entry, error)
	RecentEntries(ctx context.Context, n int) ([]core.Entry, error)
	CreateReceipt(ctx context.Context, rec storage.Receipt) (int64, error)
	ListReceipts(ctx context.Context) ([]storage.Receipt, error)
	YearSummary(ctx context.Context, year int) (core.YearSummary, error)
}

// Processor runs an upload through the receipt pipeline.
type Processor interface {
	Process(ctx context.Context, up receipt.Upload) (receipt.Record, error)
}

// Exporter renders one year of entries as an XLSX workbook.
type Exporter interface {
	YearXLSX(ctx context.Context, year int) ([]byte, error)
}

type Server struct {
	http.Server
	templates *template.Template
	repo      Repository
	processor Processor
	files     *receipt.Store
	exporter  Exporter
	logger    *slog.Logger

	ocrAvailable bool

	rateLimiter  *rateLimiter
	summaryCache *cache.TTLCache[core.YearSummary]

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, repo Repository, processor Processor, files *receipt.Store, exporter Exporter, ocrAvailable bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:         repo,
		processor:    processor,
		files:        files,
		exporter:     exporter,
		logger:       logger,
		ocrAvailable: ocrAvailable,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.New[core.YearSummary](10, 5*time.Minute),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/entries", s.withSecurityHeaders(s.handleEntries))
	mux.HandleFunc("/entries/new", s.withSecurityHeaders(s.handleNewEntry))
	mux.HandleFunc("/receipts", s.withSecurityHeaders(s.handleReceipts))
	mux.HandleFunc("/receipts/upload", s.withSecurityHeaders(s.handleUploadReceipt))
	mux.HandleFunc("/uploads/", s.withSecurityHeaders(s.handleServeUpload))
	mux.HandleFunc("/yearly-summary", s.withSecurityHeaders(s.handleYearlySummary))
	mux.HandleFunc("/yearly-summary/export", s.withSecurityHeaders(s.handleExportSummary))

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.repo.RecentEntries(ctx, 1); err != nil {
		s.logger.ErrorContext(ctx, "readiness check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// getSummary returns the cached year summary, hitting the database on a miss.
func (s *Server) getSummary(ctx context.Context, year int) (core.YearSummary, error) {
	key := summaryCacheKey(year)
	if data, found := s.summaryCache.Get(key); found {
		s.logger.DebugContext(ctx, "summary cache hit", "year", year)
		return data, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	data, err := s.repo.YearSummary(cctx, year)
	if err != nil {
		return core.YearSummary{}, err
	}
	s.summaryCache.Set(key, data)
	return data, nil
}

func (s *Server) invalidateSummary(year int) {
	s.summaryCache.Delete(summaryCacheKey(year))
}
