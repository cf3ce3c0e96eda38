package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/config"
	"tally/internal/export"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/receipt"
	"tally/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	store, err := receipt.NewStore(cfg.ReceiptsDir)
	if err != nil {
		return err
	}

	// Probe once; the capability stays fixed for the process lifetime.
	ocrAvailable := false
	if cfg.OCRDisabled {
		logger.Info("ocr disabled by configuration")
	} else {
		ocrAvailable = receipt.ProbeOCR(cfg.TesseractBin, logger.Logger)
	}

	extractor := receipt.NewExtractor(receipt.ExtractorConfig{
		Tesseract: cfg.TesseractBin,
		Lang:      cfg.TesseractLang,
		Timeout:   cfg.OCRTimeout,
	}, ocrAvailable, logger.Logger)

	pipeline := receipt.NewPipeline(store, extractor, logger.Logger)
	exporter := export.NewService(repo, logger.Logger)

	srv := apphttp.NewServer(":"+cfg.Port, repo, pipeline, store, exporter, ocrAvailable, logger.Logger)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			"port", cfg.Port,
			"db_path", cfg.SQLiteDBPath,
			"receipts_dir", cfg.ReceiptsDir,
			"ocr_available", ocrAvailable)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
