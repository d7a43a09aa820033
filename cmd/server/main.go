package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/trail-data-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/trail-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/trail-data-etl/internal/adapter/postgres"
	"github.com/couchcryptid/trail-data-etl/internal/adapter/wfs"
	"github.com/couchcryptid/trail-data-etl/internal/config"
	"github.com/couchcryptid/trail-data-etl/internal/observability"
	"github.com/couchcryptid/trail-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	previews := httpadapter.NewPreviewService(store, cfg.PreviewCacheSize, metrics, nil)
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, previews, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Scheduled ingestion (enabled via INGEST_INTERVAL).
	var writer *kafkaadapter.Writer
	if cfg.IngestInterval > 0 {
		opts := pipeline.OptionsFromConfig(cfg)
		if cfg.KafkaEnabled {
			writer = kafkaadapter.NewWriter(cfg, logger)
			opts.Notifier = writer
		}
		client := wfs.NewClient(wfs.ClientConfigFrom(cfg), logger, metrics)
		ingester := pipeline.New(client, store, logger, metrics, opts)

		logger.Info("scheduled ingestion enabled", "interval", cfg.IngestInterval, "layers", cfg.TypeNames)
		go func() {
			if err := ingester.RunEvery(ctx, cfg.TypeNames, cfg.IngestInterval); err != nil {
				logger.Error("scheduled ingestion stopped", "error", err)
			}
		}()
	} else {
		logger.Info("scheduled ingestion disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
