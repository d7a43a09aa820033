// Command ingest pulls the configured WFS trail layers into the tracks table
// once and prints a per-layer report.
//
// Usage:
//
//	go run ./cmd/ingest -init-schema
//	go run ./cmd/ingest -layers poi_rmk_matkarada_j,poi_matkarada_j
//	go run ./cmd/ingest -layers poi_custom_j -allow-unverified
//
// The exit status is 1 when the requested layers are refused or no layer
// could be read from the remote service, and 130 when interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	kafkaadapter "github.com/couchcryptid/trail-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/trail-data-etl/internal/adapter/postgres"
	"github.com/couchcryptid/trail-data-etl/internal/adapter/wfs"
	"github.com/couchcryptid/trail-data-etl/internal/config"
	"github.com/couchcryptid/trail-data-etl/internal/domain"
	"github.com/couchcryptid/trail-data-etl/internal/observability"
	"github.com/couchcryptid/trail-data-etl/internal/pipeline"
)

const exitInterrupted = 130

func main() {
	os.Exit(run())
}

func run() int {
	layersFlag := flag.String("layers", "", "comma separated WFS type names (default WFS_TYPENAMES)")
	allowUnverified := flag.Bool("allow-unverified", false, "ingest layers outside the verified registry")
	initSchema := flag.Bool("init-schema", false, "create the postgis extension and tracks table first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if *layersFlag != "" {
		cfg.TypeNames = config.ParseList(*layersFlag)
	}
	cfg.AllowUnverified = cfg.AllowUnverified || *allowUnverified

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Refuse before touching the database or the network.
	if err := domain.CheckLayers(cfg.TypeNames, cfg.AllowUnverified); err != nil {
		logger.Error("ingestion refused", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		return 1
	}
	defer store.Close()

	if *initSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("schema bootstrap failed", "error", err)
			return 1
		}
	}

	before, err := store.CountTrails(ctx)
	if err != nil {
		logger.Error("count trails failed", "error", err)
		return 1
	}
	logger.Info("trails in database", "count", before)

	opts := pipeline.OptionsFromConfig(cfg)
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts.Notifier = writer
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaTopic)
	}

	client := wfs.NewClient(wfs.ClientConfigFrom(cfg), logger, metrics)
	ingester := pipeline.New(client, store, logger, metrics, opts)

	report, runErr := ingester.Run(ctx, cfg.TypeNames)
	printReport(os.Stdout, report)

	// The run context may be cancelled; the final count still gets a chance.
	countCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if after, err := store.CountTrails(countCtx); err != nil {
		logger.Error("count trails failed", "error", err)
	} else {
		logger.Info("trails in database", "count", after, "added", after-before)
	}

	return exitCode(report, runErr)
}

func exitCode(report pipeline.Report, runErr error) int {
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(runErr, &cfgErr):
		return 1
	case errors.Is(runErr, context.Canceled):
		return exitInterrupted
	case remoteUnreachable(report):
		return 1
	}
	return 0
}

// remoteUnreachable reports whether every layer failed to read from the WFS
// service. Layers that fetched pages but failed to persist do not count.
func remoteUnreachable(report pipeline.Report) bool {
	if !report.AllFailed() {
		return false
	}
	for _, l := range report.Layers {
		var tErr *wfs.TransportError
		if !errors.As(l.Err, &tErr) {
			return false
		}
	}
	return true
}

func printReport(w io.Writer, report pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tSTATE\tIMPORTED\tSKIPPED\tPAGES\tERROR")
	for _, l := range report.Layers {
		errText := ""
		if l.Err != nil {
			errText = l.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", l.Layer, l.State(), l.Imported, l.Skipped, l.Pages, errText)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d\t\t\t\n", report.Total())
	tw.Flush() //nolint:errcheck // best-effort operator output
}
