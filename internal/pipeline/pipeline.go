package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/trail-data-etl/internal/config"
	"github.com/couchcryptid/trail-data-etl/internal/domain"
	"github.com/couchcryptid/trail-data-etl/internal/observability"
)

// PageFetcher reads one page of features of a layer from the remote service.
type PageFetcher interface {
	FetchPage(ctx context.Context, layer string, count, startIndex int) ([]domain.RemoteFeature, error)
}

// TrailStore persists one trail, inserting or updating on (source, source_id).
type TrailStore interface {
	UpsertTrail(ctx context.Context, t domain.TrailUpsert) error
}

// Notifier is told about trails written during a page. Failures are logged
// and never fail the layer.
type Notifier interface {
	NotifyUpserted(ctx context.Context, events []domain.TrailUpserted) error
}

// Options configures an Ingester. A zero PageSize, ProjectedSRID or Source
// falls back to DefaultOptions.
type Options struct {
	// PageSize is the WFS count per request. A shorter page ends the layer.
	PageSize      int
	ProjectedSRID int
	Source        string

	// AllowUnverified permits layers outside the verified registry.
	AllowUnverified bool

	// FetchRetries is how many times a failed page request is repeated.
	FetchRetries    int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	// SkipInvalidFeatures switches persistence failures from aborting the
	// layer to skipping the feature.
	SkipInvalidFeatures bool

	Notifier Notifier
	Clock    clockwork.Clock
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		PageSize:        5000,
		ProjectedSRID:   domain.SRIDLEST97,
		Source:          "maaamet_poi_wfs",
		FetchRetries:    2,
		RetryBackoff:    500 * time.Millisecond,
		MaxRetryBackoff: 10 * time.Second,
	}
}

// OptionsFromConfig maps the service configuration onto Options. The
// notifier and clock are left for the caller to set.
func OptionsFromConfig(cfg *config.Config) Options {
	def := DefaultOptions()
	return Options{
		PageSize:            cfg.PageSize,
		ProjectedSRID:       cfg.ProjectedSRID,
		Source:              cfg.SourceTag,
		AllowUnverified:     cfg.AllowUnverified,
		FetchRetries:        cfg.FetchRetries,
		RetryBackoff:        def.RetryBackoff,
		MaxRetryBackoff:     def.MaxRetryBackoff,
		SkipInvalidFeatures: cfg.SkipInvalidFeatures,
	}
}

// Ingester pulls every requested layer page by page and upserts each feature.
// Layers and pages are processed strictly one at a time, so no two writes for
// the same source ID are ever in flight together.
type Ingester struct {
	fetcher     PageFetcher
	store       TrailStore
	transformer *FeatureTransformer
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options
	clock       clockwork.Clock
}

// New creates an Ingester with the given collaborators and options.
func New(f PageFetcher, s TrailStore, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Ingester {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.ProjectedSRID <= 0 {
		opts.ProjectedSRID = def.ProjectedSRID
	}
	if opts.Source == "" {
		opts.Source = def.Source
	}
	if opts.FetchRetries < 0 {
		opts.FetchRetries = 0
	}
	if opts.MaxRetryBackoff <= 0 {
		opts.MaxRetryBackoff = def.MaxRetryBackoff
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Ingester{
		fetcher:     f,
		store:       s,
		transformer: NewTransformer(opts.Source, opts.ProjectedSRID, metrics),
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
		clock:       clock,
	}
}

// Run ingests layers in order. An unverified layer without the override
// aborts before any request with *domain.ConfigurationError. Any other
// failure is confined to its layer and recorded in the report. Cancelling
// ctx stops between pages and layers; the partial report is returned with
// the context error.
func (in *Ingester) Run(ctx context.Context, layers []string) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: in.clock.Now()}
	logger := in.logger.With("run_id", report.RunID)

	if err := domain.CheckLayers(layers, in.opts.AllowUnverified); err != nil {
		report.FinishedAt = in.clock.Now()
		logger.Error("ingestion refused", "error", err)
		return report, err
	}

	in.metrics.IngestRunning.Set(1)
	defer in.metrics.IngestRunning.Set(0)

	logger.Info("ingestion started", "layers", layers, "page_size", in.opts.PageSize)

	for i, layer := range layers {
		if err := ctx.Err(); err != nil {
			for _, rest := range layers[i:] {
				report.Layers = append(report.Layers, LayerResult{Layer: rest, Err: err})
			}
			break
		}

		res := in.runLayer(ctx, logger, layer, report.RunID)
		report.Layers = append(report.Layers, res)
		in.metrics.LayerRuns.WithLabelValues(string(res.State())).Inc()

		if res.Err != nil {
			logger.Error("layer failed",
				"layer", layer,
				"imported", res.Imported,
				"skipped", res.Skipped,
				"error", res.Err,
			)
			continue
		}
		logger.Info("layer imported",
			"layer", layer,
			"imported", res.Imported,
			"skipped", res.Skipped,
			"pages", res.Pages,
		)
	}

	report.FinishedAt = in.clock.Now()
	logger.Info("ingestion finished",
		"total", report.Total(),
		"layers", len(report.Layers),
		"failed_layers", report.Failed(),
		"duration", report.Duration(),
	)
	return report, ctx.Err()
}

// RunEvery runs immediately and then on every tick of interval until ctx is
// cancelled. Run errors are logged; a refused configuration stops the loop.
func (in *Ingester) RunEvery(ctx context.Context, layers []string, interval time.Duration) error {
	ticker := in.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := in.Run(ctx, layers); err != nil {
			var cfgErr *domain.ConfigurationError
			if errors.As(err, &cfgErr) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			in.logger.Error("scheduled ingestion failed", "error", err)
		}

		select {
		case <-ctx.Done():
			in.logger.Info("scheduled ingestion stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// runLayer walks one layer from offset 0 until an empty or short page.
func (in *Ingester) runLayer(ctx context.Context, logger *slog.Logger, layer, runID string) LayerResult {
	res := LayerResult{Layer: layer}
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		features, err := in.fetchWithRetry(ctx, logger, layer, offset)
		if err != nil {
			res.Err = err
			return res
		}
		if len(features) == 0 {
			return res
		}
		res.Pages++
		in.metrics.FeaturesFetched.WithLabelValues(layer).Add(float64(len(features)))

		if err := in.persistPage(ctx, logger, layer, runID, features, &res); err != nil {
			res.Err = err
			return res
		}

		offset += len(features)
		logger.Info("page imported",
			"layer", layer,
			"features", len(features),
			"imported", res.Imported,
		)

		// A short page is taken as the last one; no confirming request is made.
		if len(features) < in.opts.PageSize {
			return res
		}
	}
}

// persistPage upserts every feature of a page in order and notifies about
// the ones written, even when the page stopped early.
func (in *Ingester) persistPage(ctx context.Context, logger *slog.Logger, layer, runID string, features []domain.RemoteFeature, res *LayerResult) error {
	events := make([]domain.TrailUpserted, 0, len(features))
	defer func() { in.notify(ctx, logger, layer, events) }()

	for _, f := range features {
		upsert := in.transformer.Transform(layer, f)

		if err := in.store.UpsertTrail(ctx, upsert); err != nil {
			in.metrics.UpsertErrors.WithLabelValues(layer).Inc()
			if in.opts.SkipInvalidFeatures && ctx.Err() == nil {
				res.Skipped++
				logger.Warn("upsert failed, skipping feature",
					"layer", layer,
					"source_id", upsert.Fields.SourceID,
					"error", err,
				)
				continue
			}
			return fmt.Errorf("upsert %s: %w", upsert.Fields.SourceID, err)
		}

		res.Imported++
		in.metrics.TrailsUpserted.WithLabelValues(layer).Inc()
		events = append(events, domain.TrailUpserted{
			Source:      upsert.Source,
			SourceID:    upsert.Fields.SourceID,
			Layer:       layer,
			NameEt:      upsert.Fields.NameEt,
			SRID:        upsert.Geometry.SRID,
			AxisSwapped: upsert.Geometry.AxisSwapped,
			RunID:       runID,
			IngestedAt:  in.clock.Now(),
		})
	}
	return nil
}

func (in *Ingester) notify(ctx context.Context, logger *slog.Logger, layer string, events []domain.TrailUpserted) {
	if in.opts.Notifier == nil || len(events) == 0 {
		return
	}
	if err := in.opts.Notifier.NotifyUpserted(ctx, events); err != nil {
		logger.Warn("trail notification failed", "layer", layer, "events", len(events), "error", err)
	}
}

// fetchWithRetry requests one page, repeating retryable failures with
// exponential backoff up to FetchRetries times.
func (in *Ingester) fetchWithRetry(ctx context.Context, logger *slog.Logger, layer string, offset int) ([]domain.RemoteFeature, error) {
	backoff := in.opts.RetryBackoff

	for attempt := 0; ; attempt++ {
		features, err := in.fetcher.FetchPage(ctx, layer, in.opts.PageSize, offset)
		if err == nil {
			return features, nil
		}
		in.metrics.FetchErrors.WithLabelValues(layer).Inc()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= in.opts.FetchRetries || !isRetryable(err) {
			return nil, fmt.Errorf("fetch %s at offset %d: %w", layer, offset, err)
		}

		logger.Warn("page fetch failed, retrying",
			"layer", layer,
			"offset", offset,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		in.metrics.FetchRetries.WithLabelValues(layer).Inc()
		if !sleepWithContext(ctx, in.clock, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, in.opts.MaxRetryBackoff)
	}
}

// isRetryable defers to the error's own classification when it has one.
func isRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// sleepWithContext waits on the ingester's clock so tests can drive it.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
