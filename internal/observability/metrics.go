package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for trail ingestion.
type Metrics struct {
	FeaturesFetched *prometheus.CounterVec // labels: layer
	TrailsUpserted  *prometheus.CounterVec // labels: layer
	UpsertErrors    *prometheus.CounterVec // labels: layer
	FetchErrors     *prometheus.CounterVec // labels: layer
	FetchRetries    *prometheus.CounterVec // labels: layer
	LayerRuns       *prometheus.CounterVec // labels: outcome={done,failed}
	IngestRunning   prometheus.Gauge

	// Geometry normalization.
	AxisSwaps     *prometheus.CounterVec // labels: layer
	DetectedSRIDs *prometheus.CounterVec // labels: srid

	PageFetchDuration prometheus.Histogram
	PageSize          prometheus.Histogram

	// Preview rendering.
	PreviewCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all ingestion metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeaturesFetched,
		m.TrailsUpserted,
		m.UpsertErrors,
		m.FetchErrors,
		m.FetchRetries,
		m.LayerRuns,
		m.IngestRunning,
		m.AxisSwaps,
		m.DetectedSRIDs,
		m.PageFetchDuration,
		m.PageSize,
		m.PreviewCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "features_fetched_total",
			Help:      "Features received from the WFS service.",
		}, []string{"layer"}),
		TrailsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "trails_upserted_total",
			Help:      "Trail rows inserted or updated.",
		}, []string{"layer"}),
		UpsertErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "upsert_errors_total",
			Help:      "Features rejected by the storage layer.",
		}, []string{"layer"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "fetch_errors_total",
			Help:      "Failed WFS page requests, including retried ones.",
		}, []string{"layer"}),
		FetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "fetch_retries_total",
			Help:      "WFS page requests retried after a failure.",
		}, []string{"layer"}),
		LayerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "layer_runs_total",
			Help:      "Completed layer ingestions by outcome.",
		}, []string{"outcome"}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trail_etl",
			Name:      "ingest_running",
			Help:      "1 while an ingestion run is in progress.",
		}),
		AxisSwaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "axis_swaps_total",
			Help:      "Geometries whose lat/lon axis order was repaired.",
		}, []string{"layer"}),
		DetectedSRIDs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "detected_srid_total",
			Help:      "Geometries by detected input SRID.",
		}, []string{"srid"}),
		PageFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trail_etl",
			Name:      "page_fetch_duration_seconds",
			Help:      "WFS GetFeature request duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trail_etl",
			Name:      "page_size",
			Help:      "Features per WFS page.",
			Buckets:   []float64{0, 10, 100, 500, 1000, 2500, 5000, 10000},
		}),
		PreviewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trail_etl",
			Name:      "preview_cache_total",
			Help:      "Preview cache lookups by result.",
		}, []string{"result"}),
	}
}
