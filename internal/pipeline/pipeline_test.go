package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/trail-data-etl/internal/config"
	"github.com/couchcryptid/trail-data-etl/internal/domain"
	"github.com/couchcryptid/trail-data-etl/internal/observability"
	"github.com/couchcryptid/trail-data-etl/internal/pipeline"
)

const (
	layerRMK   = "poi_rmk_matkarada_j"
	layerHikes = "poi_matkarada_j"
)

// --- fakes ---

type fetchCall struct {
	Layer      string
	Count      int
	StartIndex int
}

// fakeFetcher serves pre-built pages per layer. Queued errors for a layer
// are returned, one per call, before any page is served.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string][][]domain.RemoteFeature
	errs  map[string][]error
	calls []fetchCall
}

func (f *fakeFetcher) FetchPage(_ context.Context, layer string, count, startIndex int) ([]domain.RemoteFeature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fetchCall{Layer: layer, Count: count, StartIndex: startIndex})

	if queued := f.errs[layer]; len(queued) > 0 {
		f.errs[layer] = queued[1:]
		return nil, queued[0]
	}

	pages := f.pages[layer]
	i := startIndex / count
	if i >= len(pages) {
		return nil, nil
	}
	return pages[i], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) callsFor(layer string) []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fetchCall
	for _, c := range f.calls {
		if c.Layer == layer {
			out = append(out, c)
		}
	}
	return out
}

// memStore is an in-memory table keyed on (source, source_id).
type memStore struct {
	mu      sync.Mutex
	rows    map[string]domain.TrailUpsert
	writes  int
	failOn  map[string]error
	onWrite func()
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]domain.TrailUpsert), failOn: make(map[string]error)}
}

func (s *memStore) UpsertTrail(_ context.Context, t domain.TrailUpsert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failOn[t.Fields.SourceID]; ok {
		return err
	}
	s.rows[t.Source+"/"+t.Fields.SourceID] = t
	s.writes++
	if s.onWrite != nil {
		s.onWrite()
	}
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.TrailUpserted
	err    error
}

func (n *recordingNotifier) NotifyUpserted(_ context.Context, events []domain.TrailUpserted) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
	return n.err
}

type permanentError struct{}

func (permanentError) Error() string   { return "unknown typeName" }
func (permanentError) Retryable() bool { return false }

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// trailFeatures builds n projected features of layer numbered from first.
func trailFeatures(layer string, first, n int) []domain.RemoteFeature {
	out := make([]domain.RemoteFeature, n)
	for i := range n {
		id := first + i
		out[i] = domain.RemoteFeature{
			ID:       fmt.Sprintf("%s.%d", layer, id),
			Geometry: orb.LineString{{659000, 6474000}, {659010 + float64(id), 6474010}},
			Properties: map[string]any{
				"tunnus": float64(id),
				"nimi":   fmt.Sprintf("Rada %d", id),
			},
		}
	}
	return out
}

// paged splits n features into pages of size.
func paged(layer string, n, size int) [][]domain.RemoteFeature {
	all := trailFeatures(layer, 1, n)
	var pages [][]domain.RemoteFeature
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		pages = append(pages, all[start:end])
	}
	return pages
}

func newIngester(f pipeline.PageFetcher, s pipeline.TrailStore, opts pipeline.Options) (*pipeline.Ingester, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return pipeline.New(f, s, discardLogger(), metrics, opts), metrics
}

// --- tests ---

func TestIngester_Run_TwoPagesStopsOnShortPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 6200, 5000),
	}}
	store := newMemStore()
	in, metrics := newIngester(fetcher, store, pipeline.Options{PageSize: 5000})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	calls := fetcher.callsFor(layerRMK)
	require.Len(t, calls, 2, "a short page must end the layer without a third request")
	assert.Equal(t, fetchCall{Layer: layerRMK, Count: 5000, StartIndex: 0}, calls[0])
	assert.Equal(t, fetchCall{Layer: layerRMK, Count: 5000, StartIndex: 5000}, calls[1])

	require.Len(t, report.Layers, 1)
	assert.Equal(t, 6200, report.Layers[0].Imported)
	assert.Equal(t, 2, report.Layers[0].Pages)
	assert.Equal(t, pipeline.LayerDone, report.Layers[0].State())
	assert.Equal(t, 6200, report.Total())
	assert.Equal(t, 6200, store.count())
	assert.InDelta(t, 6200, testutil.ToFloat64(metrics.TrailsUpserted.WithLabelValues(layerRMK)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.IngestRunning), 0)
}

func TestIngester_Run_ExactMultipleNeedsEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 6, 3),
	}}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{PageSize: 3})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, 6, report.Total())
	assert.Equal(t, 2, report.Layers[0].Pages)
}

func TestIngester_Run_EmptyLayer(t *testing.T) {
	fetcher := &fakeFetcher{}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{})

	report, err := in.Run(context.Background(), []string{layerHikes})
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.callCount())
	require.Len(t, report.Layers, 1)
	assert.Zero(t, report.Layers[0].Imported)
	assert.Equal(t, pipeline.LayerDone, report.Layers[0].State())
}

func TestIngester_Run_UnverifiedLayerRefused(t *testing.T) {
	fetcher := &fakeFetcher{}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{})

	report, err := in.Run(context.Background(), []string{layerRMK, "poi_unknown_j"})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"poi_unknown_j"}, cfgErr.Rejected)
	assert.Zero(t, fetcher.callCount(), "no request may be made for a refused run")
	assert.Empty(t, report.Layers)
}

func TestIngester_Run_UnverifiedLayerAllowed(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		"poi_unknown_j": paged("poi_unknown_j", 2, 10),
	}}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{PageSize: 10, AllowUnverified: true})

	report, err := in.Run(context.Background(), []string{"poi_unknown_j"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total())
}

func TestIngester_Run_LayerFailureIsIsolated(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][][]domain.RemoteFeature{
			layerHikes: paged(layerHikes, 4, 10),
		},
		errs: map[string][]error{
			layerRMK: {permanentError{}},
		},
	}
	store := newMemStore()
	in, metrics := newIngester(fetcher, store, pipeline.Options{PageSize: 10})

	report, err := in.Run(context.Background(), []string{layerRMK, layerHikes})
	require.NoError(t, err)

	require.Len(t, report.Layers, 2)
	assert.Equal(t, pipeline.LayerFailed, report.Layers[0].State())
	assert.ErrorAs(t, report.Layers[0].Err, &permanentError{})
	assert.Equal(t, pipeline.LayerDone, report.Layers[1].State())
	assert.Equal(t, 4, report.Layers[1].Imported)
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.AllFailed())
	assert.Equal(t, 4, store.count())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LayerRuns.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LayerRuns.WithLabelValues("done")), 0)
}

func TestIngester_Run_RetriesTransientFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][][]domain.RemoteFeature{
			layerRMK: paged(layerRMK, 3, 10),
		},
		errs: map[string][]error{
			layerRMK: {errors.New("connection reset"), errors.New("connection reset")},
		},
	}
	in, metrics := newIngester(fetcher, newMemStore(), pipeline.Options{PageSize: 10, FetchRetries: 2})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, 3, report.Total())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.FetchRetries.WithLabelValues(layerRMK)), 0)
}

func TestIngester_Run_RetriesExhausted(t *testing.T) {
	boom := errors.New("connection reset")
	fetcher := &fakeFetcher{errs: map[string][]error{
		layerRMK: {boom, boom, boom, boom},
	}}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{FetchRetries: 2})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.callCount())
	require.Len(t, report.Layers, 1)
	require.ErrorIs(t, report.Layers[0].Err, boom)
	assert.True(t, report.AllFailed())
}

func TestIngester_Run_PermanentFailureNotRetried(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string][]error{
		layerRMK: {permanentError{}},
	}}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{FetchRetries: 5})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, pipeline.LayerFailed, report.Layers[0].State())
}

func TestIngester_Run_RetryWaitsForBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{
		pages: map[string][][]domain.RemoteFeature{
			layerRMK: paged(layerRMK, 1, 10),
		},
		errs: map[string][]error{
			layerRMK: {errors.New("timeout")},
		},
	}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{
		PageSize:     10,
		FetchRetries: 1,
		RetryBackoff: time.Second,
		Clock:        clock,
	})

	done := make(chan pipeline.Report, 1)
	go func() {
		report, _ := in.Run(context.Background(), []string{layerRMK})
		done <- report
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, fetcher.callCount(), "retry must wait for the backoff")

	clock.Advance(time.Second)

	select {
	case report := <-done:
		assert.Equal(t, 1, report.Total())
		assert.Equal(t, 2, fetcher.callCount())
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion did not resume after backoff")
	}
}

func TestIngester_Run_BackoffDoublesBetweenRetries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{
		pages: map[string][][]domain.RemoteFeature{
			layerRMK: paged(layerRMK, 1, 10),
		},
		errs: map[string][]error{
			layerRMK: {errors.New("timeout"), errors.New("timeout")},
		},
	}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{
		PageSize:     10,
		FetchRetries: 2,
		RetryBackoff: time.Second,
		Clock:        clock,
	})

	done := make(chan pipeline.Report, 1)
	go func() {
		report, _ := in.Run(context.Background(), []string{layerRMK})
		done <- report
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 2, fetcher.callCount())
	clock.Advance(time.Second)
	assert.Equal(t, 2, fetcher.callCount(), "second wait is twice the first")
	clock.Advance(time.Second)

	select {
	case report := <-done:
		assert.Equal(t, 1, report.Total())
		assert.Equal(t, 3, fetcher.callCount())
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion did not resume after backoff")
	}
}

func TestIngester_Run_PersistenceFailureAbortsLayer(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK:   paged(layerRMK, 3, 10),
		layerHikes: paged(layerHikes, 2, 10),
	}}
	rejected := errors.New("invalid geometry")
	store := newMemStore()
	store.failOn[layerRMK+":2"] = rejected
	in, _ := newIngester(fetcher, store, pipeline.Options{PageSize: 10})

	report, err := in.Run(context.Background(), []string{layerRMK, layerHikes})
	require.NoError(t, err)

	rmk := report.Layers[0]
	assert.Equal(t, pipeline.LayerFailed, rmk.State())
	require.ErrorIs(t, rmk.Err, rejected)
	assert.Contains(t, rmk.Err.Error(), layerRMK+":2")
	assert.Equal(t, 1, rmk.Imported, "features before the failure stay imported")

	assert.Equal(t, pipeline.LayerDone, report.Layers[1].State())
	assert.Equal(t, 3, store.count())
}

func TestIngester_Run_SkipInvalidFeatures(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 3, 10),
	}}
	store := newMemStore()
	store.failOn[layerRMK+":2"] = errors.New("invalid geometry")
	in, metrics := newIngester(fetcher, store, pipeline.Options{PageSize: 10, SkipInvalidFeatures: true})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	rmk := report.Layers[0]
	assert.Equal(t, pipeline.LayerDone, rmk.State())
	assert.Equal(t, 2, rmk.Imported)
	assert.Equal(t, 1, rmk.Skipped)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UpsertErrors.WithLabelValues(layerRMK)), 0)
}

func TestIngester_Run_RepeatedRunIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK:   paged(layerRMK, 7, 3),
		layerHikes: paged(layerHikes, 2, 3),
	}}
	store := newMemStore()
	in, _ := newIngester(fetcher, store, pipeline.Options{PageSize: 3})

	first, err := in.Run(context.Background(), []string{layerRMK, layerHikes})
	require.NoError(t, err)
	before := store.count()

	second, err := in.Run(context.Background(), []string{layerRMK, layerHikes})
	require.NoError(t, err)

	assert.Equal(t, 9, before)
	assert.Equal(t, before, store.count(), "a second run must not add rows")
	assert.Equal(t, first.Total(), second.Total())
	assert.Equal(t, 18, store.writes)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestIngester_Run_TransformsFeatures(t *testing.T) {
	swapped := domain.RemoteFeature{
		Geometry:   orb.LineString{{58.3, 26.7}, {58.31, 26.71}},
		Properties: map[string]any{"tunnus": "77", "NIMI": "Rabarada", "maakond": "Tartu maakond"},
	}
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerHikes: {{swapped}},
	}}
	store := newMemStore()
	in, metrics := newIngester(fetcher, store, pipeline.Options{PageSize: 10})

	_, err := in.Run(context.Background(), []string{layerHikes})
	require.NoError(t, err)

	row, ok := store.rows["maaamet_poi_wfs/"+layerHikes+":77"]
	require.True(t, ok)
	assert.Equal(t, layerHikes, row.Layer)
	assert.Equal(t, "Rabarada", row.Fields.NameEt)
	assert.Equal(t, domain.SRIDGeographic, row.Geometry.SRID)
	assert.True(t, row.Geometry.AxisSwapped)
	assert.Equal(t, orb.LineString{{26.7, 58.3}, {26.71, 58.31}}, row.Geometry.Geometry)
	assert.Equal(t, layerHikes, row.RawProperties["typename"])
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AxisSwaps.WithLabelValues(layerHikes)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DetectedSRIDs.WithLabelValues("4326")), 0)
}

func TestIngester_Run_CustomSource(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 1, 10),
	}}
	store := newMemStore()
	in, _ := newIngester(fetcher, store, pipeline.Options{PageSize: 10, Source: "maaamet_test"})

	_, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	_, ok := store.rows["maaamet_test/"+layerRMK+":1"]
	assert.True(t, ok)
}

func TestIngester_Run_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK:   paged(layerRMK, 5, 2),
		layerHikes: paged(layerHikes, 2, 2),
	}}
	store := newMemStore()
	store.onWrite = cancel
	in, _ := newIngester(fetcher, store, pipeline.Options{PageSize: 2})

	report, err := in.Run(ctx, []string{layerRMK, layerHikes})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, fetcher.callCount(), "no page is requested after cancellation")
	require.Len(t, report.Layers, 2)
	assert.Equal(t, 2, report.Layers[0].Imported, "the page in progress is finished")
	require.ErrorIs(t, report.Layers[0].Err, context.Canceled)
	require.ErrorIs(t, report.Layers[1].Err, context.Canceled)
	assert.Empty(t, fetcher.callsFor(layerHikes))
}

func TestIngester_Run_NotifiesUpsertedTrails(t *testing.T) {
	start := time.Date(2026, time.May, 4, 6, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 3, 10),
	}}
	notifier := &recordingNotifier{}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{
		PageSize: 10,
		Notifier: notifier,
		Clock:    clock,
	})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)

	assert.Equal(t, start, report.StartedAt)
	assert.Equal(t, start, report.FinishedAt)
	assert.Zero(t, report.Duration())

	require.Len(t, notifier.events, 3)
	first := notifier.events[0]
	assert.Equal(t, layerRMK+":1", first.SourceID)
	assert.Equal(t, "maaamet_poi_wfs", first.Source)
	assert.Equal(t, layerRMK, first.Layer)
	assert.Equal(t, "Rada 1", first.NameEt)
	assert.Equal(t, domain.SRIDLEST97, first.SRID)
	assert.Equal(t, report.RunID, first.RunID)
	assert.Equal(t, start, first.IngestedAt)
}

func TestIngester_Run_NotifierFailureIgnored(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 2, 10),
	}}
	notifier := &recordingNotifier{err: errors.New("broker unavailable")}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{PageSize: 10, Notifier: notifier})

	report, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)
	assert.Equal(t, pipeline.LayerDone, report.Layers[0].State())
	assert.Len(t, notifier.events, 2)
}

func TestIngester_Run_NotifiesBeforeFailure(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][][]domain.RemoteFeature{
		layerRMK: paged(layerRMK, 3, 10),
	}}
	store := newMemStore()
	store.failOn[layerRMK+":3"] = errors.New("constraint violation")
	notifier := &recordingNotifier{}
	in, _ := newIngester(fetcher, store, pipeline.Options{PageSize: 10, Notifier: notifier})

	_, err := in.Run(context.Background(), []string{layerRMK})
	require.NoError(t, err)
	assert.Len(t, notifier.events, 2)
}

func TestIngester_RunEvery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- in.RunEvery(ctx, []string{layerRMK}, time.Hour)
	}()

	require.Eventually(t, func() bool { return fetcher.callCount() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return fetcher.callCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not stop after cancellation")
	}
}

func TestIngester_RunEvery_StopsOnConfigurationError(t *testing.T) {
	fetcher := &fakeFetcher{}
	in, _ := newIngester(fetcher, newMemStore(), pipeline.Options{Clock: clockwork.NewFakeClock()})

	err := in.RunEvery(context.Background(), []string{"poi_unknown_j"}, time.Hour)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, fetcher.callCount())
}

func TestReport_Counters(t *testing.T) {
	report := pipeline.Report{Layers: []pipeline.LayerResult{
		{Layer: layerRMK, Imported: 10},
		{Layer: layerHikes, Imported: 3, Err: errors.New("boom")},
	}}
	assert.Equal(t, 13, report.Total())
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.AllFailed())

	assert.False(t, pipeline.Report{}.AllFailed())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		PageSize:            1000,
		ProjectedSRID:       3301,
		SourceTag:           "maaamet_test",
		AllowUnverified:     true,
		FetchRetries:        4,
		SkipInvalidFeatures: true,
	}

	opts := pipeline.OptionsFromConfig(cfg)

	assert.Equal(t, 1000, opts.PageSize)
	assert.Equal(t, 3301, opts.ProjectedSRID)
	assert.Equal(t, "maaamet_test", opts.Source)
	assert.True(t, opts.AllowUnverified)
	assert.Equal(t, 4, opts.FetchRetries)
	assert.True(t, opts.SkipInvalidFeatures)
	assert.Equal(t, pipeline.DefaultOptions().RetryBackoff, opts.RetryBackoff)
	assert.Nil(t, opts.Notifier)
}
