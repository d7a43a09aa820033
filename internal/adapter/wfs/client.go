package wfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/trail-data-etl/internal/config"
	"github.com/couchcryptid/trail-data-etl/internal/domain"
	"github.com/couchcryptid/trail-data-etl/internal/observability"
)

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// ClientConfig configures the WFS GetFeature client.
type ClientConfig struct {
	Endpoint     string
	Version      string
	SRSName      string
	OutputFormat string
	UserAgent    string
	Timeout      time.Duration

	// RateLimit is the maximum requests per second; <= 0 disables pacing.
	RateLimit float64
}

// ClientConfigFrom takes the WFS settings out of the service configuration.
func ClientConfigFrom(cfg *config.Config) ClientConfig {
	return ClientConfig{
		Endpoint:     cfg.WFSEndpoint,
		Version:      cfg.WFSVersion,
		SRSName:      cfg.WFSSRSName,
		OutputFormat: cfg.WFSOutputFormat,
		UserAgent:    cfg.WFSUserAgent,
		Timeout:      cfg.WFSTimeout,
		RateLimit:    cfg.WFSRateLimit,
	}
}

// Client fetches feature pages from a WFS endpoint.
// It implements pipeline.PageFetcher.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a WFS client. Each request is bounded by cfg.Timeout.
func NewClient(cfg ClientConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchPage requests count features of layer starting at startIndex. An empty
// slice means the service has nothing in that window. Failures are returned
// as *TransportError and never retried here.
func (c *Client) FetchPage(ctx context.Context, layer string, count, startIndex int) ([]domain.RemoteFeature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Layer: layer, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(layer, count, startIndex), nil)
	if err != nil {
		return nil, &TransportError{Layer: layer, Err: fmt.Errorf("create request: %w", err)}
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.PageFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &TransportError{Layer: layer, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{Layer: layer, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var fc geojson.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &TransportError{Layer: layer, Err: fmt.Errorf("decode feature collection: %w", err)}
	}

	features := make([]domain.RemoteFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		features = append(features, domain.RemoteFeature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	c.metrics.PageSize.Observe(float64(len(features)))

	c.logger.Debug("wfs page fetched",
		"layer", layer,
		"start_index", startIndex,
		"count", count,
		"features", len(features),
	)
	return features, nil
}

func (c *Client) pageURL(layer string, count, startIndex int) string {
	params := url.Values{
		"service":      {"WFS"},
		"version":      {c.cfg.Version},
		"request":      {"GetFeature"},
		"typeNames":    {layer},
		"srsName":      {c.cfg.SRSName},
		"outputFormat": {c.cfg.OutputFormat},
		"count":        {strconv.Itoa(count)},
		"startIndex":   {strconv.Itoa(startIndex)},
	}
	return c.cfg.Endpoint + "?" + params.Encode()
}

// TransportError is a failed page request: a non-2xx status, a network
// failure, or an undecodable body. It is fatal to the current layer only.
type TransportError struct {
	Layer      string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wfs request for %s failed: status %d: %s", e.Layer, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("wfs request for %s: %v", e.Layer, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request may succeed: network
// failures, throttling and server errors. Client errors are permanent.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
