package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/trail-data-etl/internal/domain"
)

const maxPageSize = 10000

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// WFS source configuration.
	WFSEndpoint     string
	WFSVersion      string
	WFSSRSName      string
	WFSOutputFormat string
	WFSUserAgent    string
	WFSTimeout      time.Duration
	WFSRateLimit    float64
	TypeNames       []string
	AllowUnverified bool
	PageSize        int

	// Ingestion behaviour.
	FetchRetries        int
	ProjectedSRID       int
	SourceTag           string
	SkipInvalidFeatures bool
	IngestInterval      time.Duration

	PreviewCacheSize int

	// Kafka change notifications.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	wfsTimeout, err := parseDuration("WFS_TIMEOUT", "60s", false)
	if err != nil {
		return nil, err
	}
	ingestInterval, err := parseDuration("INGEST_INTERVAL", "0s", true)
	if err != nil {
		return nil, err
	}

	pageSize, err := parseInt("WFS_PAGE_SIZE", 5000)
	if err != nil {
		return nil, err
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, fmt.Errorf("invalid WFS_PAGE_SIZE: must be between 1 and %d", maxPageSize)
	}

	fetchRetries, err := parseInt("FETCH_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	if fetchRetries < 0 {
		return nil, errors.New("invalid FETCH_RETRIES: must not be negative")
	}

	projectedSRID, err := parseInt("PROJECTED_SRID", domain.SRIDLEST97)
	if err != nil {
		return nil, err
	}
	if projectedSRID <= 0 {
		return nil, errors.New("invalid PROJECTED_SRID")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("WFS_RATE_LIMIT", "5"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid WFS_RATE_LIMIT")
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WFSEndpoint:     sharedcfg.EnvOrDefault("WFS_ENDPOINT", "https://teenus.maaamet.ee/ows/huviobjektid-poi"),
		WFSVersion:      sharedcfg.EnvOrDefault("WFS_VERSION", "2.0.0"),
		WFSSRSName:      sharedcfg.EnvOrDefault("WFS_SRS_NAME", "EPSG:3301"),
		WFSOutputFormat: sharedcfg.EnvOrDefault("WFS_OUTPUT_FORMAT", "application/json; subtype=geojson"),
		WFSUserAgent:    sharedcfg.EnvOrDefault("WFS_USER_AGENT", "rajad-webapp/1.0"),
		WFSTimeout:      wfsTimeout,
		WFSRateLimit:    rateLimit,
		TypeNames:       ParseList(sharedcfg.EnvOrDefault("WFS_TYPENAMES", strings.Join(domain.VerifiedTypeNames(), ","))),
		AllowUnverified: parseBool(os.Getenv("ALLOW_UNVERIFIED_LAYERS")),
		PageSize:        pageSize,

		FetchRetries:        fetchRetries,
		ProjectedSRID:       projectedSRID,
		SourceTag:           sharedcfg.EnvOrDefault("SOURCE_TAG", "maaamet_poi_wfs"),
		SkipInvalidFeatures: parseBool(os.Getenv("SKIP_INVALID_FEATURES")),
		IngestInterval:      ingestInterval,

		PreviewCacheSize: parsePreviewCacheSize(),

		KafkaEnabled: parseBool(os.Getenv("KAFKA_ENABLED")),
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "trail-upserts"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.WFSEndpoint == "" {
		return nil, errors.New("WFS_ENDPOINT is required")
	}
	if len(cfg.TypeNames) == 0 {
		return nil, errors.New("WFS_TYPENAMES is empty")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

// parseBool accepts "true" (any case) and "1".
func parseBool(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "true") || s == "1"
}

// ParseList splits a comma separated list, dropping blanks.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePreviewCacheSize() int {
	if s := os.Getenv("PREVIEW_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
