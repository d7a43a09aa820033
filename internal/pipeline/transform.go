package pipeline

import (
	"strconv"

	"github.com/couchcryptid/trail-data-etl/internal/domain"
	"github.com/couchcryptid/trail-data-etl/internal/observability"
)

// FeatureTransformer turns a remote feature into an upsert payload using the
// domain mapping, identity and geometry rules.
type FeatureTransformer struct {
	source        string
	projectedSRID int
	metrics       *observability.Metrics
}

// NewTransformer creates a FeatureTransformer tagging rows with source and
// projected geometries with projectedSRID.
func NewTransformer(source string, projectedSRID int, metrics *observability.Metrics) *FeatureTransformer {
	return &FeatureTransformer{
		source:        source,
		projectedSRID: projectedSRID,
		metrics:       metrics,
	}
}

func (t *FeatureTransformer) Transform(layer string, f domain.RemoteFeature) domain.TrailUpsert {
	geom := domain.NormalizeGeometry(f.Geometry, t.projectedSRID)
	if geom.Geometry != nil {
		t.metrics.DetectedSRIDs.WithLabelValues(strconv.Itoa(geom.SRID)).Inc()
	}
	if geom.AxisSwapped {
		t.metrics.AxisSwaps.WithLabelValues(layer).Inc()
	}

	return domain.TrailUpsert{
		Source:        t.source,
		Layer:         layer,
		Fields:        domain.MapProperties(layer, f),
		Geometry:      geom,
		RawProperties: domain.RawProperties(layer, f),
	}
}
