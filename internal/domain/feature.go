package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// SRIDs the storage layer understands.
const (
	SRIDGeographic = 4326 // WGS 84 lon/lat
	SRIDLEST97     = 3301 // L-EST97, Estonian national grid
)

// RemoteFeature is one feature from a WFS page. Geometry is nil when the
// service returned a null geometry.
type RemoteFeature struct {
	ID         any
	Geometry   orb.Geometry
	Properties map[string]any
}

// MappedFields holds the destination columns derived from a property bag.
// Nil pointers are stored as NULL.
type MappedFields struct {
	SourceID       string
	NameEt         string
	NameEn         string
	CountyEt       *string
	CountyEn       *string
	MunicipalityEt *string
	MunicipalityEn *string
	LocationEt     *string
	LocationEn     *string
	DescriptionEt  *string
	DescriptionEn  *string
}

// TrailUpsert is the full payload handed to the storage collaborator for
// one feature. Length, start point and reprojection are computed there.
type TrailUpsert struct {
	Source        string
	Layer         string
	Fields        MappedFields
	Geometry      NormalizedGeometry
	RawProperties map[string]any
}

// TrailUpserted is published after a trail row was written.
type TrailUpserted struct {
	Source      string    `json:"source"`
	SourceID    string    `json:"source_id"`
	Layer       string    `json:"layer"`
	NameEt      string    `json:"name_et"`
	SRID        int       `json:"srid,omitempty"`
	AxisSwapped bool      `json:"axis_swapped,omitempty"`
	RunID       string    `json:"run_id"`
	IngestedAt  time.Time `json:"ingested_at"`
}
