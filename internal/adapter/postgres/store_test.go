package postgres

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/trail-data-etl/internal/domain"
)

func strPtr(s string) *string { return &s }

func sampleUpsert() domain.TrailUpsert {
	county := strPtr("Tartu maakond")
	return domain.TrailUpsert{
		Source: "maaamet_poi_wfs",
		Layer:  "poi_rmk_matkarada_j",
		Fields: domain.MappedFields{
			SourceID:       "poi_rmk_matkarada_j:42",
			NameEt:         "Emajõe rada",
			NameEn:         "Emajõe rada",
			CountyEt:       county,
			CountyEn:       county,
			LocationEt:     county,
			LocationEn:     county,
			DescriptionEt:  strPtr("Jõeäärne matkarada"),
			DescriptionEn:  strPtr("Jõeäärne matkarada"),
			MunicipalityEt: nil,
			MunicipalityEn: nil,
		},
		Geometry: domain.NormalizedGeometry{
			Geometry: orb.LineString{{659000, 6474000}, {659100, 6474100}},
			SRID:     domain.SRIDLEST97,
		},
		RawProperties: map[string]any{"typename": "poi_rmk_matkarada_j", "tunnus": float64(42)},
	}
}

func TestUpsertArgs(t *testing.T) {
	args, err := upsertArgs(sampleUpsert())
	require.NoError(t, err)
	require.Len(t, args, 16)

	assert.Equal(t, "maaamet_poi_wfs", args[0])
	assert.Equal(t, "poi_rmk_matkarada_j:42", args[1])
	assert.Equal(t, "Emajõe rada", args[2])
	assert.Equal(t, "Tartu maakond", *args[4].(*string))
	assert.Nil(t, args[6].(*string))
	assert.Equal(t, domain.SRIDLEST97, args[13])
	assert.Equal(t, lineStringCollection, args[15])

	assert.JSONEq(t, `{"type":"LineString","coordinates":[[659000,6474000],[659100,6474100]]}`, args[12].(string))
	assert.JSONEq(t, `{"typename":"poi_rmk_matkarada_j","tunnus":42}`, args[14].(string))
}

func TestUpsertArgs_NoGeometry(t *testing.T) {
	u := sampleUpsert()
	u.Geometry = domain.NormalizedGeometry{}

	args, err := upsertArgs(u)
	require.NoError(t, err)
	assert.Nil(t, args[12], "missing geometry must be sent as NULL")
	assert.Equal(t, domain.SRIDGeographic, args[13])
}

func TestUpsertArgs_GeographicCollection(t *testing.T) {
	u := sampleUpsert()
	u.Geometry = domain.NormalizedGeometry{
		Geometry: orb.MultiLineString{{{26.7, 58.3}, {26.8, 58.4}}},
		SRID:     domain.SRIDGeographic,
	}

	args, err := upsertArgs(u)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(args[12].(string)), &decoded))
	assert.Equal(t, "MultiLineString", decoded["type"])
	assert.Equal(t, domain.SRIDGeographic, args[13])
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("violates not-null constraint")
	err := error(&PersistenceError{SourceID: "poi_matkarada_j:7", Err: cause})

	assert.Equal(t, "persist trail poi_matkarada_j:7: violates not-null constraint", err.Error())
	require.ErrorIs(t, err, cause)

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "poi_matkarada_j:7", pErr.SourceID)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE EXTENSION IF NOT EXISTS postgis")
	assert.Contains(t, schemaSQL, "UNIQUE (source, source_id)")
}
