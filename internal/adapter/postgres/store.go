// Package postgres persists trails into a PostGIS tracks table. Geometry
// validation, reprojection and derived columns (length, start point) are
// computed by the database in the upsert statement.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/trail-data-etl/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// lineStringCollection is the ST_CollectionExtract type code for lines.
const lineStringCollection = 2

const upsertTrailSQL = `
WITH g AS (
  SELECT
    CASE WHEN $13::text IS NULL THEN NULL
      ELSE ST_CollectionExtract(
        ST_MakeValid(
          ST_SetSRID(ST_GeomFromGeoJSON($13::text), $14::int)
        ),
        $16::int
      )
    END AS g_in
)
INSERT INTO tracks (
  source, source_id,
  name_et, name_en,
  county_et, county_en,
  municipality_et, municipality_en,
  location_et, location_en,
  description_et, description_en,
  length_km, start_point, geom, raw_props
)
SELECT
  $1, $2,
  $3, $4,
  $5, $6,
  $7, $8,
  $9, $10,
  $11, $12,
  CASE WHEN g_in IS NULL THEN NULL ELSE ROUND((ST_Length(ST_Transform(g_in, 4326)::geography) / 1000)::numeric, 2) END,
  CASE WHEN g_in IS NULL THEN NULL ELSE ST_StartPoint(ST_GeometryN(ST_LineMerge(ST_Transform(g_in, 4326)), 1)) END,
  CASE WHEN g_in IS NULL THEN NULL ELSE ST_Transform(g_in, 4326) END,
  $15::jsonb
FROM g
ON CONFLICT (source, source_id)
DO UPDATE SET
  name_et = EXCLUDED.name_et,
  name_en = EXCLUDED.name_en,
  county_et = EXCLUDED.county_et,
  county_en = EXCLUDED.county_en,
  municipality_et = EXCLUDED.municipality_et,
  municipality_en = EXCLUDED.municipality_en,
  location_et = EXCLUDED.location_et,
  location_en = EXCLUDED.location_en,
  description_et = EXCLUDED.description_et,
  description_en = EXCLUDED.description_en,
  length_km = EXCLUDED.length_km,
  start_point = EXCLUDED.start_point,
  geom = EXCLUDED.geom,
  raw_props = EXCLUDED.raw_props,
  updated_at = now()
`

// PersistenceError is a rejected upsert: constraint violation, invalid
// geometry the database could not repair, or a lost connection.
type PersistenceError struct {
	SourceID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist trail %s: %v", e.SourceID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store writes trails through a pgx connection pool.
// It implements pipeline.TrailStore.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore opens a pool for databaseURL and verifies it with a ping.
func NewStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the postgis extension and the tracks table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("database schema ready")
	return nil
}

// UpsertTrail inserts the trail or updates every mapped column of the row
// with the same (source, source_id).
func (s *Store) UpsertTrail(ctx context.Context, t domain.TrailUpsert) error {
	args, err := upsertArgs(t)
	if err != nil {
		return &PersistenceError{SourceID: t.Fields.SourceID, Err: err}
	}
	if _, err := s.pool.Exec(ctx, upsertTrailSQL, args...); err != nil {
		return &PersistenceError{SourceID: t.Fields.SourceID, Err: err}
	}
	return nil
}

// CountTrails returns the number of rows in tracks.
func (s *Store) CountTrails(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trails: %w", err)
	}
	return n, nil
}

// TrailGeometry loads the stored 4326 geometry of one trail. found is false
// when no row has that id; a row without geometry yields a nil geometry.
func (s *Store) TrailGeometry(ctx context.Context, id string) (g orb.Geometry, found bool, err error) {
	var raw *string
	err = s.pool.QueryRow(ctx, `SELECT ST_AsGeoJSON(geom) FROM tracks WHERE id = $1::uuid`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load geometry %s: %w", id, err)
	}
	if raw == nil {
		return nil, true, nil
	}

	geom, err := geojson.UnmarshalGeometry([]byte(*raw))
	if err != nil {
		return nil, true, fmt.Errorf("decode geometry %s: %w", id, err)
	}
	return geom.Geometry(), true, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// upsertArgs builds the positional parameters of upsertTrailSQL. A missing
// geometry is sent as NULL so every derived column stays NULL.
func upsertArgs(t domain.TrailUpsert) ([]any, error) {
	var geomJSON any
	srid := domain.SRIDGeographic
	if t.Geometry.Geometry != nil {
		b, err := geojson.NewGeometry(t.Geometry.Geometry).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode geometry: %w", err)
		}
		geomJSON = string(b)
		if t.Geometry.SRID != 0 {
			srid = t.Geometry.SRID
		}
	}

	rawProps, err := json.Marshal(t.RawProperties)
	if err != nil {
		return nil, fmt.Errorf("encode raw properties: %w", err)
	}

	f := t.Fields
	return []any{
		t.Source,
		f.SourceID,
		f.NameEt,
		f.NameEn,
		f.CountyEt,
		f.CountyEn,
		f.MunicipalityEt,
		f.MunicipalityEn,
		f.LocationEt,
		f.LocationEn,
		f.DescriptionEt,
		f.DescriptionEn,
		geomJSON,
		srid,
		string(rawProps),
		lineStringCollection,
	}, nil
}
