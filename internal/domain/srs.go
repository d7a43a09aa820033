package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// ReferenceSystem is the coarse classification of raw coordinates.
type ReferenceSystem int

const (
	Geographic ReferenceSystem = iota
	Projected
)

func (r ReferenceSystem) String() string {
	if r == Projected {
		return "projected"
	}
	return "geographic"
}

// Swap trigger band: swapped Estonian lat/lon lands here.
const (
	swapXMin, swapXMax = 50.0, 70.0
	swapYMin, swapYMax = 10.0, 40.0
)

// NormalizedGeometry is a geometry tagged with the SRID its coordinates are in.
type NormalizedGeometry struct {
	Geometry    orb.Geometry
	SRID        int
	AxisSwapped bool
}

// InferReferenceSystem classifies a geometry by its first coordinate. Values
// outside lon ±180 / lat ±90 can only be projected metres. Empty, nil and
// non-line geometries default to Geographic.
func InferReferenceSystem(g orb.Geometry) ReferenceSystem {
	p, ok := firstPoint(g)
	if !ok {
		return Geographic
	}
	if math.Abs(p[0]) > 180 || math.Abs(p[1]) > 90 {
		return Projected
	}
	return Geographic
}

// RepairAxisOrder swaps x and y of every coordinate when the first coordinate
// looks like swapped Estonian lat/lon. Collections are repaired member by
// member. The input is never modified; the bool reports whether anything was
// swapped.
func RepairAxisOrder(g orb.Geometry) (orb.Geometry, bool) {
	switch v := g.(type) {
	case orb.LineString:
		if len(v) == 0 || !swapNeeded(v[0]) {
			return v, false
		}
		return swapLine(v), true
	case orb.MultiLineString:
		p, ok := firstPoint(v)
		if !ok || !swapNeeded(p) {
			return v, false
		}
		out := make(orb.MultiLineString, len(v))
		for i, ls := range v {
			out[i] = swapLine(ls)
		}
		return out, true
	case orb.Collection:
		out := make(orb.Collection, len(v))
		swapped := false
		for i, member := range v {
			var s bool
			out[i], s = RepairAxisOrder(member)
			swapped = swapped || s
		}
		return out, swapped
	default:
		return g, false
	}
}

// NormalizeGeometry applies the per-feature policy: projected geometries pass
// through tagged with projectedSRID for server-side reprojection, geographic
// ones get axis repair and are tagged 4326. A nil geometry stays nil.
func NormalizeGeometry(g orb.Geometry, projectedSRID int) NormalizedGeometry {
	if g == nil {
		return NormalizedGeometry{}
	}
	if InferReferenceSystem(g) == Projected {
		return NormalizedGeometry{Geometry: g, SRID: projectedSRID}
	}
	fixed, swapped := RepairAxisOrder(g)
	return NormalizedGeometry{Geometry: fixed, SRID: SRIDGeographic, AxisSwapped: swapped}
}

func firstPoint(g orb.Geometry) (orb.Point, bool) {
	switch v := g.(type) {
	case orb.LineString:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.MultiLineString:
		if len(v) > 0 && len(v[0]) > 0 {
			return v[0][0], true
		}
	}
	return orb.Point{}, false
}

func swapNeeded(p orb.Point) bool {
	return p[0] >= swapXMin && p[0] <= swapXMax && p[1] >= swapYMin && p[1] <= swapYMax
}

func swapLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = orb.Point{p[1], p[0]}
	}
	return out
}
