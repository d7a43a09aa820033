// Package preview draws trail geometries as small schematic SVG images.
package preview

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	DefaultWidth  = 360
	DefaultHeight = 180

	// MinSide is the smallest canvas side that leaves room inside the padding.
	MinSide = 2*padding + 1

	padding     = 12
	background  = "#f3f4f6"
	strokeColor = "#2563eb"
	textColor   = "#6b7280"

	// Placeholder is the text shown when there is nothing to draw.
	Placeholder = "No geometry"

	// ContentType is the media type of Render's output.
	ContentType = "image/svg+xml; charset=utf-8"
)

// Render projects every line of g into a width x height canvas, north up,
// with a uniform scale that preserves the aspect ratio. Nil, empty, non-line
// and non-finite geometries produce the placeholder image, as does a canvas
// with a side below MinSide. Non-positive dimensions fall back to the defaults.
func Render(g orb.Geometry, width, height int) []byte {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	lines := collectLines(g, nil)
	bound, ok := bounds(lines)
	if !ok || width < MinSide || height < MinSide {
		return placeholder(width, height)
	}

	dx := bound.Max[0] - bound.Min[0]
	if dx == 0 {
		dx = 1
	}
	dy := bound.Max[1] - bound.Min[1]
	if dy == 0 {
		dy = 1
	}

	scale := math.Min(float64(width-2*padding)/dx, float64(height-2*padding)/dy)
	offsetX := (float64(width) - dx*scale) / 2
	offsetY := (float64(height) - dy*scale) / 2

	var b strings.Builder
	openSVG(&b, width, height)
	for _, ls := range lines {
		if len(ls) < 2 {
			continue
		}
		b.WriteString(`<path d="`)
		for i, p := range ls {
			if i == 0 {
				b.WriteByte('M')
			} else {
				b.WriteString(" L")
			}
			b.WriteString(coord(offsetX + (p[0]-bound.Min[0])*scale))
			b.WriteByte(' ')
			b.WriteString(coord(offsetY + (bound.Max[1]-p[1])*scale))
		}
		b.WriteString(`" fill="none" stroke="` + strokeColor + `" stroke-width="3" stroke-linecap="round" stroke-linejoin="round"/>`)
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func placeholder(width, height int) []byte {
	var b strings.Builder
	openSVG(&b, width, height)
	b.WriteString(`<text x="50%" y="50%" dominant-baseline="middle" text-anchor="middle" font-family="system-ui" font-size="12" fill="` +
		textColor + `">` + Placeholder + `</text>`)
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func openSVG(b *strings.Builder, width, height int) {
	w, h := strconv.Itoa(width), strconv.Itoa(height)
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + w + `" height="` + h + `" viewBox="0 0 ` + w + ` ` + h + `">`)
	b.WriteString(`<rect width="100%" height="100%" fill="` + background + `"/>`)
}

// collectLines flattens the line members of g, descending into collections.
func collectLines(g orb.Geometry, out []orb.LineString) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		out = append(out, v)
	case orb.MultiLineString:
		out = append(out, v...)
	case orb.Collection:
		for _, member := range v {
			out = collectLines(member, out)
		}
	}
	return out
}

// bounds covers every point of lines, including ones too short to draw. It
// reports false when there is no point or any coordinate is not finite.
func bounds(lines []orb.LineString) (orb.Bound, bool) {
	first := true
	var bound orb.Bound
	for _, ls := range lines {
		for _, p := range ls {
			if !finite(p[0]) || !finite(p[1]) {
				return orb.Bound{}, false
			}
			if first {
				bound = p.Bound()
				first = false
				continue
			}
			bound = bound.Extend(p)
		}
	}
	return bound, !first
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
