// Command validate checks saved WFS GetFeature responses offline. It applies
// the same identity, mapping and geometry rules as the ingester and reports
// features that would collide, lose their name, or land outside Estonia.
//
// Usage:
//
//	curl -o page1.json 'https://teenus.maaamet.ee/ows/huviobjektid-poi?service=WFS&...'
//	go run ./cmd/validate -layer poi_rmk_matkarada_j page1.json page2.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/trail-data-etl/internal/domain"
)

// Plausible extents of Estonian trails in each reference system.
var (
	estoniaLEST97 = orb.Bound{Min: orb.Point{300000, 6300000}, Max: orb.Point{800000, 6700000}}
	estoniaWGS84  = orb.Bound{Min: orb.Point{21.5, 57.4}, Max: orb.Point{28.3, 59.9}}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// stats summarises a validated layer.
type stats struct {
	features    int
	noGeometry  int
	projected   int
	geographic  int
	axisSwapped int
	unnamed     int
}

func main() {
	layer := flag.String("layer", "", "WFS type name the files were fetched from")
	allowUnverified := flag.Bool("allow-unverified", false, "accept a layer outside the verified registry")
	flag.Parse()

	if *layer == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if err := domain.CheckLayers([]string{*layer}, *allowUnverified); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *layer, flag.Args()))
}

func run(w io.Writer, layer string, paths []string) int {
	fmt.Fprintln(w, "=== Trail Data Validation ===")
	fmt.Fprintln(w)

	var features []domain.RemoteFeature
	for _, path := range paths {
		page, err := loadCollection(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", path, err)
			return 1
		}
		fmt.Fprintf(w, "  loaded %d features from %s\n", len(page), path)
		features = append(features, page...)
	}

	st := &stats{features: len(features)}
	phases := []*phase{
		validateIdentity(layer, features),
		validateGeometry(layer, features, st),
		validateNames(layer, features, st),
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Features: %d total, %d projected, %d geographic (%d axis-swapped), %d without geometry, %d unnamed\n",
		st.features, st.projected, st.geographic, st.axisSwapped, st.noGeometry, st.unnamed)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadCollection(path string) ([]domain.RemoteFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, domain.RemoteFeature{ID: f.ID, Geometry: f.Geometry, Properties: f.Properties})
	}
	return out, nil
}

// ── Validation phases ──

// validateIdentity fails on source IDs shared by more than one feature:
// those rows would overwrite each other on upsert.
func validateIdentity(layer string, features []domain.RemoteFeature) *phase {
	p := &phase{name: "Identity: source IDs are unique"}
	seen := make(map[string]int, len(features))
	for i, f := range features {
		id := domain.StableID(layer, f)
		if first, ok := seen[id]; ok {
			p.errorf("feature %d has the same source ID %q as feature %d", i, id, first)
			continue
		}
		seen[id] = i
	}
	return p
}

func validateGeometry(layer string, features []domain.RemoteFeature, st *stats) *phase {
	p := &phase{name: "Geometry: lines inside Estonia"}
	for i, f := range features {
		if f.Geometry == nil {
			st.noGeometry++
			continue
		}
		switch f.Geometry.(type) {
		case orb.LineString, orb.MultiLineString:
		default:
			p.errorf("feature %d (%s): unsupported geometry %s", i, domain.StableID(layer, f), f.Geometry.GeoJSONType())
			continue
		}

		ng := domain.NormalizeGeometry(f.Geometry, domain.SRIDLEST97)
		extent := estoniaWGS84
		if ng.SRID == domain.SRIDLEST97 {
			st.projected++
			extent = estoniaLEST97
		} else {
			st.geographic++
		}
		if ng.AxisSwapped {
			st.axisSwapped++
		}

		if b := ng.Geometry.Bound(); !extent.Contains(b.Min) || !extent.Contains(b.Max) {
			p.errorf("feature %d (%s): bounds %v..%v outside Estonia for SRID %d",
				i, domain.StableID(layer, f), b.Min, b.Max, ng.SRID)
		}
	}
	return p
}

// validateNames fails on features whose name falls back to the source ID.
func validateNames(layer string, features []domain.RemoteFeature, st *stats) *phase {
	p := &phase{name: "Names: every trail has a name"}
	for i, f := range features {
		m := domain.MapProperties(layer, f)
		if m.NameEt == m.SourceID {
			st.unnamed++
			p.errorf("feature %d (%s): no name property", i, m.SourceID)
		}
	}
	return p
}
