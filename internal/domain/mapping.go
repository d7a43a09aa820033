package domain

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

// Candidate source keys per destination field, in priority order.
var (
	naturalKeyKeys    = []string{"tunnus", "TUNNUS", "objectid", "OBJECTID", "id", "ID", "fid", "FID"}
	nameKeys          = []string{"nimi", "NIMI", "name", "NAME"}
	nameEnKeys        = []string{"name_en", "NAME_EN", "nimi_en", "NIMI_EN"}
	countyKeys        = []string{"maakond", "MAAKOND"}
	municipalityKeys  = []string{"omavalitsus", "OMAVALITSUS"}
	descriptionKeys   = []string{"kirjeldus", "KIRJELDUS", "info", "INFO"}
	rawPropsLayerKey  = "typename"
	locationSeparator = ", "
)

// Pick returns the first value among keys that is present, non-nil and not
// blank once formatted. The value itself is returned untrimmed.
func Pick(props map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		s := formatValue(v)
		if strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// MapProperties projects a feature's property bag onto the trail columns.
// It never fails: missing keys produce NULLs, and a missing name falls back
// to the source ID.
func MapProperties(layer string, f RemoteFeature) MappedFields {
	m := MappedFields{SourceID: StableID(layer, f)}

	m.NameEt = m.SourceID
	if name, ok := Pick(f.Properties, nameKeys...); ok {
		m.NameEt = name
	}
	m.NameEn = m.NameEt
	if name, ok := Pick(f.Properties, nameEnKeys...); ok {
		m.NameEn = name
	}

	county := pickPtr(f.Properties, countyKeys...)
	municipality := pickPtr(f.Properties, municipalityKeys...)
	m.CountyEt, m.CountyEn = county, county
	m.MunicipalityEt, m.MunicipalityEn = municipality, municipality

	// No layer publishes English admin names.
	location := joinLocation(county, municipality)
	m.LocationEt, m.LocationEn = location, location

	m.DescriptionEt = pickPtr(f.Properties, descriptionKeys...)
	return m
}

// RawProperties returns the property bag tagged with the layer name, for
// storage as-is. Bag keys win over the tag on collision.
func RawProperties(layer string, f RemoteFeature) map[string]any {
	out := make(map[string]any, len(f.Properties)+1)
	out[rawPropsLayerKey] = layer
	maps.Copy(out, f.Properties)
	return out
}

func pickPtr(props map[string]any, keys ...string) *string {
	if v, ok := Pick(props, keys...); ok {
		return &v
	}
	return nil
}

func joinLocation(parts ...*string) *string {
	var present []string
	for _, p := range parts {
		if p != nil {
			present = append(present, *p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	joined := strings.Join(present, locationSeparator)
	return &joined
}

// formatValue renders a decoded JSON value the way it appears in the source:
// integral numbers without exponent or trailing zeros.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
