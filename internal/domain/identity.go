package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// StableID derives the source ID of a feature within a layer. Natural keys
// win; the GeoJSON feature id is next; otherwise a digest of the canonical
// geometry and the name. Identical input always yields an identical ID.
func StableID(layer string, f RemoteFeature) string {
	if key, ok := Pick(f.Properties, naturalKeyKeys...); ok {
		return layer + ":" + key
	}
	if f.ID != nil {
		if key := formatValue(f.ID); strings.TrimSpace(key) != "" {
			return layer + ":" + key
		}
	}
	return layer + ":" + contentHash(f)
}

func contentHash(f RemoteFeature) string {
	h := sha256.New()
	h.Write(canonicalGeometry(f))
	name, _ := Pick(f.Properties, nameKeys...)
	h.Write([]byte(name))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalGeometry is the GeoJSON encoding of the geometry, "{}" when absent.
func canonicalGeometry(f RemoteFeature) []byte {
	if f.Geometry == nil {
		return []byte("{}")
	}
	data, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
	if err != nil {
		return []byte("{}")
	}
	return data
}
