// Package domain models trail features published by the Maa- ja Ruumiamet
// (Estonian Land and Spatial Development Board) point-of-interest WFS service
// and the rules that turn them into trail records.
//
// # Data Source
//
// Trails are line features in the POI WFS endpoint
// (https://teenus.maaamet.ee/ows/huviobjektid-poi). Each layer ("typeName")
// is one dataset, usually compiled by a different organisation: RMK, the
// Environmental Board, municipalities, SA Eesti Terviserajad. Only layers in
// the verified registry are ingested by default; see [VerifiedLayers].
//
// # Property Conventions
//
// Property bags are flat and inconsistent between layers:
//
//	Keys appear in lower and upper case: "nimi" / "NIMI", "tunnus" / "TUNNUS".
//	Estonian keys dominate ("nimi", "maakond", "omavalitsus", "kirjeldus");
//	some layers use English ones ("name", "info").
//	English translations are rare ("name_en", "nimi_en").
//	Blank strings are as common as missing keys and mean the same thing.
//
// Every destination field therefore reads an ordered list of candidate keys
// and takes the first non-blank value. See [Pick] and [MapProperties].
//
// # Coordinate Conventions
//
// The service is asked for a reference system (srsName) but may answer in
// another one. Two failure modes are seen in practice:
//
//	Projected answer: coordinates in EPSG:3301 (L-EST97, metres), e.g.
//	  [540000, 6500000], even though EPSG:4326 was requested.
//	Swapped axes: EPSG:4326 coordinates delivered as [lat, lon], e.g.
//	  [58.38, 26.72] instead of [26.72, 58.38].
//
// Estonia lies roughly at lon 21..29, lat 57..60. A first coordinate with
// x in [50,70] and y in [10,40] is read as swapped. A real coordinate inside
// that band (lon 58.3, lat 26.7, somewhere in the Arabian Sea) is swapped too;
// the heuristic cannot tell the two apart. See [RepairAxisOrder].
//
// # ID Generation
//
// Source IDs are "<typeName>:<key>" where key is the first natural key
// property, the GeoJSON feature id, or a SHA-256 digest of the canonical
// geometry plus name. IDs must be identical across runs: the storage layer
// upserts on (source, source_id), so an unstable ID duplicates trails.
// See [StableID].
package domain
