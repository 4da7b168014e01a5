package atlas

import (
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// Special status zones: regions the renderer draws with their own styling
// on top of the political layer. Currently the disputed CN/IN border
// overlap and the Chernobyl exclusion zone.

const (
	// disputedAreaMinKm2 filters hairline overlap slivers out of the
	// disputed-zone computation.
	disputedAreaMinKm2 = 25.0

	chernobylLon     = 30.099
	chernobylLat     = 51.389
	chernobylRadiusM = 30000.0
)

// BuildSpecialZones assembles the special-zones layer from China's merged
// geometry and India's raw (unclipped) districts. Best-effort: a failing
// overlay yields a layer without the disputed zone rather than an error.
func BuildSpecialZones(china, indiaRaw Layer, log zerolog.Logger) Layer {
	out := Layer{Name: "special_zones"}

	if zone, ok := buildDisputedCNIN(china, indiaRaw, log); ok {
		out.Features = append(out.Features, zone)
	}
	out.Features = append(out.Features, buildChernobylZone())
	return out
}

func buildDisputedCNIN(china, indiaRaw Layer, log zerolog.Logger) (Feature, bool) {
	if china.Empty() || indiaRaw.Empty() {
		return Feature{}, false
	}

	var chinaGeoms []orb.Geometry
	for _, f := range china.Features {
		if f.Geometry != nil {
			chinaGeoms = append(chinaGeoms, f.Geometry)
		}
	}
	chinaUnion, err := Union(chinaGeoms...)
	if err != nil {
		log.Warn().Err(err).Msg("China union failed; disputed zone skipped")
		return Feature{}, false
	}

	var overlaps []orb.Geometry
	for _, f := range indiaRaw.Features {
		inter, err := Intersection(f.Geometry, chinaUnion)
		if err != nil || inter == nil || geometryEmpty(inter) {
			continue
		}
		if AreaKm2(inter) < disputedAreaMinKm2 {
			continue
		}
		overlaps = append(overlaps, inter)
	}
	if len(overlaps) == 0 {
		log.Warn().Msg("No CN/IN overlap above threshold; disputed zone skipped")
		return Feature{}, false
	}
	disputed, err := Union(overlaps...)
	if err != nil {
		log.Warn().Err(err).Msg("Disputed zone union failed; skipped")
		return Feature{}, false
	}

	zone := Feature{
		ID:       "disputed_cn_in",
		Name:     "Disputed (CN/IN)",
		Geometry: disputed,
	}
	zone.SetExtra("label", "Disputed (CN/IN)")
	zone.SetExtra("type", "disputed")
	zone.SetExtra("claimants", "CN,IN")
	return zone, true
}

func buildChernobylZone() Feature {
	zone := Feature{
		ID:          "wasteland_ua_chernobyl",
		Name:        "Chernobyl Exclusion Zone",
		CountryCode: "UA",
		Geometry:    PointBuffer(orb.Point{chernobylLon, chernobylLat}, chernobylRadiusM),
	}
	zone.SetExtra("label", "Chernobyl Exclusion Zone")
	zone.SetExtra("type", "wasteland")
	zone.SetExtra("claimants", "")
	return zone
}
