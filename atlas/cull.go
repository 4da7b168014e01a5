package atlas

import (
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// Island/speckle culling. Multi-part features are exploded into single
// polygons; a part survives when it is the largest part of its feature, or
// intersects a whitelisted island point, or meets the area threshold.
// Survivors are dissolved back into one feature per original id. A feature
// can never be erased entirely: if every part of it fails the predicate the
// original feature is kept unchanged.

// CullIslands removes sub-threshold fragment polygons from the layer while
// protecting whitelisted islands. Areas are spherical (latitude-independent)
// and the threshold is in km².
func CullIslands(layer Layer, thresholdKm2 float64, whitelist []WhitelistPoint, log zerolog.Logger) Layer {
	out := Layer{Name: layer.Name, Features: make([]Feature, 0, len(layer.Features))}
	droppedParts := 0
	for _, f := range layer.Features {
		parts := ExplodeParts(f.Geometry)
		if len(parts) == 0 {
			out.Features = append(out.Features, f)
			continue
		}

		areas := make([]float64, len(parts))
		largest := 0
		for i, p := range parts {
			areas[i] = AreaKm2(p)
			if areas[i] > areas[largest] {
				largest = i
			}
		}

		kept := make([]orb.Polygon, 0, len(parts))
		for i, p := range parts {
			if i == largest || areas[i] >= thresholdKm2 || hitsWhitelist(p, whitelist) {
				kept = append(kept, p)
			}
		}
		droppedParts += len(parts) - len(kept)

		if len(kept) == 0 {
			// Culling must never delete a region outright.
			out.Features = append(out.Features, f)
			continue
		}
		nf := f
		nf.Geometry = dissolveParts(kept)
		out.Features = append(out.Features, nf)
	}
	log.Info().Int("dropped_parts", droppedParts).Float64("threshold_km2", thresholdKm2).
		Msg("Island cull complete")
	return out
}

// hitsWhitelist reports whether the part contains any protected island
// point. A whitelisted part is always kept regardless of area.
func hitsWhitelist(p orb.Polygon, whitelist []WhitelistPoint) bool {
	for _, w := range whitelist {
		if Contains(p, w.Point()) {
			return true
		}
	}
	return false
}

// dissolveParts merges surviving parts back into one geometry. The parts
// come from one multipolygon, so they are disjoint; the union is a cheap
// cleanup pass and a plain collection is the fallback if it fails.
func dissolveParts(parts []orb.Polygon) orb.Geometry {
	if len(parts) == 1 {
		return parts[0]
	}
	geoms := make([]orb.Geometry, len(parts))
	for i, p := range parts {
		geoms[i] = p
	}
	if union, err := Union(geoms...); err == nil && union != nil {
		return union
	}
	return CollectParts(parts)
}

// Despeckle is the cruder pre-pass run on the hybrid before the smart cull:
// an area filter with no largest-part guarantee, followed by dissolve and
// re-simplification. A feature losing all parts is dropped, matching the
// pass's role of deleting sub-threshold islets outright; whitelisted island
// parts are exempt, and if the filter would empty the whole layer the
// original is kept.
func Despeckle(layer Layer, thresholdKm2, tolerance float64, whitelist []WhitelistPoint, log zerolog.Logger) Layer {
	out := Layer{Name: layer.Name, Features: make([]Feature, 0, len(layer.Features))}
	dropped, total := 0, 0
	for _, f := range layer.Features {
		parts := ExplodeParts(f.Geometry)
		if len(parts) == 0 {
			out.Features = append(out.Features, f)
			continue
		}
		total += len(parts)
		kept := make([]orb.Polygon, 0, len(parts))
		for _, p := range parts {
			if AreaKm2(p) >= thresholdKm2 || hitsWhitelist(p, whitelist) {
				kept = append(kept, p)
			}
		}
		dropped += len(parts) - len(kept)
		if len(kept) == 0 {
			continue
		}
		nf := f
		nf.Geometry = SimplifyGeometry(dissolveParts(kept), tolerance, true)
		out.Features = append(out.Features, nf)
	}
	if out.Empty() {
		log.Warn().Msg("Despeckle removed all geometries; keeping original layer")
		return layer
	}
	log.Info().Int("dropped", dropped).Int("total", total).
		Float64("threshold_km2", thresholdKm2).Msg("Despeckle complete")
	return out
}
