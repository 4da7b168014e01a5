package atlas

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Feature is one addressable region: a polygon or multipolygon with a stable
// id, a display name and an owning-country code. CountryCode is a derived
// attribute; the empty string means "unknown" and is encoded as JSON null in
// the persisted political layer so consumers can tell unknown from assigned.
type Feature struct {
	ID          string
	Name        string
	CountryCode string
	Geometry    orb.Geometry

	// Extra carries layer-specific attributes that survive into the
	// topology artifact (featurecla, adm1_name, special-zone metadata).
	Extra map[string]string
}

// GetExtra returns the named extra attribute or "" when absent.
func (f *Feature) GetExtra(key string) string {
	if f.Extra == nil {
		return ""
	}
	return f.Extra[key]
}

// SetExtra sets an extra attribute, allocating the map on first use.
func (f *Feature) SetExtra(key, value string) {
	if f.Extra == nil {
		f.Extra = make(map[string]string)
	}
	f.Extra[key] = value
}

// Layer is an ordered collection of features sharing one schema. Feature
// order is preserved through every pipeline stage so artifact output is
// deterministic for identical input.
type Layer struct {
	Name     string
	Features []Feature
}

// Empty reports whether the layer has no features.
func (l *Layer) Empty() bool {
	return len(l.Features) == 0
}

// ValidateIDs checks that every feature id is unique within the layer.
// It is called after every merge step.
func (l *Layer) ValidateIDs() error {
	seen := make(map[string]struct{}, len(l.Features))
	for _, f := range l.Features {
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("layer %s: %w: %s", l.Name, ErrIDCollision, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// IDSet returns the set of feature ids in the layer.
func (l *Layer) IDSet() map[string]struct{} {
	ids := make(map[string]struct{}, len(l.Features))
	for _, f := range l.Features {
		ids[f.ID] = struct{}{}
	}
	return ids
}

// CountryCodes returns the set of upper-case country codes present in the
// layer, excluding unset codes.
func (l *Layer) CountryCodes() map[string]struct{} {
	codes := make(map[string]struct{})
	for _, f := range l.Features {
		if f.CountryCode != "" {
			codes[f.CountryCode] = struct{}{}
		}
	}
	return codes
}

// Bound returns the union bound of all feature geometries. The second return
// is false when the layer has no usable geometry.
func (l *Layer) Bound() (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, f := range l.Features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if !found {
			bound = b
			found = true
		} else {
			bound = bound.Union(b)
		}
	}
	return bound, found
}

// HasValidBound reports whether the layer bound is finite and non-degenerate
// in both axes. Layers failing this check cannot participate in a topology
// build.
func (l *Layer) HasValidBound() bool {
	b, ok := l.Bound()
	if !ok {
		return false
	}
	vals := []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Max[0]-b.Min[0] > 0 && b.Max[1]-b.Min[1] > 0
}

// ScrubGeometry drops features with nil, empty or non-finite geometry and
// returns the surviving count.
func (l *Layer) ScrubGeometry() int {
	kept := l.Features[:0]
	for _, f := range l.Features {
		if f.Geometry == nil || geometryEmpty(f.Geometry) || !geometryFinite(f.Geometry) {
			continue
		}
		kept = append(kept, f)
	}
	l.Features = kept
	return len(l.Features)
}

// Clone returns a deep copy of the layer. Geometries are cloned so stages
// can mutate their own copy without touching the prior stage's output.
func (l *Layer) Clone() Layer {
	out := Layer{Name: l.Name, Features: make([]Feature, len(l.Features))}
	for i, f := range l.Features {
		nf := f
		if f.Geometry != nil {
			nf.Geometry = orb.Clone(f.Geometry)
		}
		if f.Extra != nil {
			nf.Extra = make(map[string]string, len(f.Extra))
			for k, v := range f.Extra {
				nf.Extra[k] = v
			}
		}
		out.Features[i] = nf
	}
	return out
}

// IsValidCountryCode reports whether code is a 2-letter upper-case alphabetic
// ISO code. Sentinel values used by some sources ("-99") fail this check.
func IsValidCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func geometryEmpty(g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		if len(v) == 0 {
			return true
		}
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		if len(v) == 0 {
			return true
		}
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.Ring:
		return len(v) == 0
	default:
		return g == nil
	}
}

func geometryFinite(g orb.Geometry) bool {
	finite := true
	forEachPoint(g, func(p orb.Point) {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			finite = false
		}
	})
	return finite
}

// forEachPoint visits every coordinate of a geometry.
func forEachPoint(g orb.Geometry, fn func(orb.Point)) {
	switch v := g.(type) {
	case orb.Point:
		fn(v)
	case orb.MultiPoint:
		for _, p := range v {
			fn(p)
		}
	case orb.LineString:
		for _, p := range v {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range v {
			for _, p := range ls {
				fn(p)
			}
		}
	case orb.Ring:
		for _, p := range v {
			fn(p)
		}
	case orb.Polygon:
		for _, r := range v {
			for _, p := range r {
				fn(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, r := range poly {
				for _, p := range r {
					fn(p)
				}
			}
		}
	case orb.Collection:
		for _, sub := range v {
			forEachPoint(sub, fn)
		}
	}
}
