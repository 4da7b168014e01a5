package atlas

import (
	"fmt"
	"math"
	"sort"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"
)

// Geometry capability surface for the pipeline. Everything here is pure:
// inputs are cloned before mutation and results are new geometries. Polygon
// boolean operations are delegated to polygol (Martinez overlay); metric
// area uses spherical measure so results are latitude-independent, matching
// an equal-area projection without carrying one.

const earthRadiusM = 6378137.0

// AreaKm2 returns the spherical surface area of a polygonal geometry in km².
func AreaKm2(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return math.Abs(geo.Area(g)) / 1e6
}

// planarAreaDeg2 returns the raw planar area in square degrees. Only useful
// for flagging wildly oversized artifact polygons, never for real measure.
func planarAreaDeg2(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return math.Abs(planar.Area(g))
}

// SimplifyGeometry runs Douglas-Peucker at the given tolerance. With
// preserveTopology set, any ring that would collapse below a valid ring size
// keeps its original coordinates instead.
func SimplifyGeometry(g orb.Geometry, tolerance float64, preserveTopology bool) orb.Geometry {
	if g == nil || tolerance <= 0 {
		return g
	}
	original := orb.Clone(g)
	out := simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(g))
	if !preserveTopology {
		return out
	}
	switch v := out.(type) {
	case orb.Polygon:
		return restoreCollapsedRings(v, original.(orb.Polygon))
	case orb.MultiPolygon:
		op := original.(orb.MultiPolygon)
		for i := range v {
			if i < len(op) {
				v[i] = restoreCollapsedRings(v[i], op[i])
			}
		}
		return v
	default:
		return out
	}
}

func restoreCollapsedRings(p, original orb.Polygon) orb.Polygon {
	for i := range p {
		if len(p[i]) < 4 && i < len(original) {
			p[i] = original[i]
		}
	}
	return p
}

// ClipToBound clips a geometry to a bounding box. On a degenerate input the
// geometry is repaired once via MakeValid and the clip retried exactly once;
// a nil result after that surfaces as an error.
func ClipToBound(g orb.Geometry, b orb.Bound) (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("clip: nil geometry")
	}
	out := clip.Geometry(b, orb.Clone(g))
	if out != nil && !geometryEmpty(out) {
		return out, nil
	}
	repaired, err := MakeValid(g)
	if err != nil {
		return nil, fmt.Errorf("clip repair: %w", err)
	}
	out = clip.Geometry(b, repaired)
	if out == nil || geometryEmpty(out) {
		return nil, fmt.Errorf("clip produced empty result")
	}
	return out, nil
}

// Union dissolves polygonal geometries into one. Inputs are untouched.
func Union(gs ...orb.Geometry) (orb.Geometry, error) {
	polys := make([]polygol.Geom, 0, len(gs))
	for _, g := range gs {
		if pg := toPolygolGeom(g); pg != nil {
			polys = append(polys, pg)
		}
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("union: no polygonal input")
	}
	out, err := polygol.Union(polys[0], polys[1:]...)
	if err != nil {
		return nil, fmt.Errorf("union: %w", err)
	}
	return fromPolygolGeom(out), nil
}

// Difference returns a minus b. A failure is retried once after repairing
// both operands.
func Difference(a, b orb.Geometry) (orb.Geometry, error) {
	out, err := polygol.Difference(toPolygolGeom(a), toPolygolGeom(b))
	if err != nil {
		ra, raErr := MakeValid(a)
		rb, rbErr := MakeValid(b)
		if raErr != nil || rbErr != nil {
			return nil, fmt.Errorf("difference: %w", err)
		}
		out, err = polygol.Difference(toPolygolGeom(ra), toPolygolGeom(rb))
		if err != nil {
			return nil, fmt.Errorf("difference after repair: %w", err)
		}
	}
	return fromPolygolGeom(out), nil
}

// Intersection returns the overlap of a and b, with the same repair-then-
// retry policy as Difference.
func Intersection(a, b orb.Geometry) (orb.Geometry, error) {
	out, err := polygol.Intersection(toPolygolGeom(a), toPolygolGeom(b))
	if err != nil {
		ra, raErr := MakeValid(a)
		rb, rbErr := MakeValid(b)
		if raErr != nil || rbErr != nil {
			return nil, fmt.Errorf("intersection: %w", err)
		}
		out, err = polygol.Intersection(toPolygolGeom(ra), toPolygolGeom(rb))
		if err != nil {
			return nil, fmt.Errorf("intersection after repair: %w", err)
		}
	}
	return fromPolygolGeom(out), nil
}

// MakeValid repairs a polygonal geometry by unary self-union, resolving
// self-intersections and degenerate rings.
func MakeValid(g orb.Geometry) (orb.Geometry, error) {
	pg := toPolygolGeom(g)
	if pg == nil {
		return nil, fmt.Errorf("make valid: not a polygonal geometry")
	}
	out, err := polygol.Union(pg)
	if err != nil {
		return nil, fmt.Errorf("make valid: %w", err)
	}
	return fromPolygolGeom(out), nil
}

// Contains reports whether a polygonal geometry contains the point.
func Contains(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	case orb.Ring:
		return planar.RingContains(v, p)
	default:
		return false
	}
}

// DistanceTo returns the planar distance from a point to a geometry's
// boundary, zero when the point is inside a polygonal geometry.
func DistanceTo(g orb.Geometry, p orb.Point) float64 {
	if Contains(g, p) {
		return 0
	}
	return planar.DistanceFrom(g, p)
}

// RepresentativePoint returns a point guaranteed to lie inside a polygonal
// geometry, preferring the centroid when it is interior and falling back to
// the midpoint of the widest interior span on the centroid's latitude.
func RepresentativePoint(g orb.Geometry) orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return v
	case orb.LineString:
		if len(v) == 0 {
			return orb.Point{}
		}
		return v[len(v)/2]
	case orb.MultiLineString:
		if len(v) == 0 {
			return orb.Point{}
		}
		return RepresentativePoint(v[0])
	case orb.Polygon:
		return polygonInteriorPoint(v)
	case orb.MultiPolygon:
		if len(v) == 0 {
			return orb.Point{}
		}
		// Anchor the point in the largest part.
		best, bestArea := v[0], 0.0
		for _, p := range v {
			if a := math.Abs(planar.Area(p)); a > bestArea {
				best, bestArea = p, a
			}
		}
		return polygonInteriorPoint(best)
	default:
		c, _ := planar.CentroidArea(g)
		return c
	}
}

func polygonInteriorPoint(p orb.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}
	centroid, _ := planar.CentroidArea(p)
	if planar.PolygonContains(p, centroid) {
		return centroid
	}

	// Scanline at the centroid latitude: collect edge crossings across all
	// rings, pair them up, take the midpoint of the widest span.
	y := centroid[1]
	var xs []float64
	for _, ring := range p {
		for i := 0; i < len(ring)-1; i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] > y) == (b[1] > y) {
				continue
			}
			t := (y - a[1]) / (b[1] - a[1])
			xs = append(xs, a[0]+t*(b[0]-a[0]))
		}
	}
	if len(xs) < 2 {
		return centroid
	}
	sort.Float64s(xs)
	bestMid, bestWidth := centroid, -1.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			bestMid = orb.Point{(xs[i] + xs[i+1]) / 2, y}
		}
	}
	return bestMid
}

// ReprojectToWGS84 converts a geometry from the declared source CRS into
// geographic WGS84. Supported CRSs: EPSG:4326 (identity), EPSG:3857 (web
// mercator), EPSG:3035 (ETRS89 LAEA Europe, spherical approximation).
func ReprojectToWGS84(g orb.Geometry, crs string) (orb.Geometry, error) {
	switch crs {
	case "", "EPSG:4326":
		return g, nil
	case "EPSG:3857":
		return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84), nil
	case "EPSG:3035":
		return project.Geometry(orb.Clone(g), laeaEuropeToWGS84), nil
	default:
		return nil, fmt.Errorf("unsupported CRS %s", crs)
	}
}

// ToMercator and FromMercator project between WGS84 and web mercator. The
// hierarchy deriver computes centroids in mercator so non-convex regions get
// a stable interior match.
func ToMercator(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// FromMercator is the inverse of ToMercator.
func FromMercator(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84)
}

// ETRS89 LAEA Europe: lat0 52, lon0 10, false easting 4321000, false
// northing 3210000. A spherical inverse is sufficient here since the sources
// are re-simplified well beyond the ellipsoidal error afterwards.
const (
	laeaLat0 = 52.0 * math.Pi / 180
	laeaLon0 = 10.0 * math.Pi / 180
	laeaFE   = 4321000.0
	laeaFN   = 3210000.0
)

func laeaEuropeToWGS84(p orb.Point) orb.Point {
	x := p[0] - laeaFE
	y := p[1] - laeaFN
	rho := math.Hypot(x, y)
	if rho == 0 {
		return orb.Point{laeaLon0 * 180 / math.Pi, laeaLat0 * 180 / math.Pi}
	}
	c := 2 * math.Asin(rho/(2*earthRadiusM))
	sinC, cosC := math.Sin(c), math.Cos(c)
	lat := math.Asin(cosC*math.Sin(laeaLat0) + y*sinC*math.Cos(laeaLat0)/rho)
	lon := laeaLon0 + math.Atan2(x*sinC, rho*math.Cos(laeaLat0)*cosC-y*math.Sin(laeaLat0)*sinC)
	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}

// PointBuffer builds a polygonal buffer of the given radius (meters) around
// a WGS84 point, as a regular 64-gon of geodesic destinations.
func PointBuffer(center orb.Point, radiusM float64) orb.Polygon {
	const segments = 64
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := float64(i) * 360.0 / segments
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusM))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// RoundGeometry rounds every coordinate to the given decimal precision,
// in place on a clone. Bounds output size and makes shared-edge detection
// numerically robust.
func RoundGeometry(g orb.Geometry, precision int) orb.Geometry {
	if g == nil {
		return nil
	}
	factor := math.Pow10(precision)
	out := orb.Clone(g)
	roundInPlace(out, factor)
	return out
}

func roundInPlace(g orb.Geometry, factor float64) {
	round := func(p orb.Point) orb.Point {
		return orb.Point{
			math.Round(p[0]*factor) / factor,
			math.Round(p[1]*factor) / factor,
		}
	}
	switch v := g.(type) {
	case orb.LineString:
		for i := range v {
			v[i] = round(v[i])
		}
	case orb.MultiLineString:
		for _, ls := range v {
			for i := range ls {
				ls[i] = round(ls[i])
			}
		}
	case orb.Ring:
		for i := range v {
			v[i] = round(v[i])
		}
	case orb.Polygon:
		for _, r := range v {
			for i := range r {
				r[i] = round(r[i])
			}
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, r := range poly {
				for i := range r {
					r[i] = round(r[i])
				}
			}
		}
	}
}

// ExplodeParts splits a polygonal geometry into its single-polygon parts.
func ExplodeParts(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		out := make([]orb.Polygon, len(v))
		copy(out, v)
		return out
	default:
		return nil
	}
}

// CollectParts reassembles parts into a Polygon or MultiPolygon.
func CollectParts(parts []orb.Polygon) orb.Geometry {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return orb.MultiPolygon(parts)
	}
}

func toPolygolGeom(g orb.Geometry) polygol.Geom {
	switch v := g.(type) {
	case orb.Polygon:
		return polygol.Geom{polygonToFloats(v)}
	case orb.MultiPolygon:
		out := make(polygol.Geom, 0, len(v))
		for _, p := range v {
			out = append(out, polygonToFloats(p))
		}
		return out
	default:
		return nil
	}
}

func polygonToFloats(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p))
	for _, r := range p {
		ring := make([][]float64, 0, len(r))
		for _, pt := range r {
			ring = append(ring, []float64{pt[0], pt[1]})
		}
		rings = append(rings, ring)
	}
	return rings
}

func fromPolygolGeom(g polygol.Geom) orb.Geometry {
	if len(g) == 0 {
		return nil
	}
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, poly := range g {
		p := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				r = append(r, orb.Point{pt[0], pt[1]})
			}
			p = append(p, r)
		}
		mp = append(mp, p)
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}
