package atlas

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// Shared-arc topology construction. All input layers are cut into arcs at
// junction points, coincident arcs are stored once, and every layer's
// geometries are re-expressed as references into the shared arc pool. This
// keeps adjacent regions — and the political layer against the background
// layers — on byte-identical boundary geometry.

// TopoLayer is one named input layer for the topology build. Exactly one
// layer must be marked political; it is required and non-empty, while the
// background layers are optional and skipped when invalid.
type TopoLayer struct {
	Name      string
	Layer     Layer
	Political bool
}

// Topology is the output artifact in TopoJSON form. Arcs hold quantized
// delta-encoded coordinates when Transform is set, absolute coordinates
// otherwise.
type Topology struct {
	Type      string                 `json:"type"`
	Transform *TopoTransform         `json:"transform,omitempty"`
	Objects   map[string]*TopoObject `json:"objects"`
	Arcs      [][][2]float64         `json:"arcs"`

	// objectOrder preserves input layer order for reporting.
	objectOrder []string
}

// TopoTransform maps integer grid coordinates back to real coordinates:
// real = grid*scale + translate.
type TopoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// TopoObject is one named layer inside the topology.
type TopoObject struct {
	Type       string          `json:"type"`
	Geometries []*TopoGeometry `json:"geometries"`
}

// TopoGeometry is one feature's geometry expressed as arc references. A
// negative reference ~i denotes arc i traversed in reverse.
type TopoGeometry struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Properties map[string]interface{} `json:"properties"`
	Arcs       interface{}            `json:"arcs"`
}

// ObjectNames returns the layer names in input order.
func (t *Topology) ObjectNames() []string {
	return t.objectOrder
}

// ArcCount returns the number of shared arcs.
func (t *Topology) ArcCount() int {
	return len(t.Arcs)
}

// BuildTopology prepares the input layers and builds the shared topology at
// the configured quantization. A degenerate quantized build is retried once
// without quantization; a second failure is fatal.
func BuildTopology(layers []TopoLayer, cfg *Config, log zerolog.Logger) (*Topology, error) {
	prepared, err := prepareTopoLayers(layers, cfg, log)
	if err != nil {
		return nil, err
	}

	topo, err := buildTopology(prepared, cfg.Quantization)
	if err != nil && cfg.Quantization > 0 {
		log.Warn().Err(err).Msg("Quantized topology build failed; retrying without quantization")
		topo, err = buildTopology(prepared, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateTopology, err)
	}

	if err := validatePoliticalProperties(topo); err != nil {
		return nil, err
	}
	log.Info().
		Int("arcs", topo.ArcCount()).
		Strs("objects", topo.ObjectNames()).
		Msg("Topology built")
	return topo, nil
}

// preparedLayer is a topology input after pruning, scrubbing and rounding.
type preparedLayer struct {
	name     string
	features []preparedFeature
}

type preparedFeature struct {
	id         string
	properties map[string]interface{}
	geometry   orb.Geometry
}

func prepareTopoLayers(layers []TopoLayer, cfg *Config, log zerolog.Logger) ([]preparedLayer, error) {
	politicalSeen := false
	out := make([]preparedLayer, 0, len(layers))
	for _, tl := range layers {
		layer := tl.Layer.Clone()
		layer.ScrubGeometry()
		for i := range layer.Features {
			layer.Features[i].Geometry = RoundGeometry(layer.Features[i].Geometry, cfg.RoundPrecision)
		}
		layer.ScrubGeometry()

		if !layer.HasValidBound() {
			if tl.Political {
				return nil, fmt.Errorf("political layer %s: %w", tl.Name, ErrEmptyLayer)
			}
			log.Warn().Str("layer", tl.Name).Msg("Skipping empty or invalid topology layer")
			continue
		}
		if tl.Political {
			politicalSeen = true
		}

		pl := preparedLayer{name: tl.Name}
		for _, f := range layer.Features {
			pl.features = append(pl.features, preparedFeature{
				id:         f.ID,
				properties: pruneProperties(tl.Name, f),
				geometry:   f.Geometry,
			})
		}
		out = append(out, pl)
	}
	if !politicalSeen {
		return nil, fmt.Errorf("no political layer provided: %w", ErrEmptyLayer)
	}
	return out, nil
}

// pruneProperties keeps only the allow-listed attributes for the layer's
// role, filling absent values with the empty string so the output schema
// stays stable across features.
func pruneProperties(layerName string, f Feature) map[string]interface{} {
	props := map[string]interface{}{
		"id":        f.ID,
		"name":      f.Name,
		"cntr_code": f.CountryCode,
	}
	if layerName == "special_zones" {
		props["label"] = f.GetExtra("label")
		props["type"] = f.GetExtra("type")
		claimants := []string{}
		if raw := f.GetExtra("claimants"); raw != "" {
			claimants = strings.Split(raw, ",")
		}
		props["claimants"] = claimants
	}
	return props
}

func validatePoliticalProperties(t *Topology) error {
	obj, ok := t.Objects["political"]
	if !ok || len(obj.Geometries) == 0 {
		return fmt.Errorf("political object missing from topology: %w", ErrEmptyLayer)
	}
	sample := obj.Geometries[0].Properties
	for _, key := range []string{"id", "cntr_code"} {
		if _, ok := sample[key]; !ok {
			return fmt.Errorf("political topology properties missing %q", key)
		}
	}
	return nil
}

// gridPoint is an integer lattice coordinate used for junction detection
// and arc deduplication.
type gridPoint struct{ x, y int64 }

type topoBuilder struct {
	quantized bool
	scale     [2]float64
	translate [2]float64
	invScale  float64 // unquantized: grid = coord * invScale

	arcs     [][]gridPoint
	arcIndex map[string]int

	neighbors map[gridPoint]neighborPair
	junctions map[gridPoint]bool
}

func buildTopology(layers []preparedLayer, quantization int) (*Topology, error) {
	bound, ok := layersBound(layers)
	if !ok {
		return nil, fmt.Errorf("no geometry to build topology from")
	}

	b := &topoBuilder{
		arcIndex:  make(map[string]int),
		junctions: make(map[gridPoint]bool),
	}
	if quantization > 1 {
		w := bound.Max[0] - bound.Min[0]
		h := bound.Max[1] - bound.Min[1]
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("degenerate bound for quantization")
		}
		b.quantized = true
		b.scale = [2]float64{w / float64(quantization-1), h / float64(quantization-1)}
		b.translate = [2]float64{bound.Min[0], bound.Min[1]}
		if !finiteAll(b.scale[0], b.scale[1], b.translate[0], b.translate[1]) {
			return nil, fmt.Errorf("non-finite quantization transform")
		}
	} else {
		// A fixed sub-precision grid keeps point identity exact without
		// changing the emitted coordinates.
		b.invScale = 1e7
	}

	// Pass 1: junction detection across every ring and line.
	sequences := make([][]layerSequences, len(layers))
	for li, pl := range layers {
		sequences[li] = make([]layerSequences, len(pl.features))
		for fi, f := range pl.features {
			seqs := b.extractSequences(f.geometry)
			sequences[li][fi] = seqs
			for _, ring := range seqs.rings {
				b.markJunctions(ring, true)
			}
			for _, line := range seqs.lines {
				b.markJunctions(line, false)
			}
		}
	}

	// Pass 2: cut, deduplicate and reference.
	topo := &Topology{
		Type:    "Topology",
		Objects: make(map[string]*TopoObject),
	}
	if b.quantized {
		topo.Transform = &TopoTransform{Scale: b.scale, Translate: b.translate}
	}
	for li, pl := range layers {
		obj := &TopoObject{Type: "GeometryCollection"}
		for fi, f := range pl.features {
			geom := b.referenceGeometry(f.geometry, sequences[li][fi])
			if geom == nil {
				continue
			}
			geom.ID = f.id
			geom.Properties = f.properties
			obj.Geometries = append(obj.Geometries, geom)
		}
		topo.Objects[pl.name] = obj
		topo.objectOrder = append(topo.objectOrder, pl.name)
	}

	topo.Arcs = b.encodeArcs()
	for _, arc := range topo.Arcs {
		for _, pt := range arc {
			if !finiteAll(pt[0], pt[1]) {
				return nil, fmt.Errorf("non-finite coordinate in encoded arcs")
			}
		}
	}
	return topo, nil
}

func layersBound(layers []preparedLayer) (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, pl := range layers {
		for _, f := range pl.features {
			b := f.geometry.Bound()
			if !found {
				bound, found = b, true
			} else {
				bound = bound.Union(b)
			}
		}
	}
	return bound, found
}

func finiteAll(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// layerSequences are one feature's geometry snapped to the grid: closed
// rings (without the duplicate closing point) and open lines, grouped the
// way the original geometry nests them.
type layerSequences struct {
	// rings[poly][ring] for polygonal geometry
	rings []([]gridPoint)
	// ringShape records how many rings each polygon part has.
	ringShape []int
	lines     [][]gridPoint
	lineShape int // 0: none, 1: single line, >1: multi line count
}

func (b *topoBuilder) toGrid(p orb.Point) gridPoint {
	if b.quantized {
		return gridPoint{
			x: int64(math.Round((p[0] - b.translate[0]) / b.scale[0])),
			y: int64(math.Round((p[1] - b.translate[1]) / b.scale[1])),
		}
	}
	return gridPoint{
		x: int64(math.Round(p[0] * b.invScale)),
		y: int64(math.Round(p[1] * b.invScale)),
	}
}

func (b *topoBuilder) fromGrid(g gridPoint) [2]float64 {
	if b.quantized {
		return [2]float64{float64(g.x), float64(g.y)}
	}
	return [2]float64{float64(g.x) / b.invScale, float64(g.y) / b.invScale}
}

func (b *topoBuilder) extractSequences(g orb.Geometry) layerSequences {
	var seqs layerSequences
	switch v := g.(type) {
	case orb.Polygon:
		b.appendPolygon(&seqs, v)
	case orb.MultiPolygon:
		for _, p := range v {
			b.appendPolygon(&seqs, p)
		}
	case orb.LineString:
		if line := b.snapLine(v); len(line) >= 2 {
			seqs.lines = append(seqs.lines, line)
			seqs.lineShape = 1
		}
	case orb.MultiLineString:
		for _, ls := range v {
			if line := b.snapLine(orb.LineString(ls)); len(line) >= 2 {
				seqs.lines = append(seqs.lines, line)
			}
		}
		seqs.lineShape = len(seqs.lines)
	}
	return seqs
}

func (b *topoBuilder) appendPolygon(seqs *layerSequences, p orb.Polygon) {
	count := 0
	for _, r := range p {
		ring := b.snapRing(r)
		if len(ring) < 3 {
			continue
		}
		seqs.rings = append(seqs.rings, ring)
		count++
	}
	if count > 0 {
		seqs.ringShape = append(seqs.ringShape, count)
	}
}

// snapRing converts a ring into grid points, dropping consecutive
// duplicates and the closing point. Rings collapsing below 3 distinct
// points are degenerate.
func (b *topoBuilder) snapRing(r orb.Ring) []gridPoint {
	pts := make([]gridPoint, 0, len(r))
	for _, p := range r {
		gp := b.toGrid(p)
		if len(pts) > 0 && pts[len(pts)-1] == gp {
			continue
		}
		pts = append(pts, gp)
	}
	// Drop the duplicate closing point; the ring is cyclic from here on.
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func (b *topoBuilder) snapLine(ls orb.LineString) []gridPoint {
	pts := make([]gridPoint, 0, len(ls))
	for _, p := range ls {
		gp := b.toGrid(p)
		if len(pts) > 0 && pts[len(pts)-1] == gp {
			continue
		}
		pts = append(pts, gp)
	}
	return pts
}

// neighborPair is the unordered pair of neighbors seen at a point. A point
// observed twice with different neighbor pairs is a junction; interior
// points of an edge shared by two rings see the same pair from both sides
// and stay mergeable.
type neighborPair struct{ a, b gridPoint }

func orderedPair(a, b gridPoint) neighborPair {
	if a.x < b.x || (a.x == b.x && a.y <= b.y) {
		return neighborPair{a, b}
	}
	return neighborPair{b, a}
}

func (b *topoBuilder) markJunctions(seq []gridPoint, ring bool) {
	if b.neighbors == nil {
		b.neighbors = make(map[gridPoint]neighborPair)
	}
	n := len(seq)
	if n == 0 {
		return
	}
	for i, p := range seq {
		var pair neighborPair
		switch {
		case ring:
			pair = orderedPair(seq[(i-1+n)%n], seq[(i+1)%n])
		case i == 0 || i == n-1:
			// Line endpoints always terminate arcs.
			b.junctions[p] = true
			continue
		default:
			pair = orderedPair(seq[i-1], seq[i+1])
		}
		if prev, seen := b.neighbors[p]; seen {
			if prev != pair {
				b.junctions[p] = true
			}
		} else {
			b.neighbors[p] = pair
		}
	}
}

// referenceGeometry cuts a feature's sequences into arcs and assembles the
// TopoJSON geometry referencing them. Returns nil when every part was
// degenerate.
func (b *topoBuilder) referenceGeometry(g orb.Geometry, seqs layerSequences) *TopoGeometry {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		if len(seqs.rings) == 0 {
			return nil
		}
		polys := make([][][]int, 0, len(seqs.ringShape))
		ringIdx := 0
		for _, count := range seqs.ringShape {
			rings := make([][]int, 0, count)
			for r := 0; r < count; r++ {
				rings = append(rings, b.cutRing(seqs.rings[ringIdx]))
				ringIdx++
			}
			polys = append(polys, rings)
		}
		if len(polys) == 1 {
			return &TopoGeometry{Type: "Polygon", Arcs: polys[0]}
		}
		return &TopoGeometry{Type: "MultiPolygon", Arcs: polys}
	case orb.LineString, orb.MultiLineString:
		if len(seqs.lines) == 0 {
			return nil
		}
		lines := make([][]int, 0, len(seqs.lines))
		for _, line := range seqs.lines {
			lines = append(lines, b.cutLine(line))
		}
		if seqs.lineShape == 1 && len(lines) == 1 {
			return &TopoGeometry{Type: "LineString", Arcs: lines[0]}
		}
		return &TopoGeometry{Type: "MultiLineString", Arcs: lines}
	default:
		return nil
	}
}

// cutRing splits a cyclic ring at its junctions and returns the arc
// references. A junction-free ring becomes one closed arc, rotated to its
// lexicographically smallest point so identical rings deduplicate
// regardless of their starting vertex.
func (b *topoBuilder) cutRing(ring []gridPoint) []int {
	n := len(ring)
	start := -1
	for i, p := range ring {
		if b.junctions[p] {
			start = i
			break
		}
	}

	if start < 0 {
		rotated := rotateToMin(ring)
		closed := append(append([]gridPoint{}, rotated...), rotated[0])
		return []int{b.internArc(closed)}
	}

	// Walk the full cycle from the first junction, cutting at each one.
	var refs []int
	arc := []gridPoint{ring[start]}
	for step := 1; step <= n; step++ {
		p := ring[(start+step)%n]
		arc = append(arc, p)
		if b.junctions[p] {
			refs = append(refs, b.internArc(arc))
			arc = []gridPoint{p}
		}
	}
	if len(arc) > 1 {
		refs = append(refs, b.internArc(arc))
	}
	return refs
}

func (b *topoBuilder) cutLine(line []gridPoint) []int {
	var refs []int
	arc := []gridPoint{line[0]}
	for i := 1; i < len(line); i++ {
		p := line[i]
		arc = append(arc, p)
		if b.junctions[p] && i < len(line)-1 {
			refs = append(refs, b.internArc(arc))
			arc = []gridPoint{p}
		}
	}
	refs = append(refs, b.internArc(arc))
	return refs
}

func rotateToMin(ring []gridPoint) []gridPoint {
	min := 0
	for i, p := range ring {
		m := ring[min]
		if p.x < m.x || (p.x == m.x && p.y < m.y) {
			min = i
		}
	}
	out := make([]gridPoint, 0, len(ring))
	out = append(out, ring[min:]...)
	out = append(out, ring[:min]...)
	return out
}

// internArc stores an arc once, returning its index, or the complement
// ~index when the arc matches an existing one traversed backwards.
func (b *topoBuilder) internArc(arc []gridPoint) int {
	fwd := arcKey(arc)
	if idx, ok := b.arcIndex[fwd]; ok {
		return idx
	}
	rev := arcKeyReversed(arc)
	if idx, ok := b.arcIndex[rev]; ok {
		return ^idx
	}
	idx := len(b.arcs)
	b.arcs = append(b.arcs, arc)
	b.arcIndex[fwd] = idx
	return idx
}

func arcKey(arc []gridPoint) string {
	var sb strings.Builder
	sb.Grow(len(arc) * 18)
	for _, p := range arc {
		fmt.Fprintf(&sb, "%d,%d;", p.x, p.y)
	}
	return sb.String()
}

func arcKeyReversed(arc []gridPoint) string {
	var sb strings.Builder
	sb.Grow(len(arc) * 18)
	for i := len(arc) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%d,%d;", arc[i].x, arc[i].y)
	}
	return sb.String()
}

// encodeArcs emits the arc pool: delta-encoded grid coordinates when
// quantized, absolute coordinates otherwise.
func (b *topoBuilder) encodeArcs() [][][2]float64 {
	out := make([][][2]float64, len(b.arcs))
	for i, arc := range b.arcs {
		encoded := make([][2]float64, len(arc))
		if b.quantized {
			var px, py int64
			for j, p := range arc {
				if j == 0 {
					encoded[j] = [2]float64{float64(p.x), float64(p.y)}
				} else {
					encoded[j] = [2]float64{float64(p.x - px), float64(p.y - py)}
				}
				px, py = p.x, p.y
			}
		} else {
			for j, p := range arc {
				encoded[j] = b.fromGrid(p)
			}
		}
		out[i] = encoded
	}
	return out
}
