package atlas

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// Replacement engine. Each designated country's slice of the base layer is
// swapped for a dedicated higher-resolution dataset. Replacements run as an
// explicit ordered pipeline of named steps because some steps consume the
// already-merged state of an earlier one; the runner asserts the declared
// order instead of trusting call sites.

// PipelineState is the shared state threaded through the replacement steps.
// Hybrid is the political layer being synthesized; the remaining fields are
// read-only inputs.
type PipelineState struct {
	Config *Config
	Log    zerolog.Logger

	// Hybrid is the in-progress political layer.
	Hybrid Layer

	// Replacement datasets, already loaded and reprojected to WGS84.
	France  Layer
	Poland  Layer
	China   Layer
	Russia  Layer
	Ukraine Layer
	India   Layer

	// Admin1 is the first-level reference layer used for state joins.
	Admin1 Layer

	// IndiaRaw keeps India's unclipped geometry for the special-zone
	// overlap computation after the South Asia step has trimmed Hybrid.
	IndiaRaw Layer
}

// Step is one named replacement pass. After names the step that must have
// completed first; empty means no dependency.
type Step struct {
	Name  string
	After string
	Run   func(*PipelineState) error
}

// RunSteps executes the replacement pipeline in order, enforcing each step's
// declared dependency and re-validating id uniqueness after every step.
func RunSteps(steps []Step, st *PipelineState) error {
	done := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.After != "" && !done[step.After] {
			return fmt.Errorf("step %s requires %s to run first", step.Name, step.After)
		}
		st.Log.Info().Str("step", step.Name).Msg("Running replacement step")
		if err := step.Run(st); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
		if err := st.Hybrid.ValidateIDs(); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
		done[step.Name] = true
	}
	return nil
}

// DefaultSteps returns the canonical replacement order. South Asia must run
// after China because its clip consumes China's finalized geometry.
func DefaultSteps() []Step {
	return []Step{
		{Name: "france", Run: StepFrance},
		{Name: "russia_ukraine", Run: StepRussiaUkraine},
		{Name: "poland", Run: StepPoland},
		{Name: "china", Run: StepChina},
		{Name: "south_asia", After: "china", Run: StepSouthAsia},
	}
}

// ReplaceCountry removes every base feature owned by code and appends the
// replacement features. A replacement id colliding with a retained base id
// fails loudly: it indicates a schema or scope error upstream that must not
// be papered over by overwriting.
func ReplaceCountry(base Layer, code string, repl Layer) (Layer, error) {
	code = strings.ToUpper(code)
	out := Layer{Name: base.Name, Features: make([]Feature, 0, len(base.Features)+len(repl.Features))}
	for _, f := range base.Features {
		if strings.ToUpper(f.CountryCode) != code {
			out.Features = append(out.Features, f)
		}
	}
	retained := out.IDSet()
	for _, f := range repl.Features {
		if _, dup := retained[f.ID]; dup {
			return Layer{}, fmt.Errorf("replacing %s: %w: %s", code, ErrIDCollision, f.ID)
		}
		out.Features = append(out.Features, f)
	}
	return out, nil
}

// SplitByMeridian partitions a layer by the longitude of each feature's
// representative point against the given meridian. Features at exactly the
// meridian fall east.
func SplitByMeridian(layer Layer, meridian float64) (west, east Layer) {
	west = Layer{Name: layer.Name}
	east = Layer{Name: layer.Name}
	for _, f := range layer.Features {
		if f.Geometry == nil {
			continue
		}
		if RepresentativePoint(f.Geometry)[0] < meridian {
			west.Features = append(west.Features, f)
		} else {
			east.Features = append(east.Features, f)
		}
	}
	return west, east
}

// FilterByCountry returns the features of the layer owned by code.
func FilterByCountry(layer Layer, code string) Layer {
	code = strings.ToUpper(code)
	out := Layer{Name: layer.Name}
	for _, f := range layer.Features {
		if strings.ToUpper(f.CountryCode) == code {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// CountryUnion dissolves the geometry of one country's features into a
// single polygonal geometry. Returns nil when the country is absent.
func CountryUnion(layer Layer, code string) orb.Geometry {
	subset := FilterByCountry(layer, code)
	if subset.Empty() {
		return nil
	}
	geoms := make([]orb.Geometry, 0, len(subset.Features))
	for _, f := range subset.Features {
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	}
	union, err := Union(geoms...)
	if err != nil {
		return nil
	}
	return union
}

// normalizeReplacement rewrites a raw replacement dataset into the canonical
// schema: prefixed ids, display name, fixed owning country. The prefix keys
// the id-pattern rule of the country-code resolver.
func normalizeReplacement(layer Layer, idPrefix, code string) Layer {
	out := Layer{Name: layer.Name, Features: make([]Feature, 0, len(layer.Features))}
	for _, f := range layer.Features {
		nf := f
		nf.ID = idPrefix + f.ID
		nf.CountryCode = code
		out.Features = append(out.Features, nf)
	}
	return out
}

// dropOversized removes features whose raw planar area (square degrees)
// exceeds the limit. Some community datasets carry a bogus whole-country
// artifact polygon alongside the real subdivisions.
func dropOversized(layer Layer, maxDeg2 float64, log zerolog.Logger, label string) Layer {
	out := Layer{Name: layer.Name}
	for _, f := range layer.Features {
		if f.Geometry != nil && planarAreaDeg2(f.Geometry) >= maxDeg2 {
			continue
		}
		out.Features = append(out.Features, f)
	}
	if dropped := len(layer.Features) - len(out.Features); dropped > 0 {
		log.Info().Str("dataset", label).Int("dropped", dropped).
			Msg("Removed oversized artifact features")
	}
	return out
}

// repairLayer runs MakeValid across the layer, keeping the original
// geometry for any feature whose repair fails.
func repairLayer(layer Layer, log zerolog.Logger, label string) Layer {
	failures := 0
	for i := range layer.Features {
		f := &layer.Features[i]
		if f.Geometry == nil {
			continue
		}
		repaired, err := MakeValid(f.Geometry)
		if err != nil || repaired == nil {
			failures++
			continue
		}
		f.Geometry = repaired
	}
	if failures > 0 {
		log.Warn().Str("dataset", label).Int("failures", failures).
			Msg("Geometry repair failed for some features; originals kept")
	}
	return layer
}

// simplifyLayer applies topology-preserving simplification to every feature.
func simplifyLayer(layer Layer, tolerance float64) Layer {
	for i := range layer.Features {
		if layer.Features[i].Geometry != nil {
			layer.Features[i].Geometry = SimplifyGeometry(layer.Features[i].Geometry, tolerance, true)
		}
	}
	return layer
}
