package atlas

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
)

// LoadLayer reads one source dataset from the data directory, validates its
// schema mapping, normalizes attributes into the canonical Feature schema
// and reprojects coordinates to WGS84. Network fetching and archive
// extraction happen upstream; this loader only consumes the cached GeoJSON.
func LoadLayer(cfg *Config, key string, log zerolog.Logger) (Layer, error) {
	src, ok := cfg.Sources[key]
	if !ok {
		return Layer{}, fmt.Errorf("unknown source %s", key)
	}
	path := filepath.Join(cfg.DataDir, src.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, fmt.Errorf("reading %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Layer{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(fc.Features) == 0 {
		return Layer{}, fmt.Errorf("%s: %w", key, ErrEmptyLayer)
	}

	available := make(map[string]struct{})
	for _, f := range fc.Features {
		for col := range f.Properties {
			available[col] = struct{}{}
		}
	}
	schema, err := src.Schema.Resolve(key, available)
	if err != nil {
		return Layer{}, err
	}

	layer := Layer{Name: key, Features: make([]Feature, 0, len(fc.Features))}
	for i, gf := range fc.Features {
		if gf.Geometry == nil {
			continue
		}
		geom, err := ReprojectToWGS84(gf.Geometry, src.CRS)
		if err != nil {
			return Layer{}, fmt.Errorf("%s: %w", key, err)
		}
		feat := Feature{Geometry: geom}
		if schema.IDColumn != "" {
			feat.ID = propString(gf.Properties[schema.IDColumn])
		}
		if feat.ID == "" {
			feat.ID = fmt.Sprintf("%s_%d", key, i)
		}
		if schema.NameColumn != "" {
			feat.Name = propString(gf.Properties[schema.NameColumn])
		}
		if schema.CodeColumn != "" {
			code := strings.ToUpper(strings.TrimSpace(propString(gf.Properties[schema.CodeColumn])))
			if IsValidCountryCode(code) {
				feat.CountryCode = code
			}
		}
		for _, col := range schema.Extra {
			if v := propString(gf.Properties[col]); v != "" {
				feat.SetExtra(col, v)
			}
		}
		layer.Features = append(layer.Features, feat)
	}

	dropped := len(fc.Features) - len(layer.Features)
	if dropped > 0 {
		log.Warn().Str("source", key).Int("dropped", dropped).
			Msg("Features without geometry dropped at load")
	}
	if layer.Empty() {
		return Layer{}, fmt.Errorf("%s: %w", key, ErrEmptyLayer)
	}
	log.Info().Str("source", key).Int("features", len(layer.Features)).Msg("Loaded dataset")
	return layer, nil
}

// propString renders a GeoJSON property value as a string. Integral floats
// print without a decimal tail so numeric id columns (TERC codes, adcodes)
// round-trip cleanly.
func propString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
