package atlas

import "github.com/paulmach/orb"

// Config is the single immutable configuration structure for a pipeline run.
// It is loaded once, validated, and passed explicitly into every component
// entry point; no component reads process-wide state.
type Config struct {
	// DataDir holds the cached source datasets (GeoJSON files).
	DataDir string `yaml:"data_dir"`
	// OutputDir receives the generated artifacts.
	OutputDir string `yaml:"output_dir"`

	// Sources maps a dataset key to its local file and declared schema.
	Sources map[string]Source `yaml:"sources"`

	// Simplification tolerances in WGS84 degrees, per layer role.
	Simplify SimplifyConfig `yaml:"simplify"`

	// UralLongitude is the meridian splitting the Russia hybrid: base
	// Admin-1 resolution is kept east of it, ADM2 replaces west of it.
	UralLongitude float64 `yaml:"ural_longitude"`

	// MapBounds is the overall clip window (minLon, minLat, maxLon, maxLat).
	MapBounds [4]float64 `yaml:"map_bounds"`

	// ExcludedPrefixes are base-layer id prefixes dropped before merging
	// (overseas territories outside the map window).
	ExcludedPrefixes []string `yaml:"excluded_prefixes"`

	// ExtensionCountries are the ISO codes picked from the Admin-1 layer
	// to extend the base layer eastward.
	ExtensionCountries []string `yaml:"extension_countries"`

	// CullThresholdKm2 is the island-cull area threshold for the final
	// political layer. DespeckleKm2 is the threshold for the optional
	// cruder pre-pass; 0 (the default) skips it.
	CullThresholdKm2 float64 `yaml:"cull_threshold_km2"`
	DespeckleKm2     float64 `yaml:"despeckle_km2"`

	// Whitelist lists small real islands that must survive culling
	// regardless of area.
	Whitelist []WhitelistPoint `yaml:"whitelist"`

	// Quantization is the topology grid resolution; 0 disables
	// quantization outright.
	Quantization int `yaml:"quantization"`
	// RoundPrecision is the coordinate decimal precision applied before
	// topology construction.
	RoundPrecision int `yaml:"round_precision"`
}

// Source describes one local dataset: where it lives, what CRS its
// coordinates are in, and which candidate columns map to the canonical
// attributes.
type Source struct {
	Path   string        `yaml:"path"`
	CRS    string        `yaml:"crs"`
	Schema SchemaMapping `yaml:"schema"`
}

// SimplifyConfig groups the per-role simplification tolerances.
type SimplifyConfig struct {
	NUTS3       float64 `yaml:"nuts3"`
	Admin1      float64 `yaml:"admin1"`
	Borders     float64 `yaml:"borders"`
	BorderLines float64 `yaml:"border_lines"`
	Background  float64 `yaml:"background"`
	Urban       float64 `yaml:"urban"`
	Physical    float64 `yaml:"physical"`
	China       float64 `yaml:"china"`
	RussiaUA    float64 `yaml:"russia_ua"`
	India       float64 `yaml:"india"`
}

// WhitelistPoint names a protected island by a toponym and a lon/lat pair.
type WhitelistPoint struct {
	Name string  `yaml:"name"`
	Lon  float64 `yaml:"lon"`
	Lat  float64 `yaml:"lat"`
}

// Point returns the whitelist location as an orb point.
func (w WhitelistPoint) Point() orb.Point {
	return orb.Point{w.Lon, w.Lat}
}

// MapBound returns the configured map window as an orb bound.
func (c *Config) MapBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.MapBounds[0], c.MapBounds[1]},
		Max: orb.Point{c.MapBounds[2], c.MapBounds[3]},
	}
}

// WhitelistPoints returns the protected island locations.
func (c *Config) WhitelistPoints() []WhitelistPoint {
	return c.Whitelist
}

// DefaultConfig returns the canonical pipeline configuration. Values are the
// product constants; a YAML file can override any of them.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "data",
		OutputDir: "data",
		Simplify: SimplifyConfig{
			NUTS3:       0.002,
			Admin1:      0.02,
			Borders:     0.005,
			BorderLines: 0.003,
			Background:  0.03,
			Urban:       0.01,
			Physical:    0.02,
			China:       0.01,
			RussiaUA:    0.025,
			India:       0.015,
		},
		UralLongitude:    60.0,
		MapBounds:        [4]float64{-25.0, 5.0, 180.0, 83.0},
		ExcludedPrefixes: []string{"FRY", "PT2", "PT3", "ES7"},
		ExtensionCountries: []string{
			"RU", "BY", "MD", "KZ", "UZ", "TM", "KG", "TJ",
			"IR", "IQ", "AF", "GE", "AM", "AZ", "MN",
			"JP", "KR", "KP", "TW", "NP", "BT", "MM", "LK",
		},
		CullThresholdKm2: 1000.0,
		DespeckleKm2:     0,
		Whitelist: []WhitelistPoint{
			{Name: "Malta", Lon: 14.3754, Lat: 35.9375},
			{Name: "Isle of Wight", Lon: -1.3047, Lat: 50.6938},
			{Name: "Ibiza", Lon: 1.4206, Lat: 38.9067},
			{Name: "Menorca", Lon: 4.1105, Lat: 39.9496},
			{Name: "Rugen", Lon: 13.3915, Lat: 54.4174},
			{Name: "Bornholm", Lon: 14.9141, Lat: 55.127},
			{Name: "Jersey", Lon: -2.1312, Lat: 49.2144},
			{Name: "Aland Islands", Lon: 19.9156, Lat: 60.1785},
		},
		Quantization:   100000,
		RoundPrecision: 4,
		Sources:        DefaultSources(),
	}
}
