package atlas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing dataset fixture: %v", err)
	}
}

func loaderConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

const polandFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"terc": 1465, "name": "Warszawa"},
      "geometry": {"type": "Polygon", "coordinates": [[[20.8, 52.1], [21.3, 52.1], [21.3, 52.4], [20.8, 52.4], [20.8, 52.1]]]}
    },
    {
      "type": "Feature",
      "properties": {"terc": "0201", "name": "boleslawiecki"},
      "geometry": {"type": "Polygon", "coordinates": [[[15.4, 51.2], [15.8, 51.2], [15.8, 51.4], [15.4, 51.4], [15.4, 51.2]]]}
    },
    {
      "type": "Feature",
      "properties": {"terc": "9999", "name": "no geometry"},
      "geometry": null
    }
  ]
}`

// ---------------------------------------------------------------------------
// Loading and normalization
// ---------------------------------------------------------------------------

func TestLoadLayer(t *testing.T) {
	cfg := loaderConfig(t)
	writeDataset(t, cfg.DataDir, "poland_powiaty.geojson", polandFixture)

	layer, err := LoadLayer(cfg, SourcePoland, nopLog())
	if err != nil {
		t.Fatalf("LoadLayer() error = %v", err)
	}
	if len(layer.Features) != 2 {
		t.Fatalf("features = %d, want 2 (geometry-less row dropped)", len(layer.Features))
	}
	// Numeric id columns round-trip without a decimal tail.
	if layer.Features[0].ID != "1465" {
		t.Errorf("id = %q, want 1465", layer.Features[0].ID)
	}
	if layer.Features[1].ID != "0201" {
		t.Errorf("id = %q, want 0201", layer.Features[1].ID)
	}
	if layer.Features[0].Name != "Warszawa" {
		t.Errorf("name = %q, want Warszawa", layer.Features[0].Name)
	}
}

func TestLoadLayer_SchemaMismatch(t *testing.T) {
	cfg := loaderConfig(t)
	writeDataset(t, cfg.DataDir, "poland_powiaty.geojson", `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "properties": {"wrong_column": "x"},
	     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}
	  ]
	}`)

	_, err := LoadLayer(cfg, SourcePoland, nopLog())
	if !errors.Is(err, ErrSchema) {
		t.Errorf("error = %v, want ErrSchema", err)
	}
}

func TestLoadLayer_MissingFile(t *testing.T) {
	cfg := loaderConfig(t)
	if _, err := LoadLayer(cfg, SourcePoland, nopLog()); err == nil {
		t.Fatal("LoadLayer() expected error for missing dataset file")
	}
}

func TestLoadLayer_UnknownSource(t *testing.T) {
	cfg := loaderConfig(t)
	if _, err := LoadLayer(cfg, "not_a_source", nopLog()); err == nil {
		t.Fatal("LoadLayer() expected error for unknown source key")
	}
}

func TestLoadLayer_EmptyCollection(t *testing.T) {
	cfg := loaderConfig(t)
	writeDataset(t, cfg.DataDir, "poland_powiaty.geojson",
		`{"type": "FeatureCollection", "features": []}`)

	_, err := LoadLayer(cfg, SourcePoland, nopLog())
	if !errors.Is(err, ErrEmptyLayer) {
		t.Errorf("error = %v, want ErrEmptyLayer", err)
	}
}

func TestLoadLayer_InvalidCodeDropped(t *testing.T) {
	cfg := loaderConfig(t)
	writeDataset(t, cfg.DataDir, "ne_10m_admin_0_countries.geojson", `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature",
	     "properties": {"ADM0_A3": "KOS", "ADMIN": "Kosovo", "iso_a2": "-99"},
	     "geometry": {"type": "Polygon", "coordinates": [[[20.5,42.3],[21.3,42.3],[21.3,43.0],[20.5,43.0],[20.5,42.3]]]}}
	  ]
	}`)

	layer, err := LoadLayer(cfg, SourceAdmin0, nopLog())
	if err != nil {
		t.Fatalf("LoadLayer() error = %v", err)
	}
	if got := layer.Features[0].CountryCode; got != "" {
		t.Errorf("code = %q, want empty for ISO sentinel", got)
	}
}

// ---------------------------------------------------------------------------
// Property rendering
// ---------------------------------------------------------------------------

func TestPropString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{" PL ", "PL"},
		{float64(1465), "1465"},
		{float64(1.5), "1.5"},
		{42, "42"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := propString(c.in); got != c.want {
			t.Errorf("propString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
