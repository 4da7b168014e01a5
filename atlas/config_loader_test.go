package atlas

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// Loading and layering
// ---------------------------------------------------------------------------

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
data_dir: /srv/atlas/sources
cull_threshold_km2: 250
simplify:
  nuts3: 0.01
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "/srv/atlas/sources" {
		t.Errorf("DataDir = %q, want /srv/atlas/sources", cfg.DataDir)
	}
	if cfg.CullThresholdKm2 != 250 {
		t.Errorf("CullThresholdKm2 = %v, want 250", cfg.CullThresholdKm2)
	}
	if cfg.Simplify.NUTS3 != 0.01 {
		t.Errorf("Simplify.NUTS3 = %v, want 0.01", cfg.Simplify.NUTS3)
	}
	// Untouched fields keep their defaults.
	if cfg.OutputDir != "data" {
		t.Errorf("OutputDir = %q, want default data", cfg.OutputDir)
	}
	if cfg.Quantization != 100000 {
		t.Errorf("Quantization = %v, want default 100000", cfg.Quantization)
	}
	if len(cfg.Sources) == 0 {
		t.Error("Sources should keep the default table")
	}
}

func TestLoadConfig_EmptyFileYieldsDefaults(t *testing.T) {
	path := writeConfigFile(t, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.CullThresholdKm2 != DefaultConfig().CullThresholdKm2 {
		t.Errorf("CullThresholdKm2 = %v, want default", cfg.CullThresholdKm2)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadConfig() expected error for missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "simplify: [not a map")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() expected error for malformed YAML")
	}
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	path := writeConfigFile(t, "quantization: -5\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() expected validation error for negative quantization")
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"negative cull", func(c *Config) { c.CullThresholdKm2 = -1 }, true},
		{"negative despeckle", func(c *Config) { c.DespeckleKm2 = -1 }, true},
		{"precision too high", func(c *Config) { c.RoundPrecision = 12 }, true},
		{"inverted bounds", func(c *Config) { c.MapBounds = [4]float64{10, 10, 5, 20} }, true},
		{"sourceless path", func(c *Config) {
			c.Sources["nuts3"] = Source{CRS: "EPSG:4326"}
		}, true},
		{"unsupported crs", func(c *Config) {
			c.Sources["nuts3"] = Source{Path: "x.geojson", CRS: "EPSG:2154"}
		}, true},
		{"zero quantization ok", func(c *Config) { c.Quantization = 0 }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(cfg)
			err := ValidateConfig(cfg)
			if (err != nil) != c.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.UralLongitude = 61.5

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.UralLongitude != 61.5 {
		t.Errorf("UralLongitude = %v, want 61.5", loaded.UralLongitude)
	}
}
