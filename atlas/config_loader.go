package atlas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the pipeline configuration from a YAML file, layered on
// top of DefaultConfig. A missing file is an error; an empty file yields the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ValidateConfig checks the invariants every component relies on. It runs on
// loaded files and on programmatically built configs alike.
func ValidateConfig(c *Config) error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.CullThresholdKm2 < 0 || c.DespeckleKm2 < 0 {
		return fmt.Errorf("cull thresholds must be non-negative")
	}
	if c.Quantization < 0 {
		return fmt.Errorf("quantization must be non-negative")
	}
	if c.RoundPrecision < 0 || c.RoundPrecision > 9 {
		return fmt.Errorf("round_precision must be in [0, 9]")
	}
	if c.MapBounds[2] <= c.MapBounds[0] || c.MapBounds[3] <= c.MapBounds[1] {
		return fmt.Errorf("map_bounds must describe a non-empty window")
	}
	for key, src := range c.Sources {
		if src.Path == "" {
			return fmt.Errorf("source %s: path is required", key)
		}
		switch src.CRS {
		case "", "EPSG:4326", "EPSG:3857", "EPSG:3035":
		default:
			return fmt.Errorf("source %s: unsupported CRS %s", key, src.CRS)
		}
	}
	return nil
}

// SaveConfig writes the configuration back out as YAML. Used by the CLI to
// materialize the defaults for editing.
func SaveConfig(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
