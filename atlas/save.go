package atlas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
)

// Artifact writers. Topology and hierarchy are the renderer-facing outputs;
// the GeoJSON dumps exist for inspection and debugging. All writes replace
// the target file atomically via a rename.

var jsonMinifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("application/json", mjson.Minify)
	return m
}()

// SaveTopology writes the topology artifact as minified JSON.
func SaveTopology(topo *Topology, path string, log zerolog.Logger) error {
	raw, err := json.Marshal(topo)
	if err != nil {
		return fmt.Errorf("marshal topology: %w", err)
	}
	compact, err := jsonMinifier.Bytes("application/json", raw)
	if err != nil {
		return fmt.Errorf("minify topology: %w", err)
	}
	if err := writeFileAtomic(path, compact); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(compact)).Msg("Topology written")
	return nil
}

// SaveHierarchy writes the hierarchy artifact as indented JSON; it is small
// and hand-inspected often enough to stay readable.
func SaveHierarchy(h Hierarchy, path string, log zerolog.Logger) error {
	raw, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hierarchy: %w", err)
	}
	if err := writeFileAtomic(path, raw); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("groups", h.GroupCount()).Msg("Hierarchy written")
	return nil
}

// SaveLayerGeoJSON dumps a layer as a GeoJSON FeatureCollection. Features
// without a country code carry an explicit null so the attribute is always
// present.
func SaveLayerGeoJSON(layer Layer, path string, log zerolog.Logger) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range layer.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.Properties["id"] = f.ID
		gf.Properties["name"] = f.Name
		if f.CountryCode != "" {
			gf.Properties["cntr_code"] = f.CountryCode
		} else {
			gf.Properties["cntr_code"] = nil
		}
		for k, v := range f.Extra {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	raw, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", layer.Name, err)
	}
	compact, err := jsonMinifier.Bytes("application/json", raw)
	if err != nil {
		return fmt.Errorf("minify %s: %w", layer.Name, err)
	}
	if err := writeFileAtomic(path, compact); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("features", len(layer.Features)).Msg("Layer written")
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".atlas-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
