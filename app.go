package main

import (
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tilewerk/atlas/atlas"
)

// backgroundKeys lists the context layers in their topology order. Each is
// optional: a missing or empty dataset degrades the output instead of
// failing the run.
var backgroundKeys = []string{
	atlas.SourceOcean,
	atlas.SourceLand,
	atlas.SourceUrban,
	atlas.SourcePhysical,
	atlas.SourceRivers,
}

// physicalKeepClasses are the Natural Earth feature classes retained from
// the physical-regions dataset.
var physicalKeepClasses = map[string]bool{
	"Range/Mountain": true,
	"Forest":         true,
	"Plain":          true,
	"Delta":          true,
}

// App wires the pipeline together: configuration, loaded layers and the
// synthesis stages.
type App struct {
	Config *atlas.Config
	Log    zerolog.Logger

	// Political inputs.
	nuts3  atlas.Layer
	admin0 atlas.Layer
	admin1 atlas.Layer

	// Replacement datasets keyed by source name; absent keys were skipped.
	replacements map[string]atlas.Layer

	// Backgrounds keyed by source name; absent keys were skipped.
	backgrounds map[string]atlas.Layer

	borderLines atlas.Layer

	// indiaRaw keeps India's unclipped geometry for the disputed-area
	// overlap after the replacement steps.
	indiaRaw atlas.Layer
}

// NewApp loads the configuration, applying CLI overrides on top.
func NewApp(opts Options) (*App, error) {
	var cfg *atlas.Config
	var err error
	if opts.ConfigFile != "" {
		cfg, err = atlas.LoadConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", opts.ConfigFile).Msg("Loaded configuration")
	} else {
		cfg = atlas.DefaultConfig()
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if err := atlas.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &App{
		Config:      cfg,
		Log:         log.Logger,
		backgrounds: make(map[string]atlas.Layer),
	}, nil
}

// Run executes the full pipeline: assemble, replace, cull, resolve, build
// topology and hierarchy, write artifacts.
func (a *App) Run() error {
	final, err := a.buildPolitical()
	if err != nil {
		return err
	}
	special := atlas.BuildSpecialZones(
		atlas.FilterByCountry(final, "CN"),
		a.indiaRaw,
		a.Log,
	)

	topo, err := a.buildTopology(final, special)
	if err != nil {
		return err
	}
	if err := atlas.SaveTopology(topo, a.outPath("europe_topology.json"), a.Log); err != nil {
		return err
	}

	h := atlas.DeriveHierarchy(final, a.admin1, a.Config, a.Log)
	if err := atlas.SaveHierarchy(h, a.outPath("hierarchy.json"), a.Log); err != nil {
		return err
	}

	return a.writeDebugLayers(final)
}

// RunTopology builds and writes only the topology artifact.
func (a *App) RunTopology() error {
	final, err := a.buildPolitical()
	if err != nil {
		return err
	}
	special := atlas.BuildSpecialZones(atlas.FilterByCountry(final, "CN"), a.indiaRaw, a.Log)
	topo, err := a.buildTopology(final, special)
	if err != nil {
		return err
	}
	return atlas.SaveTopology(topo, a.outPath("europe_topology.json"), a.Log)
}

// RunHierarchy builds and writes only the hierarchy artifact.
func (a *App) RunHierarchy() error {
	final, err := a.buildPolitical()
	if err != nil {
		return err
	}
	h := atlas.DeriveHierarchy(final, a.admin1, a.Config, a.Log)
	return atlas.SaveHierarchy(h, a.outPath("hierarchy.json"), a.Log)
}

func (a *App) outPath(name string) string {
	return filepath.Join(a.Config.OutputDir, name)
}

// buildPolitical loads everything and synthesizes the final political
// layer. Background layers are loaded alongside so the topology build can
// reuse them without re-reading.
func (a *App) buildPolitical() (atlas.Layer, error) {
	if err := a.loadSources(); err != nil {
		return atlas.Layer{}, err
	}

	base, err := atlas.AssembleBase(a.nuts3, a.admin1, a.admin0, a.Config, a.Log)
	if err != nil {
		return atlas.Layer{}, err
	}

	st := &atlas.PipelineState{
		Config:  a.Config,
		Log:     a.Log,
		Hybrid:  base,
		France:  a.replacements[atlas.SourceFrance],
		Poland:  a.replacements[atlas.SourcePoland],
		China:   a.replacements[atlas.SourceChina],
		Russia:  a.replacements[atlas.SourceRussia],
		Ukraine: a.replacements[atlas.SourceUkraine],
		India:   a.replacements[atlas.SourceIndia],
		Admin1:  a.admin1,
	}
	if err := atlas.RunSteps(atlas.DefaultSteps(), st); err != nil {
		return atlas.Layer{}, err
	}
	a.indiaRaw = st.IndiaRaw

	final := st.Hybrid
	if a.Config.DespeckleKm2 > 0 {
		final = atlas.Despeckle(final, a.Config.DespeckleKm2, a.Config.Simplify.NUTS3, a.Config.WhitelistPoints(), a.Log)
	}
	final = atlas.CullIslands(final, a.Config.CullThresholdKm2, a.Config.WhitelistPoints(), a.Log)

	atlas.ResolveCountryCodes(&final, &a.admin0, a.Log)

	if err := final.ValidateIDs(); err != nil {
		return atlas.Layer{}, err
	}
	a.Log.Info().Int("features", len(final.Features)).Msg("Political layer synthesized")
	return final, nil
}

// loadSources reads every configured dataset. Political inputs are
// required; replacements and backgrounds degrade with a warning.
func (a *App) loadSources() error {
	var err error
	if a.nuts3, err = a.loadRequired(atlas.SourceNUTS3); err != nil {
		return err
	}
	if a.admin0, err = a.loadRequired(atlas.SourceAdmin0); err != nil {
		return err
	}
	if a.admin1, err = a.loadRequired(atlas.SourceAdmin1); err != nil {
		return err
	}

	a.replacements = make(map[string]atlas.Layer)
	for _, key := range []string{
		atlas.SourceFrance, atlas.SourcePoland, atlas.SourceChina,
		atlas.SourceRussia, atlas.SourceUkraine, atlas.SourceIndia,
	} {
		layer, err := atlas.LoadLayer(a.Config, key, a.Log)
		if err != nil {
			a.Log.Warn().Err(err).Str("source", key).Msg("Replacement dataset unavailable; country keeps base resolution")
			continue
		}
		a.replacements[key] = layer
	}

	politicalBound, ok := a.nuts3.Bound()
	if !ok {
		return fmt.Errorf("%s: %w", atlas.SourceNUTS3, atlas.ErrEmptyLayer)
	}
	for _, key := range backgroundKeys {
		layer, err := atlas.LoadLayer(a.Config, key, a.Log)
		if err != nil {
			a.Log.Warn().Err(err).Str("source", key).Msg("Background dataset unavailable; layer omitted")
			continue
		}
		a.backgrounds[key] = a.prepareBackground(key, layer, politicalBound)
	}

	if layer, err := atlas.LoadLayer(a.Config, atlas.SourceBorderLines, a.Log); err == nil {
		a.borderLines = a.prepareBackground(atlas.SourceBorderLines, layer, politicalBound)
	} else {
		a.Log.Warn().Err(err).Msg("Border lines unavailable")
	}
	return nil
}

func (a *App) loadRequired(key string) (atlas.Layer, error) {
	layer, err := atlas.LoadLayer(a.Config, key, a.Log)
	if err != nil {
		return atlas.Layer{}, fmt.Errorf("required dataset %s: %w", key, err)
	}
	return layer, nil
}

// prepareBackground clips a context layer to the map window and the
// political extent, filters the physical classes, and simplifies at the
// layer's tolerance.
func (a *App) prepareBackground(key string, layer atlas.Layer, politicalBound orb.Bound) atlas.Layer {
	tol := a.Config.Simplify.Background
	switch key {
	case atlas.SourceUrban:
		tol = a.Config.Simplify.Urban
	case atlas.SourcePhysical:
		tol = a.Config.Simplify.Physical
	case atlas.SourceBorderLines:
		tol = a.Config.Simplify.BorderLines
	case atlas.SourceRivers:
		tol = 0
	}

	out := atlas.Layer{Name: layer.Name}
	for _, f := range layer.Features {
		clipped, err := atlas.ClipToBound(f.Geometry, a.Config.MapBound())
		if err != nil || clipped == nil {
			continue
		}
		clipped, err = atlas.ClipToBound(clipped, politicalBound)
		if err != nil || clipped == nil {
			continue
		}
		f.Geometry = clipped
		out.Features = append(out.Features, f)
	}

	if key == atlas.SourcePhysical {
		filtered := atlas.Layer{Name: out.Name}
		for _, f := range out.Features {
			if physicalKeepClasses[f.GetExtra("featurecla")] {
				filtered.Features = append(filtered.Features, f)
			}
		}
		if len(filtered.Features) > 0 {
			out = filtered
		} else {
			a.Log.Warn().Msg("Physical class filter emptied the dataset; keeping all clipped features")
		}
	}

	if tol > 0 {
		for i := range out.Features {
			out.Features[i].Geometry = atlas.SimplifyGeometry(out.Features[i].Geometry, tol, true)
		}
	}
	out.ScrubGeometry()
	a.Log.Info().Str("layer", key).Int("features", len(out.Features)).Msg("Background prepared")
	return out
}

// buildTopology assembles the layer stack in render order: political and
// special zones first, then the context layers.
func (a *App) buildTopology(final, special atlas.Layer) (*atlas.Topology, error) {
	layers := []atlas.TopoLayer{
		{Name: "political", Layer: final, Political: true},
	}
	if !special.Empty() {
		layers = append(layers, atlas.TopoLayer{Name: "special_zones", Layer: special})
	}
	for _, key := range backgroundKeys {
		bg, ok := a.backgrounds[key]
		if !ok {
			continue
		}
		layers = append(layers, atlas.TopoLayer{Name: topoLayerName(key), Layer: bg})
	}
	return atlas.BuildTopology(layers, a.Config, a.Log)
}

// topoLayerName maps a source key to its object name in the topology.
func topoLayerName(key string) string {
	switch key {
	case atlas.SourceOcean:
		return "ocean"
	case atlas.SourceLand:
		return "land"
	case atlas.SourceUrban:
		return "urban"
	case atlas.SourcePhysical:
		return "physical"
	case atlas.SourceRivers:
		return "rivers"
	}
	return key
}

// writeDebugLayers dumps the political layer and the prepared backgrounds
// as GeoJSON for inspection.
func (a *App) writeDebugLayers(final atlas.Layer) error {
	if err := atlas.SaveLayerGeoJSON(final, a.outPath("political.geojson"), a.Log); err != nil {
		return err
	}
	for _, key := range backgroundKeys {
		bg, ok := a.backgrounds[key]
		if !ok {
			continue
		}
		if err := atlas.SaveLayerGeoJSON(bg, a.outPath(topoLayerName(key)+".geojson"), a.Log); err != nil {
			return err
		}
	}
	if !a.borderLines.Empty() {
		if err := atlas.SaveLayerGeoJSON(a.borderLines, a.outPath("border_lines.geojson"), a.Log); err != nil {
			return err
		}
	}
	return nil
}
