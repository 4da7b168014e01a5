package atlas

import "strings"

// maxChinaFeatureDeg2 flags oversized artifact polygons in the ADM2 source.
const maxChinaFeatureDeg2 = 50.0

// StepChina swaps China's base slice for the prefecture-level ADM2 dataset.
// The source is high resolution, so it is clipped to the map window and
// simplified aggressively before merging.
func StepChina(st *PipelineState) error {
	if st.China.Empty() {
		return ErrEmptyLayer
	}
	cn := repairLayer(st.China.Clone(), st.Log, "china adm2")
	cn.ScrubGeometry()
	if cn.Empty() {
		return ErrEmptyLayer
	}

	// Best-effort clip to the map window; a feature that cannot be
	// clipped keeps its unclipped geometry.
	bound := st.Config.MapBound()
	for i := range cn.Features {
		clipped, err := ClipToBound(cn.Features[i].Geometry, bound)
		if err != nil {
			continue
		}
		cn.Features[i].Geometry = clipped
	}

	cn = dropOversized(cn, maxChinaFeatureDeg2, st.Log, "china adm2")
	cn = repairLayer(cn, st.Log, "china adm2")
	cn = simplifyLayer(cn, st.Config.Simplify.China)
	cn = normalizeReplacement(cn, "CN_CITY_", "CN")
	for i := range cn.Features {
		// Source names carry a romanized "shi" (city) suffix.
		cn.Features[i].Name = strings.TrimSpace(strings.ReplaceAll(cn.Features[i].Name, "shi", ""))
	}

	merged, err := ReplaceCountry(st.Hybrid, "CN", cn)
	if err != nil {
		return err
	}
	st.Log.Info().Int("prefectures", len(cn.Features)).Msg("China replacement merged")
	st.Hybrid = merged
	return nil
}
