package atlas

// maxPolandFeatureDeg2 flags whole-country artifact polygons the counties
// dataset occasionally ships alongside the real powiaty.
const maxPolandFeatureDeg2 = 2.0

// StepPoland swaps Poland's base slice for the powiat (county) dataset.
// The source is community-maintained, so geometries are repaired and
// scrubbed before the merge.
func StepPoland(st *PipelineState) error {
	if st.Poland.Empty() {
		return ErrEmptyLayer
	}
	pl := repairLayer(st.Poland.Clone(), st.Log, "poland powiaty")
	pl.ScrubGeometry()
	if pl.Empty() {
		return ErrEmptyLayer
	}
	pl = normalizeReplacement(pl, "PL_POW_", "PL")
	pl = dropOversized(pl, maxPolandFeatureDeg2, st.Log, "poland powiaty")
	pl = simplifyLayer(pl, st.Config.Simplify.NUTS3)

	merged, err := ReplaceCountry(st.Hybrid, "PL", pl)
	if err != nil {
		return err
	}
	st.Log.Info().Int("powiaty", len(pl.Features)).Msg("Poland replacement merged")
	st.Hybrid = merged
	return nil
}
