package atlas

// StepFrance swaps the base layer's NUTS-3 slice of France for the
// arrondissement dataset, which follows administrative practice much more
// closely than the statistical units.
func StepFrance(st *PipelineState) error {
	if st.France.Empty() {
		return ErrEmptyLayer
	}
	fr := normalizeReplacement(st.France.Clone(), "FR_ARR_", "FR")
	fr = simplifyLayer(fr, st.Config.Simplify.NUTS3)

	merged, err := ReplaceCountry(st.Hybrid, "FR", fr)
	if err != nil {
		return err
	}
	st.Log.Info().Int("arrondissements", len(fr.Features)).Msg("France replacement merged")
	st.Hybrid = merged
	return nil
}
