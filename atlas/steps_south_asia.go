package atlas

import "strings"

// StepSouthAsia merges India's district-level ADM2 dataset into the hybrid.
// It must run after the China step: the districts along the disputed border
// are trimmed against China's finalized polygon union to remove the known
// overlap before merging.
func StepSouthAsia(st *PipelineState) error {
	if st.India.Empty() {
		return ErrEmptyLayer
	}
	st.IndiaRaw = st.India.Clone()

	in := st.India.Clone()

	// The Andaman/Nicobar and Lakshadweep island chains sit far outside
	// the mainland window; drop them by representative point.
	kept := in.Features[:0]
	for _, f := range in.Features {
		p := RepresentativePoint(f.Geometry)
		if p[0] > 88.0 && p[1] < 15.0 {
			continue
		}
		if p[0] < 75.0 && p[1] < 14.0 {
			continue
		}
		kept = append(kept, f)
	}
	in.Features = kept
	if in.Empty() {
		return ErrEmptyLayer
	}

	attachStateNames(&in, st)

	// Trim against China's already-merged geometry. Best-effort per
	// feature: a failed difference keeps the untrimmed district.
	if chinaGeom := CountryUnion(st.Hybrid, "CN"); chinaGeom != nil {
		failures := 0
		for i := range in.Features {
			trimmed, err := Difference(in.Features[i].Geometry, chinaGeom)
			if err != nil {
				failures++
				continue
			}
			in.Features[i].Geometry = trimmed
		}
		if failures > 0 {
			st.Log.Warn().Int("failures", failures).
				Msg("China clip failed for some India districts; originals kept")
		}
	} else {
		st.Log.Warn().Msg("China geometry unavailable; India overlap clip skipped")
	}

	in.ScrubGeometry()
	if in.Empty() {
		return ErrEmptyLayer
	}
	in = simplifyLayer(in, st.Config.Simplify.India)
	in = normalizeReplacement(in, "IN_ADM2_", "IN")

	merged, err := ReplaceCountry(st.Hybrid, "IN", in)
	if err != nil {
		return err
	}
	st.Log.Info().Int("districts", len(in.Features)).Msg("South Asia replacement merged")
	st.Hybrid = merged
	return nil
}

// attachStateNames joins India's districts to the Admin-1 states so the
// hierarchy deriver can group them later. Best-effort: any failure leaves
// adm1_name empty for the affected districts.
func attachStateNames(in *Layer, st *PipelineState) {
	for i := range in.Features {
		in.Features[i].SetExtra("adm1_name", "")
	}
	if st.Admin1.Empty() {
		st.Log.Warn().Msg("Admin1 layer empty; India state names left empty")
		return
	}

	states := make([]Feature, 0)
	for _, f := range st.Admin1.Features {
		if f.CountryCode == "IN" || strings.Contains(strings.ToLower(f.GetExtra("admin")), "india") {
			states = append(states, f)
		}
	}
	if len(states) == 0 {
		st.Log.Warn().Msg("Admin1 filter matched no Indian states; adm1_name left empty")
		return
	}

	matched := 0
	for i := range in.Features {
		p := RepresentativePoint(in.Features[i].Geometry)
		for _, s := range states {
			if Contains(s.Geometry, p) {
				in.Features[i].SetExtra("adm1_name", s.Name)
				matched++
				break
			}
		}
	}
	if matched == 0 {
		st.Log.Warn().Msg("India ADM1 join returned no matches; adm1_name left empty")
	}
}
