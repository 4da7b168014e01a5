package atlas

import "github.com/paulmach/orb"

// StepRussiaUkraine applies the hybrid split policy. Russia west of the
// Ural meridian has granular open ADM2 data and gets a full replacement;
// east of it only the coarser base Admin-1 features are kept, a deliberate
// fidelity/size trade-off. Ukraine is a plain full ADM2 replacement.
func StepRussiaUkraine(st *PipelineState) error {
	if st.Russia.Empty() || st.Ukraine.Empty() {
		return ErrEmptyLayer
	}
	meridian := st.Config.UralLongitude

	// Base features outside RU/UA are retained untouched.
	base := Layer{Name: st.Hybrid.Name}
	for _, f := range st.Hybrid.Features {
		switch f.CountryCode {
		case "RU", "UA":
		default:
			base.Features = append(base.Features, f)
		}
	}

	// Keep the coarse Russian Admin-1 features east of the meridian.
	_, ruEast := SplitByMeridian(FilterByCountry(st.Hybrid, "RU"), meridian)

	// Replace the west with ADM2, clipped away from the dateline first to
	// avoid wrap-around artifacts in hemisphere-spanning source polygons.
	ru := st.Russia.Clone()
	clipBox := orb.Bound{Min: orb.Point{-20.0, 0.0}, Max: orb.Point{179.99, 90.0}}
	for i := range ru.Features {
		clipped, err := ClipToBound(ru.Features[i].Geometry, clipBox)
		if err != nil {
			st.Log.Warn().Str("id", ru.Features[i].ID).
				Msg("Russia ADM2 dateline clip failed; keeping original geometry")
			continue
		}
		ru.Features[i].Geometry = clipped
	}
	ruWest, _ := SplitByMeridian(ru, meridian)
	ruWest = normalizeReplacement(ruWest, "RU_RAY_", "RU")
	ruWest = simplifyLayer(ruWest, st.Config.Simplify.RussiaUA)

	ua := normalizeReplacement(st.Ukraine.Clone(), "UA_RAY_", "UA")
	ua = simplifyLayer(ua, st.Config.Simplify.RussiaUA)

	merged := base
	merged.Features = append(merged.Features, ruEast.Features...)
	merged.Features = append(merged.Features, ruWest.Features...)
	merged.Features = append(merged.Features, ua.Features...)

	st.Log.Info().
		Int("ru_west_adm2", len(ruWest.Features)).
		Int("ru_east_admin1", len(ruEast.Features)).
		Int("ua_adm2", len(ua.Features)).
		Msg("Russia/Ukraine hybrid replacement merged")
	st.Hybrid = merged
	return nil
}
