package atlas

import (
	"strings"

	"github.com/rs/zerolog"
)

// Country-code resolution cascade. A feature that still has no code after a
// merge gets one through a strict, ordered sequence of rules; the first rule
// producing a valid 2-letter upper-case code wins, and exhausting the
// cascade leaves the code unset, which is a valid terminal state.

// ExtractCountryCode scans a feature id for an underscore-delimited 2-letter
// upper-case alphabetic token and returns the first one. When no token
// matches, the first two characters qualify if they form such a code.
// Returns "" when the id encodes no country.
func ExtractCountryCode(id string) string {
	if strings.Contains(id, "_") {
		for _, part := range strings.Split(id, "_") {
			if IsValidCountryCode(part) {
				return part
			}
		}
	}
	if len(id) >= 2 && IsValidCountryCode(id[:2]) {
		return id[:2]
	}
	return ""
}

// ResolveCountryCodes backfills missing country codes on the layer, first
// from the id pattern, then spatially against the reference admin0 layer.
// The spatial pass is best-effort: a missing or codeless reference layer
// degrades to leaving codes unset, with a diagnostic.
func ResolveCountryCodes(layer *Layer, admin0 *Layer, log zerolog.Logger) {
	missing := 0
	for i := range layer.Features {
		f := &layer.Features[i]
		f.CountryCode = strings.ToUpper(strings.TrimSpace(f.CountryCode))
		if IsValidCountryCode(f.CountryCode) {
			continue
		}
		f.CountryCode = ""
		if code := ExtractCountryCode(f.ID); code != "" {
			f.CountryCode = code
			continue
		}
		missing++
	}
	if missing == 0 {
		return
	}

	if admin0 == nil || admin0.Empty() {
		log.Warn().Int("unresolved", missing).
			Msg("No admin0 reference layer; spatial country-code fallback skipped")
		return
	}
	reference := spatialReference(admin0)
	if len(reference) == 0 {
		log.Warn().Int("unresolved", missing).
			Msg("Admin0 reference layer carries no ISO codes; spatial fallback skipped")
		return
	}

	resolved := 0
	for i := range layer.Features {
		f := &layer.Features[i]
		if f.CountryCode != "" || f.Geometry == nil {
			continue
		}
		point := RepresentativePoint(f.Geometry)
		for _, ref := range reference {
			if Contains(ref.Geometry, point) {
				f.CountryCode = ref.CountryCode
				resolved++
				break
			}
		}
	}
	if resolved < missing {
		log.Warn().Int("unresolved", missing-resolved).
			Msg("Features left without a country code after spatial fallback")
	}
	log.Info().Int("resolved", resolved).Int("missing", missing).
		Msg("Country-code spatial fallback complete")
}

// spatialReference filters the admin0 layer down to features carrying a
// valid ISO code, rejecting the "-99" style sentinels sources use for
// unassigned territories.
func spatialReference(admin0 *Layer) []Feature {
	out := make([]Feature, 0, len(admin0.Features))
	for _, f := range admin0.Features {
		code := strings.ToUpper(strings.TrimSpace(f.CountryCode))
		if !IsValidCountryCode(code) || f.Geometry == nil {
			continue
		}
		f.CountryCode = code
		out = append(out, f)
	}
	return out
}
