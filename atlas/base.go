package atlas

import (
	"strings"

	"github.com/rs/zerolog"
)

// Base political layer assembly: the continental subdivision layer is
// pre-filtered to the map scope, extended eastward with Admin-1 features
// for countries the base dataset does not cover, and patched with an
// admin0-derived fallback for Balkan countries missing from both.

// FilterBase drops base features outside the map scope: overseas territories
// by id prefix, then anything whose representative point falls south of 30°N
// or west of 30°W.
func FilterBase(base Layer, cfg *Config, log zerolog.Logger) (Layer, error) {
	out := Layer{Name: base.Name}
	for _, f := range base.Features {
		if hasAnyPrefix(f.ID, cfg.ExcludedPrefixes) {
			continue
		}
		p := RepresentativePoint(f.Geometry)
		if p[1] < 30 || p[0] < -30 {
			continue
		}
		out.Features = append(out.Features, f)
	}
	if out.Empty() {
		return Layer{}, ErrEmptyLayer
	}
	log.Info().Int("kept", len(out.Features)).Int("from", len(base.Features)).
		Msg("Base layer filtered to map scope")
	return out, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// BuildExtensionAdmin1 carves the extension-country features out of the
// Admin-1 layer. Russia is appended last so its features draw atop their
// neighbors where coarse digitizations overlap.
func BuildExtensionAdmin1(admin1 Layer, cfg *Config, log zerolog.Logger) (Layer, error) {
	if admin1.Empty() {
		return Layer{}, ErrEmptyLayer
	}
	wanted := make(map[string]struct{}, len(cfg.ExtensionCountries))
	for _, c := range cfg.ExtensionCountries {
		wanted[c] = struct{}{}
	}

	var rest, russia []Feature
	for _, f := range admin1.Features {
		code := f.CountryCode
		if code == "" {
			code = extensionCodeFromName(f.GetExtra("admin"))
		}
		if _, ok := wanted[code]; !ok {
			continue
		}
		nf := f
		nf.CountryCode = code
		if nf.ID == "" {
			nf.ID = code + "_" + nf.Name
		}
		nf.Geometry = SimplifyGeometry(nf.Geometry, cfg.Simplify.Admin1, true)
		if code == "RU" {
			russia = append(russia, nf)
		} else {
			rest = append(rest, nf)
		}
	}

	out := Layer{Name: "admin1_extension", Features: append(rest, russia...)}
	if out.Empty() {
		return Layer{}, ErrEmptyLayer
	}
	log.Info().Int("features", len(out.Features)).Msg("Admin1 extension assembled")
	return out, nil
}

// extensionCodeFromName maps admin0 country names to ISO codes for Admin-1
// rows whose ISO column holds a sentinel.
func extensionCodeFromName(admin string) string {
	switch admin {
	case "Russia":
		return "RU"
	case "Belarus":
		return "BY"
	case "Moldova":
		return "MD"
	case "Georgia":
		return "GE"
	case "Armenia":
		return "AM"
	case "Azerbaijan":
		return "AZ"
	case "Mongolia":
		return "MN"
	case "Japan":
		return "JP"
	case "South Korea":
		return "KR"
	case "North Korea":
		return "KP"
	case "Taiwan":
		return "TW"
	case "Nepal":
		return "NP"
	case "Bhutan":
		return "BT"
	case "Myanmar":
		return "MM"
	case "Sri Lanka":
		return "LK"
	default:
		return ""
	}
}

// BuildBalkanFallback fills in Bosnia and Kosovo from the admin0 layer when
// neither the base nor the extension layer covers them. Best-effort: a
// missing or unusable admin0 layer yields an empty fallback.
func BuildBalkanFallback(existing Layer, admin0 Layer, cfg *Config, log zerolog.Logger) Layer {
	out := Layer{Name: "balkan_fallback"}
	if admin0.Empty() {
		log.Warn().Msg("Admin0 layer empty; Balkan fallback skipped")
		return out
	}

	existingCodes := existing.CountryCodes()
	missing := make(map[string]struct{})
	for _, code := range []string{"BA", "XK"} {
		if _, ok := existingCodes[code]; !ok {
			missing[code] = struct{}{}
		}
	}
	if len(missing) == 0 {
		return out
	}

	for _, f := range admin0.Features {
		code := f.CountryCode
		if !IsValidCountryCode(code) {
			// Kosovo in particular carries an ISO sentinel in most
			// admin0 distributions; recover it from the name.
			name := strings.ToLower(f.Name)
			switch {
			case strings.Contains(name, "kosovo"):
				code = "XK"
			case strings.Contains(name, "bosnia"):
				code = "BA"
			default:
				continue
			}
		}
		if _, ok := missing[code]; !ok {
			continue
		}
		nf := f
		nf.CountryCode = code
		if nf.Name == "" {
			nf.Name = code
		}
		nf.ID = code + "_" + nf.Name
		nf.Geometry = SimplifyGeometry(nf.Geometry, cfg.Simplify.Admin1, true)
		out.Features = append(out.Features, nf)
		delete(missing, code)
	}
	if out.Empty() {
		log.Warn().Msg("Balkan fallback found no usable BA/XK features")
	} else {
		log.Info().Int("features", len(out.Features)).Msg("Balkan fallback added")
	}
	return out
}

// AssembleBase builds the initial hybrid political layer: filtered NUTS-3,
// the Admin-1 extension, and the Balkan fallback, simplified per role.
func AssembleBase(nuts3, admin1, admin0 Layer, cfg *Config, log zerolog.Logger) (Layer, error) {
	filtered, err := FilterBase(nuts3, cfg, log)
	if err != nil {
		return Layer{}, err
	}
	filtered = simplifyLayer(filtered, cfg.Simplify.NUTS3)

	extension, err := BuildExtensionAdmin1(admin1, cfg, log)
	if err != nil {
		return Layer{}, err
	}

	hybrid := Layer{Name: "political"}
	hybrid.Features = append(hybrid.Features, filtered.Features...)
	hybrid.Features = append(hybrid.Features, extension.Features...)

	balkan := BuildBalkanFallback(hybrid, admin0, cfg, log)
	hybrid.Features = append(hybrid.Features, balkan.Features...)

	if err := hybrid.ValidateIDs(); err != nil {
		return Layer{}, err
	}
	return hybrid, nil
}
