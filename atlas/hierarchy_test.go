package atlas

import (
	"testing"

	"github.com/paulmach/orb"
)

// ---------------------------------------------------------------------------
// Slugs and static tables
// ---------------------------------------------------------------------------

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Masovian", "Masovian"},
		{"Provence-Alpes-Cote d'Azur", "Provence_Alpes_Cote_d_Azur"},
		{"  Greater Poland  ", "Greater_Poland"},
		{"Kuyavian-Pomeranian", "Kuyavian_Pomeranian"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDeriveFrenchDepartment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"751", "75"},   // Paris arrondissement
		{"2A1", "2A"},   // Corse-du-Sud
		{"9711", "971"}, // Guadeloupe
		{"9761", "976"}, // Mayotte
		{"141", "14"},
		{"6", "6"},
	}
	for _, c := range cases {
		if got := DeriveFrenchDepartment(c.in); got != c.want {
			t.Errorf("DeriveFrenchDepartment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Code-table groupings
// ---------------------------------------------------------------------------

func TestBuildPolandGroups(t *testing.T) {
	children := Layer{Features: []Feature{
		{ID: "PL_POW_1465", Name: "Warszawa"},
		{ID: "PL_POW_1401", Name: "bialobrzeski"},
		{ID: "PL_POW_0201", Name: "boleslawiecki"},
		{ID: "PL_POW_9901"}, // unknown voivodeship prefix
	}}

	h := BuildPolandGroups(children)

	if got := h.GroupCount(); got != 2 {
		t.Fatalf("GroupCount() = %d, want 2", got)
	}
	masovian := h.Groups["PL_Masovian"]
	if len(masovian) != 2 {
		t.Fatalf("PL_Masovian children = %v, want 2 entries", masovian)
	}
	if h.Labels["PL_Masovian"] != "Masovian Voivodeship" {
		t.Errorf("label = %q, want %q", h.Labels["PL_Masovian"], "Masovian Voivodeship")
	}
	if got := h.Groups["PL_Lower_Silesian"]; len(got) != 1 || got[0] != "PL_POW_0201" {
		t.Errorf("PL_Lower_Silesian children = %v, want [PL_POW_0201]", got)
	}
}

func TestBuildFranceGroups(t *testing.T) {
	children := Layer{Features: []Feature{
		{ID: "FR_ARR_751"},  // Paris -> Ile-de-France
		{ID: "FR_ARR_9711"}, // Guadeloupe
		{ID: "FR_ARR_2A1"},  // Corse
	}}

	h := BuildFranceGroups(children)

	if got := h.GroupCount(); got != 3 {
		t.Fatalf("GroupCount() = %d, want 3", got)
	}
	if got := h.Groups["FR_Ile_de_France"]; len(got) != 1 || got[0] != "FR_ARR_751" {
		t.Errorf("FR_Ile_de_France children = %v, want [FR_ARR_751]", got)
	}
	if h.Labels["FR_Guadeloupe"] != "Guadeloupe Region" {
		t.Errorf("label = %q, want %q", h.Labels["FR_Guadeloupe"], "Guadeloupe Region")
	}
	if _, ok := h.Groups["FR_Corse"]; !ok {
		t.Errorf("expected FR_Corse group, got %v", h.SortedGroupIDs())
	}
}

func TestBuildIndiaGroups(t *testing.T) {
	maha := Feature{ID: "IN_ADM2_001"}
	maha.SetExtra("adm1_name", "Maharashtra")
	orphan := Feature{ID: "IN_ADM2_002"} // no state attached

	h := BuildIndiaGroups(Layer{Features: []Feature{maha, orphan}})

	if got := h.GroupCount(); got != 1 {
		t.Fatalf("GroupCount() = %d, want 1", got)
	}
	if got := h.Groups["IN_Maharashtra"]; len(got) != 1 || got[0] != "IN_ADM2_001" {
		t.Errorf("IN_Maharashtra children = %v, want [IN_ADM2_001]", got)
	}
}

// ---------------------------------------------------------------------------
// Spatial groupings
// ---------------------------------------------------------------------------

func TestBuildRegionGroups_ContainsJoin(t *testing.T) {
	regions := Layer{Features: []Feature{
		{ID: "ua_adm1_1", Name: "Kyiv Oblast", CountryCode: "UA", Geometry: square(30, 50, 2)},
		{ID: "ua_adm1_2", Name: "Lviv Oblast", CountryCode: "UA", Geometry: square(24, 50, 2)},
	}}
	children := Layer{Features: []Feature{
		{ID: "UA_RAY_001", Geometry: square(30, 50, 0.2)},
		{ID: "UA_RAY_002", Geometry: square(24, 50, 0.2)},
		{ID: "UA_RAY_003", Geometry: square(30.5, 49.5, 0.2)},
	}}

	h := BuildRegionGroups(children, regions, "UA", []string{"Ukraine"}, nopLog())

	if got := h.Groups["UA_Kyiv_Oblast"]; len(got) != 2 {
		t.Errorf("UA_Kyiv_Oblast children = %v, want 2 entries", got)
	}
	if got := h.Groups["UA_Lviv_Oblast"]; len(got) != 1 || got[0] != "UA_RAY_002" {
		t.Errorf("UA_Lviv_Oblast children = %v, want [UA_RAY_002]", got)
	}
	if h.Labels["UA_Kyiv_Oblast"] != "Kyiv Oblast" {
		t.Errorf("label = %q, want %q", h.Labels["UA_Kyiv_Oblast"], "Kyiv Oblast")
	}
}

func TestBuildRegionGroups_NearestFallback(t *testing.T) {
	// The child sits just outside the region polygon; the quadtree nearest
	// lookup should still attach it.
	regions := Layer{Features: []Feature{
		{ID: "r1", Name: "Coastal", CountryCode: "UA", Geometry: square(30, 50, 1)},
	}}
	children := Layer{Features: []Feature{
		{ID: "UA_RAY_010", Geometry: square(31.5, 50, 0.2)},
	}}

	h := BuildRegionGroups(children, regions, "UA", nil, nopLog())

	if got := h.Groups["UA_Coastal"]; len(got) != 1 || got[0] != "UA_RAY_010" {
		t.Errorf("UA_Coastal children = %v, want [UA_RAY_010]", got)
	}
}

func TestBuildRegionGroups_FallbackRanksByPolygonDistance(t *testing.T) {
	// The child sits off the eastern edge of a wide oblast whose centroid is
	// far away, while a small neighbor's centroid is much closer. The
	// fallback must rank by distance to the polygon, not to the centroid.
	wide := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {10, 2}, {0, 2}, {0, 0}}}
	regions := Layer{Features: []Feature{
		{ID: "r_wide", Name: "Wide Oblast", CountryCode: "UA", Geometry: wide},
		{ID: "r_small", Name: "Small Oblast", CountryCode: "UA", Geometry: square(11.5, 1, 0.2)},
	}}
	children := Layer{Features: []Feature{
		{ID: "UA_RAY_020", Geometry: square(10.6, 1, 0.1)},
	}}

	h := BuildRegionGroups(children, regions, "UA", nil, nopLog())

	if got := h.Groups["UA_Wide_Oblast"]; len(got) != 1 || got[0] != "UA_RAY_020" {
		t.Errorf("UA_Wide_Oblast children = %v, want [UA_RAY_020]", got)
	}
	if got := h.Groups["UA_Small_Oblast"]; len(got) != 0 {
		t.Errorf("UA_Small_Oblast children = %v, want none", got)
	}
}

func TestBuildRegionGroups_NoRegions(t *testing.T) {
	children := Layer{Features: []Feature{
		{ID: "UA_RAY_001", Geometry: square(30, 50, 0.2)},
	}}
	h := BuildRegionGroups(children, Layer{}, "UA", nil, nopLog())
	if got := h.GroupCount(); got != 0 {
		t.Errorf("GroupCount() = %d, want 0", got)
	}
}

func TestBuildChinaGroups_TypeLabel(t *testing.T) {
	province := Feature{ID: "cn_adm1_1", Name: "Hebei", CountryCode: "CN", Geometry: square(114, 37, 2)}
	province.SetExtra("type_en", "Province")
	municipality := Feature{ID: "cn_adm1_2", Name: "Beijing", CountryCode: "CN", Geometry: square(116.4, 40, 0.8)}
	municipality.SetExtra("type_en", "Municipality")

	children := Layer{Features: []Feature{
		{ID: "CN_CITY_001", Geometry: square(114.5, 38.0, 0.3)},
		{ID: "CN_CITY_002", Geometry: square(116.4, 40, 0.3)},
	}}

	h := BuildChinaGroups(children, Layer{Features: []Feature{province, municipality}}, nopLog())

	if h.Labels["CN_Hebei"] != "Hebei Province" {
		t.Errorf("label = %q, want %q", h.Labels["CN_Hebei"], "Hebei Province")
	}
	if h.Labels["CN_Beijing"] != "Beijing Municipality" {
		t.Errorf("label = %q, want %q", h.Labels["CN_Beijing"], "Beijing Municipality")
	}
	if got := h.Groups["CN_Hebei"]; len(got) != 1 || got[0] != "CN_CITY_001" {
		t.Errorf("CN_Hebei children = %v, want [CN_CITY_001]", got)
	}
}

func TestBuildRussiaGroupsHybrid(t *testing.T) {
	admin1 := Layer{Features: []Feature{
		{ID: "ru_adm1_msk", Name: "Moscow Oblast", CountryCode: "RU", Geometry: square(37, 55, 2)},
		{ID: "ru_adm1_irk", Name: "Irkutsk Oblast", CountryCode: "RU", Geometry: square(104, 56, 3)},
	}}
	political := Layer{Features: []Feature{
		{ID: "RU_RAY_001", Geometry: square(37, 55, 0.3)}, // west of the Urals
		{ID: "other", Geometry: square(10, 50, 0.3)},
	}}

	h := BuildRussiaGroupsHybrid(political, admin1, 60.0, nopLog())

	// Western raion grouped spatially under its federal subject.
	if got := h.Groups["RU_Moscow_Oblast"]; len(got) != 1 || got[0] != "RU_RAY_001" {
		t.Errorf("RU_Moscow_Oblast children = %v, want [RU_RAY_001]", got)
	}
	// Eastern subject listed directly as its own child.
	if got := h.Groups["RU_Irkutsk_Oblast"]; len(got) != 1 || got[0] != "ru_adm1_irk" {
		t.Errorf("RU_Irkutsk_Oblast children = %v, want [ru_adm1_irk]", got)
	}
	// Moscow Oblast is western, so it must not self-list.
	for _, child := range h.Groups["RU_Moscow_Oblast"] {
		if child == "ru_adm1_msk" {
			t.Errorf("western subject listed as its own child: %v", h.Groups["RU_Moscow_Oblast"])
		}
	}
}

// ---------------------------------------------------------------------------
// Merge semantics
// ---------------------------------------------------------------------------

func TestHierarchyMerge(t *testing.T) {
	a := NewHierarchy()
	a.add("G1", "c1", "First Label")
	a.add("G1", "c2", "")

	b := NewHierarchy()
	b.add("G1", "c2", "Second Label") // duplicate child, competing label
	b.add("G2", "c3", "Other")

	a.Merge(b)

	if got := a.Groups["G1"]; len(got) != 2 {
		t.Errorf("G1 children = %v, want 2 entries", got)
	}
	if a.Labels["G1"] != "First Label" {
		t.Errorf("G1 label = %q, want %q", a.Labels["G1"], "First Label")
	}
	if got := a.Groups["G2"]; len(got) != 1 || got[0] != "c3" {
		t.Errorf("G2 children = %v, want [c3]", got)
	}
	if got := a.SortedGroupIDs(); len(got) != 2 || got[0] != "G1" || got[1] != "G2" {
		t.Errorf("SortedGroupIDs() = %v, want [G1 G2]", got)
	}
}

func TestFilterAdmin1_NameFallback(t *testing.T) {
	admin1 := Layer{Features: []Feature{
		{ID: "a", CountryCode: "UA", Geometry: square(30, 50, 1)},
		{ID: "b", CountryCode: "PL", Geometry: square(20, 52, 1)},
		{ID: "c", Geometry: square(25, 49, 1)},
	}}
	admin1.Features[2].SetExtra("admin", "Ukraine")

	got := filterAdmin1(admin1, "UA", []string{"Ukraine"})
	if len(got.Features) != 2 {
		t.Fatalf("filtered features = %d, want 2", len(got.Features))
	}
	if got.Features[0].ID != "a" || got.Features[1].ID != "c" {
		t.Errorf("filtered ids = [%s %s], want [a c]", got.Features[0].ID, got.Features[1].ID)
	}
}

func TestDeriveHierarchy_MergesAllCountries(t *testing.T) {
	cfg := DefaultConfig()
	admin1 := Layer{Features: []Feature{
		{ID: "ua1", Name: "Kyiv Oblast", CountryCode: "UA", Geometry: square(30, 50, 2)},
	}}
	political := Layer{Features: []Feature{
		{ID: "UA_RAY_001", Geometry: square(30, 50, 0.2)},
		{ID: "PL_POW_1465", Name: "Warszawa", Geometry: square(21, 52, 0.2)},
		{ID: "FR_ARR_751", Geometry: square(2.3, 48.8, 0.2)},
		{ID: "DE21", Geometry: square(11, 48, 0.2)}, // no grouping rule
	}}

	h := DeriveHierarchy(political, admin1, cfg, nopLog())

	for _, id := range []string{"UA_Kyiv_Oblast", "PL_Masovian", "FR_Ile_de_France"} {
		if _, ok := h.Groups[id]; !ok {
			t.Errorf("missing group %s, got %v", id, h.SortedGroupIDs())
		}
	}
	if got := h.GroupCount(); got != 3 {
		t.Errorf("GroupCount() = %d, want 3", got)
	}
}
