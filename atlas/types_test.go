package atlas

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

// ---------------------------------------------------------------------------
// Feature
// ---------------------------------------------------------------------------

func TestFeatureExtra(t *testing.T) {
	var f Feature
	if got := f.GetExtra("type"); got != "" {
		t.Errorf("GetExtra on nil map = %q, want empty", got)
	}
	f.SetExtra("type", "wasteland")
	if got := f.GetExtra("type"); got != "wasteland" {
		t.Errorf("GetExtra = %q, want wasteland", got)
	}
}

// ---------------------------------------------------------------------------
// Layer invariants
// ---------------------------------------------------------------------------

func TestLayerValidateIDs(t *testing.T) {
	layer := Layer{Name: "political", Features: []Feature{
		{ID: "DE21"}, {ID: "PL_POW_001"}, {ID: "DE21"},
	}}
	err := layer.ValidateIDs()
	if !errors.Is(err, ErrIDCollision) {
		t.Fatalf("error = %v, want ErrIDCollision", err)
	}

	layer.Features = layer.Features[:2]
	if err := layer.ValidateIDs(); err != nil {
		t.Errorf("ValidateIDs() on unique ids = %v", err)
	}
}

func TestLayerCountryCodes(t *testing.T) {
	layer := Layer{Features: []Feature{
		{ID: "a", CountryCode: "DE"},
		{ID: "b", CountryCode: "DE"},
		{ID: "c", CountryCode: "PL"},
		{ID: "d"},
	}}
	codes := layer.CountryCodes()
	if len(codes) != 2 {
		t.Fatalf("codes = %v, want 2 entries", codes)
	}
	if _, ok := codes[""]; ok {
		t.Error("unset code must not be collected")
	}
}

func TestLayerScrubGeometry(t *testing.T) {
	layer := Layer{Features: []Feature{
		{ID: "ok", Geometry: square(0, 0, 1)},
		{ID: "nil"},
		{ID: "empty", Geometry: orb.Polygon{}},
		{ID: "nan", Geometry: orb.Polygon{orb.Ring{{0, 0}, {1, math.NaN()}, {1, 1}, {0, 0}}}},
	}}

	kept := layer.ScrubGeometry()
	if kept != 1 {
		t.Fatalf("kept = %d, want 1", kept)
	}
	if layer.Features[0].ID != "ok" {
		t.Errorf("surviving feature = %s, want ok", layer.Features[0].ID)
	}
}

func TestLayerBound(t *testing.T) {
	layer := Layer{Features: []Feature{
		{ID: "a", Geometry: square(0, 0, 1)},
		{ID: "b", Geometry: square(10, 5, 1)},
	}}
	b, ok := layer.Bound()
	if !ok {
		t.Fatal("Bound() not found on populated layer")
	}
	want := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{11, 6}}
	if b != want {
		t.Errorf("Bound() = %v, want %v", b, want)
	}

	empty := Layer{Features: []Feature{{ID: "x"}}}
	if _, ok := empty.Bound(); ok {
		t.Error("Bound() found on geometry-less layer")
	}
}

func TestLayerHasValidBound(t *testing.T) {
	point := Layer{Features: []Feature{
		{ID: "pt", Geometry: orb.Point{5, 5}},
	}}
	if point.HasValidBound() {
		t.Error("degenerate point bound reported valid")
	}

	ok := Layer{Features: []Feature{{ID: "a", Geometry: square(0, 0, 1)}}}
	if !ok.HasValidBound() {
		t.Error("normal polygon bound reported invalid")
	}
}

func TestLayerClone(t *testing.T) {
	orig := Layer{Name: "l", Features: []Feature{
		{ID: "a", Geometry: square(0, 0, 1), Extra: map[string]string{"k": "v"}},
	}}

	clone := orig.Clone()
	clone.Features[0].Extra["k"] = "changed"
	clone.Features[0].Geometry.(orb.Polygon)[0][0] = orb.Point{99, 99}

	if orig.Features[0].Extra["k"] != "v" {
		t.Error("clone shares the Extra map")
	}
	if orig.Features[0].Geometry.(orb.Polygon)[0][0] == (orb.Point{99, 99}) {
		t.Error("clone shares the geometry backing array")
	}
}

// ---------------------------------------------------------------------------
// Country codes
// ---------------------------------------------------------------------------

func TestIsValidCountryCode(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"DE", true},
		{"XK", true},
		{"-99", false},
		{"de", false},
		{"DEU", false},
		{"D", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsValidCountryCode(c.in); got != c.want {
			t.Errorf("IsValidCountryCode(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
