package atlas

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/quadtree"
	"github.com/rs/zerolog"
)

// Hierarchy groups second-level districts under their first-level parents for
// the renderer's drill-down. Group ids are stable slugs; labels carry the
// display name.
type Hierarchy struct {
	Groups map[string][]string `json:"groups"`
	Labels map[string]string   `json:"labels"`
}

// NewHierarchy returns an empty hierarchy.
func NewHierarchy() Hierarchy {
	return Hierarchy{
		Groups: make(map[string][]string),
		Labels: make(map[string]string),
	}
}

// Merge copies the other hierarchy's groups and labels in, keeping existing
// labels on collision.
func (h Hierarchy) Merge(other Hierarchy) {
	for id, children := range other.Groups {
		for _, child := range children {
			h.add(id, child, "")
		}
	}
	for id, label := range other.Labels {
		if _, ok := h.Labels[id]; !ok {
			h.Labels[id] = label
		}
	}
}

// GroupCount returns the number of groups.
func (h Hierarchy) GroupCount() int {
	return len(h.Groups)
}

func (h Hierarchy) add(groupID, childID, label string) {
	for _, existing := range h.Groups[groupID] {
		if existing == childID {
			childID = ""
			break
		}
	}
	if childID != "" {
		h.Groups[groupID] = append(h.Groups[groupID], childID)
	}
	if label != "" {
		if _, ok := h.Labels[groupID]; !ok {
			h.Labels[groupID] = label
		}
	}
}

var slugPattern = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Slugify reduces a display name to a stable identifier fragment.
func Slugify(text string) string {
	cleaned := slugPattern.ReplaceAllString(strings.TrimSpace(text), "_")
	return strings.Trim(cleaned, "_")
}

// DeriveHierarchy builds the full hierarchy artifact from the merged
// political layer and the first-level reference layer. China, Ukraine and
// western Russia are grouped by spatial join; eastern Russia uses the
// first-level features directly; Poland and France come from static code
// tables; India from the state names attached during assembly.
func DeriveHierarchy(political Layer, admin1 Layer, cfg *Config, log zerolog.Logger) Hierarchy {
	h := NewHierarchy()
	h.Merge(BuildChinaGroups(filterByIDPrefix(political, "CN_CITY_"), admin1, log))
	h.Merge(BuildRussiaGroupsHybrid(political, admin1, cfg.UralLongitude, log))
	h.Merge(BuildRegionGroups(filterByIDPrefix(political, "UA_RAY_"), admin1, "UA", []string{"Ukraine"}, log))
	h.Merge(BuildPolandGroups(filterByIDPrefix(political, "PL_POW_")))
	h.Merge(BuildFranceGroups(filterByIDPrefix(political, "FR_ARR_")))
	h.Merge(BuildIndiaGroups(filterByIDPrefix(political, "IN_ADM2_")))
	log.Info().Int("groups", h.GroupCount()).Msg("Hierarchy derived")
	return h
}

func filterByIDPrefix(l Layer, prefix string) Layer {
	out := Layer{Name: l.Name}
	for _, f := range l.Features {
		if strings.HasPrefix(f.ID, prefix) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// BuildChinaGroups assigns each city-level district to its province. The
// province type (Province, Municipality, ...) joins the label when present.
func BuildChinaGroups(children Layer, admin1 Layer, log zerolog.Logger) Hierarchy {
	regions := filterAdmin1(admin1, "CN", []string{"China"})
	h := NewHierarchy()
	for ci, ri := range assignRegions(children, regions, log) {
		if ri < 0 {
			continue
		}
		region := regions.Features[ri]
		if region.Name == "" {
			continue
		}
		label := region.Name
		if t := region.GetExtra("type_en"); t != "" {
			label = region.Name + " " + t
		} else if t := region.GetExtra("type"); t != "" {
			label = region.Name + " " + t
		}
		h.add("CN_"+Slugify(region.Name), children.Features[ci].ID, label)
	}
	return h
}

// BuildRegionGroups is the generic spatial grouping for a geoBoundaries
// ADM2 country: district centroids joined within first-level polygons.
func BuildRegionGroups(children Layer, admin1 Layer, iso string, fallbackNames []string, log zerolog.Logger) Hierarchy {
	regions := filterAdmin1(admin1, iso, fallbackNames)
	h := NewHierarchy()
	for ci, ri := range assignRegions(children, regions, log) {
		if ri < 0 {
			continue
		}
		region := regions.Features[ri]
		if region.Name == "" {
			continue
		}
		h.add(iso+"_"+Slugify(region.Name), children.Features[ci].ID, region.Name)
	}
	return h
}

// BuildRussiaGroupsHybrid groups raion features west of the Ural meridian
// under their federal subject spatially, and lists the eastern first-level
// features as their own children.
func BuildRussiaGroupsHybrid(political Layer, admin1 Layer, uralLon float64, log zerolog.Logger) Hierarchy {
	regions := filterAdmin1(admin1, "RU", []string{"Russia"})
	h := NewHierarchy()

	west := Layer{Name: "russia_west"}
	for _, f := range filterByIDPrefix(political, "RU_RAY_").Features {
		if RepresentativePoint(f.Geometry)[0] < uralLon {
			west.Features = append(west.Features, f)
		}
	}
	for ci, ri := range assignRegions(west, regions, log) {
		if ri < 0 {
			continue
		}
		region := regions.Features[ri]
		if region.Name == "" {
			continue
		}
		h.add("RU_"+Slugify(region.Name), west.Features[ci].ID, region.Name)
	}

	for _, f := range regions.Features {
		if f.Name == "" || f.ID == "" {
			continue
		}
		if RepresentativePoint(f.Geometry)[0] < uralLon {
			continue
		}
		h.add("RU_"+Slugify(f.Name), f.ID, f.Name)
	}
	return h
}

// BuildPolandGroups buckets powiaty into voivodeships by the two leading
// TERC digits.
func BuildPolandGroups(children Layer) Hierarchy {
	h := NewHierarchy()
	for _, f := range children.Features {
		terc := strings.TrimPrefix(f.ID, "PL_POW_")
		if len(terc) < 2 {
			continue
		}
		name, ok := polandVoivodeships[terc[:2]]
		if !ok {
			continue
		}
		h.add("PL_"+Slugify(name), f.ID, name+" Voivodeship")
	}
	return h
}

// BuildFranceGroups buckets arrondissements into regions through the
// department prefix of their code.
func BuildFranceGroups(children Layer) Hierarchy {
	h := NewHierarchy()
	for _, f := range children.Features {
		code := strings.TrimPrefix(f.ID, "FR_ARR_")
		if code == "" {
			continue
		}
		region, ok := frenchDeptToRegion[DeriveFrenchDepartment(code)]
		if !ok {
			continue
		}
		h.add("FR_"+Slugify(region), f.ID, region+" Region")
	}
	return h
}

// BuildIndiaGroups uses the state names attached to the districts during
// assembly, avoiding a second spatial join.
func BuildIndiaGroups(children Layer) Hierarchy {
	h := NewHierarchy()
	for _, f := range children.Features {
		state := f.GetExtra("adm1_name")
		if state == "" {
			continue
		}
		h.add("IN_"+Slugify(state), f.ID, state)
	}
	return h
}

func filterAdmin1(admin1 Layer, iso string, fallbackNames []string) Layer {
	out := Layer{Name: admin1.Name}
	for _, f := range admin1.Features {
		if f.CountryCode == iso {
			out.Features = append(out.Features, f)
			continue
		}
		if f.CountryCode == "" {
			admin := f.GetExtra("admin")
			if admin == "" {
				admin = f.GetExtra("adm0_name")
			}
			for _, n := range fallbackNames {
				if admin == n {
					out.Features = append(out.Features, f)
					break
				}
			}
		}
	}
	return out
}

// projectedCentroid computes the centroid in Mercator and reprojects it
// back, matching how the geometry was averaged upstream.
func projectedCentroid(g orb.Geometry) orb.Point {
	m := project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
	c, _ := planar.CentroidArea(m)
	return project.Mercator.ToWGS84(c)
}

type regionPoint struct {
	pt    orb.Point
	index int
}

func (r regionPoint) Point() orb.Point { return r.pt }

// nearestCandidates bounds the quadtree pre-filter for the fallback join.
const nearestCandidates = 8

// assignRegions joins each child's projected centroid to the region that
// contains it. Children whose centroid lands outside every polygon (coastal
// slivers, islands) fall back to the nearest region by polygon distance; a
// quadtree over region centroids pre-filters the candidates so only a
// handful of polygon distances are computed per child. Returns -1 for
// children that cannot be matched at all.
func assignRegions(children Layer, regions Layer, log zerolog.Logger) []int {
	assigned := make([]int, len(children.Features))
	if len(regions.Features) == 0 {
		for i := range assigned {
			assigned[i] = -1
		}
		return assigned
	}

	var qt *quadtree.Quadtree
	unmatched := 0
	for ci, child := range children.Features {
		assigned[ci] = -1
		centroid := projectedCentroid(child.Geometry)
		for ri, region := range regions.Features {
			if Contains(region.Geometry, centroid) {
				assigned[ci] = ri
				break
			}
		}
		if assigned[ci] >= 0 {
			continue
		}

		if qt == nil {
			qt = buildRegionQuadtree(regions)
		}
		best, bestDist := -1, math.Inf(1)
		for _, c := range qt.KNearest(nil, centroid, nearestCandidates) {
			ri := c.(regionPoint).index
			d := DistanceTo(regions.Features[ri].Geometry, centroid)
			if d < bestDist {
				best, bestDist = ri, d
			}
		}
		if best >= 0 {
			assigned[ci] = best
		} else {
			unmatched++
		}
	}
	if unmatched > 0 {
		log.Warn().Int("count", unmatched).Str("layer", children.Name).Msg("Children without a parent region")
	}
	return assigned
}

func buildRegionQuadtree(regions Layer) *quadtree.Quadtree {
	points := make([]regionPoint, 0, len(regions.Features))
	var bound orb.Bound
	for ri, region := range regions.Features {
		rp := regionPoint{pt: projectedCentroid(region.Geometry), index: ri}
		if len(points) == 0 {
			bound = orb.Bound{Min: rp.pt, Max: rp.pt}
		} else {
			bound = bound.Extend(rp.pt)
		}
		points = append(points, rp)
	}
	bound = bound.Pad(1.0)

	qt := quadtree.New(bound)
	for _, rp := range points {
		// Add only fails for points outside the bound, which the pad rules out.
		_ = qt.Add(rp)
	}
	return qt
}

// SortedGroupIDs returns the group ids in lexical order, for deterministic
// reporting.
func (h Hierarchy) SortedGroupIDs() []string {
	ids := make([]string, 0, len(h.Groups))
	for id := range h.Groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
