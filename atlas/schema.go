package atlas

import (
	"fmt"
	"strings"
)

// SchemaMapping declares, per source dataset, the candidate columns for each
// canonical attribute. Heterogeneous sources name the same attribute
// differently (shapeID vs terc vs code); the mapping is resolved once at
// load time and the load fails fast when no candidate column exists, instead
// of proceeding with a missing field.
type SchemaMapping struct {
	IDColumns   []string `yaml:"id_columns"`
	NameColumns []string `yaml:"name_columns"`
	CodeColumns []string `yaml:"code_columns"`

	// ExtraColumns lists additional attributes carried into Feature.Extra
	// verbatim when present (featurecla, type_en, ...).
	ExtraColumns []string `yaml:"extra_columns"`

	// CodeOptional marks sources that legitimately have no country column;
	// the resolver cascade fills the code later.
	CodeOptional bool `yaml:"code_optional"`
}

// ResolvedSchema is the outcome of matching a SchemaMapping against the
// columns actually present in a dataset.
type ResolvedSchema struct {
	IDColumn   string
	NameColumn string
	CodeColumn string
	Extra      []string
}

// Resolve matches the mapping against the available columns, taking the
// first present candidate per attribute. A missing id or name column is a
// schema error naming the dataset and the candidates tried; a missing code
// column is only an error when the source declares one as required.
func (m SchemaMapping) Resolve(dataset string, available map[string]struct{}) (ResolvedSchema, error) {
	var rs ResolvedSchema
	rs.IDColumn = firstPresent(m.IDColumns, available)
	if rs.IDColumn == "" && len(m.IDColumns) > 0 {
		return rs, fmt.Errorf("%w: dataset %s has no id column (tried %s)",
			ErrSchema, dataset, strings.Join(m.IDColumns, ", "))
	}
	rs.NameColumn = firstPresent(m.NameColumns, available)
	if rs.NameColumn == "" && len(m.NameColumns) > 0 {
		return rs, fmt.Errorf("%w: dataset %s has no name column (tried %s)",
			ErrSchema, dataset, strings.Join(m.NameColumns, ", "))
	}
	rs.CodeColumn = firstPresent(m.CodeColumns, available)
	if rs.CodeColumn == "" && len(m.CodeColumns) > 0 && !m.CodeOptional {
		return rs, fmt.Errorf("%w: dataset %s has no country-code column (tried %s)",
			ErrSchema, dataset, strings.Join(m.CodeColumns, ", "))
	}
	for _, col := range m.ExtraColumns {
		if _, ok := available[col]; ok {
			rs.Extra = append(rs.Extra, col)
		}
	}
	return rs, nil
}

func firstPresent(candidates []string, available map[string]struct{}) string {
	for _, c := range candidates {
		if _, ok := available[c]; ok {
			return c
		}
	}
	return ""
}

// Dataset keys used across the pipeline. Steps look their inputs up by key
// so tests can swap fixtures in without touching the step code.
const (
	SourceNUTS3       = "nuts3"
	SourceAdmin0      = "admin0"
	SourceAdmin1      = "admin1"
	SourceBorderLines = "border_lines"
	SourceOcean       = "ocean"
	SourceLand        = "land"
	SourceUrban       = "urban"
	SourcePhysical    = "physical"
	SourceRivers      = "rivers"
	SourceFrance      = "france_arrondissements"
	SourcePoland      = "poland_powiaty"
	SourceChina       = "china_adm2"
	SourceRussia      = "russia_adm2"
	SourceUkraine     = "ukraine_adm2"
	SourceIndia       = "india_adm2"
)

// DefaultSources returns the canonical source table: one entry per dataset
// with its cache filename, delivered CRS and schema mapping.
func DefaultSources() map[string]Source {
	geoBoundaries := SchemaMapping{
		IDColumns:    []string{"shapeID", "shapeISO", "shape_id", "shape_iso"},
		NameColumns:  []string{"shapeName", "shape_name"},
		CodeOptional: true,
	}
	naturalEarthISO := []string{"iso_a2", "ISO_A2", "adm0_a2", "ADM0_A2", "iso_3166_1_", "ISO_3166_1_"}

	return map[string]Source{
		SourceNUTS3: {
			Path: "nuts3.geojson",
			CRS:  "EPSG:3035",
			Schema: SchemaMapping{
				IDColumns:   []string{"NUTS_ID"},
				NameColumns: []string{"NUTS_NAME", "NAME_LATN"},
				CodeColumns: []string{"CNTR_CODE"},
			},
		},
		SourceAdmin0: {
			Path: "ne_10m_admin_0_countries.geojson",
			CRS:  "EPSG:4326",
			Schema: SchemaMapping{
				IDColumns:   []string{"ADM0_A3", "adm0_a3", "SOV_A3"},
				NameColumns: []string{"ADMIN", "admin", "NAME", "name", "NAME_EN", "name_en"},
				CodeColumns: naturalEarthISO,
			},
		},
		SourceAdmin1: {
			Path: "ne_10m_admin_1_states_provinces.geojson",
			CRS:  "EPSG:4326",
			Schema: SchemaMapping{
				IDColumns:    []string{"adm1_code", "gn_id", "id"},
				NameColumns:  []string{"name", "name_en", "name_long", "name_local", "gn_name", "namealt"},
				CodeColumns:  naturalEarthISO,
				ExtraColumns: []string{"admin", "adm0_name", "type_en", "type"},
				CodeOptional: true,
			},
		},
		SourceBorderLines: {
			Path:   "ne_10m_admin_0_boundary_lines_land.geojson",
			CRS:    "EPSG:4326",
			Schema: SchemaMapping{NameColumns: []string{"name", "NAME"}, CodeOptional: true},
		},
		SourceOcean: {
			Path:   "ne_10m_ocean.geojson",
			CRS:    "EPSG:4326",
			Schema: SchemaMapping{CodeOptional: true},
		},
		SourceLand: {
			Path:   "ne_10m_land.geojson",
			CRS:    "EPSG:4326",
			Schema: SchemaMapping{CodeOptional: true},
		},
		SourceUrban: {
			Path:   "ne_10m_urban_areas.geojson",
			CRS:    "EPSG:4326",
			Schema: SchemaMapping{CodeOptional: true},
		},
		SourcePhysical: {
			Path: "ne_10m_geography_regions_polys.geojson",
			CRS:  "EPSG:4326",
			Schema: SchemaMapping{
				NameColumns:  []string{"name", "name_en"},
				ExtraColumns: []string{"featurecla"},
				CodeOptional: true,
			},
		},
		SourceRivers: {
			Path:   "ne_10m_rivers_lake_centerlines.geojson",
			CRS:    "EPSG:4326",
			Schema: SchemaMapping{NameColumns: []string{"name", "name_en"}, CodeOptional: true},
		},
		SourceFrance: {
			Path: "france_arrondissements.geojson",
			CRS:  "EPSG:4326",
			Schema: SchemaMapping{
				IDColumns:    []string{"code"},
				NameColumns:  []string{"nom"},
				CodeOptional: true,
			},
		},
		SourcePoland: {
			Path: "poland_powiaty.geojson",
			CRS:  "EPSG:4326",
			Schema: SchemaMapping{
				IDColumns:    []string{"terc"},
				NameColumns:  []string{"name"},
				CodeOptional: true,
			},
		},
		SourceChina: {
			Path: "china_adm2.geojson",
			CRS:  "EPSG:4326",
			Schema: SchemaMapping{
				IDColumns: []string{
					"shapeID", "shapeISO", "shape_id", "shape_iso",
					"ID", "id", "City_Adcode", "city_adcode", "ADCODE", "adcode",
				},
				NameColumns: []string{
					"shapeName", "shape_name", "NAME", "name", "City_Name", "city_name",
				},
				CodeOptional: true,
			},
		},
		SourceRussia:  {Path: "geoBoundaries-RUS-ADM2.geojson", CRS: "EPSG:4326", Schema: geoBoundaries},
		SourceUkraine: {Path: "geoBoundaries-UKR-ADM2.geojson", CRS: "EPSG:4326", Schema: geoBoundaries},
		SourceIndia:   {Path: "geoBoundaries-IND-ADM2.geojson", CRS: "EPSG:4326", Schema: geoBoundaries},
	}
}
