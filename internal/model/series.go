package model

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateKind tells whether a series is indexed by calendar date or by instant.
type DateKind int

const (
	DateKindCalendar DateKind = iota
	DateKindInstant
)

// Column names shared by every series table.
const (
	ColumnNaturalKey = "natural_key"
	ColumnExternalID = "external_id"
	ColumnSourceFile = "source_file"
	ColumnDataType   = "data_type"
	ColumnUpdatedAt  = "updated_at"
)

// SeriesTable describes how one published series is stored.
type SeriesTable struct {
	Series     string // public name, used in routes and cache keys
	Table      string
	DateColumn string
	DateKind   DateKind
	Dimensions []string // key columns besides the date
	Values     []string // nullable numeric payload columns
	ExternalID bool     // keyed by an opaque upstream id, written insert-only
	Provenance bool     // carries source_file and data_type columns
}

var (
	SeriesCER = SeriesTable{
		Series: "cer", Table: "cer", DateColumn: "date",
		Values: []string{"value"},
	}
	SeriesUVA = SeriesTable{
		Series: "uva", Table: "uva", DateColumn: "date",
		Values: []string{"value"},
	}
	SeriesDollars = SeriesTable{
		Series: "dollars", Table: "dollar_rates", DateColumn: "observed_at", DateKind: DateKindInstant,
		Dimensions: []string{"dollar_type"},
		Values:     []string{"buy_price", "sell_price"},
	}
	SeriesEMBI = SeriesTable{
		Series: "embi", Table: "embi_risk", DateColumn: "date",
		Values:     []string{"value"},
		ExternalID: true,
	}
	SeriesLaborMarket = SeriesTable{
		Series: "labor-market", Table: "labor_market", DateColumn: "date",
		Dimensions: []string{"region", "gender", "age_group", "demographic_segment"},
		Values:     []string{"activity_rate", "employment_rate", "unemployment_rate"},
		Provenance: true,
	}
	SeriesPoverty = SeriesTable{
		Series: "poverty", Table: "poverty", DateColumn: "date",
		Dimensions: []string{"region"},
		Values: []string{
			"poverty_rate_persons", "poverty_rate_households",
			"indigence_rate_persons", "indigence_rate_households",
		},
		Provenance: true,
	}
)

var catalog = map[string]SeriesTable{}

func init() {
	for _, s := range []SeriesTable{SeriesCER, SeriesUVA, SeriesDollars, SeriesEMBI, SeriesLaborMarket, SeriesPoverty} {
		catalog[s.Series] = s
	}
}

// LookupSeries finds a series by its public name.
func LookupSeries(name string) (SeriesTable, bool) {
	s, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// AllSeries lists the catalog sorted by name.
func AllSeries() []SeriesTable {
	out := make([]SeriesTable, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Series < out[j].Series })
	return out
}

// HasValue reports whether column is one of the payload columns.
func (s SeriesTable) HasValue(column string) bool {
	for _, v := range s.Values {
		if v == column {
			return true
		}
	}
	return false
}

// Point is one stored observation as read back for queries.
type Point struct {
	Date       time.Time
	Dimensions map[string]string
	Values     map[string]decimal.NullDecimal
	SourceFile string
	DataType   string
}

// GroupKey identifies the dimension group a point belongs to.
func (p Point) GroupKey(s SeriesTable) string {
	parts := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		parts[i] = p.Dimensions[d]
	}
	return strings.Join(parts, "|")
}
