package jobs

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"argstats-api/internal/model"
	"argstats-api/pkg/reconcile"
)

// DollarTypes maps the exchange-house codes published upstream onto the
// stored dollar_type values.
var DollarTypes = reconcile.CodeTable{
	"oficial":         "OFICIAL",
	"blue":            "BLUE",
	"bolsa":           "MEP",
	"mep":             "MEP",
	"contadoconliqui": "CCL",
	"ccl":             "CCL",
	"mayorista":       "MAYORISTA",
	"cripto":          "CRIPTO",
	"tarjeta":         "TARJETA",
}

var Regions = reconcile.CodeTable{
	"total":             "TOTAL",
	"total nacional":    "TOTAL",
	"nacional":          "TOTAL",
	"gba":               "GBA",
	"gran buenos aires": "GBA",
	"noa":               "NOA",
	"noroeste":          "NOA",
	"nea":               "NEA",
	"noreste":           "NEA",
	"cuyo":              "CUYO",
	"pampeana":          "PAMPEANA",
	"patagonia":         "PATAGONIA",
	"patagonica":        "PATAGONIA",
}

var Genders = reconcile.CodeTable{
	"total":   "total",
	"varon":   "male",
	"varones": "male",
	"hombre":  "male",
	"mujer":   "female",
	"mujeres": "female",
}

var DataTypes = reconcile.CodeTable{
	"nacional":     string(reconcile.DataTypeNational),
	"national":     string(reconcile.DataTypeNational),
	"regional":     string(reconcile.DataTypeRegional),
	"demografico":  string(reconcile.DataTypeDemographic),
	"demographic":  string(reconcile.DataTypeDemographic),
	"demograficos": string(reconcile.DataTypeDemographic),
}

const totalDimension = "total"

// MapperFor returns the row mapper of a series.
func MapperFor(name string) (reconcile.Mapper, bool) {
	switch name {
	case model.SeriesDollars.Series:
		return reconcile.MapperFunc(mapDollar), true
	case model.SeriesEMBI.Series:
		return reconcile.MapperFunc(mapEMBI), true
	case model.SeriesCER.Series, model.SeriesUVA.Series:
		return reconcile.MapperFunc(mapIndex), true
	case model.SeriesLaborMarket.Series:
		return reconcile.MapperFunc(mapLaborMarket), true
	case model.SeriesPoverty.Series:
		return reconcile.MapperFunc(mapPoverty), true
	default:
		return nil, false
	}
}

func mapDollar(raw reconcile.Raw) (reconcile.Record, error) {
	casa := raw.String("casa")
	if casa == "" {
		return reconcile.Record{}, reconcile.Reject(reconcile.ErrMissingField, "casa")
	}
	kind, ok := DollarTypes.Lookup(casa)
	if !ok {
		return reconcile.Record{}, reconcile.Reject(reconcile.ErrUnknownCode, "casa %q", casa)
	}
	field, rawDate := raw.First("fechaActualizacion", "fecha")
	at, ok := parseInstant(rawDate)
	if !ok {
		return reconcile.Record{}, reconcile.Reject(reconcile.ErrInvalidDate, "%s %q", orDefault(field, "fechaActualizacion"), rawDate)
	}
	values, err := decimals(raw, map[string][]string{
		"buy_price":  {"compra"},
		"sell_price": {"venta"},
	})
	if err != nil {
		return reconcile.Record{}, err
	}
	return reconcile.Record{
		Key:        reconcile.NaturalKey(kind, reconcile.InstantKey(at)),
		Date:       at,
		Dimensions: map[string]string{"dollar_type": kind},
		Values:     values,
	}, nil
}

func mapEMBI(raw reconcile.Raw) (reconcile.Record, error) {
	id := raw.String("id")
	if id == "" {
		return reconcile.Record{}, reconcile.Reject(reconcile.ErrMissingField, "id")
	}
	day, err := calendarDate(raw, "fecha", "date")
	if err != nil {
		return reconcile.Record{}, err
	}
	values, err := decimals(raw, map[string][]string{"value": {"valor", "value"}})
	if err != nil {
		return reconcile.Record{}, err
	}
	return reconcile.Record{
		Key:        id,
		Date:       day,
		Dimensions: map[string]string{model.ColumnExternalID: id},
		Values:     values,
	}, nil
}

func mapIndex(raw reconcile.Raw) (reconcile.Record, error) {
	day, err := calendarDate(raw, "fecha", "date")
	if err != nil {
		return reconcile.Record{}, err
	}
	values, err := decimals(raw, map[string][]string{"value": {"indice", "valor", "value"}})
	if err != nil {
		return reconcile.Record{}, err
	}
	return reconcile.Record{
		Key:    reconcile.DateKey(day),
		Date:   day,
		Values: values,
	}, nil
}

func mapLaborMarket(raw reconcile.Raw) (reconcile.Record, error) {
	day, err := calendarDate(raw, "fecha", "periodo")
	if err != nil {
		return reconcile.Record{}, err
	}
	region, err := lookupRegion(raw)
	if err != nil {
		return reconcile.Record{}, err
	}
	gender := totalDimension
	if g := raw.String("genero"); g != "" {
		v, ok := Genders.Lookup(g)
		if !ok {
			return reconcile.Record{}, reconcile.Reject(reconcile.ErrUnknownCode, "genero %q", g)
		}
		gender = v
	}
	ageGroup := freeDimension(raw.String("grupo_edad"))
	segment := freeDimension(raw.String("segmento"))

	values, err := decimals(raw, map[string][]string{
		"activity_rate":     {"tasa_actividad"},
		"employment_rate":   {"tasa_empleo"},
		"unemployment_rate": {"tasa_desocupacion", "tasa_desempleo"},
	})
	if err != nil {
		return reconcile.Record{}, err
	}
	rec := reconcile.Record{
		Key:  reconcile.NaturalKey(reconcile.DateKey(day), region, gender, ageGroup, segment),
		Date: day,
		Dimensions: map[string]string{
			"region":              region,
			"gender":              gender,
			"age_group":           ageGroup,
			"demographic_segment": segment,
		},
		Values: values,
	}
	return withProvenance(raw, rec)
}

func mapPoverty(raw reconcile.Raw) (reconcile.Record, error) {
	day, err := calendarDate(raw, "fecha", "periodo")
	if err != nil {
		return reconcile.Record{}, err
	}
	region, err := lookupRegion(raw)
	if err != nil {
		return reconcile.Record{}, err
	}
	values, err := decimals(raw, map[string][]string{
		"poverty_rate_persons":      {"pobreza_personas"},
		"poverty_rate_households":   {"pobreza_hogares"},
		"indigence_rate_persons":    {"indigencia_personas"},
		"indigence_rate_households": {"indigencia_hogares"},
	})
	if err != nil {
		return reconcile.Record{}, err
	}
	rec := reconcile.Record{
		Key:        reconcile.NaturalKey(reconcile.DateKey(day), region),
		Date:       day,
		Dimensions: map[string]string{"region": region},
		Values:     values,
	}
	return withProvenance(raw, rec)
}

// parseInstant accepts the spreadsheet layout first and falls back to the
// RFC 3339 stamps the JSON API publishes.
func parseInstant(raw string) (time.Time, bool) {
	if at, ok := reconcile.NormalizeSheetDate(raw); ok {
		return at, true
	}
	at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return at.UTC(), true
}

func calendarDate(raw reconcile.Raw, fields ...string) (time.Time, error) {
	field, value := raw.First(fields...)
	if value == "" {
		return time.Time{}, reconcile.Reject(reconcile.ErrInvalidDate, "%s is empty", fields[0])
	}
	day, ok := reconcile.ParseCalendarDate(value)
	if !ok {
		return time.Time{}, reconcile.Reject(reconcile.ErrInvalidDate, "%s %q", field, value)
	}
	return day, nil
}

func lookupRegion(raw reconcile.Raw) (string, error) {
	code := raw.String("region")
	if code == "" {
		return "TOTAL", nil
	}
	v, ok := Regions.Lookup(code)
	if !ok {
		return "", reconcile.Reject(reconcile.ErrUnknownCode, "region %q", code)
	}
	return v, nil
}

func freeDimension(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return totalDimension
	}
	return v
}

// decimals reads each column from the first alias present. A row with no
// populated value carries nothing worth storing and is rejected.
func decimals(raw reconcile.Raw, columns map[string][]string) (map[string]decimal.NullDecimal, error) {
	out := make(map[string]decimal.NullDecimal, len(columns))
	populated := false
	for column, aliases := range columns {
		field, value := raw.First(aliases...)
		v, err := reconcile.ParseDecimal(value)
		if err != nil {
			return nil, reconcile.Reject(reconcile.ErrInvalidValue, "%s %q", field, value)
		}
		out[column] = v
		populated = populated || v.Valid
	}
	if !populated {
		return nil, reconcile.Reject(reconcile.ErrMissingField, "no values")
	}
	return out, nil
}

func withProvenance(raw reconcile.Raw, rec reconcile.Record) (reconcile.Record, error) {
	if file := raw.String("archivo"); file != "" {
		rec.SourceFile = file
	}
	if kind := raw.String("tipo"); kind != "" {
		v, ok := DataTypes.Lookup(kind)
		if !ok {
			return reconcile.Record{}, reconcile.Reject(reconcile.ErrUnknownCode, "tipo %q", kind)
		}
		rec.DataType = reconcile.DataType(v)
	}
	return rec, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
