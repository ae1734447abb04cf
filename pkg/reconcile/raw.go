package reconcile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Raw is one provider row with provider-specific field names.
type Raw map[string]any

// Has reports whether field is present with a non-blank value.
func (r Raw) Has(field string) bool {
	return r.String(field) != ""
}

func (r Raw) lookup(field string) (any, bool) {
	if v, ok := r[field]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(strings.TrimSpace(k), field) {
			return v, true
		}
	}
	return nil, false
}

// String returns the field rendered as a trimmed string, or "" when absent.
// Field names fall back to a case-insensitive match.
func (r Raw) String(field string) string {
	v, ok := r.lookup(field)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// First returns the first populated field among candidates.
func (r Raw) First(fields ...string) (string, string) {
	for _, f := range fields {
		if s := r.String(f); s != "" {
			return f, s
		}
	}
	return "", ""
}

// Decimal parses field as a nullable number. Blank values and the usual
// placeholders ("-", "N/A", "s/d") are null, not errors.
func (r Raw) Decimal(field string) (decimal.NullDecimal, error) {
	return ParseDecimal(r.String(field))
}

// ParseDecimal accepts plain numbers, the es-AR format ("1.234,56", "12,5%")
// and en-US grouping ("1,234.56").
func ParseDecimal(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "n/a", "na", "s/d", "null", "nan":
		return Null(), nil
	}
	d, err := decimal.NewFromString(normalizeSeparators(s))
	if err != nil {
		return Null(), fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	return Some(d), nil
}

// normalizeSeparators rewrites s with "." as the only decimal separator. When
// both separators appear the rightmost one is the decimal point. A separator
// repeated on its own is thousands grouping.
func normalizeSeparators(s string) string {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
