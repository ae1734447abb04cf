package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DataType is a coarse specificity category used as a merge tiebreak.
type DataType string

const (
	DataTypeNational    DataType = "national"
	DataTypeRegional    DataType = "regional"
	DataTypeDemographic DataType = "demographic"
)

// UnknownSource marks a record whose upstream extract could not be identified.
const UnknownSource = "unknown"

const keySeparator = "|"

// Record is a single observation of an economic indicator, ready to be
// reconciled and written.
type Record struct {
	Key        string                         // natural key, unique per destination table
	Date       time.Time                      // normalized date or instant (UTC)
	Dimensions map[string]string              // key dimensions besides the date, by column
	Values     map[string]decimal.NullDecimal // nullable indicator fields, by column
	SourceFile string                         // provenance tag, optional
	DataType   DataType                       // specificity tag, optional
}

// Value returns the named payload field and whether it is populated.
func (r Record) Value(field string) (decimal.Decimal, bool) {
	v, ok := r.Values[field]
	if !ok || !v.Valid {
		return decimal.Decimal{}, false
	}
	return v.Decimal, true
}

// Clone returns a deep copy so folds never alias caller maps.
func (r Record) Clone() Record {
	out := r
	if r.Dimensions != nil {
		out.Dimensions = make(map[string]string, len(r.Dimensions))
		for k, v := range r.Dimensions {
			out.Dimensions[k] = v
		}
	}
	if r.Values != nil {
		out.Values = make(map[string]decimal.NullDecimal, len(r.Values))
		for k, v := range r.Values {
			out.Values[k] = v
		}
	}
	return out
}

// NaturalKey joins key parts into the canonical composite key.
func NaturalKey(parts ...string) string {
	clean := make([]string, len(parts))
	for i, part := range parts {
		clean[i] = strings.TrimSpace(part)
	}
	return strings.Join(clean, keySeparator)
}

// DateKey formats a calendar date for use inside a natural key.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// InstantKey formats an instant for use inside a natural key.
func InstantKey(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Null returns an unpopulated payload value.
func Null() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// Some wraps a populated payload value.
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
