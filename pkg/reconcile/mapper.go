package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrUnknownCode  = errors.New("unknown code")
	ErrMissingField = errors.New("missing required field")
	ErrInvalidValue = errors.New("invalid value")
)

// RejectReason classifies why a raw row never became a Record.
type RejectReason string

const (
	ReasonInvalidDate  RejectReason = "invalid_date"
	ReasonUnknownCode  RejectReason = "unknown_code"
	ReasonMissingField RejectReason = "missing_field"
	ReasonInvalidValue RejectReason = "invalid_value"
	ReasonOther        RejectReason = "other"
)

// Rejection describes one dropped row.
type Rejection struct {
	Index  int          `json:"index"`
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail"`
}

// Mapper projects a provider row onto a Record. Implementations must be
// stateless; a failed lookup is returned as an error wrapping one of the
// Err* sentinels.
type Mapper interface {
	Map(raw Raw) (Record, error)
}

// MapperFunc adapts a plain function to Mapper.
type MapperFunc func(raw Raw) (Record, error)

func (f MapperFunc) Map(raw Raw) (Record, error) { return f(raw) }

// CodeTable maps provider codes onto internal enum values.
type CodeTable map[string]string

// Lookup matches codes case-insensitively after trimming.
func (t CodeTable) Lookup(code string) (string, bool) {
	v, ok := t[strings.ToLower(strings.TrimSpace(code))]
	return v, ok
}

// Reject builds a mapping error of the given kind.
func Reject(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// ReasonOf classifies a mapping error.
func ReasonOf(err error) RejectReason {
	switch {
	case errors.Is(err, ErrInvalidDate):
		return ReasonInvalidDate
	case errors.Is(err, ErrUnknownCode):
		return ReasonUnknownCode
	case errors.Is(err, ErrMissingField):
		return ReasonMissingField
	case errors.Is(err, ErrInvalidValue):
		return ReasonInvalidValue
	default:
		return ReasonOther
	}
}

// MapAll maps every row, keeping input order. Rows that fail are reported as
// rejections and never reach the returned slice.
func MapAll(raws []Raw, m Mapper) ([]Record, []Rejection) {
	records := make([]Record, 0, len(raws))
	var rejections []Rejection
	for i, raw := range raws {
		rec, err := m.Map(raw)
		if err == nil && rec.Key == "" {
			err = Reject(ErrMissingField, "empty natural key")
		}
		if err == nil && rec.Date.IsZero() {
			err = Reject(ErrInvalidDate, "zero date")
		}
		if err != nil {
			rejections = append(rejections, Rejection{Index: i, Reason: ReasonOf(err), Detail: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rejections
}

// CountByReason tallies rejections for reporting.
func CountByReason(rejections []Rejection) map[RejectReason]int {
	out := make(map[RejectReason]int)
	for _, r := range rejections {
		out[r.Reason]++
	}
	return out
}
