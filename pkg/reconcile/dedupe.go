package reconcile

import "github.com/shopspring/decimal"

// Merge folds incoming into existing, two records sharing a natural key.
//
// Per payload field the first non-null value wins; later records only fill
// gaps. SourceFile is taken from incoming unless it is empty or unknown.
// DataType is taken from incoming unless it is empty or national.
func Merge(existing, incoming Record) Record {
	out := existing.Clone()
	if out.Values == nil && len(incoming.Values) > 0 {
		out.Values = make(map[string]decimal.NullDecimal, len(incoming.Values))
	}
	for field, v := range incoming.Values {
		cur, ok := out.Values[field]
		if !ok || !cur.Valid {
			out.Values[field] = v
		}
	}
	if incoming.SourceFile != "" && incoming.SourceFile != UnknownSource {
		out.SourceFile = incoming.SourceFile
	}
	if incoming.DataType != "" && incoming.DataType != DataTypeNational {
		out.DataType = incoming.DataType
	}
	return out
}

// DedupeResult is the outcome of an in-batch fold.
type DedupeResult struct {
	Records []Record
	Folded  int // records absorbed into an earlier record with the same key
}

// Dedupe collapses records sharing a natural key into one, left to right.
// Output order is the order in which each key first appeared.
func Dedupe(records []Record) DedupeResult {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	folded := 0
	for _, rec := range records {
		if pos, ok := index[rec.Key]; ok {
			out[pos] = Merge(out[pos], rec)
			folded++
			continue
		}
		index[rec.Key] = len(out)
		out = append(out, rec.Clone())
	}
	return DedupeResult{Records: out, Folded: folded}
}

// Keys returns the natural keys of records in order.
func Keys(records []Record) []string {
	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = rec.Key
	}
	return keys
}
