package repo

import (
	"sort"

	"github.com/shopspring/decimal"

	"argstats-api/internal/model"
)

const variationPlaces = 4

var hundred = decimal.NewFromInt(100)

// Variations returns, for each point, the percentage change of every value
// against the previous observation of the same dimension group. The result is
// index-aligned with points, whatever their order. A change is null for the
// first observation of a group, or when either side is missing or the
// previous value is zero.
func Variations(points []model.Point, spec model.SeriesTable) []map[string]decimal.NullDecimal {
	out := make([]map[string]decimal.NullDecimal, len(points))
	groups := make(map[string][]int)
	for i, p := range points {
		k := p.GroupKey(spec)
		groups[k] = append(groups[k], i)
	}
	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return points[idx[a]].Date.Before(points[idx[b]].Date)
		})
		for n, i := range idx {
			changes := make(map[string]decimal.NullDecimal, len(spec.Values))
			for _, field := range spec.Values {
				if n == 0 {
					changes[field] = decimal.NullDecimal{}
					continue
				}
				changes[field] = percentChange(points[idx[n-1]].Values[field], points[i].Values[field])
			}
			out[i] = changes
		}
	}
	return out
}

func percentChange(prev, cur decimal.NullDecimal) decimal.NullDecimal {
	if !prev.Valid || !cur.Valid || prev.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	change := cur.Decimal.Sub(prev.Decimal).Div(prev.Decimal).Mul(hundred).Round(variationPlaces)
	return decimal.NullDecimal{Decimal: change, Valid: true}
}
