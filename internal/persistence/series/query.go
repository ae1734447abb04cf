package series

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"argstats-api/internal/model"
	"argstats-api/pkg/reconcile"
)

// Query selects stored points. Zero times leave a bound open.
type Query struct {
	Latest  bool      // only the newest point per dimension group
	Start   time.Time // inclusive calendar day
	End     time.Time // inclusive calendar day
	Filters map[string]string
	Limit   int
	Offset  int
	Desc    bool
}

// Page is a slice of points plus the unpaginated total.
type Page struct {
	Points []model.Point
	Total  int
}

// Metadata summarises a series table.
type Metadata struct {
	Count       int       `json:"count"`
	First       time.Time `json:"first"`
	Last        time.Time `json:"last"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type payloadRow struct {
	Payload string `db:"payload"`
}

// Query runs q against the table.
func (t *Table) Query(ctx context.Context, q Query) (Page, error) {
	where, args, err := t.where(q)
	if err != nil {
		return Page{}, err
	}
	d := t.store.dialect

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s o%s", t.spec.Table, where)
	if err := t.store.conn.QueryRowCtx(ctx, &total, d.Rebind(countSQL), args...); err != nil {
		return Page{}, fmt.Errorf("series %s: count: %w", t.spec.Series, err)
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	order := []string{"o." + t.spec.DateColumn + " " + dir}
	for _, dim := range t.spec.Dimensions {
		order = append(order, "o."+dim+" ASC")
	}
	selectSQL := fmt.Sprintf("SELECT %s AS payload FROM %s o%s ORDER BY %s",
		t.pointJSON(), t.spec.Table, where, strings.Join(order, ", "))
	pageArgs := append([]any{}, args...)
	if q.Limit > 0 {
		selectSQL += " LIMIT ? OFFSET ?"
		pageArgs = append(pageArgs, q.Limit, max(q.Offset, 0))
	}

	var rows []payloadRow
	if err := t.store.conn.QueryRowsCtx(ctx, &rows, d.Rebind(selectSQL), pageArgs...); err != nil {
		return Page{}, fmt.Errorf("series %s: query: %w", t.spec.Series, err)
	}
	points := make([]model.Point, 0, len(rows))
	for _, row := range rows {
		p, err := t.decodePoint(row.Payload)
		if err != nil {
			return Page{}, fmt.Errorf("series %s: %w", t.spec.Series, err)
		}
		points = append(points, p)
	}
	return Page{Points: points, Total: total}, nil
}

// Metadata returns row count and date coverage.
func (t *Table) Metadata(ctx context.Context) (Metadata, error) {
	d := t.store.dialect
	col := t.spec.DateColumn
	query := fmt.Sprintf("SELECT %s AS payload FROM %s",
		d.JSONObject("count", "COUNT(*)", "first", "MIN("+col+")", "last", "MAX("+col+")", "updated", "MAX("+model.ColumnUpdatedAt+")"),
		t.spec.Table)
	var row payloadRow
	if err := t.store.conn.QueryRowCtx(ctx, &row, query); err != nil {
		return Metadata{}, fmt.Errorf("series %s: metadata: %w", t.spec.Series, err)
	}
	var raw struct {
		Count   int     `json:"count"`
		First   *string `json:"first"`
		Last    *string `json:"last"`
		Updated *string `json:"updated"`
	}
	if err := json.Unmarshal([]byte(row.Payload), &raw); err != nil {
		return Metadata{}, fmt.Errorf("series %s: decode metadata: %w", t.spec.Series, err)
	}
	meta := Metadata{Count: raw.Count}
	for _, f := range []struct {
		src *string
		dst *time.Time
	}{{raw.First, &meta.First}, {raw.Last, &meta.Last}, {raw.Updated, &meta.LastUpdated}} {
		if f.src == nil {
			continue
		}
		ts, err := parseStoredTime(*f.src)
		if err != nil {
			return Metadata{}, fmt.Errorf("series %s: %w", t.spec.Series, err)
		}
		*f.dst = ts
	}
	return meta, nil
}

func (t *Table) where(q Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	col := "o." + t.spec.DateColumn
	if !q.Start.IsZero() {
		conds = append(conds, col+" >= ?")
		args = append(args, t.boundParam(q.Start))
	}
	if !q.End.IsZero() {
		conds = append(conds, col+" < ?")
		args = append(args, t.boundParam(q.End.AddDate(0, 0, 1)))
	}

	filterCols := make([]string, 0, len(q.Filters))
	for c := range q.Filters {
		filterCols = append(filterCols, c)
	}
	sort.Strings(filterCols)
	for _, c := range filterCols {
		if !t.hasDimension(c) {
			return "", nil, fmt.Errorf("series %s: unknown filter %q", t.spec.Series, c)
		}
		conds = append(conds, "o."+c+" = ?")
		args = append(args, q.Filters[c])
	}

	if q.Latest {
		inner := make([]string, 0, len(t.spec.Dimensions))
		for _, dim := range t.spec.Dimensions {
			inner = append(inner, fmt.Sprintf("i.%s = o.%s", dim, dim))
		}
		sub := fmt.Sprintf("SELECT MAX(i.%s) FROM %s i", t.spec.DateColumn, t.spec.Table)
		if len(inner) > 0 {
			sub += " WHERE " + strings.Join(inner, " AND ")
		}
		conds = append(conds, fmt.Sprintf("%s = (%s)", col, sub))
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (t *Table) hasDimension(c string) bool {
	for _, d := range t.spec.Dimensions {
		if d == c {
			return true
		}
	}
	return false
}

// boundParam formats a day boundary in the same shape the column stores.
func (t *Table) boundParam(day time.Time) string {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if t.spec.DateKind == model.DateKindInstant {
		return reconcile.InstantKey(day)
	}
	return reconcile.DateKey(day)
}

func (t *Table) pointJSON() string {
	pairs := []string{"date", "o." + t.spec.DateColumn}
	for _, dim := range t.spec.Dimensions {
		pairs = append(pairs, dim, "o."+dim)
	}
	for _, v := range t.spec.Values {
		pairs = append(pairs, v, "o."+v)
	}
	if t.spec.Provenance {
		pairs = append(pairs, model.ColumnSourceFile, "o."+model.ColumnSourceFile, model.ColumnDataType, "o."+model.ColumnDataType)
	}
	return t.store.dialect.JSONObject(pairs...)
}

func (t *Table) decodePoint(payload string) (model.Point, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return model.Point{}, fmt.Errorf("decode row: %w", err)
	}

	raw := reconcile.Raw(row)
	date, err := parseStoredTime(raw.String("date"))
	if err != nil {
		return model.Point{}, err
	}
	p := model.Point{
		Date:       date,
		Dimensions: make(map[string]string, len(t.spec.Dimensions)),
		Values:     make(map[string]decimal.NullDecimal, len(t.spec.Values)),
		SourceFile: raw.String(model.ColumnSourceFile),
		DataType:   raw.String(model.ColumnDataType),
	}
	for _, dim := range t.spec.Dimensions {
		p.Dimensions[dim] = raw.String(dim)
	}
	for _, v := range t.spec.Values {
		val, err := raw.Decimal(v)
		if err != nil {
			return model.Point{}, err
		}
		p.Values[v] = val
	}
	return p, nil
}

var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func parseStoredTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range storedTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable stored time %q", s)
}
