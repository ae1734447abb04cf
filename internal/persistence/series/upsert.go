package series

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"argstats-api/internal/model"
	"argstats-api/pkg/reconcile"
)

// writeChunkSize bounds the rows sent in one INSERT statement.
const writeChunkSize = 500

// WriteResult counts what the store did with a batch.
type WriteResult struct {
	Inserted  int
	Updated   int
	Unchanged int // key already stored and nothing new to write
	Conflicts int // refused by a uniqueness constraint other than the natural key
}

// Written is the number of rows actually inserted or changed.
func (r WriteResult) Written() int { return r.Inserted + r.Updated }

// Skipped is the number of rows the store absorbed without writing.
func (r WriteResult) Skipped() int { return r.Unchanged + r.Conflicts }

func (r *WriteResult) add(o WriteResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Conflicts += o.Conflicts
}

// Table is the gateway for one series table.
type Table struct {
	store *Store
	spec  model.SeriesTable
}

func newTable(store *Store, spec model.SeriesTable) *Table {
	return &Table{store: store, spec: spec}
}

func (t *Table) Spec() model.SeriesTable { return t.spec }

// Upsert writes records keyed by natural key in one transaction.
//
// Stored rows only change where an incoming value is non-null and differs, so
// a null never clobbers a stored value and re-running a batch writes nothing.
// External-id tables are insert-only. Rows refused by another uniqueness
// constraint are counted as conflicts instead of failing the batch.
func (t *Table) Upsert(ctx context.Context, records []reconcile.Record) (WriteResult, error) {
	var total WriteResult
	if len(records) == 0 {
		return total, nil
	}

	err := t.store.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for start := 0; start < len(records); start += writeChunkSize {
			chunk := records[start:min(start+writeChunkSize, len(records))]
			res, err := t.writeChunk(ctx, session, chunk)
			if err != nil {
				return err
			}
			total.add(res)
		}
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("series %s: upsert: %w", t.spec.Series, err)
	}
	return total, nil
}

func (t *Table) writeChunk(ctx context.Context, session sqlx.Session, chunk []reconcile.Record) (WriteResult, error) {
	existing, err := t.existingIn(ctx, session, reconcile.Keys(chunk))
	if err != nil {
		return WriteResult{}, err
	}

	if _, err := session.ExecCtx(ctx, "SAVEPOINT upsert_chunk"); err != nil {
		return WriteResult{}, err
	}
	returned, err := t.insertRows(ctx, session, chunk)
	if err == nil {
		if _, err := session.ExecCtx(ctx, "RELEASE SAVEPOINT upsert_chunk"); err != nil {
			return WriteResult{}, err
		}
		return tally(chunk, existing, returned, nil), nil
	}
	if !IsUniqueViolation(err) {
		return WriteResult{}, err
	}
	if _, err := session.ExecCtx(ctx, "ROLLBACK TO SAVEPOINT upsert_chunk"); err != nil {
		return WriteResult{}, err
	}

	// Retry row by row so one offending row does not sink the chunk.
	returned = make(map[string]struct{}, len(chunk))
	conflicts := make(map[string]struct{})
	for _, rec := range chunk {
		if _, err := session.ExecCtx(ctx, "SAVEPOINT upsert_row"); err != nil {
			return WriteResult{}, err
		}
		keys, err := t.insertRows(ctx, session, []reconcile.Record{rec})
		switch {
		case err == nil:
			for k := range keys {
				returned[k] = struct{}{}
			}
			if _, err := session.ExecCtx(ctx, "RELEASE SAVEPOINT upsert_row"); err != nil {
				return WriteResult{}, err
			}
		case IsUniqueViolation(err):
			conflicts[rec.Key] = struct{}{}
			if _, err := session.ExecCtx(ctx, "ROLLBACK TO SAVEPOINT upsert_row"); err != nil {
				return WriteResult{}, err
			}
		default:
			return WriteResult{}, err
		}
	}
	return tally(chunk, existing, returned, conflicts), nil
}

func tally(chunk []reconcile.Record, existing, returned, conflicts map[string]struct{}) WriteResult {
	var res WriteResult
	for _, rec := range chunk {
		_, wrote := returned[rec.Key]
		_, stored := existing[rec.Key]
		_, refused := conflicts[rec.Key]
		switch {
		case wrote && stored:
			res.Updated++
		case wrote:
			res.Inserted++
		case refused:
			res.Conflicts++
		default:
			res.Unchanged++
		}
	}
	return res
}

func (t *Table) insertRows(ctx context.Context, session sqlx.Session, chunk []reconcile.Record) (map[string]struct{}, error) {
	query, args := t.upsertStatement(chunk)
	var keys []string
	if err := session.QueryRowsCtx(ctx, &keys, t.store.dialect.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (t *Table) columns() []string {
	cols := []string{model.ColumnNaturalKey, t.spec.DateColumn}
	if t.spec.ExternalID {
		cols = append(cols, model.ColumnExternalID)
	}
	cols = append(cols, t.spec.Dimensions...)
	cols = append(cols, t.spec.Values...)
	if t.spec.Provenance {
		cols = append(cols, model.ColumnSourceFile, model.ColumnDataType)
	}
	return cols
}

func (t *Table) upsertStatement(chunk []reconcile.Record) (string, []any) {
	cols := t.columns()
	rowPlaceholders := "(" + strings.Repeat("?, ", len(cols)) + "CURRENT_TIMESTAMP)"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s, %s) VALUES ", t.spec.Table, strings.Join(cols, ", "), model.ColumnUpdatedAt)
	args := make([]any, 0, len(chunk)*len(cols))
	for i, rec := range chunk {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(rowPlaceholders)
		args = append(args, t.rowArgs(rec)...)
	}

	if t.spec.ExternalID {
		b.WriteString(" ON CONFLICT DO NOTHING")
	} else {
		b.WriteString(" " + t.conflictClause())
	}
	b.WriteString(" RETURNING " + model.ColumnNaturalKey)
	return b.String(), args
}

func (t *Table) conflictClause() string {
	d := t.store.dialect
	tbl := t.spec.Table
	sets := make([]string, 0, len(t.spec.Values)+3)
	changed := make([]string, 0, len(t.spec.Values)+2)
	for _, v := range t.spec.Values {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, %s.%s)", v, v, tbl, v))
		changed = append(changed, fmt.Sprintf("(excluded.%s IS NOT NULL AND %s)", v, d.DistinctFrom("excluded."+v, tbl+"."+v)))
	}
	if t.spec.Provenance {
		sets = append(sets,
			fmt.Sprintf("%[1]s = CASE WHEN excluded.%[1]s <> '%[2]s' THEN excluded.%[1]s ELSE %[3]s.%[1]s END",
				model.ColumnSourceFile, reconcile.UnknownSource, tbl),
			fmt.Sprintf("%[1]s = CASE WHEN excluded.%[1]s <> '%[2]s' THEN excluded.%[1]s ELSE %[3]s.%[1]s END",
				model.ColumnDataType, reconcile.DataTypeNational, tbl))
		changed = append(changed,
			fmt.Sprintf("(excluded.%[1]s <> '%[2]s' AND excluded.%[1]s <> %[3]s.%[1]s)", model.ColumnSourceFile, reconcile.UnknownSource, tbl),
			fmt.Sprintf("(excluded.%[1]s <> '%[2]s' AND excluded.%[1]s <> %[3]s.%[1]s)", model.ColumnDataType, reconcile.DataTypeNational, tbl))
	}
	sets = append(sets, model.ColumnUpdatedAt+" = CURRENT_TIMESTAMP")
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s WHERE %s",
		model.ColumnNaturalKey, strings.Join(sets, ", "), strings.Join(changed, " OR "))
}

func (t *Table) rowArgs(rec reconcile.Record) []any {
	args := []any{rec.Key, t.dateParam(rec)}
	if t.spec.ExternalID {
		id := rec.Dimensions[model.ColumnExternalID]
		if id == "" {
			id = rec.Key
		}
		args = append(args, id)
	}
	for _, d := range t.spec.Dimensions {
		args = append(args, rec.Dimensions[d])
	}
	for _, v := range t.spec.Values {
		args = append(args, nullableValue(rec.Values[v]))
	}
	if t.spec.Provenance {
		src := rec.SourceFile
		if src == "" {
			src = reconcile.UnknownSource
		}
		dt := string(rec.DataType)
		if dt == "" {
			dt = string(reconcile.DataTypeNational)
		}
		args = append(args, src, dt)
	}
	return args
}

func (t *Table) dateParam(rec reconcile.Record) string {
	if t.spec.DateKind == model.DateKindInstant {
		return reconcile.InstantKey(rec.Date)
	}
	return reconcile.DateKey(rec.Date)
}

// nullableValue keeps decimals as text so no precision is lost on the wire.
func nullableValue(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}
