package series

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"argstats-api/internal/model"
)

// ExistingKeys returns the subset of keys already stored.
func (t *Table) ExistingKeys(ctx context.Context, keys []string) ([]string, error) {
	found, err := t.existingIn(ctx, t.store.conn, keys)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(found))
	for _, k := range keys {
		if _, ok := found[k]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// AllKeys returns every stored natural key.
func (t *Table) AllKeys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", model.ColumnNaturalKey, t.spec.Table)
	var keys []string
	if err := t.store.conn.QueryRowsCtx(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("series %s: all keys: %w", t.spec.Series, err)
	}
	return keys, nil
}

func (t *Table) existingIn(ctx context.Context, session sqlx.Session, keys []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(keys))
	if len(keys) == 0 {
		return found, nil
	}
	cond, args := t.store.dialect.KeyIn(model.ColumnNaturalKey, keys)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", model.ColumnNaturalKey, t.spec.Table, cond)
	var rows []string
	if err := session.QueryRowsCtx(ctx, &rows, t.store.dialect.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("series %s: existing keys: %w", t.spec.Series, err)
	}
	for _, k := range rows {
		found[k] = struct{}{}
	}
	return found, nil
}
