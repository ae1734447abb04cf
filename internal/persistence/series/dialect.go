package series

import (
	"strings"

	"github.com/lib/pq"

	"argstats-api/internal/model"
)

// Dialect hides the SQL differences between Postgres and SQLite.
type Dialect struct {
	driver model.Driver
}

// NewDialect returns the dialect for driver.
func NewDialect(driver model.Driver) Dialect {
	return Dialect{driver: driver}
}

func (d Dialect) Driver() model.Driver { return d.driver }

// Rebind rewrites '?' placeholders for the backend.
func (d Dialect) Rebind(query string) string {
	return d.driver.Rebind(query)
}

// KeyIn renders "column is one of keys" with its arguments. Postgres binds the
// whole list as one array parameter.
func (d Dialect) KeyIn(column string, keys []string) (string, []any) {
	if d.driver == model.DriverPostgres {
		return column + " = ANY(?)", []any{pq.Array(keys)}
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + ")", args
}

// DistinctFrom renders a null-safe inequality.
func (d Dialect) DistinctFrom(a, b string) string {
	if d.driver == model.DriverPostgres {
		return a + " IS DISTINCT FROM " + b
	}
	return a + " IS NOT " + b
}

// JSONObject renders a JSON object constructor from alternating key and
// expression pairs. The result is text on both backends.
func (d Dialect) JSONObject(pairs ...string) string {
	parts := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, "'"+pairs[i]+"', "+pairs[i+1])
	}
	if d.driver == model.DriverPostgres {
		return "json_build_object(" + strings.Join(parts, ", ") + ")::text"
	}
	return "json_object(" + strings.Join(parts, ", ") + ")"
}
