package model

import (
	"fmt"
	"strings"
)

// Schema returns the DDL statements that create every table for driver.
// Statements are idempotent.
func Schema(driver Driver) []string {
	var stmts []string
	for _, s := range AllSeries() {
		stmts = append(stmts, s.CreateTable(driver))
		if idx := s.CreateCompositeIndex(); idx != "" {
			stmts = append(stmts, idx)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s (%s)",
			s.Table, s.DateColumn, s.Table, s.DateColumn))
	}
	stmts = append(stmts, cronExecutionsDDL(driver)...)
	return stmts
}

// CreateTable renders the CREATE TABLE statement for s.
func (s SeriesTable) CreateTable(driver Driver) string {
	var (
		idCol, dateType, instantType, numericType, tsDefault string
	)
	switch driver {
	case DriverSQLite:
		idCol = "id INTEGER PRIMARY KEY AUTOINCREMENT"
		dateType, instantType, numericType = "TEXT", "TEXT", "NUMERIC"
		tsDefault = "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
	default:
		idCol = "id BIGSERIAL PRIMARY KEY"
		dateType, instantType, numericType = "DATE", "TIMESTAMPTZ", "NUMERIC(20,6)"
		tsDefault = "TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}

	cols := []string{idCol, ColumnNaturalKey + " TEXT NOT NULL UNIQUE"}
	if s.DateKind == DateKindInstant {
		cols = append(cols, s.DateColumn+" "+instantType+" NOT NULL")
	} else {
		cols = append(cols, s.DateColumn+" "+dateType+" NOT NULL")
	}
	if s.ExternalID {
		cols = append(cols, ColumnExternalID+" TEXT NOT NULL UNIQUE")
	}
	for _, d := range s.Dimensions {
		cols = append(cols, d+" TEXT NOT NULL")
	}
	for _, v := range s.Values {
		cols = append(cols, v+" "+numericType)
	}
	if s.Provenance {
		cols = append(cols,
			ColumnSourceFile+" TEXT NOT NULL DEFAULT 'unknown'",
			ColumnDataType+" TEXT NOT NULL DEFAULT 'national'")
	}
	cols = append(cols, "created_at "+tsDefault, ColumnUpdatedAt+" "+tsDefault)

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", s.Table, strings.Join(cols, ",\n  "))
}

// CreateCompositeIndex renders the unique index over the natural key columns.
// External-id tables are unique on the id alone and get none.
func (s SeriesTable) CreateCompositeIndex() string {
	if s.ExternalID {
		return ""
	}
	cols := append([]string{s.DateColumn}, s.Dimensions...)
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_key_uidx ON %s (%s)",
		s.Table, s.Table, strings.Join(cols, ", "))
}

func cronExecutionsDDL(driver Driver) []string {
	if driver == DriverSQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS cron_executions (
  id TEXT PRIMARY KEY,
  execution_time TEXT NOT NULL,
  status TEXT NOT NULL,
  results TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
			`CREATE INDEX IF NOT EXISTS cron_executions_time_idx ON cron_executions (execution_time)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS cron_executions (
  id TEXT PRIMARY KEY,
  execution_time TIMESTAMPTZ NOT NULL,
  status TEXT NOT NULL,
  results JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS cron_executions_time_idx ON cron_executions (execution_time DESC)`,
	}
}
