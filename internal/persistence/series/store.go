// Package series persists published economic series and the job audit log.
package series

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	_ "modernc.org/sqlite" // register sqlite driver

	"argstats-api/internal/model"
)

// Conf configures the series store.
type Conf struct {
	Driver          string        `json:",default=postgres,options=postgres|sqlite"`
	DSN             string        `json:",optional"`
	MaxOpen         int           `json:",default=10"`
	MaxIdle         int           `json:",default=5"`
	ConnMaxLifetime time.Duration `json:",default=30m"`
	AutoMigrate     bool          `json:",optional"`
}

// Store is the long-lived handle every job and query shares.
type Store struct {
	conn    sqlx.SqlConn
	dialect Dialect
	tables  map[string]*Table
}

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, c Conf) (*Store, error) {
	driver, err := model.ParseDriver(c.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.DSN) == "" {
		return nil, errors.New("series store: dsn is required")
	}

	conn := sqlx.NewSqlConn(driver.SQLDriverName(), c.DSN, sqlx.WithAcceptable(IsUniqueViolation))
	db, err := conn.RawDB()
	if err != nil {
		return nil, fmt.Errorf("series store: open %s: %w", driver, err)
	}
	if driver == model.DriverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	} else {
		if c.MaxOpen > 0 {
			db.SetMaxOpenConns(c.MaxOpen)
		}
		if c.MaxIdle > 0 {
			db.SetMaxIdleConns(c.MaxIdle)
		}
		if c.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(c.ConnMaxLifetime)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("series store: ping %s: %w", driver, err)
	}

	store := NewStore(conn, driver)
	if c.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewStore wraps an existing connection.
func NewStore(conn sqlx.SqlConn, driver model.Driver) *Store {
	s := &Store{conn: conn, dialect: NewDialect(driver), tables: make(map[string]*Table)}
	for _, st := range model.AllSeries() {
		s.tables[st.Series] = newTable(s, st)
	}
	return s
}

func (s *Store) Dialect() Dialect { return s.dialect }

// Table returns the gateway for a catalogued series.
func (s *Store) Table(series string) (*Table, bool) {
	t, ok := s.tables[series]
	return t, ok
}

// Migrate creates every table and index that does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range model.Schema(s.dialect.Driver()) {
		if _, err := s.conn.ExecCtx(ctx, stmt); err != nil {
			return fmt.Errorf("series store: migrate: %w", err)
		}
	}
	logx.WithContext(ctx).Infof("series store: schema ready driver=%s", s.dialect.Driver())
	return nil
}

// Ping checks the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.conn.RawDB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	db, err := s.conn.RawDB()
	if err != nil {
		return err
	}
	return db.Close()
}
