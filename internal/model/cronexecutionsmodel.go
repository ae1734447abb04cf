package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var (
	ErrNotFound = sqlx.ErrNotFound

	cronExecutionsFieldNames          = []string{"id", "execution_time", "status", "results"}
	cronExecutionsRows                = strings.Join(cronExecutionsFieldNames, ",")
	cronExecutionsRowsWithPlaceHolder = strings.TrimSuffix(strings.Repeat("?,", len(cronExecutionsFieldNames)), ",")
)

// Execution statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var _ CronExecutionsModel = (*defaultCronExecutionsModel)(nil)

type (
	// CronExecutionsModel persists job audit records.
	CronExecutionsModel interface {
		Insert(ctx context.Context, data *CronExecutions) (sql.Result, error)
		FindOne(ctx context.Context, id string) (*CronExecutions, error)
		FindRecent(ctx context.Context, limit int) ([]*CronExecutions, error)
	}

	defaultCronExecutionsModel struct {
		conn   sqlx.SqlConn
		driver Driver
		table  string
	}

	// CronExecutions is one row of cron_executions. Results holds the JSON
	// encoded []TaskResult.
	CronExecutions struct {
		Id            string `db:"id"`
		ExecutionTime string `db:"execution_time"`
		Status        string `db:"status"`
		Results       string `db:"results"`
	}

	// TaskResult is one task entry inside an audit record.
	TaskResult struct {
		TaskId           string `json:"taskId"`
		DataSource       string `json:"dataSource"`
		StartTime        string `json:"startTime"`
		EndTime          string `json:"endTime"`
		RecordsProcessed int    `json:"recordsProcessed"`
		Status           string `json:"status"`
		Details          string `json:"details"`
	}
)

// NewCronExecutionsModel returns a model for the cron_executions table.
func NewCronExecutionsModel(conn sqlx.SqlConn, driver Driver) CronExecutionsModel {
	return &defaultCronExecutionsModel{conn: conn, driver: driver, table: "cron_executions"}
}

func (m *defaultCronExecutionsModel) Insert(ctx context.Context, data *CronExecutions) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (%s)", m.table, cronExecutionsRows, cronExecutionsRowsWithPlaceHolder)
	return m.conn.ExecCtx(ctx, m.driver.Rebind(query), data.Id, data.ExecutionTime, data.Status, data.Results)
}

func (m *defaultCronExecutionsModel) FindOne(ctx context.Context, id string) (*CronExecutions, error) {
	query := fmt.Sprintf("select %s from %s where id = ? limit 1", m.selectRows(), m.table)
	var resp CronExecutions
	err := m.conn.QueryRowCtx(ctx, &resp, m.driver.Rebind(query), id)
	switch {
	case err == nil:
		return &resp, nil
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultCronExecutionsModel) FindRecent(ctx context.Context, limit int) ([]*CronExecutions, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf("select %s from %s order by execution_time desc, created_at desc limit ?", m.selectRows(), m.table)
	var resp []*CronExecutions
	if err := m.conn.QueryRowsCtx(ctx, &resp, m.driver.Rebind(query), limit); err != nil {
		return nil, err
	}
	return resp, nil
}

// selectRows casts the backend-typed columns to text so both drivers scan
// into strings.
func (m *defaultCronExecutionsModel) selectRows() string {
	if m.driver == DriverPostgres {
		return `id, to_char(execution_time at time zone 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"') as execution_time, status, results::text as results`
	}
	return cronExecutionsRows
}
