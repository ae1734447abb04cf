package series

import (
	"context"
	"encoding/json"
	"fmt"

	"argstats-api/internal/model"
)

// Execution is one job outcome as written to the audit log.
type Execution struct {
	Id            string
	ExecutionTime string
	Status        string
	Results       []model.TaskResult
}

// AuditLog records job executions in cron_executions.
type AuditLog struct {
	model model.CronExecutionsModel
}

// NewAuditLog wires the audit log onto the store connection.
func NewAuditLog(store *Store) *AuditLog {
	return &AuditLog{model: model.NewCronExecutionsModel(store.conn, store.dialect.Driver())}
}

// Record inserts exec.
func (a *AuditLog) Record(ctx context.Context, exec Execution) error {
	results, err := json.Marshal(exec.Results)
	if err != nil {
		return fmt.Errorf("audit: encode results: %w", err)
	}
	_, err = a.model.Insert(ctx, &model.CronExecutions{
		Id:            exec.Id,
		ExecutionTime: exec.ExecutionTime,
		Status:        exec.Status,
		Results:       string(results),
	})
	if err != nil {
		return fmt.Errorf("audit: insert %s: %w", exec.Id, err)
	}
	return nil
}

// Recent returns the newest executions first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]Execution, error) {
	rows, err := a.model.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	out := make([]Execution, 0, len(rows))
	for _, row := range rows {
		exec := Execution{Id: row.Id, ExecutionTime: row.ExecutionTime, Status: row.Status}
		if err := json.Unmarshal([]byte(row.Results), &exec.Results); err != nil {
			return nil, fmt.Errorf("audit: decode %s: %w", row.Id, err)
		}
		out = append(out, exec)
	}
	return out, nil
}
