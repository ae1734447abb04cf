package jobs

import (
	"fmt"
	"strings"
	"time"

	"argstats-api/internal/model"
	"argstats-api/internal/persistence/series"
	"argstats-api/pkg/reconcile"
)

// Stage is a step of the run state machine.
type Stage string

const (
	StageFetching    Stage = "FETCHING"
	StageMapping     Stage = "MAPPING"
	StageReconciling Stage = "RECONCILING"
	StagePersisting  Stage = "PERSISTING"
	StageLogging     Stage = "LOGGING"
	StageDone        Stage = "DONE"
	StageError       Stage = "ERROR"
)

// Report is the outcome of one run. Absorbed failures are kept as values so
// callers can tell a clean run from a degraded one.
type Report struct {
	Job         string
	Series      string
	DataSource  string
	TaskID      string
	ExecutionID string
	StartedAt   time.Time
	FinishedAt  time.Time

	Stage       Stage   // current, DONE or ERROR once Run returns
	Trace       []Stage // every stage entered, in order
	FailedStage Stage

	Processed     int
	Rejections    []reconcile.Rejection
	Folded        int // in-batch duplicates merged away
	Existing      int // dropped by the existence check
	FailedBatches int
	Degradation   reconcile.Degradation
	Write         series.WriteResult

	Err           error // job-level failure
	FetchErr      error // source unavailable, reported as an empty success
	AuditErr      error
	InvalidateErr error
}

// Details is the job-specific breakdown returned to the trigger caller.
type Details struct {
	Series            string                         `json:"series"`
	Processed         int                            `json:"processed"`
	Mapped            int                            `json:"mapped"`
	Written           int                            `json:"written"`
	Rejected          int                            `json:"rejected"`
	RejectedByReason  map[reconcile.RejectReason]int `json:"rejected_by_reason,omitempty"`
	InBatchDuplicates int                            `json:"in_batch_duplicates"`
	AlreadyStored     int                            `json:"already_stored"`
	StoreUnchanged    int                            `json:"store_unchanged"`
	StoreConflicts    int                            `json:"store_conflicts"`
	ExistenceCheck    reconcile.Degradation          `json:"existence_check"`
	FailedLookups     int                            `json:"failed_lookup_batches,omitempty"`
	SourceError       string                         `json:"source_error,omitempty"`
	AuditError        string                         `json:"audit_error,omitempty"`
	Stages            []Stage                        `json:"stages"`
}

func (r *Report) enter(s Stage) {
	r.Stage = s
	r.Trace = append(r.Trace, s)
}

func (r *Report) fail(err error) {
	if r.Err != nil {
		return
	}
	r.Err = err
	r.FailedStage = r.Stage
}

// Success reports whether the run completed without a job-level failure.
func (r *Report) Success() bool { return r.Err == nil }

func (r *Report) Rejected() int { return len(r.Rejections) }

func (r *Report) Mapped() int { return r.Processed - r.Rejected() }

func (r *Report) NewRecords() int { return r.Write.Inserted }

func (r *Report) UpdatedRecords() int { return r.Write.Updated }

// DuplicatesSkipped counts every record that was absorbed rather than
// written: merged in-batch, filtered as already stored, unchanged on write,
// or refused by a store uniqueness constraint.
func (r *Report) DuplicatesSkipped() int {
	return r.Folded + r.Existing + r.Write.Skipped()
}

// Status maps the outcome onto the audit status values.
func (r *Report) Status() string {
	if r.Success() {
		return model.StatusSuccess
	}
	return model.StatusError
}

// ExecutionTime is the ISO-8601 start instant.
func (r *Report) ExecutionTime() string {
	return reconcile.InstantKey(r.StartedAt)
}

// Summary is a one-line human readable outcome.
func (r *Report) Summary() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s failed during %s: %v", r.Job, r.FailedStage, r.Err)
	case r.FetchErr != nil:
		return fmt.Sprintf("%s: source unavailable, nothing synced", r.Job)
	case r.Processed == 0:
		return fmt.Sprintf("%s: source returned no records", r.Job)
	}
	parts := []string{
		fmt.Sprintf("%d new", r.NewRecords()),
		fmt.Sprintf("%d updated", r.UpdatedRecords()),
		fmt.Sprintf("%d duplicates skipped", r.DuplicatesSkipped()),
	}
	if n := r.Rejected(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", n))
	}
	return fmt.Sprintf("%s: %s of %d processed", r.Job, strings.Join(parts, ", "), r.Processed)
}

func (r *Report) Details() Details {
	d := Details{
		Series:            r.Series,
		Processed:         r.Processed,
		Mapped:            r.Mapped(),
		Written:           r.Write.Written(),
		Rejected:          r.Rejected(),
		InBatchDuplicates: r.Folded,
		AlreadyStored:     r.Existing,
		StoreUnchanged:    r.Write.Unchanged,
		StoreConflicts:    r.Write.Conflicts,
		ExistenceCheck:    r.Degradation,
		FailedLookups:     r.FailedBatches,
		Stages:            append([]Stage(nil), r.Trace...),
	}
	if len(r.Rejections) > 0 {
		d.RejectedByReason = reconcile.CountByReason(r.Rejections)
	}
	if r.FetchErr != nil {
		d.SourceError = r.FetchErr.Error()
	}
	if r.AuditErr != nil {
		d.AuditError = r.AuditErr.Error()
	}
	return d
}

// TaskResult is the audit entry for this run.
func (r *Report) TaskResult() model.TaskResult {
	return model.TaskResult{
		TaskId:           r.TaskID,
		DataSource:       r.DataSource,
		StartTime:        reconcile.InstantKey(r.StartedAt),
		EndTime:          reconcile.InstantKey(r.FinishedAt),
		RecordsProcessed: r.Processed,
		Status:           r.Status(),
		Details:          r.Summary(),
	}
}

// Execution is the audit record written at the end of every run.
func (r *Report) Execution() series.Execution {
	return series.Execution{
		Id:            r.ExecutionID,
		ExecutionTime: r.ExecutionTime(),
		Status:        r.Status(),
		Results:       []model.TaskResult{r.TaskResult()},
	}
}
