package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"argstats-api/internal/persistence/series"
	"argstats-api/pkg/logkit"
	"argstats-api/pkg/reconcile"
	"argstats-api/pkg/source"
)

// maxLoggedRejections caps per-row warnings; the rest are only counted.
const maxLoggedRejections = 20

// Gateway writes reconciled records to one destination table.
type Gateway interface {
	Upsert(ctx context.Context, records []reconcile.Record) (series.WriteResult, error)
}

// AuditLogger persists the outcome of a run.
type AuditLogger interface {
	Record(ctx context.Context, exec series.Execution) error
}

// Invalidator drops cached reads of a series after it changes.
type Invalidator interface {
	InvalidateSeries(ctx context.Context, series string) error
}

// Job syncs one upstream source into one series table.
type Job struct {
	Name       string
	Series     string
	DataSource string

	Fetcher source.Fetcher
	Mapper  reconcile.Mapper
	Gateway Gateway
	// KeyLookup enables the cross-batch existence check. Only set for
	// sources keyed by an opaque external id.
	KeyLookup   reconcile.KeyLookup
	Audit       AuditLogger
	Invalidator Invalidator

	Filter   reconcile.FilterOptions
	Interval time.Duration
	Timeout  time.Duration

	Logger logkit.Logger
	Now    func() time.Time
}

// Run executes one sync. It never panics and never returns nil: failures are
// carried on the report, and the audit record is written whatever happens.
func (j *Job) Run(ctx context.Context) *Report {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	r := &Report{
		Job:         j.Name,
		Series:      j.Series,
		DataSource:  j.DataSource,
		TaskID:      uuid.NewString(),
		ExecutionID: uuid.NewString(),
		StartedAt:   j.now(),
		Degradation: reconcile.DegradationNone,
	}

	func() {
		defer func() {
			if p := recover(); p != nil {
				r.fail(fmt.Errorf("%s panicked during %s: %v", j.Name, r.Stage, p))
			}
		}()
		j.execute(ctx, r)
	}()

	// The run may have timed out; the outcome still gets recorded.
	j.record(context.WithoutCancel(ctx), r)

	if r.Err != nil {
		r.enter(StageError)
	} else {
		r.enter(StageDone)
	}
	return r
}

func (j *Job) execute(ctx context.Context, r *Report) {
	log := j.logger()

	r.enter(StageFetching)
	raws, err := j.Fetcher.Fetch(ctx)
	if errors.Is(err, source.ErrNoRecords) {
		raws, err = nil, nil
	}
	if err != nil {
		r.FetchErr = err
		log.Warn(ctx, "source unavailable, nothing to sync", logkit.Fields{"job": j.Name, "error": err.Error()})
		return
	}
	if len(raws) == 0 {
		log.Info(ctx, "source returned no records", logkit.Fields{"job": j.Name})
		return
	}
	r.Processed = len(raws)

	r.enter(StageMapping)
	records, rejections := reconcile.MapAll(raws, j.Mapper)
	r.Rejections = rejections
	for i, rej := range rejections {
		if i == maxLoggedRejections {
			log.Warn(ctx, "further rejections not logged", logkit.Fields{"job": j.Name, "total": len(rejections)})
			break
		}
		log.Warn(ctx, "record rejected", logkit.Fields{"job": j.Name, "row": rej.Index, "reason": rej.Reason, "detail": rej.Detail})
	}

	r.enter(StageReconciling)
	deduped := reconcile.Dedupe(records)
	r.Folded = deduped.Folded
	pending := deduped.Records
	if j.KeyLookup != nil {
		opts := j.Filter
		if opts.Logger == nil {
			opts.Logger = log
		}
		filtered := reconcile.FilterExisting(ctx, j.KeyLookup, pending, opts)
		r.Existing = len(filtered.Existing)
		r.FailedBatches = filtered.FailedBatches
		r.Degradation = filtered.Degradation
		pending = filtered.New
	}
	if len(pending) == 0 {
		return
	}

	r.enter(StagePersisting)
	res, err := j.Gateway.Upsert(ctx, pending)
	if err != nil {
		r.fail(fmt.Errorf("persist %d records: %w", len(pending), err))
		return
	}
	r.Write = res

	if res.Written() > 0 && j.Invalidator != nil {
		if err := j.Invalidator.InvalidateSeries(ctx, j.Series); err != nil {
			r.InvalidateErr = err
			log.Warn(ctx, "cache invalidation failed", logkit.Fields{"job": j.Name, "error": err.Error()})
		}
	}
}

// record is the LOGGING stage. Nothing in here may change the outcome.
func (j *Job) record(ctx context.Context, r *Report) {
	log := j.logger()
	r.enter(StageLogging)
	r.FinishedAt = j.now()

	fields := logkit.Fields{
		"job":      j.Name,
		"duration": r.FinishedAt.Sub(r.StartedAt).String(),
	}
	if r.Err != nil {
		fields["stage"] = string(r.FailedStage)
		log.Error(ctx, r.Err, fields)
	} else {
		log.Info(ctx, r.Summary(), fields)
	}

	if j.Audit == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.AuditErr = fmt.Errorf("audit panicked: %v", p)
			log.Warn(ctx, "audit log write failed", logkit.Fields{"job": j.Name, "error": r.AuditErr.Error()})
		}
	}()
	if err := j.Audit.Record(ctx, r.Execution()); err != nil {
		r.AuditErr = err
		log.Warn(ctx, "audit log write failed", logkit.Fields{"job": j.Name, "error": err.Error()})
	}
}

func (j *Job) logger() logkit.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return logkit.New("jobs")
}

func (j *Job) now() time.Time {
	if j.Now != nil {
		return j.Now().UTC()
	}
	return time.Now().UTC()
}
