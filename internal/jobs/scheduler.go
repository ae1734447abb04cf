package jobs

import (
	"context"
	"sync"
	"time"

	"argstats-api/pkg/logkit"
)

// Scheduler runs every job on its own interval until the context ends. A
// job never overlaps itself; different jobs run independently.
type Scheduler struct {
	jobs   []*Job
	logger logkit.Logger
	wg     sync.WaitGroup
}

func NewScheduler(jobs []*Job, logger logkit.Logger) *Scheduler {
	if logger == nil {
		logger = logkit.Nop{}
	}
	return &Scheduler{jobs: jobs, logger: logger}
}

// Start launches one loop per job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Warn(ctx, "scheduler: job has no interval, skipping", logkit.Fields{"job": job.Name})
			continue
		}
		s.wg.Add(1)
		go func(job *Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}
}

// Wait blocks until every loop has returned or timeout elapses. It reports
// whether the loops stopped in time.
func (s *Scheduler) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	s.runOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler: stopping", logkit.Fields{"job": job.Name})
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job *Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	r := job.Run(ctx)
	fields := logkit.Fields{
		"job":     job.Name,
		"status":  r.Status(),
		"took_ms": time.Since(start).Milliseconds(),
	}
	if !r.Success() {
		s.logger.Error(ctx, r.Err, fields)
		return
	}
	fields["new"] = r.NewRecords()
	fields["updated"] = r.UpdatedRecords()
	fields["skipped"] = r.DuplicatesSkipped()
	s.logger.Info(ctx, "scheduler: run finished", fields)
}
