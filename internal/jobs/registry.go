package jobs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"argstats-api/internal/config"
	"argstats-api/internal/model"
	"argstats-api/internal/persistence/series"
	"argstats-api/pkg/logkit"
	"argstats-api/pkg/reconcile"
	"argstats-api/pkg/source"
)

// Deps is the shared infrastructure every job is wired onto.
type Deps struct {
	Store       *series.Store
	Fetchers    map[string]source.Fetcher
	Audit       AuditLogger
	Invalidator Invalidator
	Filter      reconcile.FilterOptions
	Logger      logkit.Logger
}

// Registry holds the configured jobs by name.
type Registry struct {
	jobs  map[string]*Job
	names []string
}

// NewRegistry builds one Job per enabled entry. Unknown series or sources are
// configuration errors.
func NewRegistry(confs []config.JobConf, deps Deps) (*Registry, error) {
	if deps.Store == nil {
		return nil, errors.New("jobs: missing store")
	}
	reg := &Registry{jobs: make(map[string]*Job, len(confs))}
	for _, c := range confs {
		if c.Disabled {
			continue
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, errors.New("jobs: job name is required")
		}
		if _, dup := reg.jobs[name]; dup {
			return nil, fmt.Errorf("jobs: duplicate job %q", name)
		}
		spec, ok := model.LookupSeries(c.Series)
		if !ok {
			return nil, fmt.Errorf("jobs: %s: unknown series %q", name, c.Series)
		}
		table, ok := deps.Store.Table(spec.Series)
		if !ok {
			return nil, fmt.Errorf("jobs: %s: store has no table for %q", name, spec.Series)
		}
		fetcher, ok := deps.Fetchers[c.Source]
		if !ok {
			return nil, fmt.Errorf("jobs: %s: unknown source %q", name, c.Source)
		}
		mapper, _ := MapperFor(spec.Series)

		job := &Job{
			Name:        name,
			Series:      spec.Series,
			DataSource:  firstNonEmpty(c.DataSource, c.Source),
			Fetcher:     fetcher,
			Mapper:      mapper,
			Gateway:     table,
			Audit:       deps.Audit,
			Invalidator: deps.Invalidator,
			Filter:      deps.Filter,
			Interval:    c.Interval,
			Timeout:     c.Timeout,
			Logger:      deps.Logger,
		}
		if spec.ExternalID {
			job.KeyLookup = table
		}
		reg.jobs[name] = job
		reg.names = append(reg.names, name)
	}
	sort.Strings(reg.names)
	return reg, nil
}

// Get returns the named job.
func (r *Registry) Get(name string) (*Job, bool) {
	job, ok := r.jobs[name]
	return job, ok
}

// Names lists registered jobs alphabetically.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// All returns the jobs in name order.
func (r *Registry) All() []*Job {
	out := make([]*Job, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.jobs[n])
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
