package repo

import (
	"errors"

	cachekeys "argstats-api/internal/cache"
	"argstats-api/internal/persistence/series"
)

// Dependencies bundles the shared infrastructure required by repository
// implementations.
type Dependencies struct {
	Store *series.Store
	Cache Cache // optional
	TTL   cachekeys.TTLSet
}

// Set exposes strongly typed repositories to application logic.
type Set struct {
	Series *SeriesRepo
	Audit  *series.AuditLog
}

// New constructs the repository set, validating required dependencies.
func New(deps Dependencies) (*Set, error) {
	if deps.Store == nil {
		return nil, errors.New("repo: missing Store dependency")
	}
	return &Set{
		Series: newSeriesRepo(deps),
		Audit:  series.NewAuditLog(deps.Store),
	}, nil
}
