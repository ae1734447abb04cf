package svc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/syncx"
	"github.com/zeromicro/go-zero/rest"

	cachekeys "argstats-api/internal/cache"
	"argstats-api/internal/config"
	"argstats-api/internal/jobs"
	"argstats-api/internal/middleware"
	"argstats-api/internal/persistence/series"
	"argstats-api/internal/repo"
	"argstats-api/pkg/logkit"
	"argstats-api/pkg/reconcile"
	"argstats-api/pkg/source"
)

const storeConnectTimeout = 10 * time.Second

type ServiceContext struct {
	Config config.Config

	// Store is opened once at start and shared by every job and query.
	Store *series.Store
	Cache cache.Cache // nil when Redis is not configured
	Repos *repo.Set
	Jobs  *jobs.Registry

	CronAuth rest.Middleware
}

// MustNewServiceContext is NewServiceContext that exits on error, so the
// server never starts with a half-built context.
func MustNewServiceContext(c config.Config) *ServiceContext {
	svcCtx, err := NewServiceContext(c)
	logx.Must(err)
	return svcCtx
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	applyEnvDefaults(&c)
	svcCtx := &ServiceContext{
		Config:   c,
		CronAuth: middleware.NewCronAuthMiddleware(c.Cron).Handle,
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()
	store, err := series.Open(ctx, c.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	svcCtx.Store = store

	deps := repo.Dependencies{Store: store, TTL: cachekeys.NewTTLSet(c.TTL)}
	// Only wire the cache when Redis is configured; reads fall through to the store.
	if strings.TrimSpace(c.Redis.Host) != "" {
		svcCtx.Cache = cache.New(
			cache.CacheConf{{RedisConf: c.Redis, Weight: 100}},
			syncx.NewSingleFlight(),
			cache.NewStat("argstats"),
			sql.ErrNoRows,
		)
		deps.Cache = svcCtx.Cache
	}
	repos, err := repo.New(deps)
	if err != nil {
		return nil, err
	}
	svcCtx.Repos = repos

	fetchers, err := buildFetchers(c)
	if err != nil {
		return nil, err
	}
	registry, err := jobs.NewRegistry(c.Jobs, jobs.Deps{
		Store:       store,
		Fetchers:    fetchers,
		Audit:       repos.Audit,
		Invalidator: repos.Series,
		Filter: reconcile.FilterOptions{
			BatchSize: c.Sync.LookupBatchSize,
			Delay:     c.Sync.LookupDelay,
		},
		Logger: logkit.New("jobs"),
	})
	if err != nil {
		return nil, err
	}
	svcCtx.Jobs = registry
	return svcCtx, nil
}

// Close releases the store connection.
func (s *ServiceContext) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

func buildFetchers(c config.Config) (map[string]source.Fetcher, error) {
	if c.Sources.Value == nil {
		return map[string]source.Fetcher{}, nil
	}
	fetchers, err := c.Sources.Value.BuildFetchers()
	if err != nil {
		return nil, fmt.Errorf("build fetchers: %w", err)
	}
	return fetchers, nil
}

// applyEnvDefaults adjusts config for the running environment: the test env
// always migrates its (usually throwaway) store.
func applyEnvDefaults(c *config.Config) {
	if c.IsTestEnv() {
		c.Store.AutoMigrate = true
	}
}
