package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "argstats-api/internal/cache"
	"argstats-api/internal/model"
	"argstats-api/internal/persistence/series"
)

// Cache is the subset of go-zero's cache.Cache the repository relies on.
type Cache interface {
	GetCtx(ctx context.Context, key string, val any) error
	SetWithExpireCtx(ctx context.Context, key string, val any, expire time.Duration) error
	DelCtx(ctx context.Context, keys ...string) error
	IsNotFound(err error) bool
}

// SeriesRepo serves the read side of the published series. Latest points and
// metadata go through the cache; everything else hits the store.
type SeriesRepo struct {
	store *series.Store
	cache Cache
	ttl   cachekeys.TTLSet
}

func newSeriesRepo(deps Dependencies) *SeriesRepo {
	return &SeriesRepo{store: deps.Store, cache: deps.Cache, ttl: deps.TTL}
}

// ErrUnknownSeries is returned for names outside the catalog.
type ErrUnknownSeries string

func (e ErrUnknownSeries) Error() string { return fmt.Sprintf("unknown series %q", string(e)) }

func (r *SeriesRepo) table(name string) (*series.Table, error) {
	t, ok := r.store.Table(name)
	if !ok {
		return nil, ErrUnknownSeries(name)
	}
	return t, nil
}

// Spec returns the catalog entry of a series.
func (r *SeriesRepo) Spec(name string) (model.SeriesTable, error) {
	t, err := r.table(name)
	if err != nil {
		return model.SeriesTable{}, err
	}
	return t.Spec(), nil
}

// Latest returns the newest point of every dimension group. Filtered requests
// bypass the cache.
func (r *SeriesRepo) Latest(ctx context.Context, name string, filters map[string]string) ([]model.Point, error) {
	t, err := r.table(name)
	if err != nil {
		return nil, err
	}
	key := cachekeys.SeriesLatestKey(t.Spec().Series)
	var cached []model.Point
	if len(filters) == 0 {
		if ok, _ := r.getCache(ctx, key, &cached); ok {
			return cached, nil
		}
	}
	page, err := t.Query(ctx, series.Query{Latest: true, Filters: filters})
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		r.setCache(ctx, key, cachekeys.SeriesLatestTTL(r.ttl, t.Spec()), page.Points)
	}
	return page.Points, nil
}

// Metadata returns coverage information, cached.
func (r *SeriesRepo) Metadata(ctx context.Context, name string) (series.Metadata, error) {
	t, err := r.table(name)
	if err != nil {
		return series.Metadata{}, err
	}
	key := cachekeys.SeriesMetadataKey(t.Spec().Series)
	var cached series.Metadata
	if ok, _ := r.getCache(ctx, key, &cached); ok {
		return cached, nil
	}
	meta, err := t.Metadata(ctx)
	if err != nil {
		return series.Metadata{}, err
	}
	r.setCache(ctx, key, cachekeys.SeriesMetadataTTL(r.ttl), meta)
	return meta, nil
}

// Query runs an uncached query.
func (r *SeriesRepo) Query(ctx context.Context, name string, q series.Query) (series.Page, error) {
	t, err := r.table(name)
	if err != nil {
		return series.Page{}, err
	}
	return t.Query(ctx, q)
}

// InvalidateSeries drops every cached read of a series.
func (r *SeriesRepo) InvalidateSeries(ctx context.Context, name string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.DelCtx(ctx, cachekeys.SeriesKeys(name)...); err != nil {
		return fmt.Errorf("invalidate %s: %w", name, err)
	}
	return nil
}

// helper: get from redis into v
func (r *SeriesRepo) getCache(ctx context.Context, key string, v any) (bool, error) {
	if r.cache == nil {
		return false, nil
	}
	if err := r.cache.GetCtx(ctx, key, v); err != nil {
		if r.cache.IsNotFound(err) {
			return false, nil
		}
		logx.WithContext(ctx).Errorf("get cache %s: %v", key, err)
		return false, err
	}
	return true, nil
}

// helper: set redis from v
func (r *SeriesRepo) setCache(ctx context.Context, key string, expire time.Duration, v any) {
	if r.cache == nil || expire <= 0 {
		return
	}
	if err := r.cache.SetWithExpireCtx(ctx, key, v, expire); err != nil {
		logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
	}
}
