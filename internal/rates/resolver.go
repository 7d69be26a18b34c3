package rates

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source fetches a day's rate table.
type Source interface {
	DailyRates(ctx context.Context, date time.Time) (*Table, error)
}

// Resolver resolves currency unit values, caching each (date, code) pair.
type Resolver struct {
	source Source
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger

	fetches atomic.Int64
}

// NewResolver creates a Resolver that owns cache.
func NewResolver(source Source, cache *Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache(0)
	}
	return &Resolver{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// Resolve returns the value of one unit of code on date.
// Network I/O happens only on a cache miss; concurrent misses for the same key share one fetch.
// The shared fetch ignores the cancellation of whichever caller started it and is bounded by
// the source's own timeout; each caller still returns as soon as its ctx is done.
func (r *Resolver) Resolve(ctx context.Context, date time.Time, code string) (decimal.Decimal, error) {
	key := NewKey(date, code)
	if rate, ok := r.cache.Get(key); ok {
		return rate, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key.Date+"|"+key.Code, func() (any, error) {
		// Another caller may have populated the key while we waited.
		if rate, ok := r.cache.Get(key); ok {
			return rate, nil
		}

		r.fetches.Add(1)
		start := time.Now()

		table, err := r.source.DailyRates(fetchCtx, date)
		if err != nil {
			return nil, err
		}

		rate, err := table.Lookup(code)
		if err != nil {
			return nil, err
		}

		r.cache.Add(key, rate)
		r.logger.Debug("resolved rate",
			"date", key.Date,
			"code", code,
			"rate", rate.String(),
			"table_date", table.Date.Format(time.DateOnly),
			"duration", time.Since(start),
		)
		return rate, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
}

// Fetches returns the number of rate table fetches performed.
func (r *Resolver) Fetches() int64 {
	return r.fetches.Load()
}

// CacheStats returns the cache counters.
func (r *Resolver) CacheStats() CacheStats {
	return r.cache.Stats()
}
