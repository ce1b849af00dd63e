package trends

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
	"github.com/lschmelzeisen/nasty-analysis/pkg/redis"
)

// Cache stores assembled series in Redis keyed by selection. Concurrent
// misses for the same selection are collapsed through singleflight, so a
// distinct selection is recomputed at most once at a time. Cache failures
// degrade to recomputation, never to request failure.
type Cache struct {
	redis   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCache returns a Cache with the given entry lifetime. A nil Redis
// client disables the persistent layer; singleflight stays in effect.
func NewCache(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		redis:   client,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "trends-cache"),
	}
}

// GetOrCompute returns the cached series for sel, computing and storing
// it on a miss.
func (c *Cache) GetOrCompute(ctx context.Context, sel Selection, compute func(ctx context.Context) (*Series, error)) (*Series, error) {
	key := sel.CacheKey()

	if series, ok := c.lookup(ctx, key); ok {
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return series, nil
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Another waiter may have filled the cache while we queued.
		if series, ok := c.lookup(ctx, key); ok {
			return series, nil
		}
		series, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, series)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Series), nil
}

// Invalidate drops every cached series, e.g. after re-indexing.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	deleted, err := c.redis.FlushByPattern(ctx, "trends|*")
	if err != nil {
		c.logger.Warn("cache invalidation failed", "error", err)
		return
	}
	c.logger.Info("invalidated series cache", "entries", deleted)
}

func (c *Cache) lookup(ctx context.Context, key string) (*Series, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if !redis.IsNilError(err) {
			c.logger.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}
	var series Series
	if err := json.Unmarshal([]byte(raw), &series); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &series, true
}

func (c *Cache) store(ctx context.Context, key string, series *Series) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(series)
	if err != nil {
		c.logger.Warn("cache encoding failed", "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("cache store failed", "error", err)
	}
}
