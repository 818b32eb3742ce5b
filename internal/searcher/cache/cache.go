// Package cache shares search results across query processes through
// Redis. Keys carry the index version (snapshot id plus its creation
// time), so a reload never serves results of an older index, even one
// saved earlier in the same hour.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/redis"
)

const keyPrefix = "sagasu:lookup:"

// Store is the subset of *pkgredis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type LookupCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *LookupCache {
	return &LookupCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "lookup-cache"),
	}
}

func (c *LookupCache) Get(ctx context.Context, version, query string, opts searcher.SearchOptions) (*searcher.SearchResult, bool) {
	key := buildKey(version, query, opts)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result searcher.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", query, "version", version)
	return &result, true
}

func (c *LookupCache) Set(ctx context.Context, version, query string, opts searcher.SearchOptions, result *searcher.SearchResult) {
	key := buildKey(version, query, opts)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute once per key,
// however many callers ask concurrently. Redis failures degrade to
// computing the result; only compute errors are returned.
func (c *LookupCache) GetOrCompute(
	ctx context.Context,
	version, query string,
	opts searcher.SearchOptions,
	compute func() (*searcher.SearchResult, error),
) (*searcher.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, version, query, opts); ok {
		return result, true, nil
	}
	key := buildKey(version, query, opts)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, version, query, opts, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*searcher.SearchResult), false, nil
}

// Invalidate drops every cached result of every snapshot.
func (c *LookupCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating lookup cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *LookupCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LookupCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.LookupCacheTotal.WithLabelValues("redis", "hit").Inc()
	}
}

func (c *LookupCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.LookupCacheTotal.WithLabelValues("redis", "miss").Inc()
	}
}

// buildKey hashes the query so arbitrary tokens stay valid key material.
func buildKey(version, query string, opts searcher.SearchOptions) string {
	raw := fmt.Sprintf("%s|limit=%d|preview=%d", query, opts.Limit, opts.PreviewRunes)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, version, hash[:16])
}
