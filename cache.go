// Package tieredcache memoizes expensive computations across a fast
// in-process store and an optional shared Redis store. The shared tier
// is probed once at startup; when it is unreachable the cache runs
// memory-only and callers never see the difference beyond reduced hit
// rates. Store failures are logged and absorbed, since the cache is an
// optimization layer rather than a correctness mechanism.
package tieredcache

import (
	"context"
	"encoding/json"
	"time"

	config "github.com/avatarctic/tiered-cache/configs"
	"github.com/avatarctic/tiered-cache/internal/core/ports"
	"github.com/avatarctic/tiered-cache/internal/infrastructure/health"
	"github.com/avatarctic/tiered-cache/internal/infrastructure/memory"
	infraRedis "github.com/avatarctic/tiered-cache/internal/infrastructure/redis"
	"github.com/avatarctic/tiered-cache/internal/infrastructure/tiered"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultPrefix namespaces keys written through Cached and the
// invalidation helpers unless overridden per call or via config.
const DefaultPrefix = "cache:"

// Health reports which tiers were reachable when the cache was built.
// The remote flag is recorded once at startup and never changes.
type Health struct {
	Memory bool `json:"memory"`
	Remote bool `json:"remote"`
}

// Cache is the public entry point. All methods are safe for concurrent
// use and none of them return store errors: reads miss, writes are
// best-effort. The only errors surfaced to callers come out of Cached:
// a failed compute function or an unencodable computed value.
type Cache struct {
	tiers      *tiered.Cache
	checkers   []ports.HealthChecker
	prefix     string
	defaultTTL time.Duration
	logger     *logrus.Logger
	sf         singleflight.Group
}

// New builds the cache from configuration. The remote tier is attached
// only when the Redis ping succeeds; a connection failure is logged at
// warn level and the cache proceeds memory-only. New never fails.
func New(cfg *config.Config, logger *logrus.Logger) *Cache {
	mem := memory.NewStore(cfg.Cache.SweepInterval)
	checkers := []ports.HealthChecker{health.NewMemoryHealthChecker(mem)}

	var shared ports.Store
	client, err := infraRedis.NewClient(&cfg.Redis)
	if err != nil {
		if logger != nil {
			logger.WithError(err).WithField("addr", cfg.Redis.Addr()).
				Warn("remote cache unreachable, running memory-only")
		}
	} else {
		shared = infraRedis.NewStore(client, cfg.Cache.MaxRetries, cfg.Cache.RetryBackoff)
		checkers = append(checkers, health.NewRedisHealthChecker(client))
	}

	var m *tiered.Metrics
	if cfg.Cache.EnableMetrics {
		m = tiered.NewMetrics(prometheus.DefaultRegisterer)
	}

	prefix := cfg.Cache.KeyPrefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Cache{
		tiers:      tiered.New(mem, shared, logger, m),
		checkers:   checkers,
		prefix:     prefix,
		defaultTTL: cfg.Cache.DefaultTTL,
		logger:     logger,
	}
}

// Set encodes value as JSON and writes it to every available tier.
// ttl <= 0 applies the configured default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	b, err := json.Marshal(value)
	if err != nil {
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{"operation": "set", "key": key}).
				WithError(err).Warn("value not encodable, write dropped")
		}
		return
	}
	c.tiers.Set(ctx, key, b, c.ttlOrDefault(ttl))
}

// Del removes the key from every tier.
func (c *Cache) Del(ctx context.Context, key string) {
	c.tiers.Delete(ctx, key)
}

// Exists reports whether any tier holds the key.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	return c.tiers.Exists(ctx, key)
}

// Expire rewrites the key's value with a fresh TTL. Read and rewrite
// are not atomic; the entry can expire in between.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) {
	c.tiers.Expire(ctx, key, ttl)
}

// Keys returns the keys matching the glob pattern, or nothing when no
// tier supports enumeration.
func (c *Cache) Keys(ctx context.Context, pattern string) []string {
	return c.tiers.Keys(ctx, pattern)
}

// ClearByPattern deletes all keys matching the glob pattern and returns
// the number of keys matched.
func (c *Cache) ClearByPattern(ctx context.Context, pattern string) int {
	return c.tiers.ClearByPattern(ctx, pattern)
}

// MSet writes each pair with the same TTL. Pairs are written
// individually; there is no cross-key atomicity.
func (c *Cache) MSet(ctx context.Context, pairs map[string]any, ttl time.Duration) {
	for k, v := range pairs {
		c.Set(ctx, k, v, ttl)
	}
}

// Incr increments the counter at key and returns the new value, or 0
// when every tier failed.
func (c *Cache) Incr(ctx context.Context, key string) int64 {
	return c.tiers.Incr(ctx, key, 1)
}

// Decr decrements the counter at key.
func (c *Cache) Decr(ctx context.Context, key string) int64 {
	return c.tiers.Incr(ctx, key, -1)
}

// IncrWithExpire increments the counter and (re)arms its TTL, in a
// single transactional pipeline when the shared tier is available.
// Suited to rate-limiting counters, not exact billing counts.
func (c *Cache) IncrWithExpire(ctx context.Context, key string, ttl time.Duration) int64 {
	return c.tiers.IncrWithTTL(ctx, key, 1, ttl)
}

// HSet stores a hash field as a composite "{key}:{field}" entry. This
// emulates a multi-field hash with ordinary entries; fields do not
// share atomicity or a common TTL.
func (c *Cache) HSet(ctx context.Context, key, field string, value any, ttl time.Duration) {
	c.Set(ctx, hashKey(key, field), value, ttl)
}

// HDel removes a single hash field.
func (c *Cache) HDel(ctx context.Context, key, field string) {
	c.Del(ctx, hashKey(key, field))
}

// InvalidateCache drops the namespaced entry for key. The optional
// prefix overrides the configured one.
func (c *Cache) InvalidateCache(ctx context.Context, key string, prefix ...string) {
	c.Del(ctx, c.namespaced(key, prefix))
}

// InvalidateCachePattern drops every namespaced entry matching the glob
// pattern and returns the number of keys matched.
func (c *Cache) InvalidateCachePattern(ctx context.Context, pattern string, prefix ...string) int {
	return c.ClearByPattern(ctx, c.namespaced(pattern, prefix))
}

// HealthStatus reports tier availability as recorded at construction.
func (c *Cache) HealthStatus() Health {
	mem, remote := c.tiers.Health()
	return Health{Memory: mem, Remote: remote}
}

// Ping actively probes each tier and returns the failures by tier name.
// Unlike HealthStatus this reflects the current state of the backends.
func (c *Cache) Ping(ctx context.Context) map[string]error {
	results := make(map[string]error, len(c.checkers))
	for _, hc := range c.checkers {
		results[hc.Name()] = hc.Check(ctx)
	}
	return results
}

// Close tears down both tiers.
func (c *Cache) Close() error {
	return c.tiers.Close()
}

func (c *Cache) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.defaultTTL
	}
	return ttl
}

func (c *Cache) namespaced(key string, prefix []string) string {
	if len(prefix) > 0 && prefix[0] != "" {
		return prefix[0] + key
	}
	return c.prefix + key
}

func hashKey(key, field string) string {
	return key + ":" + field
}
