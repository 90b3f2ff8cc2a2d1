package geo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedResolver wraps a Resolver with an in-process TTL cache so repeated
// lookups of the same raw string do not re-run resolution.
type CachedResolver struct {
	inner Resolver
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	res     Resolution
	expires time.Time
}

// NewCachedResolver wraps inner with a TTL cache.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock overrides the clock for testing.
func (c *CachedResolver) WithClock(clock func() time.Time) *CachedResolver {
	c.clock = clock
	return c
}

func (c *CachedResolver) Resolve(ctx context.Context, raw string) (Resolution, error) {
	now := c.clock()

	c.mu.RLock()
	e, ok := c.entries[raw]
	c.mu.RUnlock()
	if ok && now.Before(e.expires) {
		return e.res, nil
	}

	res, err := c.inner.Resolve(ctx, raw)
	if err != nil {
		return Resolution{}, err
	}

	c.mu.Lock()
	c.entries[raw] = cacheEntry{res: res, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return res, nil
}

// RedisResolver decorates a Resolver with a shared Redis cache so multiple
// control-tower processes reuse each other's lookups. Redis being unreachable
// degrades to the inner resolver; it never fails a resolution.
type RedisResolver struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisResolver wraps inner with a Redis-backed cache.
func NewRedisResolver(inner Resolver, client *redis.Client, ttl time.Duration) *RedisResolver {
	return &RedisResolver{inner: inner, client: client, ttl: ttl, prefix: "geo:resolve:"}
}

func (r *RedisResolver) Resolve(ctx context.Context, raw string) (Resolution, error) {
	key := r.prefix + raw
	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var res Resolution
		if json.Unmarshal(data, &res) == nil {
			return res, nil
		}
	}

	res, err := r.inner.Resolve(ctx, raw)
	if err != nil {
		return Resolution{}, err
	}
	if data, err := json.Marshal(res); err == nil {
		r.client.Set(ctx, key, data, r.ttl)
	}
	return res, nil
}
