package tenant

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores tenant snapshots keyed by normalized identifier.
type Cache interface {
	// Get reports a miss for unknown and expired keys alike.
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) error
	// Delete ignores keys that are not cached.
	Delete(ctx context.Context, keys ...string) error
}

const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
	// DefaultLoadTimeout bounds one provider call made by Lookup.
	DefaultLoadTimeout = 5 * time.Second
)

type cacheItem struct {
	tenant    *Tenant
	expiresAt time.Time
}

// MemoryCache is a bounded LRU with per-entry expiry. Expired entries are
// dropped on read; the LRU's own sweep evicts anything older than maxTTL.
type MemoryCache struct {
	lru *expirable.LRU[string, cacheItem]
	now func() time.Time
}

// NewMemoryCache creates a cache holding at most size entries, none of which
// outlive maxTTL regardless of the TTL passed to Set.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if maxTTL <= 0 {
		maxTTL = DefaultCacheTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, cacheItem](size, nil, maxTTL),
		now: time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(item.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return item.tenant.Clone(), true
}

// Set caches t until ttl or the cache maxTTL passes, whichever is first.
func (c *MemoryCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration) error {
	c.lru.Add(key, cacheItem{tenant: t.Clone(), expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.lru.Remove(key)
	}
	return nil
}

// Len reports the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// NoopCache disables caching.
type NoopCache struct{}

// NoopCache never stores anything.
func (NoopCache) Get(context.Context, string) (*Tenant, bool)               { return nil, false }
func (NoopCache) Set(context.Context, string, *Tenant, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error                   { return nil }
