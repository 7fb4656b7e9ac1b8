package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LookupResult labels the outcome of a single Resolve call.
type LookupResult string

const (
	ResultCacheHit LookupResult = "hit"
	ResultLoaded   LookupResult = "loaded"
	ResultNotFound LookupResult = "not_found"
	ResultInvalid  LookupResult = "invalid"
	ResultError    LookupResult = "error"
)

// Lookup resolves identifiers to tenants: cache first, then the provider,
// repopulating the cache on a provider hit. It never judges whether the
// tenant is active.
type Lookup struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
	logger   *slog.Logger
	observe  func(LookupResult)
	timeout  time.Duration

	group singleflight.Group

	// Generations guard against a fill that started before an invalidation
	// writing its stale snapshot after it.
	mu          sync.Mutex
	generations map[string]uint64
}

// LookupOption configures a Lookup.
type LookupOption func(*Lookup)

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) LookupOption {
	return func(l *Lookup) { l.cache = c }
}

// WithCacheTTL sets how long resolved tenants stay cached.
func WithCacheTTL(ttl time.Duration) LookupOption {
	return func(l *Lookup) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds a provider call. The call is shared by every
// concurrent caller of the same key, so it does not inherit any single
// caller's cancellation.
func WithLoadTimeout(d time.Duration) LookupOption {
	return func(l *Lookup) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLookupLogger sets the logger.
func WithLookupLogger(logger *slog.Logger) LookupOption {
	return func(l *Lookup) { l.logger = logger }
}

// WithObserver receives every lookup outcome, e.g. for metrics.
func WithObserver(fn func(LookupResult)) LookupOption {
	return func(l *Lookup) { l.observe = fn }
}

// NewLookup creates a Lookup backed by provider.
func NewLookup(provider Provider, opts ...LookupOption) *Lookup {
	l := &Lookup{
		provider:    provider,
		ttl:         DefaultCacheTTL,
		timeout:     DefaultLoadTimeout,
		logger:      slog.Default(),
		observe:     func(LookupResult) {},
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = NewMemoryCache(DefaultCacheSize, l.ttl)
	}
	return l
}

// CacheKey is the cache key for a normalized identifier.
func CacheKey(identifier string) string {
	if IsDomain(identifier) {
		return "domain:" + identifier
	}
	return "code:" + identifier
}

// Resolve returns the tenant for identifier, or ErrTenantNotFound.
// Malformed identifiers never reach the cache or the provider.
func (l *Lookup) Resolve(ctx context.Context, identifier string) (*Tenant, error) {
	id, err := Normalize(identifier)
	if err != nil {
		l.observe(ResultInvalid)
		return nil, err
	}
	key := CacheKey(id)

	if t, ok := l.cache.Get(ctx, key); ok {
		l.observe(ResultCacheHit)
		return t, nil
	}

	gen := l.generation(key)
	ch := l.group.DoChan(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		t, err := l.provider.GetByIdentifier(loadCtx, id)
		if err != nil {
			return nil, err
		}
		l.fill(loadCtx, key, gen, t)
		return t, nil
	})

	var v any
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			l.observe(ResultNotFound)
			return nil, ErrTenantNotFound
		}
		l.observe(ResultError)
		return nil, errors.Join(ErrLookupFailed, err)
	}

	l.observe(ResultLoaded)
	return v.(*Tenant).Clone(), nil
}

// Invalidate drops every cache key of t. Resolutions that start after it
// returns never observe the old snapshot.
func (l *Lookup) Invalidate(ctx context.Context, t *Tenant) error {
	if t == nil {
		return nil
	}
	keys := []string{CacheKey(t.Code)}
	if t.Domain != "" {
		keys = append(keys, CacheKey(t.Domain))
	}
	return l.InvalidateKeys(ctx, keys...)
}

// InvalidateKeys drops raw cache keys, e.g. a domain the tenant no longer uses.
func (l *Lookup) InvalidateKeys(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range keys {
		l.generations[key]++
	}
	if err := l.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate tenant cache: %w", err)
	}
	return nil
}

func (l *Lookup) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[key]
}

func (l *Lookup) fill(ctx context.Context, key string, gen uint64, t *Tenant) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.generations[key] != gen {
		return
	}
	if err := l.cache.Set(ctx, key, t, l.ttl); err != nil {
		l.logger.WarnContext(ctx, "failed to cache tenant",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}
