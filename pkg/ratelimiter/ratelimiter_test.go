package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var cfg = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute}

func TestNewBucketValidates(t *testing.T) {
	t.Parallel()

	for _, bad := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), bad)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}
}

func TestMemoryBucket(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(c.Now), ratelimiter.WithCleanupInterval(0))
	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	ctx := context.Background()

	// Drain the bucket
	for i := range 3 {
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 2-i, res.Remaining)
	}

	// Fourth request is refused until the next refill
	res, err := b.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, time.Minute, res.RetryAfter(c.Now()))

	t.Run("denials do not extend the lockout", func(t *testing.T) {
		for range 5 {
			_, err := b.Allow(ctx, "ip")
			require.NoError(t, err)
		}
		c.Advance(time.Minute)
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("keys are independent", func(t *testing.T) {
		res, err := b.Allow(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)
	})

	t.Run("refill is capped", func(t *testing.T) {
		c.Advance(24 * time.Hour)
		res, err := b.Status(ctx, "ip")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Remaining)
	})

	// Zero tokens is a caller error
	_, err = b.AllowN(ctx, "ip", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestRedisBucket(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client, "test:"), cfg)
	require.NoError(t, err)
	ctx := context.Background()

	// Same limit through Redis
	for range 3 {
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		require.True(t, res.Allowed())
	}
	res, err := b.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.True(t, mr.Exists("test:ip"))

	// Reset refills
	require.NoError(t, b.Reset(ctx, "ip"))
	res, err = b.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)

	key := ratelimiter.Composite(ratelimiter.Static("login"), func(r *http.Request) string { return r.Header.Get("X-Client") })
	h := ratelimiter.Middleware(b, key)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(client string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	// One request per client per hour
	assert.Equal(t, http.StatusNoContent, call("a").Code)
	w := call("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	// Other clients are unaffected
	assert.Equal(t, http.StatusNoContent, call("b").Code)
}

func TestComposite(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", ratelimiter.Composite(ratelimiter.Static(""))(r))
	assert.Equal(t, "a:b", ratelimiter.Composite(ratelimiter.Static("a"), ratelimiter.Static(""), ratelimiter.Static("b"))(r))

	// Long keys are hashed
	long := ratelimiter.Composite(ratelimiter.Static(strings.Repeat("x", 80)))(r)
	assert.LessOrEqual(t, len(long), 13)
}
