// Package ratelimiter is a token-bucket limiter with in-memory and Redis
// stores and an HTTP middleware. The platform uses it to slow down
// credential and invitation-token guessing.
//
// # Algorithm
//
// Every key owns a bucket of at most Config.Capacity tokens. Config.RefillRate
// tokens are added every Config.RefillInterval, computed lazily from the
// time of the last access, so idle keys cost nothing. A request takes one
// token; when none is left it is refused and the Result says when the
// bucket has room again.
//
// # Stores
//
//   - MemoryStore keeps buckets in process and sweeps idle ones in the
//     background. Close stops the sweeper.
//   - RedisStore keeps each bucket in a Redis hash and updates it with a Lua
//     script, so several server processes share one limit.
//
// # Usage
//
//	bucket, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(rdb, "xamu:rl:"), cfg)
//	if err != nil {
//		return err
//	}
//	r.With(ratelimiter.Middleware(bucket, ratelimiter.Composite(
//		ratelimiter.Static("login"),
//		clientip.Key,
//	))).Post("/login", login)
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every limited response, plus Retry-After on refusals.
// A KeyFunc returning "" skips limiting for that request.
//
// # Errors
//
// NewBucket returns ErrInvalidConfig for non-positive settings and AllowN
// returns ErrInvalidTokenCount for n <= 0. Store failures surface as
// ErrStoreUnavailable. The middleware fails open on them unless
// WithOnError is given.
package ratelimiter
