// Package redis connects the shared Redis used for the tenant cache and the
// rate limiter buckets.
//
// The package wraps go-redis and adds:
//
//   - Connect, which parses Config.ConnectionURL and pings the server,
//     retrying RetryAttempts times RetryInterval apart.
//   - Healthcheck, for the readiness endpoint.
//
// Configuration is read from the environment through pkg/config.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	cache := tenant.NewRedisCache(client, cfg.KeyPrefix, log)
//	checks["redis"] = redis.Healthcheck(client)
//
// # Errors
//
// Connect returns ErrFailedToParseRedisConnString for a malformed URL and
// ErrRedisNotReady, joined with the context error when ctx ends first,
// after the last attempt. Healthcheck wraps ping failures in
// ErrHealthcheckFailed.
package redis
