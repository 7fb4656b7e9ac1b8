// Package tenant resolves the establishment a request belongs to and carries
// it through the request context.
//
// Resolution is split in three parts. A Resolver pulls a normalized
// identifier out of the request (path segment, subdomain, custom domain or
// header). A Lookup turns the identifier into a *Tenant through a Cache and a
// Provider, collapsing concurrent misses and honouring invalidations. The
// Middleware ties both together and stores the result in the context.
//
// Whether the tenant is active, or whether the caller may use it, is not
// decided here. See svc/access.
//
// # Identifiers
//
// A tenant is addressed by its code (lowercase letters, digits and inner
// hyphens, at most MaxCodeLength characters) or by a custom domain.
// Normalize lowercases, trims and validates either form; anything containing
// a dot is treated as a domain. Malformed identifiers are rejected with
// ErrInvalidIdentifier before any cache or storage access.
//
// # Resolvers
//
//   - PathResolver(1) reads the first path segment: /nord/users → "nord".
//   - SubdomainResolver("xamu.app") reads nord.xamu.app → "nord".
//   - HostResolver("xamu.app") treats any other host as a custom domain.
//   - HeaderResolver("X-Tenant") reads a header, for internal callers.
//   - CompositeResolver tries several in order and returns the first hit.
//
// # Lookup
//
// Lookup serves snapshots from a Cache (MemoryCache, RedisCache or
// NoopCache) and falls back to the Provider. Concurrent misses for the same
// key share a single provider call. That call runs detached from any one
// caller, bounded by WithLoadTimeout, so a caller that gives up does not fail
// the others. Not-found results are never cached.
//
// Invalidate and InvalidateKeys bump a per-key generation before deleting
// the cached entry. A load that started before the invalidation still
// answers its callers but does not write its stale result back.
//
// # Usage
//
//	lookup := tenant.NewLookup(directory,
//		tenant.WithCache(tenant.NewRedisCache(rdb, "", logger)),
//		tenant.WithCacheTTL(5*time.Minute),
//	)
//	r.Use(tenant.Middleware(tenant.PathResolver(1), lookup))
//
// Handlers read the tenant back:
//
//	t, ok := tenant.FromContext(r.Context())
//	if !ok {
//		// global route, or no tenant matched
//	}
//
// Background work establishes a tenant explicitly:
//
//	err := tenant.Run(ctx, t, func(ctx context.Context) error {
//		_, err := users.List(ctx, query)
//		return err
//	})
//
// # Errors
//
// ErrTenantNotFound is returned when no tenant matches, ErrInvalidIdentifier
// for malformed input and ErrLookupFailed, joined with the cause, when the
// provider fails. The Middleware reports all of them through its
// ErrorHandler; see WithErrorHandler.
package tenant
