package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware resolves the tenant of each request and attaches it to the
// request context. The context dies with the request, so nothing leaks into
// the next request served by the same goroutine.
//
// A request whose identifier is malformed or unknown continues without a
// tenant but with a Resolution marking the miss; the access guard denies it
// on tenant routes. Lookup infrastructure failures fail closed.
func Middleware(resolve Resolver, lookup *Lookup, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		skipPaths:    DefaultSkipPaths,
		skipRoot:     true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := Without(r.Context())

			if cfg.skip(r.URL.Path) {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			identifier, err := resolve(r)
			if err != nil {
				cfg.logger.DebugContext(ctx, "tenant identifier rejected", slog.Any("error", err))
				ctx = WithResolution(ctx, Resolution{Identifier: identifier})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if identifier == "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			t, err := lookup.Resolve(ctx, identifier)
			switch {
			case errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrInvalidIdentifier):
				ctx = WithResolution(ctx, Resolution{Identifier: identifier})
				next.ServeHTTP(w, r.WithContext(ctx))
			case err != nil:
				cfg.logger.ErrorContext(ctx, "tenant lookup failed",
					slog.String("identifier", identifier),
					slog.Any("error", err),
				)
				cfg.errorHandler(w, r, err)
			default:
				ctx = WithResolution(ctx, Resolution{Identifier: identifier, Found: true})
				ctx = WithTenant(ctx, t)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func (c *config) skip(path string) bool {
	if c.skipRoot && path == "/" {
		return true
	}
	for _, p := range c.skipPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}
