package tenant

import (
	"log/slog"
	"net/http"
)

// ErrorHandler writes the response when resolution fails for reasons other
// than a miss. Misses are left to the access guard.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultSkipPaths are global routes that never carry a tenant.
var DefaultSkipPaths = []string{
	"/admin/",
	"/static/",
	"/media/",
	"/favicon.ico",
	"/healthz",
	"/metrics",
}

type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
	skipRoot     bool
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) { c.errorHandler = h }
}

// WithSkipPaths replaces the default skip list. Entries ending in "/" match
// as prefixes, others match exactly.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) { c.skipPaths = paths }
}

// WithRootTenantless controls whether "/" is a global route. Defaults to true.
func WithRootTenantless(skip bool) Option {
	return func(c *config) { c.skipRoot = skip }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
