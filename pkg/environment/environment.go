// Package environment carries the deployment environment through request
// contexts so code can behave more strictly in development.
package environment

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Environment names the deployment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse accepts the long names and their short forms. Unknown values are
// treated as production, the strictest degradation mode.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev", "local", "test":
		return Development
	case "staging", "stage":
		return Staging
	default:
		return Production
	}
}

type contextKey struct{}

// WithContext stores env in ctx.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the environment, or "" when none was set.
func FromContext(ctx context.Context) Environment {
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

func IsDevelopment(ctx context.Context) bool { return FromContext(ctx) == Development }
func IsProduction(ctx context.Context) bool  { return FromContext(ctx) == Production }

// Middleware attaches env to every request context.
func Middleware(env Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), env)))
		})
	}
}

func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if env := FromContext(ctx); env != "" {
			return slog.String("env", string(env)), true
		}
		return slog.Attr{}, false
	}
}
