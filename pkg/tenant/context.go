package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type (
	tenantKey     struct{}
	resolutionKey struct{}
)

// Resolution records what the middleware saw for a request, so the access
// guard can tell a global request from a tenant request that matched nothing.
type Resolution struct {
	Identifier string
	Found      bool
}

// WithTenant returns a context carrying t. A nil t masks any tenant
// inherited from the parent context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// Without returns a context in which no tenant is visible.
func Without(ctx context.Context) context.Context {
	return WithTenant(ctx, nil)
}

// FromContext returns the ambient tenant.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*Tenant)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// IDFromContext returns the ambient tenant ID.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return t.ID, true
}

// MustFromContext panics when no tenant is set.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// Run calls fn with t as the ambient tenant. The override lives only in the
// derived context, so the caller's tenant (or its absence) is untouched when
// fn returns. Background jobs use this instead of rediscovering ambient state.
func Run(ctx context.Context, t *Tenant, fn func(ctx context.Context) error) error {
	if t == nil {
		return ErrNoTenantInContext
	}
	return fn(WithTenant(ctx, t.Clone()))
}

// WithResolution stores the middleware outcome.
func WithResolution(ctx context.Context, r Resolution) context.Context {
	return context.WithValue(ctx, resolutionKey{}, r)
}

// ResolutionFromContext returns the middleware outcome, if resolution ran.
func ResolutionFromContext(ctx context.Context) (Resolution, bool) {
	r, ok := ctx.Value(resolutionKey{}).(Resolution)
	return r, ok
}

// LoggerExtractor adds tenant attributes to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		t, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("tenant",
			slog.String("id", t.ID.String()),
			slog.String("code", t.Code),
		), true
	}
}
