package access

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Principal is the authenticated caller. TenantID is uuid.Nil for platform
// administrators.
type Principal struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	TenantID uuid.UUID `json:"tenant_id"`
}

// IsPlatformAdmin is false for a nil principal.
func (p *Principal) IsPlatformAdmin() bool {
	return p != nil && p.Role == RolePlatformAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// ActorID returns the caller's user id for audit records.
func ActorID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}
	return p.UserID.String(), true
}

func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		p, ok := PrincipalFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("principal",
			slog.String("user_id", p.UserID.String()),
			slog.String("role", string(p.Role)),
		), true
	}
}
