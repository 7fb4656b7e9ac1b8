package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrCrossTenantForbidden = errors.New("access: cross-tenant access forbidden")

// CrossTenant is the capability required by "all tenants" accessors. Its
// fields are unexported, so a usable value only comes from Guard.CrossTenant
// or SystemCrossTenant.
type CrossTenant struct {
	actor  string
	reason string
}

func (c CrossTenant) Actor() string  { return c.actor }
func (c CrossTenant) Reason() string { return c.reason }

// Valid reports whether c was issued by this package.
func (c CrossTenant) Valid() bool { return c.actor != "" && c.reason != "" }

// CrossTenant grants the capability to the platform administrator in ctx.
func (g *Guard) CrossTenant(ctx context.Context, reason string) (CrossTenant, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || !p.IsPlatformAdmin() || !g.policy.Can(p.Role, PermCrossTenant) {
		return CrossTenant{}, ErrCrossTenantForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return CrossTenant{}, fmt.Errorf("%w: reason is required", ErrCrossTenantForbidden)
	}
	return CrossTenant{actor: "user:" + p.UserID.String(), reason: reason}, nil
}

// SystemCrossTenant grants the capability to operator tooling such as the
// CLI and the scheduler. Do not call it from request handlers.
func SystemCrossTenant(actor, reason string) CrossTenant {
	if actor == "" || reason == "" {
		panic("access: system cross-tenant capability needs an actor and a reason")
	}
	return CrossTenant{actor: "system:" + actor, reason: reason}
}
