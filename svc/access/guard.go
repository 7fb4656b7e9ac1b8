package access

import (
	"context"
	"log/slog"

	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/tenant"
)

// Route describes what a handler needs.
type Route struct {
	// Tenant marks routes that run against the resolved tenant.
	Tenant bool
	// Public tenant routes skip authentication, e.g. invitation redemption.
	Public bool
	// CrossTenantAdmin lets platform administrators through a tenant route.
	CrossTenantAdmin bool
	// Permission required of the principal. Tenant routes default to
	// tenant.access.
	Permission string
}

// Reason explains a Decision in logs and metrics.
type Reason string

const (
	ReasonAllowed             Reason = "allowed"
	ReasonGlobal              Reason = "global"
	ReasonTenantNotFound      Reason = "tenant_not_found"
	ReasonTenantInactive      Reason = "tenant_inactive"
	ReasonPlatformAdminDenied Reason = "platform_admin_denied"
	ReasonCrossTenantDenied   Reason = "cross_tenant_denied"
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonForbidden           Reason = "forbidden"
)

// Decision is the guard's verdict on one request.
type Decision struct {
	Allowed   bool
	Reason    Reason
	Tenant    *tenant.Tenant
	Principal *Principal
}

// Guard evaluates routes against the ambient tenant and principal.
type Guard struct {
	policy  *Policy
	log     *slog.Logger
	observe func(Decision)
}

type GuardOption func(*Guard)

func WithGuardLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) { g.log = l }
}

// WithDecisionObserver is called with every decision.
func WithDecisionObserver(fn func(Decision)) GuardOption {
	return func(g *Guard) { g.observe = fn }
}

// NewGuard checks permissions against policy.
func NewGuard(policy *Policy, opts ...GuardOption) *Guard {
	g := &Guard{policy: policy, log: logger.Discard()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Policy() *Policy { return g.policy }

// Decide runs the per-request checks in order: global routes, tenant
// resolution, tenant activity, platform administrators, tenant membership,
// then authentication and permission.
func (g *Guard) Decide(ctx context.Context, route Route) Decision {
	d := g.decide(ctx, route)
	if g.observe != nil {
		g.observe(d)
	}
	if !d.Allowed {
		g.log.DebugContext(ctx, "access denied", logger.Reason(string(d.Reason)))
	}
	return d
}

func (g *Guard) decide(ctx context.Context, route Route) Decision {
	p, authenticated := PrincipalFromContext(ctx)
	d := Decision{Principal: p}

	if !route.Tenant {
		return g.decideGlobal(d, route, authenticated)
	}

	t, ok := tenant.FromContext(ctx)
	if !ok {
		return deny(d, ReasonTenantNotFound)
	}
	d.Tenant = t
	if !t.Active {
		return deny(d, ReasonTenantInactive)
	}

	if authenticated && p.IsPlatformAdmin() {
		if route.CrossTenantAdmin && g.policy.Can(p.Role, PermCrossTenant) {
			return allow(d, ReasonAllowed)
		}
		return deny(d, ReasonPlatformAdminDenied)
	}
	if authenticated && p.TenantID != t.ID {
		return deny(d, ReasonCrossTenantDenied)
	}
	if route.Public {
		return allow(d, ReasonAllowed)
	}
	if !authenticated {
		return deny(d, ReasonUnauthenticated)
	}

	perm := route.Permission
	if perm == "" {
		perm = PermTenantAccess
	}
	if !g.policy.Can(p.Role, perm) {
		return deny(d, ReasonForbidden)
	}
	return allow(d, ReasonAllowed)
}

func (g *Guard) decideGlobal(d Decision, route Route, authenticated bool) Decision {
	if route.Permission == "" {
		return allow(d, ReasonGlobal)
	}
	if !authenticated {
		return deny(d, ReasonUnauthenticated)
	}
	if !g.policy.Can(d.Principal.Role, route.Permission) {
		return deny(d, ReasonForbidden)
	}
	return allow(d, ReasonGlobal)
}

func allow(d Decision, r Reason) Decision {
	d.Allowed, d.Reason = true, r
	return d
}

func deny(d Decision, r Reason) Decision {
	d.Allowed, d.Reason = false, r
	return d
}
