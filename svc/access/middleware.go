package access

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/tenant"
)

// DenyFunc writes the response for a denied request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Require runs the guard before next. Denied requests go to deny.
func (g *Guard) Require(route Route, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Decide(r.Context(), route)
			if !d.Allowed {
				deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TenantLocator finds a principal's home tenant for redirects.
type TenantLocator interface {
	Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// DenyHandler maps reasons to responses. Tenant-not-found and inactive
// tenants get the same page so neither state is revealed. Cross-tenant
// requests are sent to the principal's own tenant when locator can find it.
func DenyHandler(locator TenantLocator) DenyFunc {
	return func(w http.ResponseWriter, r *http.Request, d Decision) {
		switch d.Reason {
		case ReasonTenantNotFound, ReasonTenantInactive:
			renderPage(w, r, http.StatusNotFound, NoSuchEstablishmentPage())
		case ReasonPlatformAdminDenied:
			http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		case ReasonCrossTenantDenied:
			if home := homePath(r.Context(), locator, d.Principal); home != "" {
				http.Redirect(w, r, home, http.StatusSeeOther)
				return
			}
			renderPage(w, r, http.StatusForbidden, ForbiddenPage())
		case ReasonUnauthenticated:
			renderPage(w, r, http.StatusUnauthorized, SignInRequiredPage())
		default:
			renderPage(w, r, http.StatusForbidden, ForbiddenPage())
		}
	}
}

func homePath(ctx context.Context, locator TenantLocator, p *Principal) string {
	if locator == nil || p == nil || p.TenantID == uuid.Nil {
		return ""
	}
	t, err := locator.Get(tenant.Without(ctx), p.TenantID)
	if err != nil || !t.Active {
		return ""
	}
	return t.BasePath()
}
