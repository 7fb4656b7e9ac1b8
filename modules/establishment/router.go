package establishment

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xamu/xamu/handler"
	"github.com/xamu/xamu/pkg/binder"
	"github.com/xamu/xamu/pkg/clientip"
	"github.com/xamu/xamu/pkg/environment"
	"github.com/xamu/xamu/pkg/httpserver"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/ratelimiter"
	"github.com/xamu/xamu/pkg/requestid"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
	"github.com/xamu/xamu/svc/directory"
	"github.com/xamu/xamu/svc/invitation"
)

// Directory is the tenant registry as used by the admin API.
type Directory interface {
	Create(ctx context.Context, in directory.NewTenant) (*tenant.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	List(ctx context.Context, q directory.ListQuery) ([]*tenant.Tenant, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*tenant.Tenant, error)
	ChangeDomain(ctx context.Context, id uuid.UUID, domain string) (*tenant.Tenant, error)
	Activate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// Accounts is the user store as used by the HTTP layer.
type Accounts interface {
	Authenticate(ctx context.Context, email, password string) (*account.User, error)
	AuthenticatePlatformAdmin(ctx context.Context, email, password string) (*account.User, error)
	List(ctx context.Context, q account.UserQuery) ([]*account.User, error)
	ListAllTenants(ctx context.Context, c access.CrossTenant, q account.UserQuery) ([]*account.User, error)
}

// Invitations is the invitation service as used by the HTTP layer.
type Invitations interface {
	Issue(ctx context.Context, tenantID uuid.UUID, email string, issuedBy uuid.UUID) (*invitation.Issued, error)
	Validate(ctx context.Context, tenantCode, token string) (*invitation.Invitation, error)
	Redeem(ctx context.Context, tenantCode, token string, r invitation.Redemption) (*account.User, error)
	Revoke(ctx context.Context, id uuid.UUID) (*invitation.Invitation, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*invitation.Invitation, error)
}

// Metrics is the instrumentation the router mounts.
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Deps are the collaborators of the router.
type Deps struct {
	Directory   Directory
	Accounts    Accounts
	Invitations Invitations
	Sessions    *access.Sessions
	Guard       *access.Guard
	Lookup      *tenant.Lookup
	// Resolver defaults to the first path segment.
	Resolver    tenant.Resolver
	Metrics     Metrics
	Environment environment.Environment
	// ClientIP defaults to RemoteAddr only.
	ClientIP *clientip.Resolver
	// Limiter throttles sign-in and invitation routes per client address.
	// Nil disables throttling.
	Limiter      *ratelimiter.Bucket
	HealthChecks map[string]httpserver.Check
	Logger       *slog.Logger
}

type module struct {
	Deps
	fail handler.ErrorHandler
}

var (
	bindJSON  handler.Bind = binder.JSON()
	bindForm  handler.Bind = binder.Form()
	bindQuery handler.Bind = binder.Query()
	bindPath  handler.Bind = binder.Path(chi.URLParam)
)

// Router builds the application handler.
func Router(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Resolver == nil {
		d.Resolver = tenant.PathResolver(1)
	}
	if d.ClientIP == nil {
		d.ClientIP = clientip.New()
	}
	m := &module{Deps: d, fail: handler.NewErrorHandler(d.Logger, Classify)}
	deny := access.DenyHandler(d.Directory)
	guard := func(route access.Route) func(http.Handler) http.Handler {
		return d.Guard.Require(route, deny)
	}

	throttle := func(name string) func(http.Handler) http.Handler {
		if d.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimiter.Middleware(d.Limiter,
			ratelimiter.Composite(ratelimiter.Static(name), tenantCode, clientip.Key),
			ratelimiter.WithOnLimit(func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
				m.fail(handler.NewContext(w, r), errRateLimited)
			}),
		)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(d.ClientIP.Middleware)
	r.Use(environment.Middleware(d.Environment))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(d.Sessions.Authenticate)
	r.Use(tenant.Middleware(d.Resolver, d.Lookup,
		tenant.WithLogger(d.Logger),
		tenant.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			m.fail(handler.NewContext(w, r), err)
		}),
	))

	r.Get("/healthz", httpserver.HealthHandler(d.Logger, 2*time.Second, d.HealthChecks))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/", wrap(m, m.home))

	r.Route("/admin", func(r chi.Router) {
		r.With(throttle("admin-login")).Post("/login", wrap(m, m.adminLogin, bindJSON, bindForm))
		r.Post("/logout", wrap(m, m.logout))

		r.Group(func(r chi.Router) {
			r.Use(guard(access.Route{Permission: access.PermTenantsManage}))
			r.Get("/tenants", wrap(m, m.listTenants, bindQuery))
			r.Post("/tenants", wrap(m, m.createTenant, bindJSON, bindForm))
			r.Post("/tenants/{id}/rename", wrap(m, m.renameTenant, bindJSON, bindForm, bindPath))
			r.Post("/tenants/{id}/domain", wrap(m, m.changeDomain, bindJSON, bindForm, bindPath))
			r.Post("/tenants/{id}/activate", wrap(m, m.activateTenant, bindPath))
			r.Post("/tenants/{id}/deactivate", wrap(m, m.deactivateTenant, bindPath))
		})
		r.Group(func(r chi.Router) {
			r.Use(guard(access.Route{Permission: access.PermInvite}))
			r.Post("/tenants/{id}/invitations", wrap(m, m.issueInvitation, bindJSON, bindForm, bindPath))
			r.Get("/tenants/{id}/invitations", wrap(m, m.listInvitations, bindPath))
			r.Post("/invitations/{id}/revoke", wrap(m, m.revokeInvitation, bindPath))
		})
		r.With(guard(access.Route{Permission: access.PermCrossTenant})).
			Get("/users", wrap(m, m.listAllUsers, bindQuery))
	})

	r.Route("/{tenant_code}", func(r chi.Router) {
		public := guard(access.Route{Tenant: true, Public: true})
		r.With(throttle("invitation"), public).Get("/invitations/{token}", wrap(m, m.showInvitation, bindPath))
		r.With(throttle("invitation"), public).Post("/invitations/{token}", wrap(m, m.redeemInvitation, bindJSON, bindForm, bindPath))
		r.With(throttle("login"), public).Post("/login", wrap(m, m.login, bindJSON, bindForm))
		r.With(public).Post("/logout", wrap(m, m.logout))

		r.With(guard(access.Route{Tenant: true})).Get("/", wrap(m, m.dashboard))
		r.With(guard(access.Route{Tenant: true, Permission: access.PermUsersManage})).
			Get("/users", wrap(m, m.listUsers, bindQuery))
	})

	return r
}

// wrap binds with binders in order and reports failures through the
// module's error handler.
func wrap[R any](m *module, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithErrorHandler[R](m.fail),
		handler.WithBinders[R](binders...),
	)
}

// noRequest is the request type of handlers that bind nothing.
type noRequest struct{}

// tenantCode is empty outside tenant routes.
func tenantCode(r *http.Request) string {
	return chi.URLParam(r, "tenant_code")
}

// wantsJSON reports whether the client sent JSON and so expects JSON back.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
