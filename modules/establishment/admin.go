package establishment

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/xamu/xamu/handler"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
	"github.com/xamu/xamu/svc/directory"
	"github.com/xamu/xamu/svc/invitation"
)

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,max=128"`
}

// sessionResponse carries the token for clients that send it as a bearer.
type sessionResponse struct {
	User  *account.User `json:"user"`
	Token string        `json:"token"`
}

type tenantIDRequest struct {
	ID uuid.UUID `path:"id" json:"-" form:"-" validate:"required"`
}

type renameTenantRequest struct {
	ID   uuid.UUID `path:"id" json:"-" form:"-" validate:"required"`
	Name string    `json:"name" form:"name" validate:"required,max=200"`
}

type changeDomainRequest struct {
	ID     uuid.UUID `path:"id" json:"-" form:"-" validate:"required"`
	Domain string    `json:"domain" form:"domain" validate:"omitempty,fqdn"`
}

type listTenantsRequest struct {
	Active *bool `query:"active"`
	Limit  int   `query:"limit" validate:"omitempty,min=1,max=500"`
}

type issueInvitationRequest struct {
	ID    uuid.UUID `path:"id" json:"-" form:"-" validate:"required"`
	Email string    `json:"email" form:"email" validate:"required,email,max=254"`
}

// issuedResponse shows the plaintext token and link once, to the issuer.
type issuedResponse struct {
	Invitation *invitation.Invitation `json:"invitation"`
	Token      string                 `json:"token"`
	URL        string                 `json:"url"`
}

type listUsersRequest struct {
	Role  string `query:"role" validate:"omitempty,max=50"`
	Email string `query:"email" validate:"omitempty,max=254"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

// query rejects unknown roles and folds the email filter.
func (q listUsersRequest) query() (account.UserQuery, error) {
	out := account.UserQuery{Limit: q.Limit}
	if q.Role != "" {
		role, err := access.ParseRole(q.Role)
		if err != nil {
			return out, err
		}
		out.Role = role
	}
	if q.Email != "" {
		out.EmailKey = account.EmailKey(q.Email)
	}
	return out, nil
}

// adminLogin signs in platform admins only. Tenant users get
// ErrInvalidCredentials here.
func (m *module) adminLogin(ctx handler.Context, req loginRequest) handler.Response {
	u, err := m.Accounts.AuthenticatePlatformAdmin(ctx, req.Email, req.Password)
	if err != nil {
		return handler.Error(err)
	}
	return m.signIn(ctx, u, "/admin/", http.StatusOK)
}

// signIn issues the session cookie and answers with the token for API
// clients, with status, or a redirect to home for browsers.
func (m *module) signIn(ctx handler.Context, u *account.User, home string, status int) handler.Response {
	p := u.Principal()
	tok, err := m.Sessions.Token(p)
	if err != nil {
		return handler.Error(err)
	}
	if err := m.Sessions.Issue(ctx.ResponseWriter(), p); err != nil {
		return handler.Error(err)
	}
	if wantsJSON(ctx.Request()) {
		return handler.JSON(sessionResponse{User: u, Token: tok}, handler.WithJSONStatus(status))
	}
	return handler.Redirect(home)
}

// logout clears the cookie and sends browsers back to the tenant home, or
// to / on global routes.
func (m *module) logout(ctx handler.Context, _ noRequest) handler.Response {
	m.Sessions.Clear(ctx.ResponseWriter())
	if wantsJSON(ctx.Request()) {
		return handler.Empty()
	}
	home := "/"
	if t, ok := tenant.FromContext(ctx); ok {
		home = t.BasePath()
	}
	return handler.Redirect(home)
}

func (m *module) listTenants(ctx handler.Context, req listTenantsRequest) handler.Response {
	tenants, err := m.Directory.List(ctx, directory.ListQuery{Active: req.Active, Limit: req.Limit})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(tenants)
}

func (m *module) createTenant(ctx handler.Context, req directory.NewTenant) handler.Response {
	t, err := m.Directory.Create(ctx, req)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(t, handler.WithJSONStatus(http.StatusCreated))
}

func (m *module) renameTenant(ctx handler.Context, req renameTenantRequest) handler.Response {
	return tenantResponse(m.Directory.Rename(ctx, req.ID, req.Name))
}

func (m *module) changeDomain(ctx handler.Context, req changeDomainRequest) handler.Response {
	return tenantResponse(m.Directory.ChangeDomain(ctx, req.ID, req.Domain))
}

func (m *module) activateTenant(ctx handler.Context, req tenantIDRequest) handler.Response {
	return tenantResponse(m.Directory.Activate(ctx, req.ID))
}

// deactivateTenant also revokes the tenant's pending invitations through
// the directory hook.
func (m *module) deactivateTenant(ctx handler.Context, req tenantIDRequest) handler.Response {
	return tenantResponse(m.Directory.Deactivate(ctx, req.ID))
}

func tenantResponse(t *tenant.Tenant, err error) handler.Response {
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(t)
}

// issueInvitation records the signed-in admin as the issuer.
func (m *module) issueInvitation(ctx handler.Context, req issueInvitationRequest) handler.Response {
	var issuer uuid.UUID
	if p, ok := access.PrincipalFromContext(ctx); ok {
		issuer = p.UserID
	}
	issued, err := m.Invitations.Issue(ctx, req.ID, req.Email, issuer)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(issuedResponse{
		Invitation: issued.Invitation,
		Token:      issued.Token,
		URL:        issued.URL,
	}, handler.WithJSONStatus(http.StatusCreated))
}

func (m *module) listInvitations(ctx handler.Context, req tenantIDRequest) handler.Response {
	invs, err := m.Invitations.List(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(invs)
}

func (m *module) revokeInvitation(ctx handler.Context, req tenantIDRequest) handler.Response {
	inv, err := m.Invitations.Revoke(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(inv)
}

// listAllUsers is the audited way to read users across every tenant.
func (m *module) listAllUsers(ctx handler.Context, req listUsersRequest) handler.Response {
	q, err := req.query()
	if err != nil {
		return handler.Error(err)
	}
	c, err := m.Guard.CrossTenant(ctx, "admin user listing")
	if err != nil {
		return handler.Error(err)
	}
	users, err := m.Accounts.ListAllTenants(ctx, c, q)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(users)
}
