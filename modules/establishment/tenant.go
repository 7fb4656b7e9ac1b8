package establishment

import (
	"net/http"

	"github.com/xamu/xamu/handler"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/invitation"
)

type invitationRequest struct {
	Code  string `path:"tenant_code" json:"-" form:"-" validate:"required"`
	Token string `path:"token" json:"-" form:"-" validate:"required,max=256"`
}

type redeemRequest struct {
	invitation.Redemption
	Code  string `path:"tenant_code" json:"-" form:"-" validate:"required"`
	Token string `path:"token" json:"-" form:"-" validate:"required,max=256"`
}

// invitationView is what an invitee sees before redeeming. It leaves out
// the tenant id and the issuer.
type invitationView struct {
	Tenant    string `json:"tenant"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

type dashboardResponse struct {
	Tenant      *tenant.Tenant    `json:"tenant"`
	Principal   *access.Principal `json:"principal"`
	Permissions []string          `json:"permissions"`
}

func (m *module) home(ctx handler.Context, _ noRequest) handler.Response {
	return handler.Templ(homePage(), http.StatusOK)
}

// showInvitation validates the token without consuming it. Every failure
// becomes the same public error.
func (m *module) showInvitation(ctx handler.Context, req invitationRequest) handler.Response {
	inv, err := m.Invitations.Validate(ctx, req.Code, req.Token)
	if err != nil {
		return handler.Error(invitation.PublicError(err))
	}
	t := tenant.MustFromContext(ctx)
	view := invitationView{
		Tenant:    t.Name,
		Email:     inv.Email,
		ExpiresAt: inv.ExpiresAt.UTC().Format(http.TimeFormat),
	}
	if wantsJSON(ctx.Request()) {
		return handler.JSON(view)
	}
	return handler.Templ(invitationPage(view, ctx.Request().URL.Path), http.StatusOK)
}

// redeemInvitation creates the account and signs it in.
func (m *module) redeemInvitation(ctx handler.Context, req redeemRequest) handler.Response {
	u, err := m.Invitations.Redeem(ctx, req.Code, req.Token, req.Redemption)
	if err != nil {
		return handler.Error(invitation.PublicError(err))
	}
	t := tenant.MustFromContext(ctx)
	return m.signIn(ctx, u, t.BasePath(), http.StatusCreated)
}

func (m *module) login(ctx handler.Context, req loginRequest) handler.Response {
	u, err := m.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return handler.Error(err)
	}
	return m.signIn(ctx, u, tenant.MustFromContext(ctx).BasePath(), http.StatusOK)
}

// dashboard lists what the principal may do in the current tenant.
func (m *module) dashboard(ctx handler.Context, _ noRequest) handler.Response {
	p, _ := access.PrincipalFromContext(ctx)
	return handler.JSON(dashboardResponse{
		Tenant:      tenant.MustFromContext(ctx),
		Principal:   p,
		Permissions: m.Guard.Policy().Permissions(p.Role),
	})
}

// listUsers reads through the scoped store, so only the ambient tenant's
// users are visible.
func (m *module) listUsers(ctx handler.Context, req listUsersRequest) handler.Response {
	q, err := req.query()
	if err != nil {
		return handler.Error(err)
	}
	users, err := m.Accounts.List(ctx, q)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(users)
}
