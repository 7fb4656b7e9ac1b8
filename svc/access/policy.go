package access

import (
	"context"
	_ "embed"

	"github.com/xamu/xamu/pkg/rbac"
)

// Permissions checked by the guard and the HTTP layer.
const (
	PermTenantAccess   = "tenant.access"
	PermUsersManage    = "users.manage"
	PermPlatformAccess = "platform.access"
	PermTenantsManage  = "platform.tenants.manage"
	PermInvite         = "platform.invitations.manage"
	PermCrossTenant    = "platform.cross_tenant"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy is the capability table keyed by role.
type Policy struct {
	auth *rbac.Authorizer
}

// LoadPolicy builds the embedded capability table.
func LoadPolicy(ctx context.Context) (*Policy, error) {
	return NewPolicy(ctx, rbac.NewYAMLRoleSource(defaultPolicy))
}

// NewPolicy loads the role table from source.
func NewPolicy(ctx context.Context, source rbac.RoleSource) (*Policy, error) {
	auth, err := rbac.NewAuthorizer(ctx, source)
	if err != nil {
		return nil, err
	}
	return &Policy{auth: auth}, nil
}

// MustLoadPolicy is LoadPolicy that panics on a broken embedded table.
func MustLoadPolicy() *Policy {
	p, err := LoadPolicy(context.Background())
	if err != nil {
		panic(err)
	}
	return p
}

// Can reports whether role grants permission.
func (p *Policy) Can(role Role, permission string) bool {
	return p.auth.Can(string(role), permission) == nil
}

func (p *Policy) Permissions(role Role) []string {
	return p.auth.Permissions(string(role))
}
