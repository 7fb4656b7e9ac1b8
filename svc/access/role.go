package access

import (
	"errors"
	"fmt"
)

var ErrInvalidRole = errors.New("access: invalid role")

// Role is the single role a user holds.
type Role string

const (
	RoleTenantAdmin   Role = "tenant-admin"
	RoleSupervisor    Role = "supervisor"
	RoleTeacher       Role = "teacher"
	RoleGuardian      Role = "guardian"
	RolePlatformAdmin Role = "platform-admin"
)

// TenantRoles are the roles a tenant user may hold.
var TenantRoles = []Role{RoleTenantAdmin, RoleSupervisor, RoleTeacher, RoleGuardian}

// ParseRole accepts the tenant roles and RolePlatformAdmin.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if r != RolePlatformAdmin && !r.IsTenantRole() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) IsTenantRole() bool {
	switch r {
	case RoleTenantAdmin, RoleSupervisor, RoleTeacher, RoleGuardian:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
