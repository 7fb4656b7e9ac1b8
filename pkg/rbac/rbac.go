package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidRole             = errors.New("rbac.invalid_role")
	ErrInsufficientPermissions = errors.New("rbac.insufficient_permissions")
	ErrCircularInheritance     = errors.New("rbac.circular_inheritance")
	ErrUnknownParent           = errors.New("rbac.unknown_parent_role")
)

// MaxInheritanceDepth bounds how deep role inheritance may nest.
const MaxInheritanceDepth = 10

// Role grants permissions directly and through the roles it inherits.
type Role struct {
	Permissions []string `yaml:"permissions"`
	Inherits    []string `yaml:"inherits"`
}

// RoleSource supplies the role table.
type RoleSource interface {
	Load(ctx context.Context) (map[string]Role, error)
}

// Authorizer answers permission questions against a role table flattened at
// construction. It is immutable and safe for concurrent use.
type Authorizer struct {
	permissions map[string][]string
}

// NewAuthorizer loads roles from source and resolves inheritance.
func NewAuthorizer(ctx context.Context, source RoleSource) (*Authorizer, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	a := &Authorizer{permissions: make(map[string][]string, len(roles))}
	for name := range roles {
		perms, err := collect(name, roles, nil)
		if err != nil {
			return nil, err
		}
		slices.Sort(perms)
		a.permissions[name] = slices.Compact(perms)
	}
	return a, nil
}

func collect(name string, roles map[string]Role, path []string) ([]string, error) {
	if slices.Contains(path, name) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularInheritance, strings.Join(path, " -> "), name)
	}
	if len(path) > MaxInheritanceDepth {
		return nil, fmt.Errorf("%w: depth exceeds %d", ErrCircularInheritance, MaxInheritanceDepth)
	}
	role, ok := roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParent, name)
	}

	perms := slices.Clone(role.Permissions)
	for _, parent := range role.Inherits {
		inherited, err := collect(parent, roles, append(path, name))
		if err != nil {
			return nil, err
		}
		perms = append(perms, inherited...)
	}
	return perms, nil
}

// Can returns nil when role holds permission, directly or by wildcard.
func (a *Authorizer) Can(role, permission string) error {
	perms, ok := a.permissions[role]
	if !ok {
		return ErrInvalidRole
	}
	if !slices.ContainsFunc(perms, func(p string) bool { return matches(p, permission) }) {
		return ErrInsufficientPermissions
	}
	return nil
}

// CanAll requires every permission.
func (a *Authorizer) CanAll(role string, permissions ...string) error {
	for _, p := range permissions {
		if err := a.Can(role, p); err != nil {
			return err
		}
	}
	return nil
}

// VerifyRole reports whether role exists in the table.
func (a *Authorizer) VerifyRole(role string) error {
	if _, ok := a.permissions[role]; !ok {
		return ErrInvalidRole
	}
	return nil
}

// Permissions returns the flattened permissions of role.
func (a *Authorizer) Permissions(role string) []string {
	return slices.Clone(a.permissions[role])
}

// matches supports "*" and trailing ".*" wildcards: "users.*" grants
// "users.manage" but not "users".
func matches(granted, required string) bool {
	if granted == "*" || granted == required {
		return true
	}
	prefix, ok := strings.CutSuffix(granted, ".*")
	return ok && strings.HasPrefix(required, prefix+".")
}
