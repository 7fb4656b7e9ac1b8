// Package rbac maps roles to permissions with inheritance and wildcard
// grants. Roles come from a RoleSource (in memory or YAML) and are flattened
// once, so checks are plain slice lookups.
//
// # Role tables
//
// A role lists its own permissions and may inherit others:
//
//	tenant-admin:
//	  inherits: [supervisor]
//	  permissions: [users.manage, invitations.manage]
//	supervisor:
//	  inherits: [teacher]
//	  permissions: [absences.manage]
//
// A permission ending in ".*" grants everything under that prefix and "*"
// grants everything. Inheritance cycles and references to unknown roles
// are rejected when the Authorizer is built.
//
// # Usage
//
//	auth, err := rbac.NewAuthorizer(ctx, rbac.NewYAMLRoleSource(data))
//	if err != nil {
//		return err
//	}
//	if err := auth.Can("teacher", "absences.create"); err != nil {
//		// not granted
//	}
//
// # Errors
//
// Can returns ErrInvalidRole for roles missing from the table and
// ErrInsufficientPermissions otherwise. NewAuthorizer fails with
// ErrCircularInheritance or ErrUnknownParent.
package rbac
