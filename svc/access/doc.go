// Package access decides who may do what, and where.
//
// A Principal is the authenticated caller, attached to the request by
// Sessions.Authenticate. The Guard combines it with the tenant resolved by
// pkg/tenant and the capability table in policy.yaml:
//
//	guard := access.NewGuard(access.MustLoadPolicy())
//	r.With(guard.Require(access.Route{Tenant: true, Permission: access.PermUsersManage},
//		access.DenyHandler(directory))).Get("/{code}/users", listUsers)
//
// Cross-tenant reads need a CrossTenant capability. Handlers get one from
// Guard.CrossTenant, which only succeeds for platform administrators.
//
// # Sessions
//
// Sessions are HMAC-signed tokens carried in an HttpOnly cookie or as a
// bearer token. They name the user, role and tenant at sign-in time. With
// WithPrincipalLoader every request reloads the principal from storage, so
// a role change or a deleted account takes effect on the next request
// instead of at token expiry:
//
//	sessions, err := access.NewSessions(cfg, access.WithPrincipalLoader(accounts))
//	r.Use(sessions.Authenticate)
//
// # Guard decisions
//
// For a tenant route the Guard requires a resolved, active tenant and a
// principal belonging to it. Platform administrators are kept out of
// tenant routes unless the Route sets CrossTenantAdmin. A tenant user
// presenting a session for another tenant is denied with
// ReasonCrossTenantDenied. Global routes skip the tenant checks. Every
// Decision carries a Reason for logs and metrics, and denials are handed
// to a DenyFunc such as DenyHandler.
//
// # Roles
//
// Tenant users hold exactly one of RoleTenantAdmin, RoleSupervisor,
// RoleTeacher or RoleGuardian. RolePlatformAdmin belongs to no tenant.
package access
