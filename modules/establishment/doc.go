// Package establishment is the HTTP surface: platform administration under
// /admin, tenant routes under /{tenant_code}, and global endpoints.
//
// Every request passes, in order, through request ids, client address
// resolution, the environment, metrics, session authentication and tenant
// resolution. Each route group then runs the access guard with its own
// Route before any handler code.
//
// # Routes
//
//	GET  /healthz                              readiness
//	GET  /metrics                              Prometheus, when configured
//	POST /admin/login                          platform administrator sign-in
//	GET  /admin/tenants                        platform.tenants.manage
//	POST /admin/tenants                        platform.tenants.manage
//	POST /admin/tenants/{id}/rename            platform.tenants.manage
//	POST /admin/tenants/{id}/domain            platform.tenants.manage
//	POST /admin/tenants/{id}/activate          platform.tenants.manage
//	POST /admin/tenants/{id}/deactivate        platform.tenants.manage
//	POST /admin/tenants/{id}/invitations       platform.invitations.manage
//	GET  /admin/tenants/{id}/invitations       platform.invitations.manage
//	POST /admin/invitations/{id}/revoke        platform.invitations.manage
//	GET  /admin/users                          cross-tenant, audited
//	GET  /{tenant_code}/invitations/{token}    public
//	POST /{tenant_code}/invitations/{token}    public, redeems
//	POST /{tenant_code}/login                  public
//	GET  /{tenant_code}/                       any tenant member
//	GET  /{tenant_code}/users                  users.manage
//
// Sign-in and invitation routes are throttled per tenant code and client
// address when Deps.Limiter is set.
//
// # Responses
//
// Handler errors are mapped to status codes by Classify and rendered as
// JSON carrying the request id. Guard denials render the HTML pages of
// svc/access, or redirect cross-tenant callers to their own tenant. Token
// failures on the invitation routes are reported as one 410 whatever the
// cause.
package establishment
