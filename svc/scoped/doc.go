// Package scoped restricts data access to the ambient tenant.
//
// A Repo wraps a Backend whose methods take the tenant explicitly. Every Repo
// method reads the tenant from the context, so callers cannot forget the
// filter and cannot pass the wrong one:
//
//	users := scoped.NewRepo[*User, UserQuery](backend, scoped.WithResource("user"))
//	err := tenant.Run(ctx, t, func(ctx context.Context) error {
//		list, err := users.Find(ctx, UserQuery{Role: "teacher"})
//		...
//	})
//
// Without an ambient tenant every method fails with ErrMissingAmbientContext.
// In development the condition panics instead, so it is caught early.
//
// # Ownership
//
// Insert stamps the entity with the ambient tenant and refuses one already
// owned by another tenant. Update refuses to move an entity between
// tenants. Get, Update and Delete report rows of other tenants as
// ErrNotFound, the same as rows that do not exist, and Find drops any
// foreign row a misbehaving backend returns.
//
// # Cross-tenant access
//
// Cross-tenant reads go through AllTenants, which needs an
// access.CrossTenant capability and writes every call to the audit log:
//
//	all, err := users.AllTenants(ctx, access.SystemCrossTenant("reports", "monthly usage"))
//	if err != nil {
//		return err
//	}
//	list, err := all.Find(ctx, UserQuery{})
//
// Each call emits a "scoped.all_tenants" event carrying the operation, the
// actor and the stated reason. If that event cannot be stored the call is
// refused.
//
// # Backends
//
// MemoryBackend serves tests and single-node setups, and registers undo
// steps with pkg/memtx. Postgres backends filter on tenant_id in SQL and
// are additionally covered by row-level security.
package scoped
