// Package audit records security-relevant actions as append-only events.
//
// An Event names the action ("tenant.created", "scoped.all_tenants"), the
// tenant and actor it concerns, the affected resource, its Result and free
// metadata. A Logger fills tenant, actor and request ids from the context
// and hands the event to a Storage.
//
// # Storages
//
//   - MemoryStorage keeps events in process, for tests and single-node
//     setups without MongoDB.
//   - MongoStorage writes one document per event and can be queried.
//   - LogStorage writes events to a slog.Logger and cannot be queried.
//
// # Usage
//
//	log := audit.NewLogger(audit.NewMongoStorage(db, audit.DefaultCollection),
//		audit.WithTenantIDExtractor(tenantID),
//		audit.WithActorIDExtractor(actorID),
//		audit.WithRequestIDExtractor(requestID),
//	)
//
//	err := log.Log(ctx, "invitation.issued",
//		audit.WithResource("invitation", inv.ID.String()),
//		audit.WithMetadata("email", inv.Email),
//	)
//
// Callers that must not proceed without a trail, such as cross-tenant
// reads, treat a Log error as a refusal.
//
// # Querying
//
//	events, err := log.Find(ctx, audit.Filter{Action: "scoped.all_tenants", Limit: 50})
//
// Results are newest first; zero Filter fields match everything.
//
// # Errors
//
// Log returns ErrEventValidation for events without an action and
// ErrStorageNotAvailable from storages that cannot serve the call.
package audit
