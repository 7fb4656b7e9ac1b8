// Package logger builds the structured slog.Logger shared by the
// application and the helpers that keep attribute names consistent.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.AppEnv, "xamu"),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//			access.LoggerExtractor(),
//			clientip.LoggerExtractor(),
//		),
//	)
//
// WithEnvironment picks debug text output for development and info JSON
// output anywhere else, and tags every record with service and env.
//
// # Context extractors
//
// A ContextExtractor reads one attribute from the context at log time. Use
// the *Context methods of slog so extractors see the request context:
//
//	log.InfoContext(ctx, "tenant created", logger.TenantID(t.ID))
//
// Records logged inside a tenant-bound request then carry request_id,
// tenant_id, user_id and client_ip without each call site adding them.
//
// # Attributes
//
// Error, Component, UserID, TenantID and Reason return empty attributes for
// nil values, which slog drops, so they can be passed unconditionally.
//
// Discard returns a logger that writes nothing, the default of every
// component that accepts a WithLogger option.
package logger
