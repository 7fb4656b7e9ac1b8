// Package mongo connects the MongoDB deployment that stores the audit trail.
//
// MongoDB is optional. When Config.ConnectionURL is empty, Config.Enabled
// reports false and the application keeps audit events in process instead.
//
// # Usage
//
//	if cfg.Enabled() {
//		db, err := mongo.Connect(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		defer db.Client().Disconnect(context.WithoutCancel(ctx))
//
//		storage := audit.NewMongoStorage(db, audit.DefaultCollection)
//		checks["mongo"] = mongo.Healthcheck(db)
//	}
//
// Connect retries until the deployment answers a ping, RetryAttempts times
// RetryInterval apart. Reads and writes are retried by the driver.
//
// # Errors
//
// Connect joins ErrFailedToConnectToMongo with the last driver error, or
// with the context error when ctx ends first. Healthcheck wraps ping
// failures in ErrHealthcheckFailed.
package mongo
