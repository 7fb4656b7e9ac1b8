// Package pg wires PostgreSQL through pgx: pool setup with retries, embedded
// goose migrations, a context-carried transaction for stores, and helpers to
// classify constraint errors.
//
// Stores never hold a pgx.Tx themselves; they call Conn(ctx, pool) and join
// whatever transaction the caller opened with Transactor.InTx.
//
// # Connecting
//
// Connect parses Config.ConnectionString, applies the pool limits and pings
// the server, retrying RetryAttempts times RetryInterval apart:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
// Healthcheck returns a function suitable for the readiness endpoint.
//
// # Migrations
//
// The schema lives in the migrations subpackage as goose SQL files embedded
// into the binary. Migrate runs MigrateUp, MigrateDown or MigrateStatus and
// records the version in Config.MigrationsTable.
//
// # Transactions and row-level security
//
//	tx := pg.NewTransactor(pool, cfg)
//	err := tx.InTx(ctx, func(ctx context.Context) error {
//		if err := invitations.MarkAccepted(ctx, id, userID, now); err != nil {
//			return err
//		}
//		return users.Insert(ctx, u)
//	})
//
// Nested InTx calls join the outer transaction. With Config.EnforceRLS on and
// a tenant in ctx, InTx sets app.current_tenant for the transaction, and the
// policies created by the migrations hide rows of every other tenant. This
// is a second line of defence behind the scoped repositories.
//
// # Errors
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError
// classify driver errors; ConstraintName tells which unique index a
// duplicate violated. Connection problems are reported as
// ErrFailedToOpenDBConnection or ErrFailedToParseDBConfig joined with the
// cause.
package pg
