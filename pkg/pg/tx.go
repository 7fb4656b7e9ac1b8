package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xamu/xamu/pkg/tenant"
)

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Conn returns the transaction carried by ctx, or pool when there is none.
// Stores call it on every query so they join an enclosing InTx.
func Conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// Transactor runs units of work in a single transaction.
type Transactor struct {
	pool       *pgxpool.Pool
	enforceRLS bool
}

// NewTransactor sets app.current_tenant in each transaction when
// cfg.EnforceRLS is on.
func NewTransactor(pool *pgxpool.Pool, cfg Config) *Transactor {
	return &Transactor{pool: pool, enforceRLS: cfg.EnforceRLS}
}

// InTx runs fn inside a transaction. Nested calls join the outer
// transaction. When ctx carries a tenant, app.current_tenant is set for the
// transaction so row-level security policies apply.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := t.applyTenant(txCtx, tx); err != nil {
		return errors.Join(err, tx.Rollback(ctx))
	}
	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			return errors.Join(err, rErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Transactor) applyTenant(ctx context.Context, tx pgx.Tx) error {
	if !t.enforceRLS {
		return nil
	}
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return nil
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_tenant', $1, true)", id.String()); err != nil {
		return fmt.Errorf("set rls tenant: %w", err)
	}
	return nil
}
