package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xamu/xamu/pkg/pg"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/scoped"
)

const userColumns = `id, tenant_id, email, email_key, name, password_hash, role, created_at, updated_at`

var _ Backend = (*PgBackend)(nil)

// PgBackend stores users in Postgres. Every statement joins the
// transaction carried by the context.
type PgBackend struct {
	pool *pgxpool.Pool
}

// NewPgBackend uses pool, or the transaction bound to ctx by pg.Transactor.
func NewPgBackend(pool *pgxpool.Pool) *PgBackend {
	return &PgBackend{pool: pool}
}

// Get never matches a user of another tenant.
func (b *PgBackend) Get(ctx context.Context, tenantID, id uuid.UUID) (*User, error) {
	row := pg.Conn(ctx, b.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	u, err := scanUser(row)
	if pg.IsNotFoundError(err) {
		return nil, scoped.ErrNotFound
	}
	return u, err
}

func (b *PgBackend) Find(ctx context.Context, tenantID uuid.UUID, q UserQuery) ([]*User, error) {
	where, args := q.where([]string{"tenant_id = $1"}, []any{tenantID})
	return b.query(ctx, where, args, q.Limit)
}

// FindAll runs without a tenant filter. Only scoped.Unscoped calls it.
func (b *PgBackend) FindAll(ctx context.Context, q UserQuery) ([]*User, error) {
	where, args := q.where(nil, nil)
	return b.query(ctx, where, args, q.Limit)
}

// where appends the query filters to conds, numbering placeholders after
// the existing args.
func (q UserQuery) where(conds []string, args []any) (string, []any) {
	if q.Role != "" {
		args = append(args, string(q.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if q.EmailKey != "" {
		args = append(args, q.EmailKey)
		conds = append(conds, fmt.Sprintf("email_key = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (b *PgBackend) query(ctx context.Context, where string, args []any, limit int) ([]*User, error) {
	sql := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY email_key`
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := pg.Conn(ctx, b.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (b *PgBackend) Insert(ctx context.Context, u *User) error {
	_, err := pg.Conn(ctx, b.pool).Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, nullableTenant(u.TenantID), u.Email, u.EmailKey, u.Name, string(u.PasswordHash),
		string(u.Role), u.CreatedAt, u.UpdatedAt)
	return mapWriteError(err)
}

// Update reports scoped.ErrNotFound when the row belongs to another tenant.
func (b *PgBackend) Update(ctx context.Context, tenantID uuid.UUID, u *User) error {
	tag, err := pg.Conn(ctx, b.pool).Exec(ctx,
		`UPDATE users SET email = $3, email_key = $4, name = $5, password_hash = $6, role = $7, updated_at = $8
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, u.ID, u.Email, u.EmailKey, u.Name, string(u.PasswordHash), string(u.Role), u.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return scoped.ErrNotFound
	}
	return nil
}

func (b *PgBackend) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := pg.Conn(ctx, b.pool).Exec(ctx,
		`DELETE FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scoped.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u        User
		tenantID *uuid.UUID
		hash     string
		role     string
	)
	err := row.Scan(&u.ID, &tenantID, &u.Email, &u.EmailKey, &u.Name, &hash, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if tenantID != nil {
		u.TenantID = *tenantID
	}
	u.PasswordHash = []byte(hash)
	u.Role = access.Role(role)
	return &u, nil
}

// Platform admins have no tenant and are stored with a NULL tenant_id.
func nullableTenant(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// mapWriteError turns constraint violations into account errors.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pg.IsDuplicateKeyError(err) {
		switch pg.ConstraintName(err) {
		case "users_single_admin":
			return ErrDuplicateTenantAdmin
		case "users_tenant_email", "users_platform_email":
			return ErrDuplicateEmail
		case "users_pkey":
			return scoped.ErrDuplicateID
		}
	}
	return fmt.Errorf("write user: %w", err)
}
