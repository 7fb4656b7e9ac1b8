package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xamu/xamu/pkg/pg"
	"github.com/xamu/xamu/pkg/tenant"
)

const tenantColumns = `id, code, domain, name, active, created_at, updated_at`

var _ Store = (*PgStore)(nil)

// PgStore keeps tenants in the tenants table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore uses pool, or the transaction bound to ctx by pg.Transactor.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Create maps the unique indexes on code and domain to ErrDuplicateTenant
// and ErrDuplicateDomain.
func (s *PgStore) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := pg.Conn(ctx, s.pool).Exec(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Code, nullable(t.Domain), t.Name, t.Active, t.CreatedAt, t.UpdatedAt)
	return mapWriteError(err)
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.getOne(ctx, `id = $1`, id)
}

// GetByCode expects a normalized code.
func (s *PgStore) GetByCode(ctx context.Context, code string) (*tenant.Tenant, error) {
	return s.getOne(ctx, `code = $1`, code)
}

func (s *PgStore) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.getOne(ctx, `domain = $1`, domain)
}

func (s *PgStore) getOne(ctx context.Context, where string, arg any) (*tenant.Tenant, error) {
	row := pg.Conn(ctx, s.pool).QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE `+where, arg)
	t, err := scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrTenantNotFound
	}
	return t, err
}

// Update writes everything but the code, which the table keeps immutable.
func (s *PgStore) Update(ctx context.Context, t *tenant.Tenant) error {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx,
		`UPDATE tenants SET domain = $2, name = $3, active = $4, updated_at = $5 WHERE id = $1`,
		t.ID, nullable(t.Domain), t.Name, t.Active, t.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List orders by code.
func (s *PgStore) List(ctx context.Context, q ListQuery) ([]*tenant.Tenant, error) {
	sql := `SELECT ` + tenantColumns + ` FROM tenants`
	var args []any
	if q.Active != nil {
		sql += ` WHERE active = $1`
		args = append(args, *q.Active)
	}
	sql += ` ORDER BY code`
	if q.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, q.Limit)
	}

	rows, err := pg.Conn(ctx, s.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t      tenant.Tenant
		domain *string
	)
	if err := row.Scan(&t.ID, &t.Code, &domain, &t.Name, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if domain != nil {
		t.Domain = *domain
	}
	return &t, nil
}

// An empty domain is stored as NULL so the unique index ignores it.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pg.IsDuplicateKeyError(err) {
		switch pg.ConstraintName(err) {
		case "tenants_domain_key":
			return ErrDuplicateDomain
		default:
			return ErrDuplicateTenant
		}
	}
	return fmt.Errorf("write tenant: %w", err)
}
