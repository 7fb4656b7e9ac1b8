package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xamu/xamu/pkg/pg"
)

const invitationColumns = `id, tenant_id, email, email_key, token_hash, status, created_at, expires_at,
	used_at, revoked_at, reminded_at, user_id, created_by`

var _ Store = (*PgStore)(nil)

// PgStore keeps invitations in the invitations table. Status writes are
// single conditional UPDATE statements.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore uses pool, or the transaction bound to ctx by pg.Transactor.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Create revokes any pending invitation for the same address in the tenant,
// then inserts inv. It reports how many invitations were superseded.
func (s *PgStore) Create(ctx context.Context, inv *Invitation, now time.Time) (int, error) {
	db := pg.Conn(ctx, s.pool)
	tag, err := db.Exec(ctx,
		`UPDATE invitations SET status = 'revoked', revoked_at = $3
		 WHERE tenant_id = $1 AND email_key = $2 AND status = 'pending'`,
		inv.TenantID, inv.EmailKey, now)
	if err != nil {
		return 0, fmt.Errorf("supersede invitations: %w", err)
	}
	_, err = db.Exec(ctx,
		`INSERT INTO invitations (id, tenant_id, email, email_key, token_hash, status, created_at, expires_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.TenantID, inv.Email, inv.EmailKey, inv.TokenHash, string(inv.Status),
		inv.CreatedAt, inv.ExpiresAt, nullableID(inv.CreatedBy))
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert invitation: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	return s.getOne(ctx, `id = $1`, id)
}

// FindByToken matches the token hash within one tenant only.
func (s *PgStore) FindByToken(ctx context.Context, tenantID uuid.UUID, hash []byte) (*Invitation, error) {
	return s.getOne(ctx, `tenant_id = $1 AND token_hash = $2`, tenantID, hash)
}

func (s *PgStore) getOne(ctx context.Context, where string, args ...any) (*Invitation, error) {
	row := pg.Conn(ctx, s.pool).QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE `+where, args...)
	inv, err := scanInvitation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

// MarkAccepted reports false when the invitation was no longer pending or
// had expired by now. Concurrent redemptions race on this statement and
// only one of them wins.
func (s *PgStore) MarkAccepted(ctx context.Context, id, userID uuid.UUID, now time.Time) (bool, error) {
	return s.exec(ctx,
		`UPDATE invitations SET status = 'accepted', used_at = $2, user_id = $3
		 WHERE id = $1 AND status = 'pending' AND expires_at > $2`,
		id, now, userID)
}

// MarkRevoked reports false unless the invitation was pending.
func (s *PgStore) MarkRevoked(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return s.exec(ctx,
		`UPDATE invitations SET status = 'revoked', revoked_at = $2 WHERE id = $1 AND status = 'pending'`,
		id, now)
}

func (s *PgStore) MarkReminded(ctx context.Context, id uuid.UUID, now time.Time) error {
	ok, err := s.exec(ctx, `UPDATE invitations SET reminded_at = $2 WHERE id = $1`, id, now)
	if err == nil && !ok {
		return ErrNotFound
	}
	return err
}

func (s *PgStore) exec(ctx context.Context, sql string, args ...any) (bool, error) {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update invitation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokePending revokes every pending invitation of a tenant.
func (s *PgStore) RevokePending(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx,
		`UPDATE invitations SET status = 'revoked', revoked_at = $2 WHERE tenant_id = $1 AND status = 'pending'`,
		tenantID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke tenant invitations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpirePending flags pending invitations past their expiry in every tenant.
func (s *PgStore) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx,
		`UPDATE invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListByTenant returns the newest invitations first.
func (s *PgStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Invitation, error) {
	sql := `SELECT ` + invitationColumns + ` FROM invitations WHERE tenant_id = $1 ORDER BY created_at DESC`
	if limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, limit)
	}
	return s.query(ctx, sql, tenantID)
}

// ListPendingExpiring returns pending invitations expiring between now and
// before that were never reminded, soonest first.
func (s *PgStore) ListPendingExpiring(ctx context.Context, tenantID uuid.UUID, now, before time.Time) ([]*Invitation, error) {
	return s.query(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE tenant_id = $1 AND status = 'pending' AND reminded_at IS NULL
		   AND expires_at > $2 AND expires_at < $3
		 ORDER BY expires_at`,
		tenantID, now, before)
}

func (s *PgStore) query(ctx context.Context, sql string, args ...any) ([]*Invitation, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	var out []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// pgx.ErrNoRows is returned unwrapped so callers can map it.
func scanInvitation(row pgx.Row) (*Invitation, error) {
	var (
		inv       Invitation
		status    string
		userID    *uuid.UUID
		createdBy *uuid.UUID
	)
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Email, &inv.EmailKey, &inv.TokenHash, &status,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.UsedAt, &inv.RevokedAt, &inv.RemindedAt, &userID, &createdBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	inv.Status = Status(status)
	if userID != nil {
		inv.UserID = *userID
	}
	if createdBy != nil {
		inv.CreatedBy = *createdBy
	}
	return &inv, nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
