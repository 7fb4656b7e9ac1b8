package invitation

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/memtx"
)

// Store persists invitations. Status changes are conditional on the row
// still being pending; the bool results report whether the write happened.
type Store interface {
	// Create revokes any pending invitation for the same tenant and email
	// key, then inserts inv. It returns how many were superseded.
	Create(ctx context.Context, inv *Invitation, now time.Time) (int, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (*Invitation, error)
	// FindByToken matches the token hash within one tenant only.
	FindByToken(ctx context.Context, tenantID uuid.UUID, hash []byte) (*Invitation, error)
	// MarkAccepted succeeds only for a pending invitation not yet expired at now.
	MarkAccepted(ctx context.Context, id, userID uuid.UUID, now time.Time) (bool, error)
	// MarkRevoked revokes a pending invitation, expired or not.
	MarkRevoked(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// MarkReminded stamps the reminder so it is sent once.
	MarkReminded(ctx context.Context, id uuid.UUID, now time.Time) error
	// RevokePending revokes every pending invitation of the tenant.
	RevokePending(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error)
	// ExpirePending moves pending invitations past their expiry to expired.
	ExpirePending(ctx context.Context, now time.Time) (int, error)
	// ListByTenant returns the newest invitations first.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Invitation, error)
	// ListPendingExpiring returns pending, never reminded invitations of the
	// tenant that are still valid at now and expire before before.
	ListPendingExpiring(ctx context.Context, tenantID uuid.UUID, now, before time.Time) ([]*Invitation, error)
}

// MemoryStore keeps invitations in process. Writes made inside a memtx
// unit of work are undone when it fails.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Invitation
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]*Invitation)}
}

func (s *MemoryStore) Create(ctx context.Context, inv *Invitation, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[inv.ID]; ok {
		return 0, ErrConflict
	}
	for _, row := range s.rows {
		if bytes.Equal(row.TokenHash, inv.TokenHash) {
			return 0, ErrConflict
		}
	}
	superseded := 0
	for _, row := range s.rows {
		if row.TenantID == inv.TenantID && row.EmailKey == inv.EmailKey && row.Status == StatusPending {
			s.set(ctx, row.ID, func(r *Invitation) {
				r.Status = StatusRevoked
				r.RevokedAt = &now
			})
			superseded++
		}
	}
	s.rows[inv.ID] = inv.Clone()
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		delete(s.rows, inv.ID)
		s.mu.Unlock()
	})
	return superseded, nil
}

// set replaces row id with a mutated copy. Caller holds mu.
func (s *MemoryStore) set(ctx context.Context, id uuid.UUID, mutate func(*Invitation)) {
	prev := s.rows[id]
	next := prev.Clone()
	mutate(next)
	s.rows[id] = next
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		s.rows[id] = prev
		s.mu.Unlock()
	})
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

func (s *MemoryStore) FindByToken(_ context.Context, tenantID uuid.UUID, hash []byte) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.TenantID == tenantID && bytes.Equal(row.TokenHash, hash) {
			return row.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) MarkAccepted(ctx context.Context, id, userID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if row.Status != StatusPending || !now.Before(row.ExpiresAt) {
		return false, nil
	}
	s.set(ctx, id, func(r *Invitation) {
		r.Status = StatusAccepted
		r.UsedAt = &now
		r.UserID = userID
	})
	return true, nil
}

func (s *MemoryStore) MarkRevoked(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if row.Status != StatusPending {
		return false, nil
	}
	s.set(ctx, id, func(r *Invitation) {
		r.Status = StatusRevoked
		r.RevokedAt = &now
	})
	return true, nil
}

func (s *MemoryStore) MarkReminded(ctx context.Context, id uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	s.set(ctx, id, func(r *Invitation) { r.RemindedAt = &now })
	return nil
}

func (s *MemoryStore) RevokePending(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	return s.updatePending(ctx, func(r *Invitation) bool { return r.TenantID == tenantID }, func(r *Invitation) {
		r.Status = StatusRevoked
		r.RevokedAt = &now
	})
}

func (s *MemoryStore) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	return s.updatePending(ctx, func(r *Invitation) bool { return !now.Before(r.ExpiresAt) }, func(r *Invitation) {
		r.Status = StatusExpired
	})
}

func (s *MemoryStore) updatePending(ctx context.Context, match func(*Invitation) bool, mutate func(*Invitation)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, row := range s.rows {
		if row.Status == StatusPending && match(row) {
			s.set(ctx, id, mutate)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]*Invitation, error) {
	out := s.collect(func(r *Invitation) bool { return r.TenantID == tenantID })
	slices.SortFunc(out, func(a, b *Invitation) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListPendingExpiring(_ context.Context, tenantID uuid.UUID, now, before time.Time) ([]*Invitation, error) {
	out := s.collect(func(r *Invitation) bool {
		return r.TenantID == tenantID && r.Status == StatusPending && r.RemindedAt == nil &&
			now.Before(r.ExpiresAt) && r.ExpiresAt.Before(before)
	})
	slices.SortFunc(out, func(a, b *Invitation) int { return a.ExpiresAt.Compare(b.ExpiresAt) })
	return out, nil
}

func (s *MemoryStore) collect(keep func(*Invitation) bool) []*Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Invitation
	for _, row := range s.rows {
		if keep(row) {
			out = append(out, row.Clone())
		}
	}
	return out
}
