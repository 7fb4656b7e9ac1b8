package directory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/memtx"
	"github.com/xamu/xamu/pkg/tenant"
)

// MemoryStore keeps tenants in process. Updates made inside a memtx unit of
// work are undone when it fails.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*tenant.Tenant
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[uuid.UUID]*tenant.Tenant)}
}

// Create is undone if the transaction in ctx rolls back.
func (s *MemoryStore) Create(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(t); err != nil {
		return err
	}
	if _, ok := s.tenants[t.ID]; ok {
		return ErrDuplicateTenant
	}
	s.tenants[t.ID] = t.Clone()
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		delete(s.tenants, t.ID)
		s.mu.Unlock()
	})
	return nil
}

// checkUnique enforces unique code and domain. Caller holds mu.
func (s *MemoryStore) checkUnique(t *tenant.Tenant) error {
	for id, other := range s.tenants {
		if id == t.ID {
			continue
		}
		if other.Code == t.Code {
			return ErrDuplicateTenant
		}
		if t.Domain != "" && other.Domain == t.Domain {
			return ErrDuplicateDomain
		}
	}
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.ID == id })
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.Code == code })
}

// An empty domain never matches.
func (s *MemoryStore) GetByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	if domain == "" {
		return nil, tenant.ErrTenantNotFound
	}
	return s.find(func(t *tenant.Tenant) bool { return t.Domain == domain })
}

func (s *MemoryStore) find(match func(*tenant.Tenant) bool) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if match(t) {
			return t.Clone(), nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

// Update keeps the stored code whatever t carries.
func (s *MemoryStore) Update(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.tenants[t.ID]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	if err := s.checkUnique(t); err != nil {
		return err
	}
	next := t.Clone()
	next.Code = prev.Code
	s.tenants[t.ID] = next
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		s.tenants[t.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

// List orders by code, like PgStore.
func (s *MemoryStore) List(_ context.Context, q ListQuery) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if q.match(t) {
			out = append(out, t.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *tenant.Tenant) int { return strings.Compare(a.Code, b.Code) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
