package tenant_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/xamu/xamu/pkg/tenant"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	args := m.Called(ctx, identifier)
	if t := args.Get(0); t != nil {
		return t.(*tenant.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

// mapProvider is a mutable in-memory provider that counts loads.
type mapProvider struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Tenant
	loads   atomic.Int64
	delay   time.Duration
}

func newMapProvider(ts ...*tenant.Tenant) *mapProvider {
	p := &mapProvider{tenants: make(map[string]*tenant.Tenant)}
	for _, t := range ts {
		p.put(t)
	}
	return p
}

func (p *mapProvider) put(t *tenant.Tenant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tenants[t.Code] = t.Clone()
	if t.Domain != "" {
		p.tenants[t.Domain] = t.Clone()
	}
}

func (p *mapProvider) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	p.loads.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tenants[identifier]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t.Clone(), nil
}

func newTestTenant(code string, active bool) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Code:      code,
		Domain:    code + ".example.org",
		Name:      code + " school",
		Active:    active,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}
