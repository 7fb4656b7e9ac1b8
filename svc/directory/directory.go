// Package directory is the durable registry of tenants.
//
// The Service is the only writer. Every mutation drops the affected tenant
// cache keys before it returns, so a resolution started afterwards sees the
// new record. Codes never change and tenants are never deleted; a tenant
// that should stop serving is deactivated.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/tenant"
)

// Directory errors. A missing tenant is reported as tenant.ErrTenantNotFound.
var (
	ErrDuplicateTenant = errors.New("directory: tenant code already taken")
	ErrDuplicateDomain = errors.New("directory: domain already assigned")
	ErrInvalidName     = errors.New("directory: name is required")
)

// NewTenant is the input of Service.Create. An empty Code is derived from
// Name.
type NewTenant struct {
	Code   string `json:"code" form:"code" validate:"omitempty,tenant_code"`
	Domain string `json:"domain" form:"domain" validate:"omitempty,fqdn"`
	Name   string `json:"name" form:"name" validate:"required,max=200"`
}

// ListQuery filters tenants. A nil Active matches both states.
type ListQuery struct {
	Active *bool
	Limit  int
}

func (q ListQuery) match(t *tenant.Tenant) bool {
	return q.Active == nil || t.Active == *q.Active
}

// Store persists tenants. Missing records are reported as
// tenant.ErrTenantNotFound.
type Store interface {
	// Create inserts t. A taken code or domain yields ErrDuplicateTenant
	// or ErrDuplicateDomain.
	Create(ctx context.Context, t *tenant.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	// GetByCode and GetByDomain expect normalized input.
	GetByCode(ctx context.Context, code string) (*tenant.Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error)
	// Update replaces the mutable fields of the stored tenant with t.
	Update(ctx context.Context, t *tenant.Tenant) error
	// List returns tenants ordered by code.
	List(ctx context.Context, q ListQuery) ([]*tenant.Tenant, error)
}

// Provider adapts a Store to tenant.Provider so a tenant.Lookup can be
// built before the Service that invalidates it.
type Provider struct {
	store Store
}

// NewProvider wraps store.
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// GetByIdentifier treats identifiers containing a dot as domains.
func (p *Provider) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	id, err := tenant.Normalize(identifier)
	if err != nil {
		return nil, err
	}
	if tenant.IsDomain(id) {
		return p.store.GetByDomain(ctx, id)
	}
	return p.store.GetByCode(ctx, id)
}

// Invalidator drops cached tenant snapshots. *tenant.Lookup implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, t *tenant.Tenant) error
	InvalidateKeys(ctx context.Context, keys ...string) error
}

// Transactor runs fn as one unit of work. *pg.Transactor and
// *memtx.Transactor implement it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DeactivationHook runs inside the deactivation unit of work. An error
// aborts the deactivation.
type DeactivationHook func(ctx context.Context, t *tenant.Tenant) error

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, *tenant.Tenant) error { return nil }
func (noopInvalidator) InvalidateKeys(context.Context, ...string) error  { return nil }

type directTx struct{}

func (directTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

func stamp(t *tenant.Tenant, now time.Time) {
	t.UpdatedAt = now.UTC()
}
