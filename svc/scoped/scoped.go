package scoped

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/environment"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
)

// ErrMissingAmbientContext is returned by every Repo method called without
// a tenant in the context outside development, where it panics instead.
var (
	ErrMissingAmbientContext = errors.New("scoped: no ambient tenant")
	ErrTenantReassignment    = errors.New("scoped: tenant reassignment is not allowed")
	ErrNotFound              = errors.New("scoped: not found")
	ErrDuplicateID           = errors.New("scoped: duplicate id")
)

// Entity is a tenant-owned record.
type Entity interface {
	EntityID() uuid.UUID
	OwnerTenant() uuid.UUID
	SetOwnerTenant(uuid.UUID)
}

// Backend stores entities with the tenant passed explicitly. Get, Update and
// Delete must only touch rows of tenantID and return ErrNotFound otherwise.
type Backend[T Entity, Q any] interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (T, error)
	Find(ctx context.Context, tenantID uuid.UUID, q Q) ([]T, error)
	Insert(ctx context.Context, e T) error
	Update(ctx context.Context, tenantID uuid.UUID, e T) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// FindAll ignores tenants. Only Unscoped calls it.
	FindAll(ctx context.Context, q Q) ([]T, error)
}

// Repo confines every read and write to the ambient tenant. Rows of other
// tenants are reported as ErrNotFound, never as a permission error.
type Repo[T Entity, Q any] struct {
	backend  Backend[T, Q]
	audit    *audit.Logger
	log      *slog.Logger
	resource string
}

// Option configures a Repo.
type Option func(*options)

type options struct {
	audit    *audit.Logger
	log      *slog.Logger
	resource string
}

// WithAudit records cross-tenant access. Without it the access is only
// logged.
func WithAudit(l *audit.Logger) Option { return func(o *options) { o.audit = l } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithResource names the entity in logs and audit records.
func WithResource(name string) Option { return func(o *options) { o.resource = name } }

// NewRepo wraps backend.
func NewRepo[T Entity, Q any](backend Backend[T, Q], opts ...Option) *Repo[T, Q] {
	o := options{log: logger.Discard(), resource: "entity"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repo[T, Q]{backend: backend, audit: o.audit, log: o.log, resource: o.resource}
}

// TenantID returns the ambient tenant or fails closed.
func (r *Repo[T, Q]) TenantID(ctx context.Context) (uuid.UUID, error) {
	id, ok := tenant.IDFromContext(ctx)
	if ok && id != uuid.Nil {
		return id, nil
	}
	if environment.IsDevelopment(ctx) {
		panic(fmt.Sprintf("scoped: %s access without an ambient tenant", r.resource))
	}
	r.log.ErrorContext(ctx, "tenant-scoped access without ambient tenant",
		logger.Component("scoped"),
		slog.String("resource", r.resource),
	)
	return uuid.Nil, ErrMissingAmbientContext
}

// Get returns the entity with id owned by the ambient tenant.
func (r *Repo[T, Q]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	tid, err := r.TenantID(ctx)
	if err != nil {
		return zero, err
	}
	e, err := r.backend.Get(ctx, tid, id)
	if err != nil {
		return zero, err
	}
	if e.OwnerTenant() != tid {
		return zero, ErrNotFound
	}
	return e, nil
}

// Find returns entities of the ambient tenant matching q. Rows the backend
// returns for another tenant are dropped.
func (r *Repo[T, Q]) Find(ctx context.Context, q Q) ([]T, error) {
	tid, err := r.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.backend.Find(ctx, tid, q)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, e := range rows {
		if e.OwnerTenant() == tid {
			out = append(out, e)
		}
	}
	return out, nil
}

// Insert stamps e with the ambient tenant.
func (r *Repo[T, Q]) Insert(ctx context.Context, e T) error {
	tid, err := r.TenantID(ctx)
	if err != nil {
		return err
	}
	if owner := e.OwnerTenant(); owner != uuid.Nil && owner != tid {
		return ErrTenantReassignment
	}
	e.SetOwnerTenant(tid)
	return r.backend.Insert(ctx, e)
}

// Update saves e. The owner must be the ambient tenant.
func (r *Repo[T, Q]) Update(ctx context.Context, e T) error {
	tid, err := r.TenantID(ctx)
	if err != nil {
		return err
	}
	if e.OwnerTenant() != tid {
		return ErrTenantReassignment
	}
	return r.backend.Update(ctx, tid, e)
}

// Delete removes the entity with id if the ambient tenant owns it.
func (r *Repo[T, Q]) Delete(ctx context.Context, id uuid.UUID) error {
	tid, err := r.TenantID(ctx)
	if err != nil {
		return err
	}
	return r.backend.Delete(ctx, tid, id)
}

// AllTenants returns the audited cross-tenant accessor.
func (r *Repo[T, Q]) AllTenants(ctx context.Context, c access.CrossTenant) (*Unscoped[T, Q], error) {
	if !c.Valid() {
		return nil, access.ErrCrossTenantForbidden
	}
	return &Unscoped[T, Q]{repo: r, cap: c}, nil
}

// Unscoped bypasses tenant filtering. Every call is audited, and a call
// whose audit record cannot be written is refused.
type Unscoped[T Entity, Q any] struct {
	repo *Repo[T, Q]
	cap  access.CrossTenant
}

// Find returns matches across all tenants.
func (u *Unscoped[T, Q]) Find(ctx context.Context, q Q) ([]T, error) {
	if err := u.record(ctx, "find", uuid.Nil); err != nil {
		return nil, err
	}
	return u.repo.backend.FindAll(ctx, q)
}

// Insert stores e without stamping, for records such as platform
// administrators that belong to no tenant.
func (u *Unscoped[T, Q]) Insert(ctx context.Context, e T) error {
	if err := u.record(ctx, "insert", e.EntityID()); err != nil {
		return err
	}
	return u.repo.backend.Insert(ctx, e)
}

func (u *Unscoped[T, Q]) record(ctx context.Context, op string, id uuid.UUID) error {
	u.repo.log.WarnContext(ctx, "cross-tenant access",
		logger.Component("scoped"),
		slog.String("resource", u.repo.resource),
		slog.String("operation", op),
		slog.String("actor", u.cap.Actor()),
		slog.String("reason", u.cap.Reason()),
	)
	if u.repo.audit == nil {
		return nil
	}
	resourceID := ""
	if id != uuid.Nil {
		resourceID = id.String()
	}
	err := u.repo.audit.Log(ctx, "scoped.all_tenants",
		audit.WithTenant(""),
		audit.WithResource(u.repo.resource, resourceID),
		audit.WithMetadata("operation", op),
		audit.WithMetadata("actor", u.cap.Actor()),
		audit.WithMetadata("reason", u.cap.Reason()),
	)
	if err != nil {
		return fmt.Errorf("audit cross-tenant access: %w", err)
	}
	return nil
}
