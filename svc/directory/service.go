package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/slug"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/pkg/validator"
)

// Service manages the tenant lifecycle. It is the only writer of the
// directory and keeps the tenant cache consistent with it.
type Service struct {
	store       Store
	invalidator Invalidator
	tx          Transactor
	audit       *audit.Logger
	log         *slog.Logger
	now         func() time.Time

	mu    sync.RWMutex
	hooks []DeactivationHook
}

// Option configures a Service.
type Option func(*Service)

// WithInvalidator sets the cache that mutations invalidate.
func WithInvalidator(inv Invalidator) Option { return func(s *Service) { s.invalidator = inv } }

// WithTransactor makes deactivation and its hooks a single unit of work.
func WithTransactor(tx Transactor) Option { return func(s *Service) { s.tx = tx } }

// WithAudit records every lifecycle change.
func WithAudit(l *audit.Logger) Option { return func(s *Service) { s.audit = l } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithDeactivationHook registers h to run inside every deactivation.
func WithDeactivationHook(h DeactivationHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h) }
}

// NewService returns a Service over store. Without options it keeps no
// cache, writes no audit trail and runs each mutation without a transaction.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		invalidator: noopInvalidator{},
		tx:          directTx{},
		log:         logger.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnDeactivate registers a hook after construction, for services that
// depend on the directory themselves.
func (s *Service) OnDeactivate(h DeactivationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Create registers an active tenant.
func (s *Service) Create(ctx context.Context, in NewTenant) (*tenant.Tenant, error) {
	in.Code = strings.ToLower(strings.TrimSpace(in.Code))
	in.Domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(in.Domain)), ".")
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		in.Code = slug.Make(in.Name, slug.MaxLength(tenant.MaxCodeLength))
	}
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if in.Code == "" {
		return nil, fmt.Errorf("%w: no code derivable from name %q", tenant.ErrInvalidIdentifier, in.Name)
	}
	if in.Domain != "" {
		if _, err := tenant.NormalizeDomain(in.Domain); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	t := &tenant.Tenant{
		ID:        uuid.New(),
		Code:      in.Code,
		Domain:    in.Domain,
		Name:      in.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	// A negative result may have been cached by a lookup that raced the insert.
	if err := s.invalidator.Invalidate(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, "tenant.created", t)
	s.log.InfoContext(ctx, "tenant created", logger.TenantID(t.ID), slog.String("tenant_code", t.Code))
	return t, nil
}

// Get returns the tenant with id, active or not.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.store.GetByID(ctx, id)
}

// GetByCode normalizes code before the lookup.
func (s *Service) GetByCode(ctx context.Context, code string) (*tenant.Tenant, error) {
	code, err := tenant.NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.store.GetByCode(ctx, code)
}

// GetByIdentifier implements tenant.Provider.
func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	return NewProvider(s.store).GetByIdentifier(ctx, identifier)
}

// List returns tenants matching q.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*tenant.Tenant, error) {
	return s.store.List(ctx, q)
}

// Rename changes the display name. Renaming to the current name is a no-op.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (*tenant.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return s.mutate(ctx, id, "tenant.renamed", func(t *tenant.Tenant) (bool, error) {
		if t.Name == name {
			return false, nil
		}
		t.Name = name
		return true, nil
	})
}

// ChangeDomain assigns a custom domain. An empty domain removes it.
func (s *Service) ChangeDomain(ctx context.Context, id uuid.UUID, domain string) (*tenant.Tenant, error) {
	if strings.TrimSpace(domain) != "" {
		d, err := tenant.NormalizeDomain(domain)
		if err != nil {
			return nil, err
		}
		domain = d
	} else {
		domain = ""
	}

	var previous string
	t, err := s.mutate(ctx, id, "tenant.domain_changed", func(t *tenant.Tenant) (bool, error) {
		if t.Domain == domain {
			return false, nil
		}
		previous, t.Domain = t.Domain, domain
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.invalidator.InvalidateKeys(ctx, tenant.CacheKey(previous)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Activate lets a deactivated tenant serve again.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.mutate(ctx, id, "tenant.activated", func(t *tenant.Tenant) (bool, error) {
		if t.Active {
			return false, nil
		}
		t.Active = true
		return true, nil
	})
}

// Deactivate stops the tenant from serving. The deactivation hooks run in
// the same unit of work, so a failing hook leaves the tenant active.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.mu.RLock()
	hooks := append([]DeactivationHook(nil), s.hooks...)
	s.mu.RUnlock()

	return s.mutate(ctx, id, "tenant.deactivated", func(t *tenant.Tenant) (bool, error) {
		if !t.Active {
			return false, nil
		}
		t.Active = false
		return true, nil
	}, hooks...)
}

// mutate loads, changes and saves a tenant, then invalidates its cache keys.
// change reports whether anything changed; unchanged tenants are returned
// as is.
func (s *Service) mutate(
	ctx context.Context,
	id uuid.UUID,
	action string,
	change func(*tenant.Tenant) (bool, error),
	after ...DeactivationHook,
) (*tenant.Tenant, error) {
	var (
		t       *tenant.Tenant
		changed bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if t, err = s.store.GetByID(ctx, id); err != nil {
			return err
		}
		if changed, err = change(t); err != nil || !changed {
			return err
		}
		stamp(t, s.now())
		if err := s.store.Update(ctx, t); err != nil {
			return err
		}
		for _, hook := range after {
			if err := hook(ctx, t.Clone()); err != nil {
				return fmt.Errorf("deactivation hook: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return t, nil
	}
	if err := s.invalidator.Invalidate(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, action, t)
	s.log.InfoContext(ctx, action, logger.TenantID(t.ID), slog.String("tenant_code", t.Code))
	return t, nil
}

func (s *Service) record(ctx context.Context, action string, t *tenant.Tenant) {
	if s.audit == nil {
		return
	}
	err := s.audit.Log(ctx, action,
		audit.WithTenant(t.ID.String()),
		audit.WithResource("tenant", t.ID.String()),
		audit.WithMetadata("code", t.Code),
		audit.WithMetadata("active", t.Active),
	)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to write audit event", logger.Error(err), slog.String("action", action))
	}
}

// IsNotFound reports whether err means the tenant does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, tenant.ErrTenantNotFound)
}
