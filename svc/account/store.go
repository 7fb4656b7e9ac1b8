// Package account manages users. Tenant users live behind a scoped.Repo, so
// every read and write is confined to the ambient tenant. Platform
// administrators have no tenant and are reached only through the audited
// cross-tenant accessor.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/scoped"
)

// Backend is the storage of users.
type Backend = scoped.Backend[*User, UserQuery]

// Store manages users through a tenant-scoped repository. Every method
// except the platform administrator ones needs an ambient tenant.
type Store struct {
	repo *scoped.Repo[*User, UserQuery]
	log  *slog.Logger
	cost int
	now  func() time.Time

	// dummyHash keeps sign-in timing equal for unknown emails.
	dummyHash []byte
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option { return func(s *Store) { s.cost = cost } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// NewStore wraps backend. A nil auditLog leaves cross-tenant access
// logged but unaudited.
func NewStore(backend Backend, auditLog *audit.Logger, opts ...Option) *Store {
	s := &Store{log: logger.Discard(), cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	repoOpts := []scoped.Option{scoped.WithResource("user"), scoped.WithLogger(s.log)}
	if auditLog != nil {
		repoOpts = append(repoOpts, scoped.WithAudit(auditLog))
	}
	s.repo = scoped.NewRepo[*User, UserQuery](backend, repoOpts...)
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("xamu-dummy-password"), s.cost)
	return s
}

// Create adds a user to the ambient tenant. A second tenant-admin fails with
// ErrDuplicateTenantAdmin and a reused email with ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, in NewUser) (*User, error) {
	if !in.Role.IsTenantRole() {
		return nil, fmt.Errorf("%w: %q is not a tenant role", access.ErrInvalidRole, in.Role)
	}
	u, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user created", logger.UserID(u.ID), slog.String("role", string(u.Role)))
	return u, nil
}

func (s *Store) build(in NewUser) (*User, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := s.now().UTC()
	return &User{
		ID:           id,
		Email:        email,
		EmailKey:     EmailKey(email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Get returns ErrUserNotFound for users of other tenants.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if errors.Is(err, scoped.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByEmail matches the address case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	users, err := s.repo.Find(ctx, UserQuery{EmailKey: EmailKey(email), Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return users[0], nil
}

// List returns the users of the ambient tenant.
func (s *Store) List(ctx context.Context, q UserQuery) ([]*User, error) {
	users, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(users) > q.Limit {
		users = users[:q.Limit]
	}
	return users, nil
}

// Rename sets the display name.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, name string) (*User, error) {
	return s.update(ctx, id, func(u *User) error {
		u.Name = strings.TrimSpace(name)
		return nil
	})
}

// ChangeRole may not promote a second tenant-admin.
func (s *Store) ChangeRole(ctx context.Context, id uuid.UUID, role access.Role) (*User, error) {
	return s.update(ctx, id, func(u *User) error {
		if !role.IsTenantRole() {
			return fmt.Errorf("%w: %q is not a tenant role", access.ErrInvalidRole, role)
		}
		u.Role = role
		return nil
	})
}

func (s *Store) update(ctx context.Context, id uuid.UUID, mutate func(*User) error) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Delete removes a user of the ambient tenant.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, scoped.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Authenticate checks a tenant user's password.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	return s.verify(u, password)
}

func (s *Store) verify(u *User, password string) (*User, error) {
	hash := s.dummyHash
	if u != nil {
		hash = u.PasswordHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CreatePlatformAdmin adds a tenantless administrator.
func (s *Store) CreatePlatformAdmin(ctx context.Context, c access.CrossTenant, in NewUser) (*User, error) {
	in.Role = access.RolePlatformAdmin
	u, err := s.build(in)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.AllTenants(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := all.Insert(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "platform admin created", logger.UserID(u.ID))
	return u, nil
}

// ListAllTenants reads users across tenants.
func (s *Store) ListAllTenants(ctx context.Context, c access.CrossTenant, q UserQuery) ([]*User, error) {
	all, err := s.repo.AllTenants(ctx, c)
	if err != nil {
		return nil, err
	}
	return all.Find(ctx, q)
}

// AuthenticatePlatformAdmin checks an administrator's password.
func (s *Store) AuthenticatePlatformAdmin(ctx context.Context, email, password string) (*User, error) {
	all, err := s.repo.AllTenants(ctx, access.SystemCrossTenant("sign-in", "platform administrator sign-in"))
	if err != nil {
		return nil, err
	}
	users, err := all.Find(ctx, UserQuery{Role: access.RolePlatformAdmin, EmailKey: EmailKey(email), Limit: 1})
	if err != nil {
		return nil, err
	}
	var u *User
	if len(users) > 0 && users[0].TenantID == uuid.Nil {
		u = users[0]
	}
	return s.verify(u, password)
}

// CurrentPrincipal reloads the user behind a session and returns its
// current identity. Deleted users yield ErrUserNotFound. Platform
// administrators are read through the audited cross-tenant path.
func (s *Store) CurrentPrincipal(ctx context.Context, claimed access.Principal) (*access.Principal, error) {
	var u *User
	if claimed.TenantID == uuid.Nil {
		all, err := s.repo.AllTenants(ctx, access.SystemCrossTenant("session", "platform administrator session"))
		if err != nil {
			return nil, err
		}
		users, err := all.Find(ctx, UserQuery{Role: access.RolePlatformAdmin, EmailKey: EmailKey(claimed.Email)})
		if err != nil {
			return nil, err
		}
		for _, c := range users {
			if c.ID == claimed.UserID && c.TenantID == uuid.Nil {
				u = c
			}
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
	} else {
		var err error
		if u, err = s.Get(tenant.WithTenant(ctx, &tenant.Tenant{ID: claimed.TenantID}), claimed.UserID); err != nil {
			return nil, err
		}
	}
	p := u.Principal()
	return &p, nil
}
