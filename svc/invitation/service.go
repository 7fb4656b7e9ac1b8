package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/pkg/token"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
)

// Config holds the invitation token and link settings.
type Config struct {
	Secret  string        `env:"INVITATION_SECRET,required"`                      // Secret is the HMAC key for invitation tokens.
	TTL     time.Duration `env:"INVITATION_TTL" envDefault:"168h"`                // TTL is how long an invitation stays acceptable.
	BaseURL string        `env:"APP_BASE_URL" envDefault:"http://localhost:8080"` // BaseURL prefixes the acceptance links sent by email.
}

// Tenants finds invitation owners. *directory.Service implements it.
type Tenants interface {
	Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	GetByCode(ctx context.Context, code string) (*tenant.Tenant, error)
}

// Accounts creates the invited administrator in the ambient tenant.
// *account.Store implements it.
type Accounts interface {
	Create(ctx context.Context, in account.NewUser) (*account.User, error)
}

// Transactor runs fn as one unit of work.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Recorder counts outcomes. *metrics.Metrics implements it.
type Recorder interface {
	Invitation(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) Invitation(string, string) {}

// Service issues, validates, redeems and revokes invitations. The
// invitation token is returned once, at issue; only its hash is stored.
type Service struct {
	cfg      Config
	store    Store
	tenants  Tenants
	accounts Accounts
	hasher   *token.Hasher
	tx       Transactor
	notifier Notifier
	metrics  Recorder
	audit    *audit.Logger
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTransactor sets the unit of work used by redemption and revocation.
func WithTransactor(tx Transactor) Option { return func(s *Service) { s.tx = tx } }

// WithNotifier delivers the invitation link. The default drops it.
func WithNotifier(n Notifier) Option   { return func(s *Service) { s.notifier = n } }
func WithMetrics(r Recorder) Option    { return func(s *Service) { s.metrics = r } }
func WithAudit(l *audit.Logger) Option { return func(s *Service) { s.audit = l } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// ErrNoTransactor is returned by NewService without WithTransactor.
// Redemption flips the invitation and creates the account in one
// transaction, so there is no safe default.
var ErrNoTransactor = errors.New("invitation: a transactor is required")

// NewService validates cfg and assembles the service. WithTransactor is
// mandatory; it must cover both store and the account backend.
func NewService(cfg Config, store Store, tenants Tenants, accounts Accounts, opts ...Option) (*Service, error) {
	hasher, err := token.NewHasher(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("invitation secret: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	s := &Service{
		cfg:      cfg,
		store:    store,
		tenants:  tenants,
		accounts: accounts,
		hasher:   hasher,
		notifier: NotifierFunc(func(context.Context, Notice) error { return nil }),
		metrics:  noopRecorder{},
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		return nil, ErrNoTransactor
	}
	return s, nil
}

// Issue creates a pending invitation for email in an active tenant and
// emails the link. Pending invitations for the same address are revoked.
func (s *Service) Issue(ctx context.Context, tenantID uuid.UUID, emailAddr string, issuedBy uuid.UUID) (*Issued, error) {
	issued, err := s.issue(ctx, tenantID, emailAddr, issuedBy)
	s.count("issue", err)
	return issued, err
}

func (s *Service) issue(ctx context.Context, tenantID uuid.UUID, emailAddr string, issuedBy uuid.UUID) (*Issued, error) {
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrTenantInactive
	}
	addr, err := account.NormalizeEmail(emailAddr)
	if err != nil {
		return nil, err
	}
	tok, err := token.Opaque(token.DefaultOpaqueSize)
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	now := s.now().UTC()
	inv := &Invitation{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Email:     addr,
		EmailKey:  account.EmailKey(addr),
		TokenHash: s.hasher.Hash(tok),
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedBy: issuedBy,
	}

	var superseded int
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		superseded, err = s.store.Create(ctx, inv, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	issued := &Issued{Invitation: inv, Token: tok, URL: s.AcceptURL(t, tok)}
	s.record(ctx, "invitation.issued", inv, audit.WithMetadata("superseded", superseded))
	s.log.InfoContext(ctx, "invitation issued",
		logger.TenantID(t.ID),
		slog.String("invitation_id", inv.ID.String()),
		slog.Int("superseded", superseded),
	)
	s.notify(ctx, Notice{Invitation: inv, Tenant: t, AcceptURL: issued.URL})
	return issued, nil
}

// AcceptURL is the link an invitee follows.
func (s *Service) AcceptURL(t *tenant.Tenant, tok string) string {
	return s.cfg.BaseURL + "/" + t.Code + "/invitations/" + url.PathEscape(tok)
}

// Validate looks up a token without changing anything. Token failures are
// reported with their internal reason; pass them through PublicError
// before showing them to anyone.
func (s *Service) Validate(ctx context.Context, tenantCode, tok string) (*Invitation, error) {
	_, inv, err := s.lookup(ctx, tenantCode, tok)
	if err == nil {
		err = s.usable(ctx, inv)
	}
	s.count("validate", err)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// lookup finds the invitation of tok inside the tenant with tenantCode.
func (s *Service) lookup(ctx context.Context, tenantCode, tok string) (*tenant.Tenant, *Invitation, error) {
	if tok == "" || len(tok) > 256 {
		return nil, nil, ErrInvalidToken
	}
	t, err := s.tenants.GetByCode(ctx, tenantCode)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) || errors.Is(err, tenant.ErrInvalidIdentifier) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if !t.Active {
		return nil, nil, ErrTenantInactive
	}
	inv, err := s.store.FindByToken(ctx, t.ID, s.hasher.Hash(tok))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if inv.TenantID != t.ID || !s.hasher.Matches(tok, inv.TokenHash) {
		return nil, nil, ErrInvalidToken
	}
	return t, inv, nil
}

// usable checks that inv can still be accepted.
func (s *Service) usable(ctx context.Context, inv *Invitation) error {
	status := inv.StatusAt(s.now())
	if !lifecycle.Can(ctx, status, EventAccept, inv) {
		return statusError(status)
	}
	return nil
}

// Redeem consumes the invitation and creates its tenant-admin account. The
// status flip and the account creation commit together or not at all.
// Every check is repeated here regardless of an earlier Validate.
func (s *Service) Redeem(ctx context.Context, tenantCode, tok string, r Redemption) (*account.User, error) {
	u, err := s.redeem(ctx, tenantCode, tok, r)
	s.count("redeem", err)
	return u, err
}

func (s *Service) redeem(ctx context.Context, tenantCode, tok string, r Redemption) (*account.User, error) {
	t, inv, err := s.lookup(ctx, tenantCode, tok)
	if err != nil {
		return nil, err
	}
	if err := s.usable(ctx, inv); err != nil {
		return nil, err
	}
	if account.EmailKey(r.Email) != inv.EmailKey {
		return nil, ErrEmailMismatch
	}

	userID := uuid.New()
	var user *account.User
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		ok, err := s.store.MarkAccepted(ctx, inv.ID, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			return s.lostRace(ctx, inv.ID, now)
		}
		return tenant.Run(ctx, t, func(ctx context.Context) error {
			user, err = s.accounts.Create(ctx, account.NewUser{
				ID:       userID,
				Email:    inv.Email,
				Name:     r.Name,
				Password: r.Password,
				Role:     access.RoleTenantAdmin,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, "invitation.redeemed", inv, audit.WithActor(user.ID.String()))
	s.log.InfoContext(ctx, "invitation redeemed",
		logger.TenantID(t.ID),
		logger.UserID(user.ID),
		slog.String("invitation_id", inv.ID.String()),
	)
	return user, nil
}

// lostRace explains a conditional write that matched no pending row.
func (s *Service) lostRace(ctx context.Context, id uuid.UUID, now time.Time) error {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if status := cur.StatusAt(now); status != StatusPending {
		return statusError(status)
	}
	return ErrConflict
}

// Revoke withdraws a pending invitation.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	inv, err := s.revoke(ctx, id)
	s.count("revoke", err)
	return inv, err
}

func (s *Service) revoke(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	inv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if status := inv.StatusAt(now); !lifecycle.Can(ctx, status, EventRevoke, inv) {
		return nil, statusError(status)
	}
	ok, err := s.store.MarkRevoked(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostRace(ctx, id, now)
	}
	inv.Status, inv.RevokedAt = StatusRevoked, &now
	s.record(ctx, "invitation.revoked", inv)
	return inv, nil
}

// RevokeForTenant revokes every pending invitation of t. It is registered
// as a directory deactivation hook.
func (s *Service) RevokeForTenant(ctx context.Context, t *tenant.Tenant) error {
	n, err := s.store.RevokePending(ctx, t.ID, s.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "tenant invitations revoked", logger.TenantID(t.ID), slog.Int("count", n))
		if s.audit != nil {
			if err := s.audit.Log(ctx, "invitation.revoked_for_tenant",
				audit.WithTenant(t.ID.String()),
				audit.WithResource("tenant", t.ID.String()),
				audit.WithMetadata("count", n),
			); err != nil {
				s.log.ErrorContext(ctx, "failed to write audit event", logger.Error(err))
			}
		}
	}
	return nil
}

// List returns the invitations of a tenant, newest first, with Status set
// to the effective status.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]*Invitation, error) {
	list, err := s.store.ListByTenant(ctx, tenantID, 0)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, inv := range list {
		inv.Status = inv.StatusAt(now)
	}
	return list, nil
}

// ExpireStale stores the expired status of every pending invitation past
// its expiry. Correctness never depends on it having run.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	if !lifecycle.Can(ctx, StatusPending, EventExpire, nil) {
		return 0, nil
	}
	n, err := s.store.ExpirePending(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "stale invitations expired", slog.Int("count", n))
	}
	return n, nil
}

// RemindExpiring emails a reminder for each pending invitation of the
// ambient tenant that expires within the given window. Each invitation is
// reminded at most once.
func (s *Service) RemindExpiring(ctx context.Context, within time.Duration) (int, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return 0, tenant.ErrNoTenantInContext
	}
	now := s.now().UTC()
	due, err := s.store.ListPendingExpiring(ctx, t.ID, now, now.Add(within))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, inv := range due {
		if err := s.store.MarkReminded(ctx, inv.ID, now); err != nil {
			return sent, err
		}
		s.notify(ctx, Notice{Invitation: inv, Tenant: t, Reminder: true})
		sent++
	}
	return sent, nil
}

func (s *Service) notify(ctx context.Context, n Notice) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.WarnContext(ctx, "invitation email not sent",
			logger.Error(err),
			slog.String("invitation_id", n.Invitation.ID.String()),
		)
	}
}

func (s *Service) record(ctx context.Context, action string, inv *Invitation, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	opts = append([]audit.EventOption{
		audit.WithTenant(inv.TenantID.String()),
		audit.WithResource("invitation", inv.ID.String()),
	}, opts...)
	if err := s.audit.Log(ctx, action, opts...); err != nil {
		s.log.ErrorContext(ctx, "failed to write audit event", logger.Error(err), slog.String("action", action))
	}
}

func (s *Service) count(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidToken):
		outcome = "invalid"
	case errors.Is(err, ErrExpired):
		outcome = "expired"
	case errors.Is(err, ErrAlreadyUsed):
		outcome = "used"
	case errors.Is(err, ErrRevoked):
		outcome = "revoked"
	case errors.Is(err, ErrEmailMismatch):
		outcome = "email_mismatch"
	case errors.Is(err, ErrTenantInactive):
		outcome = "tenant_inactive"
	default:
		outcome = "error"
	}
	s.metrics.Invitation(op, outcome)
}
