package invitation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/statemachine"
)

var (
	ErrNotFound       = errors.New("invitation: not found")
	ErrInvalidToken   = errors.New("invitation: invalid token")
	ErrExpired        = errors.New("invitation: expired")
	ErrAlreadyUsed    = errors.New("invitation: already used")
	ErrRevoked        = errors.New("invitation: revoked")
	ErrEmailMismatch  = errors.New("invitation: email does not match")
	ErrTenantInactive = errors.New("invitation: tenant is inactive")
	ErrConflict       = errors.New("invitation: concurrent update")

	// ErrInvitationUnavailable is what callers outside the service see for
	// every token failure. See PublicError.
	ErrInvitationUnavailable = errors.New("invalid or expired invitation")
)

// DefaultTTL is how long an invitation stays redeemable.
const DefaultTTL = 7 * 24 * time.Hour

// Status is the stored lifecycle state. A pending invitation past its
// expiry is treated as expired before the sweep stores it.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

// Event drives the lifecycle.
type Event string

const (
	EventAccept Event = "accept"
	EventRevoke Event = "revoke"
	EventExpire Event = "expire"
)

// lifecycle is consulted with the effective status before every write.
var lifecycle = statemachine.NewBuilder[Status, Event]().
	Allow(StatusPending, EventAccept, StatusAccepted).
	Allow(StatusPending, EventRevoke, StatusRevoked).
	Allow(StatusPending, EventExpire, StatusExpired).
	MustBuild()

// Invitation asks one email address to become the tenant administrator.
type Invitation struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	Email      string     `json:"email"`
	EmailKey   string     `json:"-"`
	TokenHash  []byte     `json:"-"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	RemindedAt *time.Time `json:"reminded_at,omitempty"`
	UserID     uuid.UUID  `json:"user_id,omitzero"`
	CreatedBy  uuid.UUID  `json:"created_by,omitzero"`
}

// StatusAt is the status in effect at now. A pending invitation whose
// expiry has passed is expired whether or not a sweep has stored it.
func (i *Invitation) StatusAt(now time.Time) Status {
	if i.Status == StatusPending && !now.Before(i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}

func (i *Invitation) Clone() *Invitation {
	c := *i
	c.TokenHash = append([]byte(nil), i.TokenHash...)
	return &c
}

// Issued is returned once, at issue time. Token and URL are never
// recoverable afterwards.
type Issued struct {
	Invitation *Invitation
	Token      string
	URL        string
}

// Redemption is what the invitee submits.
type Redemption struct {
	Name     string `json:"name" form:"name" validate:"required,max=200"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
}

// statusError explains why an invitation in status s cannot take event.
func statusError(s Status) error {
	switch s {
	case StatusAccepted:
		return ErrAlreadyUsed
	case StatusExpired:
		return ErrExpired
	case StatusRevoked:
		return ErrRevoked
	default:
		return ErrConflict
	}
}

// PublicError collapses token failures into ErrInvitationUnavailable so
// responses don't reveal which one applied. Other errors pass through.
func PublicError(err error) error {
	for _, target := range []error{ErrInvalidToken, ErrExpired, ErrAlreadyUsed, ErrRevoked, ErrTenantInactive, ErrNotFound} {
		if errors.Is(err, target) {
			return ErrInvitationUnavailable
		}
	}
	return err
}
