package account

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xamu/xamu/svc/access"
)

var (
	ErrUserNotFound         = errors.New("account: user not found")
	ErrDuplicateEmail       = errors.New("account: email already registered")
	ErrDuplicateTenantAdmin = errors.New("account: tenant already has an administrator")
	ErrInvalidCredentials   = errors.New("account: invalid credentials")
	ErrInvalidEmail         = errors.New("account: invalid email")
	ErrWeakPassword         = errors.New("account: password too short")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// User is a person who can sign in. TenantID is uuid.Nil only for platform
// administrators.
type User struct {
	ID           uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenant_id"`
	Email        string      `json:"email"`
	EmailKey     string      `json:"-"`
	Name         string      `json:"name"`
	PasswordHash []byte      `json:"-"`
	Role         access.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (u *User) EntityID() uuid.UUID         { return u.ID }
func (u *User) OwnerTenant() uuid.UUID      { return u.TenantID }
func (u *User) SetOwnerTenant(id uuid.UUID) { u.TenantID = id }

// Clone returns a copy that shares no memory with u.
func (u *User) Clone() *User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}

// Principal is the session identity of u.
func (u *User) Principal() access.Principal {
	return access.Principal{UserID: u.ID, Email: u.Email, Role: u.Role, TenantID: u.TenantID}
}

// NewUser is the input of Store.Create. A zero ID is generated.
type NewUser struct {
	ID       uuid.UUID
	Email    string
	Name     string
	Password string
	Role     access.Role
}

// UserQuery filters users. Zero fields match everything.
type UserQuery struct {
	Role     access.Role
	EmailKey string
	Limit    int
}

func (q UserQuery) match(u *User) bool {
	return (q.Role == "" || u.Role == q.Role) &&
		(q.EmailKey == "" || u.EmailKey == q.EmailKey)
}

// EmailKey is the comparison form of an address: trimmed and lower-cased
// rune by rune. Full case folding is avoided because it merges distinct
// local parts ("straße" and "strasse"). Two addresses are the same login
// when their keys are equal.
func EmailKey(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// NormalizeEmail trims an address and checks it is a bare addr-spec.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
