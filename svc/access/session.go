package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/token"
)

// Session errors. Authenticate treats all of them as an anonymous request.
var (
	ErrNoSession      = errors.New("access: no session")
	ErrSessionExpired = errors.New("access: session expired")
	ErrInvalidSession = errors.New("access: invalid session")
)

// SessionConfig configures session signing and the session cookie.
type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET,required"`                  // HMAC key for session tokens
	CookieName string        `env:"SESSION_COOKIE" envDefault:"xamu_session"` // Cookie carrying the token
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"12h"`             // Lifetime of a session token
	Secure     bool          `env:"SESSION_SECURE" envDefault:"true"`         // Sets the cookie Secure flag
}

// PrincipalLoader re-reads the principal behind a session from storage.
// It returns an error when the user no longer exists.
type PrincipalLoader interface {
	CurrentPrincipal(ctx context.Context, claimed Principal) (*Principal, error)
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// WithPrincipalLoader makes Authenticate reload every session principal,
// so role changes and deletions apply before the token expires. Without
// it the signed claims are trusted until expiry.
func WithPrincipalLoader(l PrincipalLoader) SessionOption {
	return func(s *Sessions) { s.loader = l }
}

type sessionClaims struct {
	UserID    uuid.UUID `json:"uid"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TenantID  uuid.UUID `json:"tid"`
	ExpiresAt int64     `json:"exp"`
}

// Sessions issues and reads signed session tokens. Tokens travel in a cookie
// or as a bearer token.
type Sessions struct {
	cfg    SessionConfig
	now    func() time.Time
	loader PrincipalLoader
}

// NewSessions returns a session issuer. An empty secret is rejected.
func NewSessions(cfg SessionConfig, opts ...SessionOption) (*Sessions, error) {
	if cfg.Secret == "" {
		return nil, token.ErrEmptySecret
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "xamu_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	s := &Sessions{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token signs a session for p.
func (s *Sessions) Token(p Principal) (string, error) {
	return token.GenerateToken(sessionClaims{
		UserID:    p.UserID,
		Email:     p.Email,
		Role:      p.Role,
		TenantID:  p.TenantID,
		ExpiresAt: s.now().Add(s.cfg.TTL).Unix(),
	}, s.cfg.Secret)
}

// Issue sets the session cookie for p.
func (s *Sessions) Issue(w http.ResponseWriter, p Principal) error {
	tok, err := s.Token(p)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Principal reads the session carried by r.
func (s *Sessions) Principal(r *http.Request) (*Principal, error) {
	raw := bearer(r)
	if raw == "" {
		c, err := r.Cookie(s.cfg.CookieName)
		if err != nil || c.Value == "" {
			return nil, ErrNoSession
		}
		raw = c.Value
	}

	claims, err := token.ParseToken[sessionClaims](raw, s.cfg.Secret)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if s.now().Unix() >= claims.ExpiresAt {
		return nil, ErrSessionExpired
	}
	if _, err := ParseRole(string(claims.Role)); err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	return &Principal{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Role:     claims.Role,
		TenantID: claims.TenantID,
	}, nil
}

// Authenticate attaches the session principal to the request. Requests
// without a valid session, or whose user is gone, continue anonymously.
func (s *Sessions) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Principal(r)
		if err == nil && s.loader != nil {
			p, err = s.loader.CurrentPrincipal(r.Context(), *p)
		}
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}
