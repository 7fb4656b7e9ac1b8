package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated establishment. Code is the URL-safe slug used for
// routing and never changes after creation.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Domain    string    `json:"domain"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy so cached snapshots can't be mutated by callers.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// BasePath is the path prefix of the tenant's routes.
func (t *Tenant) BasePath() string {
	return "/" + t.Code + "/"
}

// Provider loads tenants from durable storage.
type Provider interface {
	// GetByIdentifier retrieves a tenant by code or domain.
	// Returns ErrTenantNotFound if nothing matches.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}
