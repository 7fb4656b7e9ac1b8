package account

import (
	"strings"

	"github.com/google/uuid"

	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/scoped"
)

// NewMemoryBackend stores users in process with the same uniqueness rules
// as the users table: one email per tenant, one email among platform
// administrators, and at most one tenant-admin per tenant.
func NewMemoryBackend() *scoped.MemoryBackend[*User, UserQuery] {
	return scoped.NewMemoryBackend[*User, UserQuery](
		func(u *User, q UserQuery) bool { return q.match(u) },
		(*User).Clone,
		scoped.WithOrder(func(a, b *User) int { return strings.Compare(a.EmailKey, b.EmailKey) }),
		scoped.WithConstraint(checkUnique),
	)
}

func checkUnique(existing, candidate *User) error {
	if existing.TenantID != candidate.TenantID {
		return nil
	}
	if existing.EmailKey == candidate.EmailKey {
		return ErrDuplicateEmail
	}
	if candidate.TenantID != uuid.Nil &&
		existing.Role == access.RoleTenantAdmin && candidate.Role == access.RoleTenantAdmin {
		return ErrDuplicateTenantAdmin
	}
	return nil
}
