package tenant

import "errors"

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")
	ErrNoTenantInContext = errors.New("no tenant in context")
	ErrLookupFailed      = errors.New("tenant lookup failed")
)
