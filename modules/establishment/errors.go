package establishment

import (
	"errors"
	"net/http"

	"github.com/xamu/xamu/handler"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
	"github.com/xamu/xamu/svc/directory"
	"github.com/xamu/xamu/svc/invitation"
	"github.com/xamu/xamu/svc/scoped"
)

var (
	errInvitationGone    = handler.NewHTTPError(http.StatusGone, "invitation_unavailable")
	errEmailMismatch     = handler.NewHTTPError(http.StatusUnprocessableEntity, "email_mismatch")
	errWeakPassword      = handler.NewHTTPError(http.StatusUnprocessableEntity, "weak_password")
	errInvalidEmail      = handler.NewHTTPError(http.StatusUnprocessableEntity, "invalid_email")
	errInvalidRole       = handler.NewHTTPError(http.StatusUnprocessableEntity, "invalid_role")
	errInvalidCreds      = handler.NewHTTPError(http.StatusUnauthorized, "invalid_credentials")
	errTenantUnavailable = handler.NewHTTPError(http.StatusServiceUnavailable, "tenant_lookup_failed")
	errRateLimited       = handler.NewHTTPError(http.StatusTooManyRequests, "rate_limited")
)

// Classify maps domain errors to HTTP errors. Unknown errors fall through
// to a 500.
func Classify(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, invitation.ErrInvitationUnavailable):
		return errInvitationGone, true
	case errors.Is(err, invitation.ErrEmailMismatch):
		return errEmailMismatch, true
	case errors.Is(err, account.ErrInvalidCredentials):
		return errInvalidCreds, true
	case errors.Is(err, account.ErrWeakPassword):
		return errWeakPassword, true
	case errors.Is(err, account.ErrInvalidEmail):
		return errInvalidEmail, true
	case errors.Is(err, access.ErrInvalidRole):
		return errInvalidRole, true
	case errors.Is(err, directory.ErrInvalidName), errors.Is(err, tenant.ErrInvalidIdentifier):
		return handler.ErrUnprocessableEntity, true
	case errors.Is(err, access.ErrCrossTenantForbidden):
		return handler.ErrForbidden, true
	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, invitation.ErrNotFound),
		errors.Is(err, scoped.ErrNotFound):
		return handler.ErrNotFound, true
	case errors.Is(err, directory.ErrDuplicateTenant),
		errors.Is(err, directory.ErrDuplicateDomain),
		errors.Is(err, account.ErrDuplicateEmail),
		errors.Is(err, account.ErrDuplicateTenantAdmin),
		errors.Is(err, invitation.ErrConflict),
		errors.Is(err, invitation.ErrRevoked),
		errors.Is(err, invitation.ErrAlreadyUsed),
		errors.Is(err, invitation.ErrExpired):
		return handler.ErrConflict, true
	case errors.Is(err, tenant.ErrLookupFailed):
		return errTenantUnavailable, true
	}
	return handler.HTTPError{}, false
}
