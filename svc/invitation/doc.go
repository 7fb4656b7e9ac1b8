// Package invitation onboards the first administrator of a tenant.
//
// A platform administrator issues an invitation for an email address. The
// invitee receives a link carrying an opaque token; redeeming it creates a
// tenant-admin account and consumes the invitation in one unit of work.
// Only a keyed hash of the token is stored.
//
// Status writes are compare-and-swap operations on the pending state, so
// concurrent redemptions of one token produce exactly one account.
//
// # Lifecycle
//
//	pending ──accept──▶ accepted
//	   │ ├────revoke──▶ revoked
//	   │ └────expire──▶ expired
//
// Every other state is terminal. A pending invitation whose expiry has
// passed behaves as expired at once; the ExpireStale sweep only makes the
// stored status catch up. Issuing a new invitation for the same tenant and
// address revokes the pending one, and deactivating a tenant revokes all
// of its pending invitations.
//
// # Usage
//
//	svc, err := invitation.NewService(cfg, store, directory, accounts,
//		invitation.WithTransactor(tx),
//		invitation.WithNotifier(invitation.NewEmailNotifier(sender, log)),
//	)
//
//	issued, err := svc.Issue(ctx, tenantID, "head@school.example", adminID)
//	// issued.Token is shown once and never stored
//
//	user, err := svc.Redeem(ctx, "nord", token, invitation.Redemption{
//		Email:    "head@school.example",
//		Name:     "Ada",
//		Password: password,
//	})
//
// Redemption requires the invitee to confirm the invited address. The
// comparison ignores case and surrounding space.
//
// # Errors
//
// The service reports precise reasons (ErrInvalidToken, ErrExpired,
// ErrAlreadyUsed, ErrRevoked, ErrEmailMismatch, ErrTenantInactive) for
// logs and metrics. PublicError folds all token failures into
// ErrInvitationUnavailable so responses do not reveal whether a token
// ever existed.
package invitation
