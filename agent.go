// Package lockauth verifies a secret for a named account on behalf of a
// screen locker and reports whether the account may unlock its session.
//
// Verification is delegated to a pluggable Backend. A Backend opens one
// Session per attempt; the session authenticates the secret through a
// conversation.Handler and then checks the account's standing.
package lockauth

import (
	"context"

	"github.com/infodancer/lockauth/conversation"
)

// Backend opens verification sessions. Backends are created through
// OpenBackend from a BackendConfig.
type Backend interface {
	// Start opens a session for account. The backend obtains the secret by
	// calling conv from within Authenticate or CheckAccount, never after
	// they return.
	// Returns an error if the backend cannot be initialized.
	Start(ctx context.Context, account string, conv conversation.Handler) (Session, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Session is a single authentication context bound to one account.
//
// Verdicts are reported as errors matching the sentinels in the errors
// package: ErrUserNotFound and ErrAuthFailed from Authenticate;
// ErrAcctExpired, ErrNewAuthtokRequired, ErrPermDenied or ErrAuthFailed
// from CheckAccount. Any other error is an unclassified failure.
type Session interface {
	// Authenticate verifies the secret supplied through the conversation.
	Authenticate(ctx context.Context) error

	// CheckAccount reports whether the authenticated account may unlock:
	// not expired, not locked and no credential change pending.
	CheckAccount(ctx context.Context) error

	// End finalizes the session with the terminal verdict (nil on success).
	// It must be called exactly once.
	End(verdict error) error
}
