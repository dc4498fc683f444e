// Package errors provides centralized error definitions for lockauth.
package errors

import "errors"

// Authentication verdicts. Backends wrap these so callers can classify
// results with errors.Is.
var (
	// ErrAuthFailed indicates the supplied secret did not match.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Account standing verdicts.
var (
	// ErrAcctExpired indicates the account has expired.
	ErrAcctExpired = errors.New("account expired")

	// ErrNewAuthtokRequired indicates the credential must be changed before use.
	ErrNewAuthtokRequired = errors.New("credential change required")

	// ErrPermDenied indicates the account is locked or otherwise denied by policy.
	ErrPermDenied = errors.New("permission denied")
)

// ErrConversation indicates the backend conversation failed, for example
// because a prompt of an unknown kind was received.
var ErrConversation = errors.New("conversation error")

// Secret input errors.
var (
	// ErrInputTimeout indicates no input became available before the deadline.
	ErrInputTimeout = errors.New("timed out waiting for input")

	// ErrInputWait indicates the readiness wait itself failed.
	ErrInputWait = errors.New("waiting for input failed")

	// ErrInputRead indicates no secret could be read from the input.
	ErrInputRead = errors.New("reading input failed")
)

// Backend registry errors.
var (
	// ErrBackendNotRegistered indicates the requested backend type is not registered.
	ErrBackendNotRegistered = errors.New("backend type not registered")

	// ErrBackendConfigInvalid indicates the backend configuration is invalid.
	ErrBackendConfigInvalid = errors.New("invalid backend configuration")

	// ErrBackendUnavailable indicates the backend is not supported by this build.
	ErrBackendUnavailable = errors.New("backend unavailable in this build")
)

// Is reports whether any error in err's tree matches target. It saves callers
// importing both this package and the standard library errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
