// Package outcome defines the closed set of results a verification attempt
// can produce and their stable mapping to process exit statuses.
//
// The exit statuses are consumed by the screen locker to decide whether to
// unlock. Their meaning must never change.
package outcome

import (
	"fmt"

	"github.com/infodancer/lockauth/errors"
)

// Code is an internal verification result.
type Code int

const (
	Success Code = iota
	UserUnknown
	WrongSecret
	AuthGenericFailure
	AccountExpired
	CredentialChangeRequired
	AccountLocked
	StandingOtherFailure
	InputTimeout
	InputReadFailure
	InputWaitFailure
	SessionInitFailure
	InvalidInvocation
)

var exitStatus = map[Code]int{
	Success:                  0,
	UserUnknown:              10,
	WrongSecret:              11,
	AuthGenericFailure:       12,
	AccountExpired:           20,
	CredentialChangeRequired: 21,
	AccountLocked:            22,
	StandingOtherFailure:     23,
	InvalidInvocation:        100,
	InputReadFailure:         101,
	SessionInitFailure:       102,
	InputTimeout:             103,
	InputWaitFailure:         104,
}

var names = map[Code]string{
	Success:                  "success",
	UserUnknown:              "user unknown",
	WrongSecret:              "wrong secret",
	AuthGenericFailure:       "authentication failure",
	AccountExpired:           "account expired",
	CredentialChangeRequired: "credential change required",
	AccountLocked:            "account locked",
	StandingOtherFailure:     "account standing failure",
	InputTimeout:             "input timeout",
	InputReadFailure:         "input read failure",
	InputWaitFailure:         "input wait failure",
	SessionInitFailure:       "session initialization failure",
	InvalidInvocation:        "invalid invocation",
}

// ExitStatus returns the process exit status for c. Codes outside the
// enumeration map to the generic authentication failure status so the
// result can never be mistaken for success.
func (c Code) ExitStatus() int {
	if s, ok := exitStatus[c]; ok {
		return s
	}
	return exitStatus[AuthGenericFailure]
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("outcome(%d)", int(c))
}

// All returns every defined code in declaration order.
func All() []Code {
	codes := make([]Code, 0, len(exitStatus))
	for c := Success; c <= InvalidInvocation; c++ {
		codes = append(codes, c)
	}
	return codes
}

// FromExitStatus decodes an exit status produced by the helper.
// ok is false if status is not part of the contract.
func FromExitStatus(status int) (c Code, ok bool) {
	for code, s := range exitStatus {
		if s == status {
			return code, true
		}
	}
	return 0, false
}

// FromInputError maps a secret acquisition failure to its outcome. Errors
// that are neither a timeout nor a wait failure count as read failures.
func FromInputError(err error) Code {
	switch {
	case errors.Is(err, errors.ErrInputTimeout):
		return InputTimeout
	case errors.Is(err, errors.ErrInputWait):
		return InputWaitFailure
	default:
		return InputReadFailure
	}
}
