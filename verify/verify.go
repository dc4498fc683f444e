// Package verify drives one verification attempt against a backend:
// authenticate the secret, then check the account's standing, and classify
// every backend verdict into an outcome.Code.
package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/errors"
	"github.com/infodancer/lockauth/outcome"
	"github.com/infodancer/lockauth/secret"
)

// State is a step of the verification protocol.
type State int

const (
	StateInit State = iota
	StateSessionStarted
	StateAuthenticated
	StateStandingChecked
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSessionStarted:
		return "session-started"
	case StateAuthenticated:
		return "authenticated"
	case StateStandingChecked:
		return "standing-checked"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Machine runs a single verification attempt. It is not reusable.
type Machine struct {
	backend lockauth.Backend
	logger  *slog.Logger
	state   State
}

// New returns a Machine in StateInit.
func New(backend lockauth.Backend, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{backend: backend, logger: logger}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Run verifies the secret in buf for account. Messages emitted by the
// backend are captured in diag.
//
// buf is destroyed before Run returns on every path, and before the session
// is ended. The account standing is only checked after a successful
// authentication.
func (m *Machine) Run(ctx context.Context, account string, buf *secret.Buffer, diag *conversation.Diagnostics) (code outcome.Code) {
	defer buf.Destroy()

	if m.state != StateInit {
		return outcome.AuthGenericFailure
	}

	var session lockauth.Session
	ended := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		buf.Destroy()
		switch {
		case m.state == StateInit:
			code = outcome.SessionInitFailure
		case m.state >= StateAuthenticated:
			code = outcome.StandingOtherFailure
		default:
			code = outcome.AuthGenericFailure
		}
		if session != nil && !ended {
			_ = session.End(fmt.Errorf("%w: backend panic: %v", errors.ErrConversation, r))
		}
		m.transition(StateFinalized)
		m.logger.Error("backend panicked", slog.Any("panic", r))
	}()

	session, err := m.backend.Start(ctx, account, conversation.NewBridge(buf, diag))
	if err == nil && session == nil {
		err = fmt.Errorf("%w: backend returned no session", errors.ErrBackendUnavailable)
	}
	if err != nil {
		buf.Destroy()
		m.transition(StateFinalized)
		m.logger.Warn("session initialization failed",
			slog.String("error", err.Error()))
		return outcome.SessionInitFailure
	}
	m.transition(StateSessionStarted)

	verdict := session.Authenticate(ctx)
	code = ClassifyAuth(verdict)
	if code == outcome.Success {
		m.transition(StateAuthenticated)

		verdict = session.CheckAccount(ctx)
		code = ClassifyStanding(verdict)
		if code == outcome.Success {
			m.transition(StateStandingChecked)
		}
	}

	buf.Destroy()
	ended = true
	if err := session.End(verdict); err != nil {
		m.logger.Warn("ending session failed", slog.String("error", err.Error()))
	}
	m.transition(StateFinalized)

	m.logger.Info("verification finished",
		slog.String("outcome", code.String()),
		slog.Int("status", code.ExitStatus()))
	return code
}

func (m *Machine) transition(to State) {
	m.logger.Debug("state transition",
		slog.String("from", m.state.String()),
		slog.String("to", to.String()))
	m.state = to
}

// ClassifyAuth maps an authentication verdict to an outcome.
func ClassifyAuth(verdict error) outcome.Code {
	switch {
	case verdict == nil:
		return outcome.Success
	case errors.Is(verdict, errors.ErrUserNotFound):
		return outcome.UserUnknown
	case errors.Is(verdict, errors.ErrAuthFailed):
		return outcome.WrongSecret
	default:
		return outcome.AuthGenericFailure
	}
}

// ClassifyStanding maps an account standing verdict to an outcome.
// ErrAuthFailed is accepted as an alias for ErrPermDenied: some lockout
// modules report a locked account that way.
func ClassifyStanding(verdict error) outcome.Code {
	switch {
	case verdict == nil:
		return outcome.Success
	case errors.Is(verdict, errors.ErrAcctExpired):
		return outcome.AccountExpired
	case errors.Is(verdict, errors.ErrNewAuthtokRequired):
		return outcome.CredentialChangeRequired
	case errors.Is(verdict, errors.ErrPermDenied), errors.Is(verdict, errors.ErrAuthFailed):
		return outcome.AccountLocked
	default:
		return outcome.StandingOtherFailure
	}
}
