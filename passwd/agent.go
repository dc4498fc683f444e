// Package passwd implements a lockauth backend backed by a password file of
// argon2id hashes, for hosts or tests without PAM.
//
// File format, one account per line:
//
//	username:$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>[:policy]
//
// Blank lines and lines starting with # are ignored. The optional policy
// field is described by Policy.
package passwd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/errors"
)

// PasswordPrompt is the prompt sent through the conversation.
const PasswordPrompt = "Password: "

// Agent verifies accounts against a passwd file. The file is read afresh for
// every session.
type Agent struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

var _ lockauth.Backend = (*Agent)(nil)

// NewAgent returns an Agent reading passwdPath.
func NewAgent(passwdPath string, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{path: passwdPath, logger: logger, now: time.Now}
}

// Start loads the passwd file and opens a session for account.
func (a *Agent) Start(_ context.Context, account string, conv conversation.Handler) (lockauth.Session, error) {
	if conv == nil {
		return nil, fmt.Errorf("%w: nil conversation", errors.ErrBackendConfigInvalid)
	}
	entries, err := readEntries(a.path)
	if err != nil {
		return nil, fmt.Errorf("load passwd: %w", err)
	}

	s := &session{agent: a, account: account, conv: conv}
	if e, ok := entries[account]; ok {
		s.entry = &e
	}
	return s, nil
}

// Close implements lockauth.Backend.
func (a *Agent) Close() error { return nil }

type session struct {
	agent         *Agent
	account       string
	conv          conversation.Handler
	entry         *entry
	authenticated bool
	ended         bool
}

// Authenticate asks for the password even for unknown accounts so the
// conversation does not reveal whether the account exists.
func (s *session) Authenticate(context.Context) error {
	responses, err := s.conv.Converse([]conversation.Prompt{
		{Style: conversation.PromptEchoOff, Text: PasswordPrompt},
	})
	if err != nil {
		return err
	}
	if len(responses) != 1 || !responses[0].Answered {
		return fmt.Errorf("%w: password prompt not answered", errors.ErrConversation)
	}

	if s.entry == nil {
		return errors.ErrUserNotFound
	}
	if !verifyPassword(responses[0].Secret, s.entry.hash) {
		return errors.ErrAuthFailed
	}

	s.authenticated = true
	return nil
}

// CheckAccount applies the entry's policy. Locked wins over expiry, and
// expiry over a pending credential change.
func (s *session) CheckAccount(context.Context) error {
	if !s.authenticated || s.entry == nil {
		return errors.ErrPermDenied
	}

	p := s.entry.policy
	switch {
	case p.Locked:
		return errors.ErrPermDenied
	case p.Expired(s.agent.now()):
		return errors.ErrAcctExpired
	case p.MustChange:
		return errors.ErrNewAuthtokRequired
	}
	return nil
}

func (s *session) End(verdict error) error {
	if s.ended {
		return fmt.Errorf("session for %q already ended", s.account)
	}
	s.ended = true

	result := "success"
	if verdict != nil {
		result = verdict.Error()
	}
	s.agent.logger.Debug("passwd session ended",
		slog.String("account", s.account),
		slog.String("result", result))
	return nil
}
