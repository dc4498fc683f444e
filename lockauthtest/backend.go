// Package lockauthtest provides a scripted lockauth.Backend for tests.
package lockauthtest

import (
	"context"
	"sync"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/conversation"
)

// Zeroer reports whether secret memory has been wiped.
type Zeroer interface {
	Zeroed() bool
}

// Backend returns scripted verdicts and records every call made to it.
type Backend struct {
	// StartErr is returned by Start.
	StartErr error
	// StartPanic, if non-nil, makes Start panic with it.
	StartPanic any
	// NilSession makes Start return neither a session nor an error.
	NilSession bool
	// AuthVerdict is returned by Authenticate after the conversation.
	AuthVerdict error
	// StandingVerdict is returned by CheckAccount.
	StandingVerdict error
	// Prompts are sent to the conversation by Authenticate. Defaults to a
	// single hidden password prompt.
	Prompts []conversation.Prompt
	// AuthPanic, if non-nil, makes Authenticate panic with it.
	AuthPanic any
	// Secret, if set, is inspected when the session ends.
	Secret Zeroer

	mu            sync.Mutex
	starts        int
	authenticates int
	checks        int
	ends          int
	account       string
	received      []string
	endVerdict    error
	zeroedAtEnd   bool
}

var _ lockauth.Backend = (*Backend)(nil)

// Start implements lockauth.Backend.
func (b *Backend) Start(_ context.Context, account string, conv conversation.Handler) (lockauth.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.starts++
	b.account = account
	if b.StartPanic != nil {
		panic(b.StartPanic)
	}
	if b.StartErr != nil {
		return nil, b.StartErr
	}
	if b.NilSession {
		return nil, nil
	}
	return &session{backend: b, conv: conv}, nil
}

// Close implements lockauth.Backend.
func (b *Backend) Close() error { return nil }

// Starts returns the number of sessions started.
func (b *Backend) Starts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts
}

// Authenticates returns the number of Authenticate calls.
func (b *Backend) Authenticates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authenticates
}

// Checks returns the number of CheckAccount calls.
func (b *Backend) Checks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checks
}

// Ends returns the number of End calls.
func (b *Backend) Ends() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ends
}

// Account returns the account passed to the last Start.
func (b *Backend) Account() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account
}

// Received returns copies of the secrets answered through the conversation.
func (b *Backend) Received() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.received...)
}

// EndVerdict returns the verdict the session was ended with.
func (b *Backend) EndVerdict() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endVerdict
}

// ZeroedAtEnd reports whether Secret was already wiped when End was called.
func (b *Backend) ZeroedAtEnd() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.zeroedAtEnd
}

type session struct {
	backend *Backend
	conv    conversation.Handler
}

func (s *session) Authenticate(context.Context) error {
	b := s.backend
	b.mu.Lock()
	b.authenticates++
	prompts := b.Prompts
	if prompts == nil {
		prompts = []conversation.Prompt{{Style: conversation.PromptEchoOff, Text: "Password: "}}
	}
	panicWith := b.AuthPanic
	b.mu.Unlock()

	if panicWith != nil {
		panic(panicWith)
	}

	responses, err := s.conv.Converse(prompts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range responses {
		if r.Answered {
			b.received = append(b.received, string(r.Secret))
		}
	}
	return b.AuthVerdict
}

func (s *session) CheckAccount(context.Context) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checks++
	return b.StandingVerdict
}

func (s *session) End(verdict error) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ends++
	b.endVerdict = verdict
	if b.Secret != nil {
		b.zeroedAtEnd = b.Secret.Zeroed()
	}
	return nil
}
