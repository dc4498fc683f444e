//go:build cgo && !windows

package pamauth

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/msteinert/pam/v2"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/errors"
)

// Backend opens PAM transactions for one service.
type Backend struct {
	service string
	flags   pam.Flags
	logger  *slog.Logger
}

var _ lockauth.Backend = (*Backend)(nil)

// New returns a Backend for service. If silent is set, modules are asked
// not to emit messages.
func New(service string, silent bool, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{service: service, logger: logger}
	if silent {
		b.flags = pam.Silent
	}
	return b
}

func newBackend(service string, silent bool, logger *slog.Logger) (lockauth.Backend, error) {
	return New(service, silent, logger), nil
}

// Start begins a PAM transaction for account.
func (b *Backend) Start(_ context.Context, account string, conv conversation.Handler) (lockauth.Session, error) {
	t, err := pam.StartFunc(b.service, account, func(s pam.Style, msg string) (string, error) {
		return respond(conv, s, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("pam start %q: %w", b.service, err)
	}
	b.logger.Debug("pam transaction started", slog.String("service", b.service))
	return &session{t: t, flags: b.flags}, nil
}

// Close implements lockauth.Backend.
func (b *Backend) Close() error { return nil }

var styles = map[pam.Style]conversation.Style{
	pam.PromptEchoOff: conversation.PromptEchoOff,
	pam.PromptEchoOn:  conversation.PromptEchoOn,
	pam.ErrorMsg:      conversation.ErrorMsg,
	pam.TextInfo:      conversation.TextInfo,
}

// respond answers one PAM message through conv. Unknown styles are passed
// on as an invalid style so the handler rejects the conversation.
//
// The returned string aliases the secret buffer rather than copying it.
// unsafe.String requires the bytes to stay unchanged while the string is
// live, and Destroy later overwrites them. That holds only because
// cbPAMConv in msteinert/pam/v2 copies the reply with C.CString before it
// returns to PAM and keeps no reference to the Go string. Re-check
// cbPAMConv whenever the binding is upgraded.
func respond(conv conversation.Handler, s pam.Style, msg string) (string, error) {
	responses, err := conv.Converse([]conversation.Prompt{{Style: styles[s], Text: msg}})
	if err != nil {
		return "", err
	}
	if len(responses) != 1 || !responses[0].Answered || len(responses[0].Secret) == 0 {
		return "", nil
	}
	p := responses[0].Secret
	return unsafe.String(unsafe.SliceData(p), len(p)), nil
}

type session struct {
	t     *pam.Transaction
	flags pam.Flags
}

func (s *session) Authenticate(context.Context) error {
	return classify(s.t.Authenticate(s.flags))
}

func (s *session) CheckAccount(context.Context) error {
	return classify(s.t.AcctMgmt(s.flags))
}

// End calls pam_end. The binding passes the status of the last PAM call,
// which is the verdict the session finished with.
func (s *session) End(error) error {
	return s.t.End()
}

// classify wraps PAM errors with the matching lockauth sentinel while
// keeping the PAM error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, pam.ErrUserUnknown):
		sentinel = errors.ErrUserNotFound
	case errors.Is(err, pam.ErrAuth):
		sentinel = errors.ErrAuthFailed
	case errors.Is(err, pam.ErrAcctExpired):
		sentinel = errors.ErrAcctExpired
	case errors.Is(err, pam.ErrNewAuthtokReqd):
		sentinel = errors.ErrNewAuthtokRequired
	case errors.Is(err, pam.ErrPermDenied):
		sentinel = errors.ErrPermDenied
	case errors.Is(err, pam.ErrConv):
		sentinel = errors.ErrConversation
	default:
		return fmt.Errorf("pam: %w", err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
