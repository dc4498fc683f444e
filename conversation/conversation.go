// Package conversation bridges a backend's prompt/response conversation to
// an acquired secret.
//
// Backends ask questions in batches of typed prompts. Secret prompts are
// answered with a view of the secret; informational and error messages are
// captured in a bounded Diagnostics buffer instead of being shown. Any prompt
// of an unknown kind fails the whole batch.
package conversation

import (
	"fmt"

	"github.com/infodancer/lockauth/errors"
)

// Style is the kind of a prompt.
type Style int

const (
	// PromptEchoOff asks for hidden input, usually the password.
	PromptEchoOff Style = iota + 1
	// PromptEchoOn asks for visible input.
	PromptEchoOn
	// ErrorMsg carries an error message; no response is expected.
	ErrorMsg
	// TextInfo carries an informational message; no response is expected.
	TextInfo
)

func (s Style) String() string {
	switch s {
	case PromptEchoOff:
		return "prompt-echo-off"
	case PromptEchoOn:
		return "prompt-echo-on"
	case ErrorMsg:
		return "error-msg"
	case TextInfo:
		return "text-info"
	}
	return fmt.Sprintf("style(%d)", int(s))
}

// Prompt is one message from the backend.
type Prompt struct {
	Style Style
	Text  string
}

// Response answers one prompt. Answered is false for message prompts.
//
// Secret aliases the caller's secret buffer. A backend that needs to keep
// the value must copy it into storage it owns and releases itself.
type Response struct {
	Answered bool
	Secret   []byte
}

// Handler answers a batch of prompts. It returns one response per prompt,
// or an error and no responses at all.
type Handler interface {
	Converse(prompts []Prompt) ([]Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(prompts []Prompt) ([]Response, error)

// Converse calls f.
func (f HandlerFunc) Converse(prompts []Prompt) ([]Response, error) {
	return f(prompts)
}

// Secret is the read-only view of the secret the bridge answers with.
type Secret interface {
	Bytes() []byte
}

// Bridge is the Handler used during verification. It never blocks and never
// performs I/O.
type Bridge struct {
	secret Secret
	diag   *Diagnostics
}

// NewBridge returns a Bridge answering secret prompts from secret and
// capturing messages in diag. diag may be nil to drop messages.
func NewBridge(secret Secret, diag *Diagnostics) *Bridge {
	return &Bridge{secret: secret, diag: diag}
}

// Converse builds every response for the batch before returning.
func (b *Bridge) Converse(prompts []Prompt) ([]Response, error) {
	responses := make([]Response, len(prompts))
	for i, p := range prompts {
		switch p.Style {
		case PromptEchoOff, PromptEchoOn:
			responses[i] = Response{Answered: true, Secret: b.secret.Bytes()}
		case ErrorMsg, TextInfo:
			b.diag.Append(p.Text)
		default:
			return nil, fmt.Errorf("%w: prompt %d has unknown %v", errors.ErrConversation, i, p.Style)
		}
	}
	return responses, nil
}
