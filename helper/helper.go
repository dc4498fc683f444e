// Package helper is the process boundary of the lockauth binary: it checks
// the invocation, loads the configuration, acquires the secret, runs the
// verification and turns the result into an exit status.
package helper

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/config"
	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/outcome"
	"github.com/infodancer/lockauth/secret"
	"github.com/infodancer/lockauth/verify"
)

// Options carries the collaborators of Run. Only Stdin is required.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Logger defaults to a logger discarding everything.
	Logger *slog.Logger

	// Stdin is where the secret is read from.
	Stdin secret.Input

	// Backend overrides the backend named in Config.
	Backend lockauth.Backend

	// Buffer receives the secret. Allocated from Config when nil.
	Buffer *secret.Buffer

	// Diagnostics captures backend messages. Allocated from Config when nil.
	Diagnostics *conversation.Diagnostics
}

// Main runs one invocation with the configuration from config.Path and
// returns the exit status. Operational logs, if enabled, go to stderr.
func Main(ctx context.Context, args []string, stdin secret.Input, stderr io.Writer) int {
	if _, ok := accountArg(args); !ok {
		return outcome.InvalidInvocation.ExitStatus()
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return outcome.SessionInitFailure.ExitStatus()
	}

	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return outcome.SessionInitFailure.ExitStatus()
	}
	slog.SetDefault(logger)

	return Run(ctx, args, Options{Config: cfg, Logger: logger, Stdin: stdin}).ExitStatus()
}

// Run performs one verification attempt for the account named by the single
// element of args. Nothing is read unless args is valid, and no backend
// session is opened unless a secret was read.
func Run(ctx context.Context, args []string, opts Options) outcome.Code {
	account, ok := accountArg(args)
	if !ok {
		return outcome.InvalidInvocation
	}

	cfg := opts.Config
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("attempt", uuid.NewString()))
	logger.Debug("verification requested", slog.String("account", account))

	buf := opts.Buffer
	if buf == nil {
		buf = secret.NewBuffer(cfg.Input.MaxSecret)
	}
	defer buf.Destroy()

	if opts.Stdin == nil {
		logger.Warn("no input to read the secret from")
		return outcome.InputReadFailure
	}
	if err := secret.Acquire(opts.Stdin, buf, time.Duration(cfg.Input.Timeout)); err != nil {
		code := outcome.FromInputError(err)
		logger.Warn("secret not acquired",
			slog.String("outcome", code.String()),
			slog.String("error", err.Error()))
		return code
	}

	backend := opts.Backend
	if backend == nil {
		bc := cfg.Backend.Lockauth()
		bc.Logger = logger
		b, err := lockauth.OpenBackend(bc)
		if err != nil {
			buf.Destroy()
			logger.Warn("backend unavailable",
				slog.String("backend", cfg.Backend.Type),
				slog.String("error", err.Error()))
			return outcome.SessionInitFailure
		}
		defer func() { _ = b.Close() }()
		backend = b
	}

	diag := opts.Diagnostics
	if diag == nil {
		diag = conversation.NewDiagnostics(cfg.Diagnostics.Capacity)
	}

	return verify.New(backend, logger).Run(ctx, account, buf, diag)
}

// accountArg returns the account name if args holds exactly one argument.
func accountArg(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	return args[0], true
}
