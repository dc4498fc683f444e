//go:build unix

package helper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infodancer/lockauth/config"
	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/errors"
	"github.com/infodancer/lockauth/lockauthtest"
	"github.com/infodancer/lockauth/outcome"
	"github.com/infodancer/lockauth/passwd"
	"github.com/infodancer/lockauth/secret"
)

// stdin returns the read end of a pipe preloaded with data. The write end
// stays open unless closeWriter is set, so a reader without data blocks.
func stdin(t *testing.T, data string, closeWriter bool) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	if data != "" {
		_, err := w.WriteString(data)
		require.NoError(t, err)
	}
	if closeWriter {
		require.NoError(t, w.Close())
	}
	return r
}

func testConfig(timeout time.Duration) *config.Config {
	cfg := config.Default()
	cfg.Input.Timeout = config.Duration(timeout)
	return &cfg
}

// untouchable fails the test if the helper touches stdin.
type untouchable struct{ t *testing.T }

func (u untouchable) Read([]byte) (int, error) {
	u.t.Error("stdin read")
	return 0, fmt.Errorf("unexpected read")
}

func (u untouchable) Fd() uintptr {
	u.t.Error("stdin descriptor used")
	return ^uintptr(0)
}

func TestRunSuccess(t *testing.T) {
	backend := &lockauthtest.Backend{}
	buf := secret.NewBuffer(secret.DefaultCapacity)
	backend.Secret = buf

	code := Run(context.Background(), []string{"alice"}, Options{
		Config:  testConfig(time.Second),
		Stdin:   stdin(t, "correct-secret\n", false),
		Backend: backend,
		Buffer:  buf,
	})

	assert.Equal(t, outcome.Success, code)
	assert.Equal(t, 0, code.ExitStatus())
	assert.Equal(t, "alice", backend.Account())
	assert.Equal(t, []string{"correct-secret"}, backend.Received())
	assert.True(t, backend.ZeroedAtEnd())
	assert.True(t, buf.Zeroed())
}

func TestRunWrongSecret(t *testing.T) {
	backend := &lockauthtest.Backend{AuthVerdict: errors.ErrAuthFailed}
	buf := secret.NewBuffer(secret.DefaultCapacity)

	code := Run(context.Background(), []string{"alice"}, Options{
		Config:  testConfig(time.Second),
		Stdin:   stdin(t, "wrong\n", false),
		Backend: backend,
		Buffer:  buf,
	})

	assert.Equal(t, 11, code.ExitStatus())
	assert.Equal(t, 0, backend.Checks())
	assert.True(t, buf.Zeroed())
}

func TestRunUnknownUser(t *testing.T) {
	backend := &lockauthtest.Backend{AuthVerdict: errors.ErrUserNotFound}

	code := Run(context.Background(), []string{"ghost"}, Options{
		Config:  testConfig(time.Second),
		Stdin:   stdin(t, "x\n", false),
		Backend: backend,
	})

	assert.Equal(t, 10, code.ExitStatus())
}

func TestRunInputTimeout(t *testing.T) {
	backend := &lockauthtest.Backend{}
	buf := secret.NewBuffer(secret.DefaultCapacity)

	code := Run(context.Background(), []string{"bob"}, Options{
		Config:  testConfig(50 * time.Millisecond),
		Stdin:   stdin(t, "", false),
		Backend: backend,
		Buffer:  buf,
	})

	assert.Equal(t, 103, code.ExitStatus())
	assert.Equal(t, 0, backend.Starts(), "no session may be created without a secret")
	assert.True(t, buf.Zeroed())
}

func TestRunInputClosed(t *testing.T) {
	backend := &lockauthtest.Backend{}

	code := Run(context.Background(), []string{"bob"}, Options{
		Config:  testConfig(time.Second),
		Stdin:   stdin(t, "", true),
		Backend: backend,
	})

	assert.Equal(t, 101, code.ExitStatus())
	assert.Equal(t, 0, backend.Starts())
}

func TestRunInvalidInvocation(t *testing.T) {
	for _, args := range [][]string{nil, {}, {"alice", "bob"}, {"a", "b", "c"}} {
		backend := &lockauthtest.Backend{}
		code := Run(context.Background(), args, Options{
			Config:  testConfig(time.Second),
			Stdin:   untouchable{t},
			Backend: backend,
		})
		assert.Equal(t, 100, code.ExitStatus(), "%q", args)
		assert.Equal(t, 0, backend.Starts())
	}
}

func TestRunBackendNotRegistered(t *testing.T) {
	cfg := testConfig(time.Second)
	cfg.Backend.Type = "nonexistent"
	buf := secret.NewBuffer(secret.DefaultCapacity)

	code := Run(context.Background(), []string{"alice"}, Options{
		Config: cfg,
		Stdin:  stdin(t, "pw\n", false),
		Buffer: buf,
	})

	assert.Equal(t, 102, code.ExitStatus())
	assert.True(t, buf.Zeroed())
}

func TestRunStandingOutcomes(t *testing.T) {
	tests := map[error]int{
		errors.ErrAcctExpired:        20,
		errors.ErrNewAuthtokRequired: 21,
		errors.ErrPermDenied:         22,
		fmt.Errorf("odd"):            23,
	}
	for verdict, want := range tests {
		backend := &lockauthtest.Backend{StandingVerdict: verdict}
		code := Run(context.Background(), []string{"alice"}, Options{
			Config:  testConfig(time.Second),
			Stdin:   stdin(t, "pw\n", false),
			Backend: backend,
		})
		assert.Equal(t, want, code.ExitStatus(), verdict.Error())
	}
}

func TestRunCapturesDiagnostics(t *testing.T) {
	backend := &lockauthtest.Backend{
		Prompts: []conversation.Prompt{
			{Style: conversation.ErrorMsg, Text: "account will expire soon"},
			{Style: conversation.PromptEchoOff, Text: "Password: "},
		},
	}
	diag := conversation.NewDiagnostics(conversation.DefaultDiagnosticsCapacity)
	var logs bytes.Buffer
	cfg := testConfig(time.Second)
	cfg.Log.Level = "debug"
	logger, err := cfg.Log.NewLogger(&logs)
	require.NoError(t, err)

	code := Run(context.Background(), []string{"alice"}, Options{
		Config:      cfg,
		Logger:      logger,
		Stdin:       stdin(t, "top-secret-value\n", false),
		Backend:     backend,
		Diagnostics: diag,
	})

	assert.Equal(t, outcome.Success, code)
	assert.Equal(t, "account will expire soon", diag.String())
	assert.Contains(t, logs.String(), "attempt=")
	assert.NotContains(t, logs.String(), "top-secret-value")
	assert.NotContains(t, logs.String(), "account will expire soon")
}

func writePasswdConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	passwdPath := filepath.Join(dir, "passwd")
	require.NoError(t, passwd.AddUser(passwdPath, "alice", []byte("correct-secret"), passwd.Policy{}))
	require.NoError(t, passwd.AddUser(passwdPath, "carol", []byte("correct-secret"), passwd.Policy{Locked: true}))

	configPath := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[input]
timeout = "1s"

[backend]
type = "passwd"
credential_backend = %q
`, passwdPath)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func TestMainWithPasswdBackend(t *testing.T) {
	t.Setenv(config.EnvPath, writePasswdConfig(t))

	tests := []struct {
		account, input string
		want           int
	}{
		{"alice", "correct-secret\n", 0},
		{"alice", "wrong\n", 11},
		{"ghost", "x\n", 10},
		{"carol", "correct-secret\n", 22},
	}
	for _, tt := range tests {
		var stderr bytes.Buffer
		got := Main(context.Background(), []string{tt.account}, stdin(t, tt.input, false), &stderr)
		assert.Equal(t, tt.want, got, "%s with %q", tt.account, tt.input)
		assert.Empty(t, stderr.String())
	}
}

func TestRunBackendLogsCarryAttempt(t *testing.T) {
	dir := t.TempDir()
	passwdPath := filepath.Join(dir, "passwd")
	require.NoError(t, passwd.AddUser(passwdPath, "alice", []byte("correct-secret"), passwd.Policy{}))

	cfg := testConfig(time.Second)
	cfg.Backend.Type = "passwd"
	cfg.Backend.CredentialBackend = passwdPath
	cfg.Log.Level = "debug"
	var logs bytes.Buffer
	logger, err := cfg.Log.NewLogger(&logs)
	require.NoError(t, err)

	code := Run(context.Background(), []string{"alice"}, Options{
		Config: cfg,
		Logger: logger,
		Stdin:  stdin(t, "correct-secret\n", false),
	})
	require.Equal(t, outcome.Success, code)

	var found bool
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "passwd session ended") {
			found = true
			assert.Contains(t, line, "attempt=")
		}
	}
	assert.True(t, found, "backend did not log through the attempt logger")
}

func TestMainInvalidInvocation(t *testing.T) {
	t.Setenv(config.EnvPath, filepath.Join(t.TempDir(), "missing.toml"))
	assert.Equal(t, 100, Main(context.Background(), nil, untouchable{t}, &bytes.Buffer{}))
	assert.Equal(t, 100, Main(context.Background(), []string{"a", "b"}, untouchable{t}, &bytes.Buffer{}))
}

func TestMainBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[input]\ntimeout = \"never\"\n"), 0o644))
	t.Setenv(config.EnvPath, path)

	assert.Equal(t, 102, Main(context.Background(), []string{"alice"}, untouchable{t}, &bytes.Buffer{}))
}
