package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosync/cosyncjwt"
	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/internal/stubserver"
)

const testAppToken = "cli-app-token"

// feeder answers one prompt per Read, evaluating each line lazily so codes
// issued by earlier requests can be typed back.
type feeder struct {
	lines []func() string
}

func feed(lines ...func() string) *feeder {
	return &feeder{lines: lines}
}

func text(s string) func() string {
	return func() string { return s }
}

func (f *feeder) Read(p []byte) (int, error) {
	if len(f.lines) == 0 {
		return 0, io.EOF
	}
	s := f.lines[0]() + "\n"
	f.lines = f.lines[1:]
	return copy(p, s), nil
}

type run struct {
	stdout string
	stderr string
	err    error
}

func newBackend(t *testing.T, app stubserver.App) (*stubserver.Server, string) {
	t.Helper()
	backend := stubserver.New(testAppToken, app)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv.URL
}

func execute(t *testing.T, in io.Reader, env map[string]string, args ...string) run {
	t.Helper()
	if in == nil {
		in = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(Env{
		Stdin:  in,
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(k string) string { return env[k] },
	})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return run{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func withServer(url string, args ...string) []string {
	return append([]string{"--app-token", testAppToken, "--rest-address", url}, args...)
}

func TestAppPrintsPolicy(t *testing.T) {
	app := stubserver.DefaultApp()
	app.SignupFlow = "code"
	_, url := newBackend(t, app)

	r := execute(t, nil, nil, withServer(url, "app")...)
	require.NoError(t, r.err)

	var policy cosyncjwt.AppPolicy
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &policy))
	assert.Equal(t, cosyncjwt.SignupFlowCode, policy.SignupFlow)
	assert.Equal(t, "stub", policy.Name)
}

func TestMissingAppTokenIsConfigError(t *testing.T) {
	r := execute(t, nil, nil, "app")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "app token is required")
	assert.Equal(t, ExitConfig, ExitCode(r.err))
}

func TestMissingHandleIsUsageError(t *testing.T) {
	_, url := newBackend(t, stubserver.DefaultApp())
	r := execute(t, nil, nil, withServer(url, "login")...)
	require.Error(t, r.err)
	assert.Equal(t, ExitUsage, ExitCode(r.err))
}

func TestLoginPrintsProfile(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())
	backend.AddUser("alice@example.com", "Secret1!")

	r := execute(t, feed(text("Secret1!")), nil, withServer(url, "login", "--handle", "alice@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"handle": "alice@example.com"`)
	assert.Contains(t, r.stderr, "Password: ")
	assert.Equal(t, 1, backend.Calls(api.PathGetUser))
}

func TestLoginWrongPasswordFails(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())
	backend.AddUser("alice@example.com", "Secret1!")

	r := execute(t, feed(text("nope")), nil, withServer(url, "login", "--handle", "alice@example.com")...)
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, cosyncjwt.ErrSomethingWentWrong)
	assert.Equal(t, ExitError, ExitCode(r.err))
	assert.Zero(t, backend.Calls(api.PathGetUser))
}

func TestLoginPromptsForSecondFactor(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())
	backend.AddUser("alice@example.com", "Secret1!")
	backend.EnableTwoFactor("alice@example.com")

	in := feed(
		text("Secret1!"),
		func() string { return backend.PendingLoginCode("alice@example.com") },
	)
	r := execute(t, in, nil, withServer(url, "login", "--handle", "alice@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Verification code: ")
	assert.Equal(t, 1, backend.Calls(api.PathLoginComplete))
	assert.Contains(t, r.stdout, `"handle": "alice@example.com"`)
}

func TestLoginAnonymousGeneratesHandle(t *testing.T) {
	_, url := newBackend(t, stubserver.DefaultApp())

	r := execute(t, nil, nil, withServer(url, "login-anonymous")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "logged in as "+cosyncjwt.AnonymousHandlePrefix)
}

func TestLoginAnonymousRejectsBadPrefix(t *testing.T) {
	_, url := newBackend(t, stubserver.DefaultApp())

	r := execute(t, nil, nil, withServer(url, "login-anonymous", "--handle", "bob")...)
	require.Error(t, r.err)
	assert.Equal(t, ExitAuth, ExitCode(r.err))
}

func TestSignupSingleStep(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())

	r := execute(t, feed(text("Secret1!")), nil,
		withServer(url, "signup", "--handle", "bob@example.com", "--metadata", `{"plan":"free"}`)...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "account created for bob@example.com")
	assert.True(t, backend.HasUser("bob@example.com"))
}

func TestSignupCodeFlowPromptsForCode(t *testing.T) {
	app := stubserver.DefaultApp()
	app.SignupFlow = "code"
	backend, url := newBackend(t, app)

	in := feed(
		text("Secret1!"),
		func() string { return backend.SignupCode("bob@example.com") },
	)
	r := execute(t, in, nil, withServer(url, "signup", "--handle", "bob@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Signup code: ")
	assert.True(t, backend.HasUser("bob@example.com"))
	assert.Equal(t, 1, backend.Calls(api.PathCompleteSignup))
}

func TestSignupLinkFlowPrintsInstruction(t *testing.T) {
	app := stubserver.DefaultApp()
	app.SignupFlow = "link"
	backend, url := newBackend(t, app)

	r := execute(t, feed(text("Secret1!")), nil, withServer(url, "signup", "--handle", "bob@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "check the inbox of bob@example.com")
	assert.False(t, backend.HasUser("bob@example.com"))
}

func TestSignupPasswordPolicyIsUsageError(t *testing.T) {
	app := stubserver.DefaultApp()
	app.PasswordFilter = true
	backend, url := newBackend(t, app)

	r := execute(t, feed(text("weak")), nil, withServer(url, "signup", "--handle", "bob@example.com")...)
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, cosyncjwt.ErrPasswordInvalid)
	assert.Equal(t, ExitUsage, ExitCode(r.err))
	assert.Zero(t, backend.Calls(api.PathSignup))
}

func TestInviteThenRegister(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())

	r := execute(t, nil, nil, withServer(url, "invite", "--handle", "carol@example.com", "--sender", "u-1")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "invited: true")

	code := backend.InviteCode("carol@example.com")
	require.NotEmpty(t, code)

	r = execute(t, feed(text("Secret1!")), nil,
		withServer(url, "register", "--handle", "carol@example.com", "--code", code)...)
	require.NoError(t, r.err)
	assert.True(t, backend.HasUser("carol@example.com"))
}

func TestForgotPassword(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())
	backend.AddUser("alice@example.com", "Secret1!")

	r := execute(t, nil, nil, withServer(url, "forgot-password", "--handle", "alice@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "reset requested: true")
	assert.NotEmpty(t, backend.ResetCode("alice@example.com"))
}

func TestChangePassword(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())
	backend.AddUser("alice@example.com", "Secret1!")

	r := execute(t, feed(text("Secret1!"), text("Secret2!")), nil,
		withServer(url, "change-password", "--handle", "alice@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "password changed: true")
	assert.True(t, backend.CheckPassword("alice@example.com", "Secret2!"))
	assert.False(t, backend.CheckPassword("alice@example.com", "Secret1!"))
}

func TestDeleteAccount(t *testing.T) {
	backend, url := newBackend(t, stubserver.DefaultApp())
	backend.AddUser("alice@example.com", "Secret1!")

	r := execute(t, feed(text("Secret1!")), nil,
		withServer(url, "delete-account", "--handle", "alice@example.com")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "account deleted: true")
	assert.False(t, backend.HasUser("alice@example.com"))
}

func TestSettingsPrecedence(t *testing.T) {
	_, url := newBackend(t, stubserver.DefaultApp())

	dir := t.TempDir()
	path := filepath.Join(dir, "cosyncjwt.yaml")
	content := "app_token: wrong-token\nrest_address: " + url + "\nlog_level: debug\ntimeout: 5s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// File token is rejected by the backend; the environment overrides it.
	r := execute(t, nil, nil, "--config", path, "app")
	require.Error(t, r.err)

	env := map[string]string{EnvAppToken: testAppToken}
	r = execute(t, nil, env, "--config", path, "app")
	require.NoError(t, r.err)

	// Flags override the environment.
	r = execute(t, nil, env, "--config", path, "--app-token", "wrong-token", "app")
	require.Error(t, r.err)
}

func TestInvalidLogLevel(t *testing.T) {
	r := execute(t, nil, nil, "--log-level", "loud", "app")
	require.Error(t, r.err)
	assert.Equal(t, ExitConfig, ExitCode(r.err))
}

func TestPlainHTTPRemoteWarns(t *testing.T) {
	r := execute(t, nil, nil, "--app-token", testAppToken, "--rest-address", "http://rest.example.test",
		"login-anonymous", "--handle", "bob")
	require.ErrorIs(t, r.err, cosyncjwt.ErrInvalidCredentials)
	assert.Contains(t, r.stderr, "rest_address_plain_http")
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, cosyncjwt.DefaultRestAddress, cfg.RestAddress)
	assert.Equal(t, "warn", cfg.LogLevel)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitConfig, ExitCode(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [1, 2"), 0o600))
	_, err = LoadFile(path)
	require.Error(t, err)
}

func TestClientConfigValidates(t *testing.T) {
	fc := defaultFileConfig()
	fc.AppToken = testAppToken
	fc.RestAddress = "ftp://example.test"
	_, err := fc.clientConfig()
	require.Error(t, err)

	fc.RestAddress = "https://rest.example.test"
	fc.Audit = true
	cfg, err := fc.clientConfig()
	require.NoError(t, err)
	assert.Equal(t, testAppToken, cfg.AppToken)
	assert.True(t, cfg.Audit.Enabled)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitConfig, ExitCode(cosyncjwt.ErrNotConfigured))
	assert.Equal(t, ExitAuth, ExitCode(cosyncjwt.ErrNoAccessToken))
	assert.Equal(t, ExitUsage, ExitCode(&cosyncjwt.PasswordError{}))
	assert.Equal(t, ExitError, ExitCode(cosyncjwt.ErrSomethingWentWrong))
}

func TestSecretUsesTerminalWhenAvailable(t *testing.T) {
	origRead, origIsTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = origRead, origIsTerm })

	readPassword = func(int) ([]byte, error) { return []byte("hidden"), nil }
	isTerminal = func(int) bool { return true }

	var out bytes.Buffer
	p := &prompter{out: &out, fd: 7}
	got, err := p.Secret("Password")
	require.NoError(t, err)
	assert.Equal(t, "hidden", got)
	assert.Equal(t, "Password: \n", out.String())
}

func TestLineAcceptsFinalLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("last"), &out)
	got, err := p.Line("Code")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = p.Line("Code")
	assert.ErrorIs(t, err, io.EOF)
}
