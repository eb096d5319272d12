package stubserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/internal/rate"
	"github.com/cosync/cosyncjwt/jwt"
	"github.com/cosync/cosyncjwt/password"
)

const testAppToken = "app-token-1"

type stubClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newStub(t *testing.T, app App) (*Server, *stubClient) {
	t.Helper()
	s := New(testAppToken, app)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, &stubClient{t: t, srv: srv}
}

func (c *stubClient) call(method, path, header, token string, query url.Values, body any) (int, []byte) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = strings.NewReader(string(b))
	}
	u := c.srv.URL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, rd)
	require.NoError(c.t, err)
	if header != "" {
		req.Header.Set(header, token)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

func (c *stubClient) app(path string, body any) (int, []byte) {
	return c.call(http.MethodPost, path, api.HeaderAppToken, testAppToken, nil, body)
}

func (c *stubClient) user(access, path string, body any) (int, []byte) {
	return c.call(http.MethodPost, path, api.HeaderAccessToken, access, nil, body)
}

func decodeAuth(t *testing.T, body []byte) authResponse {
	t.Helper()
	var r authResponse
	require.NoError(t, json.Unmarshal(body, &r))
	return r
}

func TestLoginIssuesParsableJWT(t *testing.T) {
	s, c := newStub(t, DefaultApp())
	s.AddUser("alice@example.com", "Secret1!")

	status, body := c.app(api.PathLogin, api.LoginBody{Handle: "alice@example.com", Password: password.Digest("Secret1!")})
	require.Equal(t, http.StatusOK, status)

	auth := decodeAuth(t, body)
	assert.NotEmpty(t, auth.AccessToken)
	assert.Empty(t, auth.LoginToken)

	claims, err := jwt.ParseClaims(auth.JWT)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Handle)
	assert.Equal(t, "stub-app", claims.AppID)
}

func TestLoginRejectsWrongPasswordAndAppToken(t *testing.T) {
	s, c := newStub(t, DefaultApp())
	s.AddUser("alice@example.com", "Secret1!")

	status, body := c.app(api.PathLogin, api.LoginBody{Handle: "alice@example.com", Password: password.Digest("nope")})
	assert.Equal(t, http.StatusUnauthorized, status)
	e, ok := api.ParseError(body)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, e.Code)

	status, _ = c.call(http.MethodPost, api.PathLogin, api.HeaderAppToken, "wrong", nil,
		api.LoginBody{Handle: "alice@example.com", Password: password.Digest("Secret1!")})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTwoFactorLoginRequiresCompletion(t *testing.T) {
	s, c := newStub(t, DefaultApp())
	s.AddUser("bob@example.com", "Secret1!")
	s.EnableTwoFactor("bob@example.com")

	_, body := c.app(api.PathLogin, api.LoginBody{Handle: "bob@example.com", Password: password.Digest("Secret1!")})
	auth := decodeAuth(t, body)
	require.Empty(t, auth.JWT)
	require.NotEmpty(t, auth.LoginToken)

	status, _ := c.app(api.PathLoginComplete, api.LoginCompleteBody{LoginToken: auth.LoginToken, Code: "000000"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = c.app(api.PathLoginComplete, api.LoginCompleteBody{LoginToken: auth.LoginToken, Code: s.LoginCode(auth.LoginToken)})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decodeAuth(t, body).JWT)
}

func TestSignupCodeFlow(t *testing.T) {
	app := DefaultApp()
	app.SignupFlow = "code"
	s, c := newStub(t, app)

	status, body := c.app(api.PathSignup, api.SignupBody{Handle: "carol@example.com", Password: password.Digest("Secret1!")})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "true", string(body))
	assert.False(t, s.HasUser("carol@example.com"))

	code := s.SignupCode("carol@example.com")
	require.NotEmpty(t, code)

	status, body = c.app(api.PathCompleteSignup, api.CompleteSignupBody{Handle: "carol@example.com", Code: code})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decodeAuth(t, body).AccessToken)
	assert.True(t, s.HasUser("carol@example.com"))
	assert.True(t, s.CheckPassword("carol@example.com", "Secret1!"))
}

func TestInviteThenRegister(t *testing.T) {
	s, c := newStub(t, DefaultApp())

	_, body := c.app(api.PathInvite, api.InviteBody{Handle: "dave@example.com"})
	assert.Equal(t, "true", string(body))

	status, _ := c.app(api.PathRegister, api.RegisterBody{Handle: "dave@example.com", Password: "x", Code: "bad"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = c.app(api.PathRegister, api.RegisterBody{
		Handle:   "dave@example.com",
		Password: password.Digest("Secret1!"),
		Code:     s.InviteCode("dave@example.com"),
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decodeAuth(t, body).JWT)
	assert.Empty(t, s.InviteCode("dave@example.com"))
}

func TestAccountRoutesRequireAccessToken(t *testing.T) {
	s, c := newStub(t, DefaultApp())

	status, _ := c.call(http.MethodGet, api.PathGetUser, api.HeaderAccessToken, "missing", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 1, s.Calls(api.PathGetUser))
}

func TestAccountLifecycle(t *testing.T) {
	s, c := newStub(t, DefaultApp())
	s.AddUser("erin@example.com", "Secret1!")

	_, body := c.app(api.PathLogin, api.LoginBody{Handle: "erin@example.com", Password: password.Digest("Secret1!")})
	access := decodeAuth(t, body).AccessToken

	_, body = c.user(access, api.PathSetPhone, api.SetPhoneBody{Phone: "+15550100"})
	assert.Equal(t, "true", string(body))
	_, body = c.user(access, api.PathVerifyPhone, api.VerifyPhoneBody{Code: s.PhoneCode("erin@example.com")})
	assert.Equal(t, "true", string(body))
	_, body = c.user(access, api.PathSetTwoFactorPhoneVerification, api.TwoFactorBody{TwoFactor: "true"})
	assert.Equal(t, "true", string(body))
	_, body = c.user(access, api.PathSetUserMetadata, api.SetUserMetadataBody{MetaData: `{"plan":"pro"}`})
	assert.Equal(t, "true", string(body))
	_, body = c.user(access, api.PathSetUserName, api.SetUserNameBody{UserName: "erin"})
	assert.Equal(t, "true", string(body))

	_, body = c.call(http.MethodGet, api.PathUserNameAvailable, api.HeaderAccessToken, access,
		url.Values{api.QueryUserName: {"erin"}}, nil)
	available, err := api.ParseAvailable(body)
	require.NoError(t, err)
	assert.False(t, available)

	status, body := c.call(http.MethodGet, api.PathGetUser, api.HeaderAccessToken, access, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var u userResponse
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "erin", u.UserName)
	assert.True(t, u.PhoneVerified)
	assert.True(t, u.TwoFactorPhoneVerification)
	assert.JSONEq(t, `{"plan":"pro"}`, string(u.MetaData))
	assert.NotEmpty(t, u.LastLogin)

	_, body = c.user(access, api.PathChangePassword, api.ChangePasswordBody{
		NewPassword: password.Digest("Other2@x"),
		Password:    password.Digest("Secret1!"),
	})
	assert.Equal(t, "true", string(body))
	assert.True(t, s.CheckPassword("erin@example.com", "Other2@x"))
	assert.False(t, s.CheckPassword("erin@example.com", "Secret1!"))

	_, body = c.user(access, api.PathDeleteAccount, api.DeleteAccountBody{Handle: "erin@example.com", Password: password.Digest("Other2@x")})
	assert.Equal(t, "true", string(body))
	assert.False(t, s.HasUser("erin@example.com"))

	status, _ = c.call(http.MethodGet, api.PathGetUser, api.HeaderAccessToken, access, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestResetPasswordNeedsForgotCode(t *testing.T) {
	s, c := newStub(t, DefaultApp())
	s.AddUser("frank@example.com", "Secret1!")

	_, body := c.app(api.PathLogin, api.LoginBody{Handle: "frank@example.com", Password: password.Digest("Secret1!")})
	access := decodeAuth(t, body).AccessToken

	_, body = c.user(access, api.PathResetPassword, api.ResetPasswordBody{Handle: "frank@example.com", Password: "d", Code: "x"})
	assert.Equal(t, "false", string(body))

	_, body = c.app(api.PathForgotPassword, api.ForgotPasswordBody{Handle: "frank@example.com"})
	assert.Equal(t, "true", string(body))

	_, body = c.user(access, api.PathResetPassword, api.ResetPasswordBody{
		Handle:   "frank@example.com",
		Password: password.Digest("New1!pass"),
		Code:     s.ResetCode("frank@example.com"),
	})
	assert.Equal(t, "true", string(body))
	assert.True(t, s.CheckPassword("frank@example.com", "New1!pass"))
}

func TestAnonymousLoginHonoursApp(t *testing.T) {
	app := DefaultApp()
	s, c := newStub(t, app)

	status, _ := c.app(api.PathLoginAnonymous, api.LoginAnonymousBody{Handle: "ANON_1"})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, s.HasUser("ANON_1"))

	app.AnonymousLoginEnabled = false
	s.SetApp(app)
	status, _ = c.app(api.PathLoginAnonymous, api.LoginAnonymousBody{Handle: "ANON_2"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestGetApplicationServesPolicy(t *testing.T) {
	app := DefaultApp()
	app.PasswordFilter = true
	_, c := newStub(t, app)

	status, body := c.call(http.MethodGet, api.PathGetApplication, api.HeaderAppToken, testAppToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	var got App
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, app, got)
}

func TestLoginThrottledAfterFailures(t *testing.T) {
	s, c := newStub(t, DefaultApp())
	s.AddUser("alice@example.com", "Secret1!")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s.SetLoginLimiter(rate.New(rdb, rate.Config{MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute}))

	wrong := api.LoginBody{Handle: "alice@example.com", Password: password.Digest("nope")}
	right := api.LoginBody{Handle: "alice@example.com", Password: password.Digest("Secret1!")}

	for i := 0; i < 2; i++ {
		status, _ := c.app(api.PathLogin, wrong)
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := c.app(api.PathLogin, right)
	assert.Equal(t, http.StatusTooManyRequests, status)

	mr.FastForward(2 * time.Minute)
	status, _ = c.app(api.PathLogin, right)
	assert.Equal(t, http.StatusOK, status)

	mr.Close()
	status, _ = c.app(api.PathLogin, right)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestPasswordsStoredAsArgon2(t *testing.T) {
	s, c := newStub(t, DefaultApp())

	digest := password.Digest("Secret1!")
	status, _ := c.app(api.PathSignup, api.SignupBody{Handle: "gina@example.com", Password: digest})
	require.Equal(t, http.StatusOK, status)

	stored := s.PasswordHash("gina@example.com")
	assert.True(t, strings.HasPrefix(stored, "$argon2id$"))
	assert.NotContains(t, stored, digest)
	assert.True(t, s.CheckPassword("gina@example.com", "Secret1!"))
	assert.False(t, s.CheckPassword("gina@example.com", "Secret2!"))
	assert.False(t, s.CheckPassword("nobody@example.com", "Secret1!"))
}

func TestSignupRejectsNonDigestPassword(t *testing.T) {
	s, c := newStub(t, DefaultApp())

	status, _ := c.app(api.PathSignup, api.SignupBody{Handle: "hank@example.com", Password: "Secret1!"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, s.HasUser("hank@example.com"))
}
