package cosyncjwt

import (
	"context"
	"net/http"
	"strings"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/password"
	"github.com/cosync/cosyncjwt/transport"
	"github.com/google/uuid"
)

const (
	opLogin          = "login"
	opLoginComplete  = "login_complete"
	opLoginAnonymous = "login_anonymous"
	opForgotPassword = "forgot_password"
	opLogout         = "logout"
)

// NewAnonymousHandle returns a fresh handle accepted by LoginAnonymous.
func NewAnonymousHandle() string {
	return AnonymousHandlePrefix + uuid.NewString()
}

// Login authenticates handle with pw.
//
// On success the JWT, access token and login token from the response replace
// the Session's. When the application requires a second factor the response
// carries only a login token: AuthResult.NeedsCompletion reports true and
// LoginComplete must follow.
//
// Login returns ErrNotConfigured before any network call when the Client has
// no app token.
func (c *Client) Login(ctx context.Context, handle, pw string) (*AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress, err := c.requireConfigured()
	if err != nil {
		return nil, c.fail(ctx, opLogin, handle, MetricLoginFailure, auditEventLoginFailure, err)
	}

	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       api.PathLogin,
		Credential: appCredential(appToken),
		Body:       api.LoginBody{Handle: handle, Password: password.Digest(pw)},
	})
	if err != nil {
		return nil, c.fail(ctx, opLogin, handle, MetricLoginFailure, auditEventLoginFailure, err)
	}

	result, err := decodeAuthResult(body)
	if err != nil {
		return nil, c.fail(ctx, opLogin, handle, MetricLoginFailure, auditEventLoginFailure, err)
	}

	c.session.setLogin(result)
	c.sessionChanged(opLogin, handle)

	if result.NeedsCompletion() {
		c.succeed(ctx, opLogin, handle, MetricLoginCompletionRequired, auditEventLoginCompletionRequired)
		return result, nil
	}
	c.succeed(ctx, opLogin, handle, MetricLoginSuccess, auditEventLoginSuccess)
	return result, nil
}

// LoginComplete finishes a two-factor login using the login token stored by
// the preceding Login and the code the user received.
//
// LoginComplete does not check configuration; it relies on Login having done so.
// On success the JWT and access token are stored in the Session.
func (c *Client) LoginComplete(ctx context.Context, code string) (*AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress := c.configuration()
	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       api.PathLoginComplete,
		Credential: appCredential(appToken),
		Body:       api.LoginCompleteBody{LoginToken: c.session.LoginToken(), Code: code},
	})
	if err != nil {
		return nil, c.fail(ctx, opLoginComplete, "", MetricLoginCompleteFailure, auditEventLoginCompleteFailure, err)
	}

	result, err := decodeAuthResult(body)
	if err != nil {
		return nil, c.fail(ctx, opLoginComplete, "", MetricLoginCompleteFailure, auditEventLoginCompleteFailure, err)
	}

	c.session.setTokens(result)
	c.sessionChanged(opLoginComplete, "")
	c.succeed(ctx, opLoginComplete, "", MetricLoginCompleteSuccess, auditEventLoginCompleteSuccess)
	return result, nil
}

// LoginAnonymous authenticates an anonymous user. handle must start with
// AnonymousHandlePrefix; otherwise ErrInvalidCredentials is returned without a
// network call. See NewAnonymousHandle.
func (c *Client) LoginAnonymous(ctx context.Context, handle string) (*AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress, err := c.requireConfigured()
	if err != nil {
		return nil, c.fail(ctx, opLoginAnonymous, handle, MetricAnonymousLoginFailure, auditEventAnonymousLoginFailure, err)
	}
	if !strings.HasPrefix(handle, AnonymousHandlePrefix) {
		return nil, c.fail(ctx, opLoginAnonymous, handle, MetricAnonymousLoginFailure, auditEventAnonymousLoginFailure, ErrInvalidCredentials)
	}

	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       api.PathLoginAnonymous,
		Credential: appCredential(appToken),
		Body:       api.LoginAnonymousBody{Handle: handle},
	})
	if err != nil {
		return nil, c.fail(ctx, opLoginAnonymous, handle, MetricAnonymousLoginFailure, auditEventAnonymousLoginFailure, err)
	}

	result, err := decodeAuthResult(body)
	if err != nil {
		return nil, c.fail(ctx, opLoginAnonymous, handle, MetricAnonymousLoginFailure, auditEventAnonymousLoginFailure, err)
	}

	c.session.setTokens(result)
	c.sessionChanged(opLoginAnonymous, handle)
	c.succeed(ctx, opLoginAnonymous, handle, MetricAnonymousLoginSuccess, auditEventAnonymousLoginSuccess)
	return result, nil
}

// ForgotPassword asks the backend to start a password reset for handle and
// reports the backend's answer. The Session is not touched.
func (c *Client) ForgotPassword(ctx context.Context, handle string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress, err := c.requireConfigured()
	if err != nil {
		return false, c.fail(ctx, opForgotPassword, handle, metricNone, auditEventForgotPassword, err)
	}

	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       api.PathForgotPassword,
		Credential: appCredential(appToken),
		Body:       api.ForgotPasswordBody{Handle: handle},
	})
	if err != nil {
		return false, c.fail(ctx, opForgotPassword, handle, metricNone, auditEventForgotPassword, err)
	}

	ok, err := decodeBool(body)
	if err != nil {
		return false, c.fail(ctx, opForgotPassword, handle, metricNone, auditEventForgotPassword, err)
	}

	c.succeed(ctx, opForgotPassword, handle, MetricForgotPassword, auditEventForgotPassword)
	return ok, nil
}

// Logout clears every Session field. It never fails and is idempotent.
func (c *Client) Logout() {
	if c == nil || c.session == nil {
		return
	}
	c.session.clear()
	c.metrics.Inc(MetricLogout)
	c.logger.Info().Str("op", opLogout).Msg("session cleared")
	c.emitAudit(context.Background(), auditEventLogout, true, "", nil, nil)
}
