package cosyncjwt

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/password"
	"github.com/cosync/cosyncjwt/transport"
)

const (
	opGetApplication = "get_application"
	opSignup         = "signup"
	opRegister       = "register"
	opCompleteSignup = "complete_signup"
	opInvite         = "invite"
)

// accountCreation parameterises the shared signup and register flow.
type accountCreation struct {
	op           string
	path         string
	success      MetricID
	pending      MetricID
	failure      MetricID
	auditSuccess string
	auditPending string
	auditFailure string
}

var (
	signupCreation = accountCreation{
		op:           opSignup,
		path:         api.PathSignup,
		success:      MetricSignupSuccess,
		pending:      MetricSignupPending,
		failure:      MetricSignupFailure,
		auditSuccess: auditEventSignupSuccess,
		auditPending: auditEventSignupPending,
		auditFailure: auditEventSignupFailure,
	}
	registerCreation = accountCreation{
		op:           opRegister,
		path:         api.PathRegister,
		success:      MetricRegisterSuccess,
		pending:      MetricRegisterPending,
		failure:      MetricRegisterFailure,
		auditSuccess: auditEventRegisterSuccess,
		auditPending: auditEventRegisterPending,
		auditFailure: auditEventRegisterFailure,
	}
)

// GetApplication fetches the application's authentication policy. It always
// uses the app-token credential and never touches the Session.
func (c *Client) GetApplication(ctx context.Context) (*AppPolicy, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress, err := c.requireConfigured()
	if err != nil {
		return nil, c.fail(ctx, opGetApplication, "", metricNone, auditEventGetApplication, err)
	}

	policy, err := c.fetchApplication(ctx, appToken, restAddress)
	if err != nil {
		return nil, c.fail(ctx, opGetApplication, "", metricNone, auditEventGetApplication, err)
	}

	c.succeed(ctx, opGetApplication, "", metricNone, "")
	return policy, nil
}

func (c *Client) fetchApplication(ctx context.Context, appToken, restAddress string) (*AppPolicy, error) {
	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodGet,
		BaseURL:    restAddress,
		Path:       api.PathGetApplication,
		Credential: appCredential(appToken),
	})
	if err != nil {
		return nil, err
	}

	policy := DefaultAppPolicy()
	if err := api.DecodeJSON(body, &policy); err != nil {
		return nil, fmt.Errorf("%w: decode application: %v", ErrSomethingWentWrong, err)
	}
	return &policy, nil
}

// Signup creates an account for handle.
//
// The application policy is fetched fresh on every call. When its password
// filter is on, pw is checked locally first and a *PasswordError is returned
// without calling the signup endpoint.
//
// Signup completes in one call only when the application's signup flow is
// "none"; then the JWT and access token are stored in the Session. For the
// "code" and "link" flows the backend accepts the request but Signup returns
// ErrCompletionPending (which is also ErrSomethingWentWrong) and leaves the
// Session untouched; CompleteSignup or the emailed link finishes the account.
func (c *Client) Signup(ctx context.Context, handle, pw, metaData string) (*AuthResult, error) {
	return c.createAccount(ctx, signupCreation, handle, pw, func(digest string) any {
		return api.SignupBody{Handle: handle, Password: digest, MetaData: metaData}
	})
}

// Register creates an invited account using the invitation code. It follows
// the same policy check and two-phase rule as Signup.
func (c *Client) Register(ctx context.Context, handle, pw, metaData, code string) (*AuthResult, error) {
	return c.createAccount(ctx, registerCreation, handle, pw, func(digest string) any {
		return api.RegisterBody{Handle: handle, Password: digest, MetaData: metaData, Code: code}
	})
}

func (c *Client) createAccount(
	ctx context.Context,
	flow accountCreation,
	handle string,
	pw string,
	buildBody func(digest string) any,
) (*AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress, err := c.requireConfigured()
	if err != nil {
		return nil, c.fail(ctx, flow.op, handle, flow.failure, flow.auditFailure, err)
	}

	policy, err := c.fetchApplication(ctx, appToken, restAddress)
	if err != nil {
		return nil, c.fail(ctx, flow.op, handle, flow.failure, flow.auditFailure, err)
	}

	if policy.PasswordFilter {
		if failed := password.Check(pw, policy.PasswordPolicy()); len(failed) > 0 {
			return nil, c.fail(ctx, flow.op, handle, flow.failure, flow.auditFailure, &PasswordError{Failed: failed})
		}
	}

	resp, err := c.do(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       flow.path,
		Credential: appCredential(appToken),
		Body:       buildBody(password.Digest(pw)),
	})
	if err != nil {
		return nil, c.fail(ctx, flow.op, handle, flow.failure, flow.auditFailure, err)
	}

	// Only the "none" flow completes here. The backend has accepted the
	// request either way.
	if policy.SignupFlow != SignupFlowNone {
		c.metrics.Inc(flow.pending)
		c.logger.Info().
			Str("op", flow.op).
			Str("handle", handle).
			Str("signup_flow", string(policy.SignupFlow)).
			Msg("account awaiting completion")
		c.emitAudit(ctx, flow.auditPending, false, handle, ErrCompletionPending, func() map[string]string {
			return map[string]string{"signup_flow": string(policy.SignupFlow)}
		})
		return nil, ErrCompletionPending
	}

	result, err := decodeAuthResult(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, flow.op, handle, flow.failure, flow.auditFailure, err)
	}

	c.session.setTokens(result)
	c.sessionChanged(flow.op, handle)
	c.succeed(ctx, flow.op, handle, flow.success, flow.auditSuccess)
	return result, nil
}

// CompleteSignup finishes a "code" flow signup. On success the JWT and access
// token are stored in the Session. No configuration check is made.
func (c *Client) CompleteSignup(ctx context.Context, handle, code string) (*AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress := c.configuration()
	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       api.PathCompleteSignup,
		Credential: appCredential(appToken),
		Body:       api.CompleteSignupBody{Handle: handle, Code: code},
	})
	if err != nil {
		return nil, c.fail(ctx, opCompleteSignup, handle, MetricSignupCompleteFailure, auditEventCompleteSignupFailure, err)
	}

	result, err := decodeAuthResult(body)
	if err != nil {
		return nil, c.fail(ctx, opCompleteSignup, handle, MetricSignupCompleteFailure, auditEventCompleteSignupFailure, err)
	}

	c.session.setTokens(result)
	c.sessionChanged(opCompleteSignup, handle)
	c.succeed(ctx, opCompleteSignup, handle, MetricSignupCompleteSuccess, auditEventCompleteSignupSuccess)
	return result, nil
}

// Invite asks the backend to invite handle. metaData and senderUserID are
// optional and omitted from the request when empty. No configuration check is
// made and the Session is not touched.
func (c *Client) Invite(ctx context.Context, handle, metaData, senderUserID string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	ctx = ensureRequestID(ctx)

	appToken, restAddress := c.configuration()
	body, err := c.send(ctx, &transport.Request{
		Method:     http.MethodPost,
		BaseURL:    restAddress,
		Path:       api.PathInvite,
		Credential: appCredential(appToken),
		Body:       api.InviteBody{Handle: handle, MetaData: metaData, SenderUserID: senderUserID},
	})
	if err != nil {
		return false, c.fail(ctx, opInvite, handle, metricNone, auditEventInvite, err)
	}

	ok, err := decodeBool(body)
	if err != nil {
		return false, c.fail(ctx, opInvite, handle, metricNone, auditEventInvite, err)
	}

	c.succeed(ctx, opInvite, handle, MetricInviteSent, auditEventInvite)
	return ok, nil
}
