package cosyncjwt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/password"
	"github.com/cosync/cosyncjwt/transport"
)

const (
	opGetUser                        = "get_user"
	opResetPassword                  = "reset_password"
	opChangePassword                 = "change_password"
	opSetPhone                       = "set_phone"
	opVerifyPhone                    = "verify_phone"
	opSetTwoFactorPhoneVerification  = "set_two_factor_phone_verification"
	opSetTwoFactorGoogleVerification = "set_two_factor_google_verification"
	opSetUserMetadata                = "set_user_metadata"
	opUserNameAvailable              = "user_name_available"
	opSetUserName                    = "set_user_name"
	opDeleteAccount                  = "delete_account"
)

// accountCall runs one access-token request. It returns ErrNoAccessToken
// without a network call while the Session has no access token.
func (c *Client) accountCall(
	ctx context.Context,
	op string,
	handle string,
	method string,
	path string,
	query url.Values,
	body any,
) ([]byte, error) {
	token := c.session.AccessToken()
	if token == "" {
		return nil, c.fail(ctx, op, handle, MetricAccountUpdateFailure, auditEventAccountUpdate, ErrNoAccessToken)
	}

	_, restAddress := c.configuration()
	data, err := c.send(ctx, &transport.Request{
		Method:     method,
		BaseURL:    restAddress,
		Path:       path,
		Query:      query,
		Credential: accessCredential(token),
		Body:       body,
	})
	if err != nil {
		return nil, c.fail(ctx, op, handle, MetricAccountUpdateFailure, auditEventAccountUpdate, err)
	}
	return data, nil
}

// accountBool runs a POST whose response is a boolean string.
func (c *Client) accountBool(ctx context.Context, op, handle, path string, body any) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	ctx = ensureRequestID(ctx)

	data, err := c.accountCall(ctx, op, handle, http.MethodPost, path, nil, body)
	if err != nil {
		return false, err
	}

	ok, err := decodeBool(data)
	if err != nil {
		return false, c.fail(ctx, op, handle, MetricAccountUpdateFailure, auditEventAccountUpdate, err)
	}

	c.succeed(ctx, op, handle, MetricAccountUpdateSuccess, auditEventAccountUpdate)
	return ok, nil
}

// GetUser returns the profile of the logged-in user.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	ctx = ensureRequestID(ctx)

	data, err := c.accountCall(ctx, opGetUser, "", http.MethodGet, api.PathGetUser, nil, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := api.DecodeJSON(data, &user); err != nil {
		err = fmt.Errorf("%w: decode user: %v", ErrSomethingWentWrong, err)
		return nil, c.fail(ctx, opGetUser, "", MetricAccountUpdateFailure, auditEventAccountUpdate, err)
	}

	c.succeed(ctx, opGetUser, user.Handle, metricNone, "")
	return &user, nil
}

// ResetPassword sets a new password for handle using the reset code delivered
// after ForgotPassword.
func (c *Client) ResetPassword(ctx context.Context, handle, pw, code string) (bool, error) {
	return c.accountBool(ctx, opResetPassword, handle, api.PathResetPassword, api.ResetPasswordBody{
		Handle:   handle,
		Password: password.Digest(pw),
		Code:     code,
	})
}

// ChangePassword replaces the current password pw with newPw. Both are
// digested before sending.
func (c *Client) ChangePassword(ctx context.Context, newPw, pw string) (bool, error) {
	return c.accountBool(ctx, opChangePassword, "", api.PathChangePassword, api.ChangePasswordBody{
		NewPassword: password.Digest(newPw),
		Password:    password.Digest(pw),
	})
}

// SetPhone registers phone for the user and triggers a verification code.
func (c *Client) SetPhone(ctx context.Context, phone string) (bool, error) {
	return c.accountBool(ctx, opSetPhone, "", api.PathSetPhone, api.SetPhoneBody{Phone: phone})
}

// VerifyPhone confirms the phone number with the code sent by SetPhone.
func (c *Client) VerifyPhone(ctx context.Context, code string) (bool, error) {
	return c.accountBool(ctx, opVerifyPhone, "", api.PathVerifyPhone, api.VerifyPhoneBody{Code: code})
}

// SetTwoFactorPhoneVerification turns SMS second-factor verification on or off.
func (c *Client) SetTwoFactorPhoneVerification(ctx context.Context, enable bool) (bool, error) {
	return c.accountBool(ctx, opSetTwoFactorPhoneVerification, "", api.PathSetTwoFactorPhoneVerification,
		api.TwoFactorBody{TwoFactor: strconv.FormatBool(enable)})
}

// SetTwoFactorGoogleVerification turns authenticator-app verification on or off.
func (c *Client) SetTwoFactorGoogleVerification(ctx context.Context, enable bool) (bool, error) {
	return c.accountBool(ctx, opSetTwoFactorGoogleVerification, "", api.PathSetTwoFactorGoogleVerification,
		api.TwoFactorBody{TwoFactor: strconv.FormatBool(enable)})
}

// SetUserMetadata replaces the user's metadata. metaData is a JSON document
// sent as a string.
func (c *Client) SetUserMetadata(ctx context.Context, metaData string) (bool, error) {
	return c.accountBool(ctx, opSetUserMetadata, "", api.PathSetUserMetadata, api.SetUserMetadataBody{MetaData: metaData})
}

// UserNameAvailable reports whether userName is free in this application.
func (c *Client) UserNameAvailable(ctx context.Context, userName string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	ctx = ensureRequestID(ctx)

	query := url.Values{api.QueryUserName: {userName}}
	data, err := c.accountCall(ctx, opUserNameAvailable, "", http.MethodGet, api.PathUserNameAvailable, query, nil)
	if err != nil {
		return false, err
	}

	available, err := api.ParseAvailable(data)
	if err != nil {
		err = fmt.Errorf("%w: decode availability: %v", ErrSomethingWentWrong, err)
		return false, c.fail(ctx, opUserNameAvailable, "", MetricAccountUpdateFailure, auditEventAccountUpdate, err)
	}

	c.succeed(ctx, opUserNameAvailable, "", metricNone, "")
	return available, nil
}

// SetUserName assigns userName to the logged-in user.
func (c *Client) SetUserName(ctx context.Context, userName string) (bool, error) {
	return c.accountBool(ctx, opSetUserName, "", api.PathSetUserName, api.SetUserNameBody{UserName: userName})
}

// DeleteAccount permanently deletes the account identified by handle and pw.
// The Session is left as is; call Logout afterwards.
func (c *Client) DeleteAccount(ctx context.Context, handle, pw string) (bool, error) {
	ctx = ensureRequestID(ctx)
	ok, err := c.accountBool(ctx, opDeleteAccount, handle, api.PathDeleteAccount, api.DeleteAccountBody{
		Handle:   handle,
		Password: password.Digest(pw),
	})
	if err != nil {
		return false, err
	}
	if ok {
		c.metrics.Inc(MetricAccountDeleted)
		c.emitAudit(ctx, auditEventAccountDeleted, true, handle, nil, nil)
	}
	return ok, nil
}
