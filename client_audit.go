package cosyncjwt

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cosync/cosyncjwt/transport"
)

const (
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventLoginCompletionRequired = "login_completion_required"
	auditEventLoginCompleteSuccess    = "login_complete_success"
	auditEventLoginCompleteFailure    = "login_complete_failure"
	auditEventAnonymousLoginSuccess   = "anonymous_login_success"
	auditEventAnonymousLoginFailure   = "anonymous_login_failure"
	auditEventForgotPassword          = "forgot_password"
	auditEventGetApplication          = "get_application"
	auditEventSignupSuccess           = "signup_success"
	auditEventSignupPending           = "signup_pending"
	auditEventSignupFailure           = "signup_failure"
	auditEventRegisterSuccess         = "register_success"
	auditEventRegisterPending         = "register_pending"
	auditEventRegisterFailure         = "register_failure"
	auditEventCompleteSignupSuccess   = "complete_signup_success"
	auditEventCompleteSignupFailure   = "complete_signup_failure"
	auditEventInvite                  = "invite"
	auditEventAccountUpdate           = "account_update"
	auditEventAccountDeleted          = "account_deleted"
	auditEventLogout                  = "logout"
)

// AuditErrorCode is the error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrNotConfigured      AuditErrorCode = "not_configured"
	auditErrNoAccessToken      AuditErrorCode = "no_access_token"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrCompletionPending  AuditErrorCode = "completion_pending"
	auditErrBackendRejected    AuditErrorCode = "backend_rejected"
	auditErrEmptyResponse      AuditErrorCode = "empty_response"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrTransport          AuditErrorCode = "transport_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	handle string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Handle:    handle,
		RequestID: transport.RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

// auditFailureMetadata adds the HTTP status for backend rejections.
func auditFailureMetadata(op string, err error) func() map[string]string {
	return func() map[string]string {
		md := map[string]string{"op": op}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			md["status"] = strconv.Itoa(apiErr.StatusCode)
		}
		return md
	}
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return auditErrNotConfigured
	case errors.Is(err, ErrNoAccessToken):
		return auditErrNoAccessToken
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPasswordInvalid):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrCompletionPending):
		return auditErrCompletionPending
	case errors.As(err, &apiErr):
		return auditErrBackendRejected
	case errors.Is(err, ErrSomethingWentWrong):
		return auditErrEmptyResponse
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrTransport
	}
}
