package cosyncjwt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cosync/cosyncjwt/password"
)

var (
	// ErrNotConfigured is returned by app-token operations before Configure supplied an app token and a REST address.
	ErrNotConfigured = errors.New("not configured")
	// ErrNoAccessToken is returned by access-token operations while the session has no access token.
	ErrNoAccessToken = errors.New("no access token")
	// ErrInvalidCredentials is returned when an anonymous handle lacks the ANON_ prefix.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordInvalid is returned when a password fails the application's password policy.
	ErrPasswordInvalid = errors.New("password invalid")
	// ErrSomethingWentWrong is the generic failure: non-2xx status, empty or undecodable body.
	ErrSomethingWentWrong = errors.New("something went wrong")
	// ErrCompletionPending is returned by Signup and Register when the backend accepted the
	// request but the application's signup flow requires a separate completion step.
	// It wraps ErrSomethingWentWrong.
	ErrCompletionPending = fmt.Errorf("%w: completion pending", ErrSomethingWentWrong)
	// ErrClientNotReady is returned when a Client method is called on a nil or unbuilt Client.
	ErrClientNotReady = errors.New("client not ready")
)

// APIError is returned when the backend answers with a non-2xx status.
//
// Code and Message are filled from the backend's error payload when it has one.
// APIError unwraps to ErrSomethingWentWrong.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cosyncjwt: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("cosyncjwt: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return ErrSomethingWentWrong
}

// PasswordError lists the policy rules a rejected password failed.
// It unwraps to ErrPasswordInvalid.
type PasswordError struct {
	Failed []password.Rule
}

func (e *PasswordError) Error() string {
	names := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		names[i] = string(r)
	}
	return "password invalid: " + strings.Join(names, ", ")
}

func (e *PasswordError) Unwrap() error {
	return ErrPasswordInvalid
}
