package cosyncjwt

import (
	"encoding/json"

	"github.com/cosync/cosyncjwt/password"
)

// SignupFlow is the server-configured signup completion mode.
type SignupFlow string

const (
	// SignupFlowNone completes signup in a single call.
	SignupFlowNone SignupFlow = "none"
	// SignupFlowCode requires CompleteSignup with an emailed code.
	SignupFlowCode SignupFlow = "code"
	// SignupFlowLink requires the user to follow an emailed link.
	SignupFlowLink SignupFlow = "link"
)

// TwoFactorMode is the application's second-factor setting.
type TwoFactorMode string

const (
	TwoFactorNone   TwoFactorMode = "none"
	TwoFactorPhone  TwoFactorMode = "phone"
	TwoFactorGoogle TwoFactorMode = "google"
)

// AnonymousHandlePrefix must start every handle passed to LoginAnonymous.
const AnonymousHandlePrefix = "ANON_"

// AuthResult is returned by operations that complete authentication.
// Fields missing from the backend response are empty strings.
type AuthResult struct {
	JWT         string `json:"jwt"`
	AccessToken string `json:"access-token"`
	LoginToken  string `json:"login-token,omitempty"`
}

// NeedsCompletion reports whether the backend issued a login token without a
// JWT, meaning LoginComplete must be called with a second-factor code.
func (r *AuthResult) NeedsCompletion() bool {
	return r != nil && r.JWT == "" && r.LoginToken != ""
}

// AppPolicy is the application's authentication policy as served by
// GetApplication. Fields the backend omits keep the values of DefaultAppPolicy.
type AppPolicy struct {
	Name                  string          `json:"name"`
	SignupFlow            SignupFlow      `json:"signupFlow"`
	AnonymousLoginEnabled bool            `json:"anonymousLoginEnabled"`
	UserNamesEnabled      bool            `json:"userNamesEnabled"`
	TwoFactorVerification TwoFactorMode   `json:"twoFactorVerification"`
	PasswordFilter        bool            `json:"passwordFilter"`
	PasswordMinLength     int             `json:"passwordMinLength"`
	PasswordMinUpper      int             `json:"passwordMinUpper"`
	PasswordMinLower      int             `json:"passwordMinLower"`
	PasswordMinDigit      int             `json:"passwordMinDigit"`
	PasswordMinSpecial    int             `json:"passwordMinSpecial"`
	AppData               json.RawMessage `json:"appData,omitempty"`
}

// DefaultAppPolicy returns the policy assumed for fields the backend omits.
func DefaultAppPolicy() AppPolicy {
	return AppPolicy{
		SignupFlow:            SignupFlowCode,
		TwoFactorVerification: TwoFactorNone,
		PasswordMinLength:     8,
		PasswordMinUpper:      1,
		PasswordMinLower:      1,
		PasswordMinDigit:      1,
		PasswordMinSpecial:    1,
	}
}

// PasswordPolicy returns the password rules of p.
func (p AppPolicy) PasswordPolicy() password.Policy {
	return password.Policy{
		MinLength:  p.PasswordMinLength,
		MinUpper:   p.PasswordMinUpper,
		MinLower:   p.PasswordMinLower,
		MinDigit:   p.PasswordMinDigit,
		MinSpecial: p.PasswordMinSpecial,
	}
}

// User is the profile returned by GetUser.
type User struct {
	Handle                      string          `json:"handle"`
	UserName                    string          `json:"userName"`
	TwoFactorPhoneVerification  bool            `json:"twoFactorPhoneVerification"`
	TwoFactorGoogleVerification bool            `json:"twoFactorGoogleVerification"`
	AppID                       string          `json:"appId"`
	Phone                       string          `json:"phone"`
	PhoneVerified               bool            `json:"phoneVerified"`
	LastLogin                   string          `json:"lastLogin"`
	MetaData                    json.RawMessage `json:"metaData,omitempty"`
}
