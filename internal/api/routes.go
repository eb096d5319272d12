package api

// Root is the path prefix shared by every app-user route.
const Root = "/api/appuser"

// Route paths relative to the configured REST address.
const (
	PathLogin                          = Root + "/login"
	PathLoginComplete                  = Root + "/loginComplete"
	PathLoginAnonymous                 = Root + "/loginAnonymous"
	PathForgotPassword                 = Root + "/forgotPassword"
	PathSignup                         = Root + "/signup"
	PathRegister                       = Root + "/register"
	PathCompleteSignup                 = Root + "/completeSignup"
	PathGetApplication                 = Root + "/getApplication"
	PathInvite                         = Root + "/invite"
	PathGetUser                        = Root + "/getUser"
	PathResetPassword                  = Root + "/resetPassword"
	PathChangePassword                 = Root + "/changePassword"
	PathSetPhone                       = Root + "/setPhone"
	PathVerifyPhone                    = Root + "/verifyPhone"
	PathSetTwoFactorPhoneVerification  = Root + "/setTwoFactorPhoneVerification"
	PathSetTwoFactorGoogleVerification = Root + "/setTwoFactorGoogleVerification"
	PathSetUserMetadata                = Root + "/setUserMetadata"
	PathUserNameAvailable              = Root + "/userNameAvailable"
	PathSetUserName                    = Root + "/setUserName"
	PathDeleteAccount                  = Root + "/deleteAccount"
)

// Credential header names.
const (
	HeaderAppToken    = "app-token"
	HeaderAccessToken = "access-token"
)

// QueryUserName is the query key used by the username availability check.
const QueryUserName = "userName"
