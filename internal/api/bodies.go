package api

// Request bodies. Optional fields are omitted when empty, matching what the
// backend receives from the other SDKs.

type LoginBody struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type LoginCompleteBody struct {
	LoginToken string `json:"loginToken"`
	Code       string `json:"code"`
}

type LoginAnonymousBody struct {
	Handle string `json:"handle"`
}

type ForgotPasswordBody struct {
	Handle string `json:"handle"`
}

type SignupBody struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	MetaData string `json:"metaData,omitempty"`
}

type CompleteSignupBody struct {
	Handle string `json:"handle"`
	Code   string `json:"code"`
}

type InviteBody struct {
	Handle       string `json:"handle"`
	MetaData     string `json:"metaData,omitempty"`
	SenderUserID string `json:"senderUserId,omitempty"`
}

type RegisterBody struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	MetaData string `json:"metaData,omitempty"`
	Code     string `json:"code"`
}

type ResetPasswordBody struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type ChangePasswordBody struct {
	NewPassword string `json:"newPassword"`
	Password    string `json:"password"`
}

type SetPhoneBody struct {
	Phone string `json:"phone"`
}

type VerifyPhoneBody struct {
	Code string `json:"code"`
}

// TwoFactorBody carries the flag as "true" or "false".
type TwoFactorBody struct {
	TwoFactor string `json:"twoFactor"`
}

type SetUserMetadataBody struct {
	MetaData string `json:"metaData"`
}

type SetUserNameBody struct {
	UserName string `json:"userName"`
}

type DeleteAccountBody struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}
