package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/internal/rate"
)

type ctxKey int

const handleKey ctxKey = iota

type authResponse struct {
	JWT         string `json:"jwt,omitempty"`
	AccessToken string `json:"access-token,omitempty"`
	LoginToken  string `json:"login-token,omitempty"`
}

type userResponse struct {
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorBody{Code: status, Message: msg})
}

func writeBool(w http.ResponseWriter, v bool) {
	w.Header().Set("Content-Type", "text/plain")
	if v {
		_, _ = w.Write([]byte("true"))
		return
	}
	_, _ = w.Write([]byte("false"))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (s *Server) requireApp(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(api.HeaderAppToken) != s.appToken {
			writeError(w, http.StatusUnauthorized, "invalid app token")
			return
		}
		next(w, r)
	}
}

func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		handle, ok := s.accessTokens[r.Header.Get(api.HeaderAccessToken)]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), handleKey, handle)))
	}
}

func handleFrom(r *http.Request) string {
	h, _ := r.Context().Value(handleKey).(string)
	return h
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	app := s.app
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body api.LoginBody
	if !decodeBody(w, r, &body) {
		return
	}

	limiter := s.loginLimiter()
	if !admitLogin(w, r, limiter, body.Handle) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[body.Handle]
	if !ok || !s.matches(u, body.Password) {
		if limiter != nil {
			_ = limiter.RecordFailure(r.Context(), body.Handle)
		}
		writeError(w, http.StatusUnauthorized, "invalid handle or password")
		return
	}
	if limiter != nil {
		_ = limiter.Reset(r.Context(), body.Handle)
	}

	if u.TwoFactorPhone || u.TwoFactorGoogle {
		loginToken := "login-" + s.nextCode() + "-" + body.Handle
		s.loginTokens[loginToken] = body.Handle
		s.loginCodes[loginToken] = s.nextCode()
		writeJSON(w, http.StatusOK, authResponse{LoginToken: loginToken})
		return
	}

	jwtStr, access, err := s.issueTokens(body.Handle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{JWT: jwtStr, AccessToken: access})
}

// admitLogin rejects handles that exhausted their failed-login budget.
func admitLogin(w http.ResponseWriter, r *http.Request, limiter *rate.Limiter, handle string) bool {
	if limiter == nil {
		return true
	}
	switch err := limiter.CheckLogin(r.Context(), handle); {
	case err == nil:
		return true
	case errors.Is(err, rate.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
	default:
		writeError(w, http.StatusServiceUnavailable, "login throttle unavailable")
	}
	return false
}

func (s *Server) handleLoginComplete(w http.ResponseWriter, r *http.Request) {
	var body api.LoginCompleteBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.loginTokens[body.LoginToken]
	if !ok || s.loginCodes[body.LoginToken] != body.Code {
		writeError(w, http.StatusUnauthorized, "invalid login code")
		return
	}
	delete(s.loginTokens, body.LoginToken)
	delete(s.loginCodes, body.LoginToken)

	jwtStr, access, err := s.issueTokens(handle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{JWT: jwtStr, AccessToken: access})
}

func (s *Server) handleLoginAnonymous(w http.ResponseWriter, r *http.Request) {
	var body api.LoginAnonymousBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.app.AnonymousLoginEnabled {
		writeError(w, http.StatusForbidden, "anonymous login disabled")
		return
	}
	if !strings.HasPrefix(body.Handle, "ANON_") {
		writeError(w, http.StatusBadRequest, "invalid anonymous handle")
		return
	}
	if _, ok := s.users[body.Handle]; !ok {
		s.users[body.Handle] = &account{Handle: body.Handle}
	}

	jwtStr, access, err := s.issueTokens(body.Handle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{JWT: jwtStr, AccessToken: access})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body api.ForgotPasswordBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[body.Handle]; !ok {
		writeBool(w, false)
		return
	}
	s.resetCodes[body.Handle] = s.nextCode()
	writeBool(w, true)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body api.SignupBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[body.Handle]; exists {
		writeError(w, http.StatusConflict, "handle already registered")
		return
	}
	s.createOrDefer(w, body.Handle, body.Password, body.MetaData)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body api.RegisterBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, invited := s.invites[body.Handle]
	if !invited || code != body.Code {
		writeError(w, http.StatusForbidden, "invalid invitation code")
		return
	}
	if _, exists := s.users[body.Handle]; exists {
		writeError(w, http.StatusConflict, "handle already registered")
		return
	}
	delete(s.invites, body.Handle)
	s.createOrDefer(w, body.Handle, body.Password, body.MetaData)
}

// createOrDefer creates the account right away for the "none" flow and parks
// it behind a completion code otherwise. Callers hold s.mu.
func (s *Server) createOrDefer(w http.ResponseWriter, handle, digest, metaData string) {
	stored, err := s.hasher.Hash(digest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "password must be a digest")
		return
	}
	if s.app.SignupFlow != "none" {
		s.pending[handle] = pendingSignup{passwordHash: stored, metaData: metaData, code: s.nextCode()}
		writeBool(w, true)
		return
	}

	s.users[handle] = &account{Handle: handle, PasswordHash: stored, MetaData: metaData}
	jwtStr, access, err := s.issueTokens(handle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{JWT: jwtStr, AccessToken: access})
}

func (s *Server) handleCompleteSignup(w http.ResponseWriter, r *http.Request) {
	var body api.CompleteSignupBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[body.Handle]
	if !ok || p.code != body.Code {
		writeError(w, http.StatusUnauthorized, "invalid signup code")
		return
	}
	delete(s.pending, body.Handle)
	s.users[body.Handle] = &account{Handle: body.Handle, PasswordHash: p.passwordHash, MetaData: p.metaData}

	jwtStr, access, err := s.issueTokens(body.Handle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{JWT: jwtStr, AccessToken: access})
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var body api.InviteBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[body.Handle]; exists {
		writeBool(w, false)
		return
	}
	s.invites[body.Handle] = s.nextCode()
	writeBool(w, true)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[handleFrom(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	resp := userResponse{
		Handle:                      u.Handle,
		UserName:                    u.UserName,
		TwoFactorPhoneVerification:  u.TwoFactorPhone,
		TwoFactorGoogleVerification: u.TwoFactorGoogle,
		AppID:                       s.appID,
		Phone:                       u.Phone,
		PhoneVerified:               u.PhoneVerified,
	}
	if !u.LastLogin.IsZero() {
		resp.LastLogin = u.LastLogin.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if u.MetaData != "" && json.Valid([]byte(u.MetaData)) {
		resp.MetaData = json.RawMessage(u.MetaData)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body api.ResetPasswordBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[body.Handle]
	if !ok || s.resetCodes[body.Handle] == "" || s.resetCodes[body.Handle] != body.Code {
		writeBool(w, false)
		return
	}
	stored, err := s.hasher.Hash(body.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, "password must be a digest")
		return
	}
	delete(s.resetCodes, body.Handle)
	u.PasswordHash = stored
	writeBool(w, true)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body api.ChangePasswordBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[handleFrom(r)]
	if !ok || !s.matches(u, body.Password) {
		writeBool(w, false)
		return
	}
	stored, err := s.hasher.Hash(body.NewPassword)
	if err != nil {
		writeError(w, http.StatusBadRequest, "password must be a digest")
		return
	}
	u.PasswordHash = stored
	writeBool(w, true)
}

func (s *Server) handleSetPhone(w http.ResponseWriter, r *http.Request) {
	var body api.SetPhoneBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := handleFrom(r)
	u, ok := s.users[handle]
	if !ok || body.Phone == "" {
		writeBool(w, false)
		return
	}
	u.Phone = body.Phone
	u.PhoneVerified = false
	s.phoneCodes[handle] = s.nextCode()
	writeBool(w, true)
}

func (s *Server) handleVerifyPhone(w http.ResponseWriter, r *http.Request) {
	var body api.VerifyPhoneBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := handleFrom(r)
	u, ok := s.users[handle]
	if !ok || s.phoneCodes[handle] == "" || s.phoneCodes[handle] != body.Code {
		writeBool(w, false)
		return
	}
	delete(s.phoneCodes, handle)
	u.PhoneVerified = true
	writeBool(w, true)
}

func (s *Server) handleSetTwoFactorPhone(w http.ResponseWriter, r *http.Request) {
	s.setTwoFactor(w, r, func(u *account, v bool) bool {
		if v && !u.PhoneVerified {
			return false
		}
		u.TwoFactorPhone = v
		return true
	})
}

func (s *Server) handleSetTwoFactorGoogle(w http.ResponseWriter, r *http.Request) {
	s.setTwoFactor(w, r, func(u *account, v bool) bool {
		u.TwoFactorGoogle = v
		return true
	})
}

func (s *Server) setTwoFactor(w http.ResponseWriter, r *http.Request, apply func(*account, bool) bool) {
	var body api.TwoFactorBody
	if !decodeBody(w, r, &body) {
		return
	}
	enable, err := api.ParseBoolString([]byte(body.TwoFactor))
	if err != nil {
		writeError(w, http.StatusBadRequest, "twoFactor must be true or false")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[handleFrom(r)]
	if !ok {
		writeBool(w, false)
		return
	}
	writeBool(w, apply(u, enable))
}

func (s *Server) handleSetUserMetadata(w http.ResponseWriter, r *http.Request) {
	var body api.SetUserMetadataBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[handleFrom(r)]
	if !ok {
		writeBool(w, false)
		return
	}
	u.MetaData = body.MetaData
	writeBool(w, true)
}

func (s *Server) userNameTaken(name, except string) bool {
	for h, u := range s.users {
		if h != except && u.UserName == name {
			return true
		}
	}
	return false
}

func (s *Server) handleUserNameAvailable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["userName"]

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"available": name != "" && !s.userNameTaken(name, "")})
}

func (s *Server) handleSetUserName(w http.ResponseWriter, r *http.Request) {
	var body api.SetUserNameBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := handleFrom(r)
	u, ok := s.users[handle]
	if !ok || !s.app.UserNamesEnabled || body.UserName == "" || s.userNameTaken(body.UserName, handle) {
		writeBool(w, false)
		return
	}
	u.UserName = body.UserName
	writeBool(w, true)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var body api.DeleteAccountBody
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := handleFrom(r)
	u, ok := s.users[handle]
	if !ok || handle != body.Handle || !s.matches(u, body.Password) {
		writeBool(w, false)
		return
	}
	delete(s.users, handle)
	s.revokeUser(handle)
	writeBool(w, true)
}
