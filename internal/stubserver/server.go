package stubserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/internal/rate"
	"github.com/cosync/cosyncjwt/password"
)

// App is the application policy served by getApplication.
type App struct {
	Name                  string `json:"name"`
	SignupFlow            string `json:"signupFlow"`
	AnonymousLoginEnabled bool   `json:"anonymousLoginEnabled"`
	UserNamesEnabled      bool   `json:"userNamesEnabled"`
	TwoFactorVerification string `json:"twoFactorVerification"`
	PasswordFilter        bool   `json:"passwordFilter"`
	PasswordMinLength     int    `json:"passwordMinLength"`
	PasswordMinUpper      int    `json:"passwordMinUpper"`
	PasswordMinLower      int    `json:"passwordMinLower"`
	PasswordMinDigit      int    `json:"passwordMinDigit"`
	PasswordMinSpecial    int    `json:"passwordMinSpecial"`
}

// DefaultApp returns a single-step application without a password filter.
func DefaultApp() App {
	return App{
		Name:                  "stub",
		SignupFlow:            "none",
		AnonymousLoginEnabled: true,
		UserNamesEnabled:      true,
		TwoFactorVerification: "none",
		PasswordMinLength:     8,
		PasswordMinUpper:      1,
		PasswordMinLower:      1,
		PasswordMinDigit:      1,
		PasswordMinSpecial:    1,
	}
}

type account struct {
	Handle          string
	PasswordHash    string
	UserName        string
	Phone           string
	PhoneVerified   bool
	TwoFactorPhone  bool
	TwoFactorGoogle bool
	MetaData        string
	LastLogin       time.Time
}

type pendingSignup struct {
	passwordHash string
	metaData     string
	code         string
}

// Server is the in-memory backend. Its zero value is not usable; call New.
type Server struct {
	mu sync.Mutex

	appToken string
	appID    string
	app      App
	jwtKey   []byte
	seq      int

	users        map[string]*account
	pending      map[string]pendingSignup
	invites      map[string]string
	resetCodes   map[string]string
	phoneCodes   map[string]string
	loginTokens  map[string]string
	loginCodes   map[string]string
	accessTokens map[string]string

	hasher  *password.Argon2
	limiter *rate.Limiter

	calls  map[string]int
	router *mux.Router
}

// New returns a backend that accepts appToken and serves app.
func New(appToken string, app App) *Server {
	hasher, err := password.NewArgon2(password.DefaultStoreConfig())
	if err != nil {
		panic(err)
	}
	s := &Server{
		hasher:       hasher,
		appToken:     appToken,
		appID:        "stub-app",
		app:          app,
		jwtKey:       []byte("stubserver-signing-key"),
		users:        make(map[string]*account),
		pending:      make(map[string]pendingSignup),
		invites:      make(map[string]string),
		resetCodes:   make(map[string]string),
		phoneCodes:   make(map[string]string),
		loginTokens:  make(map[string]string),
		loginCodes:   make(map[string]string),
		accessTokens: make(map[string]string),
		calls:        make(map[string]int),
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetLoginLimiter enables failed-login throttling. A nil limiter disables it.
func (s *Server) SetLoginLimiter(l *rate.Limiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = l
}

func (s *Server) loginLimiter() *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limiter
}

// SetApp replaces the application policy.
func (s *Server) SetApp(app App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = app
}

// AddUser registers handle with the plaintext password pw.
func (s *Server) AddUser(handle, pw string) {
	stored, err := s.hasher.Hash(password.Digest(pw))
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[handle] = &account{Handle: handle, PasswordHash: stored}
}

// EnableTwoFactor turns on phone second-factor for handle.
func (s *Server) EnableTwoFactor(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[handle]; ok {
		u.TwoFactorPhone = true
	}
}

// HasUser reports whether handle has a completed account.
func (s *Server) HasUser(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[handle]
	return ok
}

// PasswordHash returns the stored argon2id hash for handle, or "" when the
// account does not exist.
func (s *Server) PasswordHash(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[handle]; ok {
		return u.PasswordHash
	}
	return ""
}

// CheckPassword reports whether pw is the current password of handle.
func (s *Server) CheckPassword(handle, pw string) bool {
	stored := s.PasswordHash(handle)
	if stored == "" {
		return false
	}
	ok, err := s.hasher.Verify(password.Digest(pw), stored)
	return err == nil && ok
}

// SignupCode returns the completion code of a pending signup.
func (s *Server) SignupCode(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[handle].code
}

// InviteCode returns the invitation code sent to handle.
func (s *Server) InviteCode(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invites[handle]
}

// ResetCode returns the password reset code sent to handle.
func (s *Server) ResetCode(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetCodes[handle]
}

// PhoneCode returns the phone verification code sent to handle.
func (s *Server) PhoneCode(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phoneCodes[handle]
}

// LoginCode returns the second-factor code issued with loginToken.
func (s *Server) LoginCode(loginToken string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCodes[loginToken]
}

// PendingLoginCode returns the second-factor code of an unfinished login of
// handle, or "" when there is none.
func (s *Server) PendingLoginCode(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, h := range s.loginTokens {
		if h != handle {
			continue
		}
		if code, ok := s.loginCodes[tok]; ok {
			return code
		}
	}
	return ""
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.countCalls)

	app := r.PathPrefix(api.Root).Subrouter()
	app.HandleFunc("/login", s.requireApp(s.handleLogin)).Methods(http.MethodPost)
	app.HandleFunc("/loginComplete", s.requireApp(s.handleLoginComplete)).Methods(http.MethodPost)
	app.HandleFunc("/loginAnonymous", s.requireApp(s.handleLoginAnonymous)).Methods(http.MethodPost)
	app.HandleFunc("/forgotPassword", s.requireApp(s.handleForgotPassword)).Methods(http.MethodPost)
	app.HandleFunc("/getApplication", s.requireApp(s.handleGetApplication)).Methods(http.MethodGet)
	app.HandleFunc("/signup", s.requireApp(s.handleSignup)).Methods(http.MethodPost)
	app.HandleFunc("/completeSignup", s.requireApp(s.handleCompleteSignup)).Methods(http.MethodPost)
	app.HandleFunc("/invite", s.requireApp(s.handleInvite)).Methods(http.MethodPost)
	app.HandleFunc("/register", s.requireApp(s.handleRegister)).Methods(http.MethodPost)

	app.HandleFunc("/getUser", s.requireUser(s.handleGetUser)).Methods(http.MethodGet)
	app.HandleFunc("/resetPassword", s.requireUser(s.handleResetPassword)).Methods(http.MethodPost)
	app.HandleFunc("/changePassword", s.requireUser(s.handleChangePassword)).Methods(http.MethodPost)
	app.HandleFunc("/setPhone", s.requireUser(s.handleSetPhone)).Methods(http.MethodPost)
	app.HandleFunc("/verifyPhone", s.requireUser(s.handleVerifyPhone)).Methods(http.MethodPost)
	app.HandleFunc("/setTwoFactorPhoneVerification", s.requireUser(s.handleSetTwoFactorPhone)).Methods(http.MethodPost)
	app.HandleFunc("/setTwoFactorGoogleVerification", s.requireUser(s.handleSetTwoFactorGoogle)).Methods(http.MethodPost)
	app.HandleFunc("/setUserMetadata", s.requireUser(s.handleSetUserMetadata)).Methods(http.MethodPost)
	app.HandleFunc("/userNameAvailable", s.requireUser(s.handleUserNameAvailable)).Methods(http.MethodGet).Queries(api.QueryUserName, "{userName}")
	app.HandleFunc("/setUserName", s.requireUser(s.handleSetUserName)).Methods(http.MethodPost)
	app.HandleFunc("/deleteAccount", s.requireUser(s.handleDeleteAccount)).Methods(http.MethodPost)

	return r
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// nextCode returns a six-digit code. Callers hold s.mu.
func (s *Server) nextCode() string {
	s.seq++
	return fmt.Sprintf("%06d", 100000+s.seq)
}

// issueTokens mints a JWT and access token for handle. Callers hold s.mu.
func (s *Server) issueTokens(handle string) (jwtStr, accessToken string, err error) {
	s.seq++
	now := time.Now()
	claims := jwt.MapClaims{
		"handle": handle,
		"appId":  s.appID,
		"scope":  "user",
		"iat":    now.Unix(),
		"exp":    now.Add(time.Hour).Unix(),
	}
	jwtStr, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		return "", "", err
	}
	accessToken = fmt.Sprintf("access-%d-%s", s.seq, handle)
	s.accessTokens[accessToken] = handle
	if u, ok := s.users[handle]; ok {
		u.LastLogin = now
	}
	return jwtStr, accessToken, nil
}

// matches reports whether the wire digest matches the stored hash of u.
func (s *Server) matches(u *account, digest string) bool {
	ok, err := s.hasher.Verify(digest, u.PasswordHash)
	return err == nil && ok
}

// revokeUser drops every access token of handle. Callers hold s.mu.
func (s *Server) revokeUser(handle string) {
	for tok, h := range s.accessTokens {
		if h == handle {
			delete(s.accessTokens, tok)
		}
	}
}
