package cosyncjwt

import (
	"sync"

	"github.com/cosync/cosyncjwt/jwt"
)

// Session is the in-memory authentication state of one user.
//
// Create it with NewSession and hand it to Builder.WithSession, or let Build
// create one. Only Client operations mutate it. Methods are safe for
// concurrent use.
type Session struct {
	mu              sync.RWMutex
	jwt             string
	accessToken     string
	loginToken      string
	signedUserToken string
}

// SessionSnapshot is a point-in-time copy of a Session.
type SessionSnapshot struct {
	JWT             string
	AccessToken     string
	LoginToken      string
	SignedUserToken string
}

// NewSession returns an empty Session.
func NewSession() *Session {
	return &Session{}
}

// JWT returns the session JWT, or "".
func (s *Session) JWT() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jwt
}

// AccessToken returns the access token, or "".
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// LoginToken returns the pending two-factor login token, or "".
func (s *Session) LoginToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loginToken
}

// SignedUserToken returns the signed user token, or "".
func (s *Session) SignedUserToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signedUserToken
}

// Snapshot returns all fields read under one lock.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		JWT:             s.jwt,
		AccessToken:     s.accessToken,
		LoginToken:      s.loginToken,
		SignedUserToken: s.signedUserToken,
	}
}

// IsLoggedIn reports whether both the JWT and the access token are set.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jwt != "" && s.accessToken != ""
}

// Claims decodes the session JWT without verifying it.
func (s *Session) Claims() (*jwt.Claims, error) {
	return jwt.ParseClaims(s.JWT())
}

// setLogin stores the full login response, including the login token.
func (s *Session) setLogin(r *AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwt = r.JWT
	s.accessToken = r.AccessToken
	s.loginToken = r.LoginToken
}

// setTokens stores jwt and access token and leaves the login token alone.
func (s *Session) setTokens(r *AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwt = r.JWT
	s.accessToken = r.AccessToken
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwt = ""
	s.accessToken = ""
	s.loginToken = ""
	s.signedUserToken = ""
}
