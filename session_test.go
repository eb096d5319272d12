package cosyncjwt

import (
	"errors"
	"sync"
	"testing"

	"github.com/cosync/cosyncjwt/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestSessionSetLoginAndClear(t *testing.T) {
	s := NewSession()
	if s.IsLoggedIn() {
		t.Fatal("new session must be logged out")
	}

	s.setLogin(&AuthResult{JWT: "J", AccessToken: "A", LoginToken: "L"})
	if !s.IsLoggedIn() || s.LoginToken() != "L" {
		t.Fatalf("unexpected session %+v", s.Snapshot())
	}

	s.setTokens(&AuthResult{JWT: "J2", AccessToken: "A2"})
	if got := s.Snapshot(); got.JWT != "J2" || got.AccessToken != "A2" || got.LoginToken != "L" {
		t.Fatalf("setTokens must keep the login token: %+v", got)
	}

	s.clear()
	s.clear()
	if got := s.Snapshot(); got != (SessionSnapshot{}) {
		t.Fatalf("expected empty session, got %+v", got)
	}
}

func TestSessionLoggedInNeedsBothTokens(t *testing.T) {
	s := NewSession()
	s.setTokens(&AuthResult{JWT: "J"})
	if s.IsLoggedIn() {
		t.Fatal("JWT alone is not a login")
	}
	s.setTokens(&AuthResult{AccessToken: "A"})
	if s.IsLoggedIn() {
		t.Fatal("access token alone is not a login")
	}
}

func TestSessionClaims(t *testing.T) {
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"handle": "alice@example.com",
		"appId":  "app-1",
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := NewSession()
	if _, err := s.Claims(); !errors.Is(err, jwt.ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}

	s.setTokens(&AuthResult{JWT: tok, AccessToken: "A"})
	claims, err := s.Claims()
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if claims.Handle != "alice@example.com" || claims.AppID != "app-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.setLogin(&AuthResult{JWT: "J", AccessToken: "A", LoginToken: "L"})
				s.clear()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				snap := s.Snapshot()
				if (snap.JWT == "") != (snap.AccessToken == "") {
					t.Errorf("torn snapshot %+v", snap)
					return
				}
			}
		}()
	}
	wg.Wait()
}
