package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyToken is returned when ParseClaims is called with an empty token.
var ErrEmptyToken = errors.New("empty token")

// Claims holds the session claims issued by the CosyncJWT backend.
//
// Fields the backend did not set are left at their zero value. Extra keys are
// preserved in Raw.
type Claims struct {
	Handle string `json:"handle,omitempty"`
	AppID  string `json:"appId,omitempty"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims

	Raw jwt.MapClaims `json:"-"`
}

// ParseClaims decodes tokenStr without verifying its signature.
//
// ParseClaims returns an error for empty or structurally malformed tokens. It
// does not reject expired tokens; use Claims.Expired for that.
func ParseClaims(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrEmptyToken
	}

	parser := jwt.NewParser()

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}

	raw := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenStr, raw); err != nil {
		return nil, err
	}
	claims.Raw = raw

	return claims, nil
}

// ExpiresAtTime returns the exp claim, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether the exp claim is set and lies before now. A token
// without exp never expires from the client's point of view.
func (c *Claims) Expired(now time.Time) bool {
	exp := c.ExpiresAtTime()
	if exp.IsZero() {
		return false
	}
	return now.After(exp)
}
