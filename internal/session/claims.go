package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the dashboard reads from an access token. The token
// signature is not verified here; only the backend can do that.
type Claims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// DisplayName returns the subject, falling back to the username claim.
func (c *Claims) DisplayName() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Username
}

// Expiry returns the exp claim and whether the token has one.
func (c *Claims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// ParseClaims decodes the payload of a JWT access token without verifying it.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decoding access token: %w", err)
	}
	return claims, nil
}

// TokenValid reports whether token is usable at now. A token that cannot be
// decoded is invalid; a token without an exp claim is treated as valid.
func TokenValid(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	exp, ok := claims.Expiry()
	if !ok {
		return true
	}
	return exp.After(now)
}
