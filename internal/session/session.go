package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when no user is signed in.
	ErrNoSession = errors.New("no active session")
	// ErrMalformedSession is returned when the stored user record is not
	// valid structured data. Callers treat it like ErrNoSession.
	ErrMalformedSession = errors.New("stored session is malformed")
)

// Tokens is the credential pair held by the store.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// HasRefresh reports whether a refresh token is available.
func (t Tokens) HasRefresh() bool { return t.RefreshToken != "" }

// User is the profile returned by the login endpoint.
type User struct {
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Roles known to the backend.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Load reads the current tokens. Missing keys yield empty fields.
func Load(s Store) Tokens {
	access, _ := s.Get(KeyAccessToken)
	refresh, _ := s.Get(KeyRefreshToken)
	return Tokens{AccessToken: access, RefreshToken: refresh}
}

// SaveLogin stores the result of a successful login. An empty refresh token
// removes any refresh token left over from a previous session.
func SaveLogin(s Store, t Tokens, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.Set(KeyUser, string(data)); err != nil {
		return err
	}
	if err := s.Set(KeyAccessToken, t.AccessToken); err != nil {
		return err
	}
	if t.RefreshToken == "" {
		return s.Delete(KeyRefreshToken)
	}
	return s.Set(KeyRefreshToken, t.RefreshToken)
}

// SetAccessToken replaces the access token after a refresh.
func SetAccessToken(s Store, token string) error {
	return s.Set(KeyAccessToken, token)
}

// Clear tears the session down. Tokens and the user record are removed
// together; clearing an empty store is a no-op.
func Clear(s Store) error {
	return s.Delete(KeyAccessToken, KeyRefreshToken, KeyUser)
}

// CurrentUser decodes the stored user record.
func CurrentUser(s Store) (User, error) {
	raw, ok := s.Get(KeyUser)
	if !ok || raw == "" {
		return User{}, ErrNoSession
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if u.Role == "" {
		return User{}, fmt.Errorf("%w: user record has no role", ErrMalformedSession)
	}
	return u, nil
}
