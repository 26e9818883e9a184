package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aiswide/gpudash/internal/session"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// LoginPath is the password-flow token endpoint, relative to the base URL.
const LoginPath = "/auth/login"

// Landing routes after sign-in.
const (
	AdminLanding = "/admin/home"
	UserLanding  = "/user/dashboard"
)

// Result is a successful login.
type Result struct {
	User         session.User
	AccessToken  string
	RefreshToken string
	// Token is the secondary token field some backend versions return
	// alongside access_token. It is reported but not stored.
	Token string
	// Landing is the route the user is sent to.
	Landing string
}

// LoginError is a login the backend refused.
type LoginError struct {
	StatusCode int
	Detail     string
}

func (e *LoginError) Error() string {
	return e.Detail
}

// Authenticator performs login against the backend.
type Authenticator struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	logger     zerolog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// New creates an Authenticator that stores sessions in store.
func New(baseURL string, store session.Store, opts ...Option) *Authenticator {
	a := &Authenticator{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		store:      store,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login exchanges username and password for tokens using the OAuth2
// password grant and stores the new session. Any previous session is
// replaced only when the login succeeds.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Result, error) {
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.baseURL + LoginPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &LoginError{StatusCode: re.Response.StatusCode, Detail: detail(re.Body)}
		}
		return nil, fmt.Errorf("logging in: %w", err)
	}

	user, err := decodeUser(tok.Extra("user"))
	if err != nil {
		return nil, err
	}

	res := &Result{
		User:         user,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Landing:      Landing(user.Role),
	}
	if s, ok := tok.Extra("token").(string); ok {
		res.Token = s
	}

	tokens := session.Tokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}
	if err := session.SaveLogin(a.store, tokens, user); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	a.logger.Debug().
		Str("user", user.Email).
		Str("role", user.Role).
		Bool("refresh_token", res.RefreshToken != "").
		Msg("signed in")
	return res, nil
}

// decodeUser converts the "user" member of the login response.
func decodeUser(raw any) (session.User, error) {
	if raw == nil {
		return session.User{}, errors.New("login response has no user record")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return session.User{}, fmt.Errorf("encoding user record: %w", err)
	}
	var u session.User
	if err := json.Unmarshal(data, &u); err != nil {
		return session.User{}, fmt.Errorf("decoding user record: %w", err)
	}
	if u.Role == "" {
		return session.User{}, errors.New("login response user record has no role")
	}
	return u, nil
}

// detail extracts the FastAPI error message from a response body.
func detail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	return "Login failed"
}

// Landing returns the route a user with role lands on after sign-in.
func Landing(role string) string {
	if role == session.RoleAdmin {
		return AdminLanding
	}
	return UserLanding
}
