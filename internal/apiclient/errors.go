package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned without any network call when the
	// session store holds no access token.
	ErrUnauthenticated = errors.New("sign-in required")

	// ErrSessionExpired is returned when a 401 could not be recovered from,
	// either because no refresh token was stored or the refresh was
	// rejected. The session has already been cleared when it is returned.
	ErrSessionExpired = errors.New("session expired")
)

// TransportError wraps a network-level failure (connection refused, DNS,
// timeout). It is never retried and never clears the session.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuthFailure reports whether err ended or never found a session. Views
// use it to stop polling instead of showing an inline error.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrSessionExpired)
}
