package auth

import (
	"time"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/session"
)

// Logout ends the session. Calling it on an empty store is a no-op.
func Logout(store session.Store) error {
	return session.Clear(store)
}

// Guard decides whether the signed-in user may open a view that requires
// requiredRole (empty means any signed-in user). It returns "" when access
// is allowed, otherwise the route to redirect to.
func Guard(store session.Store, requiredRole string, now time.Time) string {
	tokens := session.Load(store)
	if tokens.AccessToken == "" {
		return apiclient.SignInPath
	}
	user, err := session.CurrentUser(store)
	if err != nil {
		return apiclient.SignInPath
	}
	if !session.TokenValid(tokens.AccessToken, now) {
		return apiclient.SignInPath
	}
	if requiredRole != "" && user.Role != requiredRole {
		return "/" + user.Role
	}
	return ""
}
