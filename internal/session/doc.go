// Package session holds the signed-in state of the CLI: the access token,
// the optional refresh token and the user record returned at login.
//
// All components read and write that state through the Store interface.
// The store starts empty, is populated only by a successful login, has its
// access token replaced by a token refresh, and is cleared as a whole on
// logout or on any terminal authentication failure.
package session
