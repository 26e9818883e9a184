// Package apiclient implements the authenticated request client every
// dashboard view goes through.
//
// A call attaches the stored access token as a bearer token. When the
// backend answers 401 and a refresh token is available, the client asks
// POST /refresh for a new access token, stores it and reissues the original
// request exactly once. A failed refresh, or a 401 without a refresh token,
// ends the session: the store is cleared, the user is notified and sent to
// the sign-in entry point. Concurrent calls that hit a 401 at the same time
// share a single refresh.
package apiclient
