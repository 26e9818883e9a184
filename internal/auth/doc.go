// Package auth signs users in and out of the dashboard backend and decides
// which view a user may see.
package auth
