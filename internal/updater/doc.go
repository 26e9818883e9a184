// Package updater tells users when a newer gpudash release is published.
// Release lookups go to the GitHub Releases API and are cached for a day in
// the config directory so the startup banner never waits on the network.
package updater
