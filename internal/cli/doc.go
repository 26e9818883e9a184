// Package cli defines the Cobra command tree for the gpudash CLI. Each file
// in this package registers one top-level command (login, dashboard, servers,
// storage, etc.) with the root command. Command implementations delegate to
// internal packages for API access and rendering and only handle flags,
// prompts, and output.
package cli
