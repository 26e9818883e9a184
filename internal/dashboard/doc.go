// Package dashboard fetches and models the GPU dashboard views: cluster GPU
// usage, running servers, the caller's own servers, and persistent volume
// claims with a file browser over them.
//
// Every call goes through an apiclient.Client, so the one-shot token refresh
// and session teardown apply uniformly. Response bodies are validated with the
// schema package before they are decoded.
package dashboard
