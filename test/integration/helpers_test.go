//go:build integration

package integration_test

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/apitest"
	"github.com/aiswide/gpudash/internal/auth"
	"github.com/aiswide/gpudash/internal/dashboard"
	"github.com/aiswide/gpudash/internal/session"
)

// testEnv holds an isolated gpudash home and a fake backend.
type testEnv struct {
	HomeDir     string // GPUDASH_HOME
	SessionPath string
	Backend     *apitest.Backend
	State       *backendState
}

// backendState is the fake backend's view of issued tokens.
type backendState struct {
	mu      sync.Mutex
	access  string
	refresh string
	revoked bool
}

func (s *backendState) expire(newAccess string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = newAccess
}

func (s *backendState) revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
}

func (s *backendState) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+s.access
}

// setupTestEnv creates an isolated home directory and a backend that issues
// tokens on login and rotates the access token on refresh.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{HomeDir: t.TempDir(), Backend: apitest.NewBackend(t)}
	env.SessionPath = filepath.Join(env.HomeDir, session.SessionFileName)
	t.Setenv("GPUDASH_HOME", env.HomeDir)
	t.Setenv("GPUDASH_SESSION_FILE", "")

	state := &backendState{access: "acc-1", refresh: "ref-1"}
	env.State = state
	r := env.Backend.Router

	r.Post(auth.LoginPath, func(w http.ResponseWriter, req *http.Request) {
		req.ParseForm()
		if req.PostForm.Get("password") != "secret" {
			apitest.Detail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		state.mu.Lock()
		access, refresh := state.access, state.refresh
		state.mu.Unlock()
		apitest.WriteJSON(w, http.StatusOK, map[string]any{
			"user":          map[string]string{"email": req.PostForm.Get("username"), "name": "Kim", "role": "user"},
			"access_token":  access,
			"refresh_token": refresh,
		})
	})
	r.Post(apiclient.RefreshPath, func(w http.ResponseWriter, req *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.revoked {
			apitest.Detail(w, http.StatusForbidden, "Refresh token revoked")
			return
		}
		apitest.WriteJSON(w, http.StatusOK, map[string]string{"token": state.access})
	})
	r.Get(dashboard.MyPVCsPath, func(w http.ResponseWriter, req *http.Request) {
		if !state.authorized(req) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		apitest.WriteJSON(w, http.StatusOK, map[string]any{
			"pvcs": []map[string]any{{"id": 1, "pvc_name": "kim-data", "path": "/data/kim"}},
		})
	})
	r.Get(dashboard.BrowsePath, func(w http.ResponseWriter, req *http.Request) {
		if !state.authorized(req) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		apitest.WriteJSON(w, http.StatusOK, map[string]any{
			"path":  req.URL.Query().Get("path"),
			"items": []map[string]any{{"name": "notes.txt", "type": "file", "size": 5, "size_human": "5.0B"}},
		})
	})
	return env
}

// openStore opens the on-disk session like a fresh process would.
func openStore(t *testing.T, path string) *session.FileStore {
	t.Helper()
	store, err := session.OpenFileStore(path)
	if err != nil {
		t.Fatalf("opening session %s: %v", path, err)
	}
	return store
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
	}
}
