package updater

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/aiswide/gpudash/releases/latest" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "gpudash/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestRelease(t *testing.T) {
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v1.3.0","html_url":"https://example.test/v1.3.0","published_at":"2026-01-02T03:04:05Z"}`)
	u := New("1.2.0", WithAPIBase(srv.URL), WithHTTPClient(srv.Client()))

	rel, err := u.LatestRelease(context.Background())
	if err != nil {
		t.Fatalf("LatestRelease: %v", err)
	}
	if rel.Version != "v1.3.0" || rel.HTMLURL != "https://example.test/v1.3.0" {
		t.Errorf("release = %+v", rel)
	}
}

func TestLatestRelease_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"not found", http.StatusNotFound, "no published release"},
		{"rate limited", http.StatusForbidden, "rate limit"},
		{"server error", http.StatusBadGateway, "status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := releaseServer(t, tt.status, "")
			u := New("1.0.0", WithAPIBase(srv.URL), WithHTTPClient(srv.Client()))
			_, err := u.LatestRelease(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestCheck_WritesCache(t *testing.T) {
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v1.3.0","html_url":"https://example.test/v1.3.0"}`)
	u := New("1.2.0", WithAPIBase(srv.URL), WithHTTPClient(srv.Client()))
	dir := t.TempDir()

	cache, err := u.Check(context.Background(), dir)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !cache.UpdateAvailable {
		t.Error("expected update available")
	}

	loaded, err := LoadCache(dir)
	if err != nil || loaded == nil {
		t.Fatalf("LoadCache = %v, %v", loaded, err)
	}
	if loaded.LatestVersion != "v1.3.0" || loaded.CurrentVersion != "1.2.0" {
		t.Errorf("cache = %+v", loaded)
	}
}

func TestCheckAndPrintBanner(t *testing.T) {
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v2.0.0"}`)
	u := New("1.0.0", WithAPIBase(srv.URL), WithHTTPClient(srv.Client()))
	dir := t.TempDir()

	// First run: nothing cached, nothing printed, cache refreshed.
	var buf bytes.Buffer
	u.CheckAndPrintBanner(&buf, dir, 5*time.Second)()
	if buf.Len() != 0 {
		t.Errorf("unexpected banner on first run: %q", buf.String())
	}

	// Second run: banner from the cache.
	buf.Reset()
	u.CheckAndPrintBanner(&buf, dir, 5*time.Second)()
	out := buf.String()
	if !strings.Contains(out, "1.0.0 -> v2.0.0") {
		t.Errorf("banner = %q", out)
	}
	if !strings.Contains(out, "github.com/aiswide/gpudash/releases/latest") {
		t.Errorf("banner missing fallback download link: %q", out)
	}
}
