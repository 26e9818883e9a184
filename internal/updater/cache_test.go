package updater

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")

	if got, err := LoadCache(dir); err != nil || got != nil {
		t.Fatalf("LoadCache before first check = %v, %v; want nil, nil", got, err)
	}

	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := VersionCache{
		LatestVersion:   "0.4.0",
		CurrentVersion:  "0.3.2",
		ReleaseURL:      "https://github.com/aiswide/gpudash/releases/tag/v0.4.0",
		CheckedAt:       checked,
		UpdateAvailable: true,
	}
	if err := SaveCache(dir, &want); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	got, err := LoadCache(dir)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if got.LatestVersion != want.LatestVersion || got.CurrentVersion != want.CurrentVersion ||
		got.ReleaseURL != want.ReleaseURL || got.UpdateAvailable != want.UpdateAvailable {
		t.Errorf("LoadCache = %+v, want %+v", *got, want)
	}
	if !got.CheckedAt.Equal(checked) {
		t.Errorf("CheckedAt = %v, want %v", got.CheckedAt, checked)
	}
}

func TestLoadCacheRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), []byte(`{"latest_version":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCache(dir); err == nil {
		t.Error("LoadCache accepted a truncated file")
	}
}

func TestIsCacheStale(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour

	tests := []struct {
		name    string
		cache   *VersionCache
		current string
		want    bool
	}{
		{"never checked", nil, "0.3.2", true},
		{"checked an hour ago", &VersionCache{CheckedAt: now.Add(-time.Hour), CurrentVersion: "0.3.2"}, "0.3.2", false},
		{"checked two days ago", &VersionCache{CheckedAt: now.Add(-2 * day), CurrentVersion: "0.3.2"}, "0.3.2", true},
		{"binary upgraded since check", &VersionCache{CheckedAt: now, CurrentVersion: "0.3.1"}, "0.3.2", true},
		{"unknown current version ignores mismatch", &VersionCache{CheckedAt: now, CurrentVersion: "0.3.1"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCacheStale(tt.cache, day, tt.current); got != tt.want {
				t.Errorf("IsCacheStale = %v, want %v", got, tt.want)
			}
		})
	}
}
