package session

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Get(KeyAccessToken); ok {
		t.Fatal("new store should be empty")
	}
	if err := s.Set(KeyAccessToken, "abc"); err != nil {
		t.Fatal(err)
	}
	if v, ok := s.Get(KeyAccessToken); !ok || v != "abc" {
		t.Errorf("Get = %q, %v; want abc, true", v, ok)
	}
	if err := s.Delete(KeyAccessToken, "missing"); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(KeyAccessToken, "tok")
			s.Get(KeyAccessToken)
		}()
	}
	wg.Wait()
	if v, _ := s.Get(KeyAccessToken); v != "tok" {
		t.Errorf("Get = %q", v)
	}
}

func TestOpenFileStore_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if _, ok := fs.Get(KeyAccessToken); ok {
		t.Error("expected empty store for missing file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("opening a store must not create the file")
	}
}

func TestFileStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := OpenFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Set(KeyAccessToken, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fs.Set(KeyRefreshToken, "xyz"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := reopened.Get(KeyAccessToken); v != "abc" {
		t.Errorf("access_token = %q, want abc", v)
	}
	if v, _ := reopened.Get(KeyRefreshToken); v != "xyz" {
		t.Errorf("refresh_token = %q, want xyz", v)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("session file permissions = %o, want 600", perm)
		}
	}
}

func TestFileStore_DeleteMissingDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, _ := OpenFileStore(path)

	if err := fs.Delete(KeyAccessToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("deleting from an empty store should not create the file")
	}
}

func TestOpenFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	os.WriteFile(path, []byte("{not json"), 0600)

	if _, err := OpenFileStore(path); err == nil {
		t.Fatal("expected error for corrupt session file")
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("GPUDASH_SESSION_FILE", "")
	if got := DefaultPath("/tmp/cfg"); got != filepath.Join("/tmp/cfg", "session.json") {
		t.Errorf("DefaultPath = %q", got)
	}

	t.Setenv("GPUDASH_SESSION_FILE", "/tmp/other.json")
	if got := DefaultPath("/tmp/cfg"); got != "/tmp/other.json" {
		t.Errorf("DefaultPath with override = %q", got)
	}
}
