package updater

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aiswide/gpudash/internal/branding"
)

// CheckAndPrintBanner prints an update banner from the cached check and, if
// the cache is stale, refreshes it in the background for the next run. The
// returned wait func blocks until the refresh is done or timeout elapses.
func (u *Updater) CheckAndPrintBanner(w io.Writer, configDir string, timeout time.Duration) (wait func()) {
	cache, err := LoadCache(configDir)
	if err != nil {
		u.logger.Debug().Err(err).Msg("ignoring unreadable version cache")
		cache = nil
	}
	if cache != nil && cache.UpdateAvailable && cache.CurrentVersion == u.currentVersion {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion, cache.ReleaseURL)
	}

	if !IsCacheStale(cache, DefaultCacheMaxAge, u.currentVersion) {
		return func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if _, err := u.Check(ctx, configDir); err != nil {
			u.logger.Debug().Err(err).Msg("background release check failed")
		}
	}()
	return wg.Wait
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest, url string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	if url == "" {
		url = fmt.Sprintf("https://github.com/%s/releases/latest", branding.GitHubRepo())
	}
	fmt.Fprintf(w, "    Download it from %s\n\n", url)
}
