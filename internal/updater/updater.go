package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aiswide/gpudash/internal/branding"
	"github.com/rs/zerolog"
)

const defaultAPIBase = "https://api.github.com"

// Release is a published GitHub release.
type Release struct {
	Version   string    `json:"tag_name"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Updater checks for new releases.
type Updater struct {
	currentVersion string
	httpClient     *http.Client
	apiBase        string
	logger         zerolog.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) { u.httpClient = c }
}

// WithAPIBase points release lookups at another GitHub API host.
func WithAPIBase(base string) Option {
	return func(u *Updater) { u.apiBase = base }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(u *Updater) { u.logger = l }
}

// New creates an Updater for the running version.
func New(currentVersion string, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		apiBase:        defaultAPIBase,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// CurrentVersion returns the version this updater was created with.
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}

// LatestRelease fetches the newest published release.
func (u *Updater) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.apiBase, branding.GitHubRepo())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", branding.UserAgent(u.currentVersion))

	// Optional token for higher rate limits.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("no published release")
	case http.StatusForbidden:
		return nil, fmt.Errorf("GitHub API rate limit exceeded. Set GITHUB_TOKEN for higher limits")
	default:
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing release JSON: %w", err)
	}
	u.logger.Debug().Str("latest", release.Version).Msg("fetched latest release")
	return &release, nil
}

// Check fetches the latest release, reports whether it is newer than the
// running version, and records the result in the cache under configDir.
func (u *Updater) Check(ctx context.Context, configDir string) (*VersionCache, error) {
	release, err := u.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		return nil, err
	}
	cache := &VersionCache{
		LatestVersion:   release.Version,
		CurrentVersion:  u.currentVersion,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	}
	if err := SaveCache(configDir, cache); err != nil {
		u.logger.Debug().Err(err).Msg("saving version cache")
	}
	return cache, nil
}
