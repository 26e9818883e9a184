package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/aiswide/gpudash/internal/branding"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/platform"
	"github.com/aiswide/gpudash/internal/session"
	"github.com/spf13/cobra"
)

var (
	checkConfig  bool
	checkBackend bool
	checkSession bool
)

func init() {
	doctorCmd.Flags().BoolVar(&checkConfig, "check-config", false, "Verify configuration")
	doctorCmd.Flags().BoolVar(&checkBackend, "check-api", false, "Verify the backend is reachable")
	doctorCmd.Flags().BoolVar(&checkSession, "check-session", false, "Verify the stored session")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the " + branding.DisplayName() + " CLI",
	Long:  `Run diagnostic checks on configuration, backend connectivity and the stored session.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := !checkConfig && !checkBackend && !checkSession
		w := cmd.OutOrStdout()

		failed := false
		if all || checkConfig {
			failed = runConfigCheck(w) || failed
		}
		if all || checkBackend {
			failed = runBackendCheck(cmd.Context(), w) || failed
		}
		if all || checkSession {
			failed = runSessionCheck(w, time.Now()) || failed
		}
		if failed {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

// Each check prints its findings and returns true on failure.

func runConfigCheck(w io.Writer) bool {
	fmt.Fprintln(w, "Config check:")
	path := config.FilePath()
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  [ OK ] config file %s\n", path)
	} else {
		fmt.Fprintf(w, "  [INFO] no config file at %s (using environment and defaults)\n", path)
	}

	failed := false
	if url := config.APIURL(); url == "" {
		fmt.Fprintf(w, "  [FAIL] %s is not set\n", config.KeyAPIURL)
		failed = true
	} else {
		fmt.Fprintf(w, "  [ OK ] %s = %s\n", config.KeyAPIURL, url)
	}
	fmt.Fprintf(w, "  [ OK ] %s = %s, %s = %s\n",
		config.KeyPollInterval, config.PollInterval(), config.KeyTimeout, config.Timeout())
	return failed
}

func runBackendCheck(ctx context.Context, w io.Writer) bool {
	fmt.Fprintln(w, "Backend check:")
	url := config.APIURL()
	if url == "" {
		fmt.Fprintln(w, "  [SKIP] no API URL configured")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/docs", nil)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] invalid API URL: %v\n", err)
		return true
	}
	req.Header.Set("User-Agent", branding.UserAgent(buildVersion))

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s unreachable: %v\n", url, err)
		return true
	}
	resp.Body.Close()
	// Any HTTP answer means the host is up; auth is checked per request.
	fmt.Fprintf(w, "  [ OK ] %s answered %d in %s\n", url, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return false
}

func runSessionCheck(w io.Writer, now time.Time) bool {
	fmt.Fprintln(w, "Session check:")
	path := session.DefaultPath(config.Dir())
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "  [INFO] not signed in. Run `%s login`\n", branding.CLIName())
		return false
	}
	failed := false
	if ok, err := platform.IsPrivate(path); err != nil || !ok {
		fmt.Fprintf(w, "  [WARN] %s is readable by other users; run chmod 600 on it\n", path)
	}

	store, err := session.OpenFileStore(path)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return true
	}
	user, err := session.CurrentUser(store)
	switch {
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintf(w, "  [INFO] not signed in. Run `%s login`\n", branding.CLIName())
		return false
	case err != nil:
		fmt.Fprintf(w, "  [FAIL] %v. Run `%s logout` and sign in again\n", err, branding.CLIName())
		return true
	}
	fmt.Fprintf(w, "  [ OK ] signed in as %s (%s)\n", user.Email, user.Role)

	tokens := session.Load(store)
	claims, err := session.ParseClaims(tokens.AccessToken)
	switch {
	case tokens.AccessToken == "":
		fmt.Fprintln(w, "  [FAIL] no access token stored")
		failed = true
	case err != nil:
		fmt.Fprintf(w, "  [FAIL] access token unreadable: %v\n", err)
		failed = true
	default:
		if exp, ok := claims.Expiry(); !ok {
			fmt.Fprintln(w, "  [ OK ] access token has no expiry")
		} else if exp.After(now) {
			fmt.Fprintf(w, "  [ OK ] access token valid for %s\n", exp.Sub(now).Round(time.Second))
		} else {
			fmt.Fprintf(w, "  [WARN] access token expired %s ago\n", now.Sub(exp).Round(time.Second))
		}
	}
	if tokens.HasRefresh() {
		fmt.Fprintln(w, "  [ OK ] refresh token stored")
	} else {
		fmt.Fprintln(w, "  [WARN] no refresh token; the session ends when the access token expires")
	}
	return failed
}
