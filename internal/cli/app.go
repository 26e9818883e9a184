package cli

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/auth"
	"github.com/aiswide/gpudash/internal/branding"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/dashboard"
	"github.com/aiswide/gpudash/internal/render"
	"github.com/aiswide/gpudash/internal/session"
	"github.com/spf13/cobra"
)

// app bundles what API commands need: the session, an authenticated client
// and the output format.
type app struct {
	apiURL string
	store  *session.FileStore
	http   *http.Client
	client *apiclient.Client
	svc    *dashboard.Service
	format render.Format
	out    io.Writer
}

// openStore opens the on-disk session store.
func openStore() (*session.FileStore, error) {
	store, err := session.OpenFileStore(session.DefaultPath(config.Dir()))
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return store, nil
}

// newApp wires the store, client and dashboard service for cmd.
func newApp(cmd *cobra.Command, opts ...apiclient.Option) (*app, error) {
	format, err := render.ParseFormat(config.Output())
	if err != nil {
		return nil, err
	}
	apiURL := config.APIURL()
	if apiURL == "" {
		return nil, fmt.Errorf("API URL is not configured. Run `%s config set %s <url>` or set %s",
			branding.CLIName(), config.KeyAPIURL, branding.EnvVar("API_URL"))
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: config.Timeout()}
	hint := &signInHint{w: cmd.ErrOrStderr()}
	base := []apiclient.Option{
		apiclient.WithHTTPClient(hc),
		apiclient.WithNavigator(hint),
		apiclient.WithNotifier(hint),
		apiclient.WithLogger(logger),
		apiclient.WithUserAgent(branding.UserAgent(buildVersion)),
	}
	client := apiclient.New(apiURL, store, append(base, opts...)...)

	return &app{
		apiURL: apiURL,
		store:  store,
		http:   hc,
		client: client,
		svc:    dashboard.New(client, dashboard.WithLogger(logger)),
		format: format,
		out:    cmd.OutOrStdout(),
	}, nil
}

func (a *app) authenticator() *auth.Authenticator {
	return auth.New(a.apiURL, a.store, auth.WithHTTPClient(a.http), auth.WithLogger(logger))
}

func (a *app) print(data any, t render.Table) error {
	return render.Print(a.out, a.format, data, t)
}

// signInHint is the terminal rendition of "show a notice and go to the
// sign-in page". Concurrent failures print it once.
type signInHint struct {
	w io.Writer

	mu      sync.Mutex
	noticed bool
	shown   bool
}

func (h *signInHint) Notify(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.noticed {
		return
	}
	h.noticed = true
	fmt.Fprintln(h.w, msg)
}

func (h *signInHint) Navigate(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shown || target != apiclient.SignInPath {
		return
	}
	h.shown = true
	fmt.Fprintf(h.w, "Run `%s login` to sign in.\n", branding.CLIName())
}
