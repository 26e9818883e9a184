package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aiswide/gpudash/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// RefreshPath is the token refresh endpoint, relative to the base URL.
const RefreshPath = "/refresh"

// Request describes an outbound call. Body is sent as-is and kept so the
// request can be replayed after a refresh.
type Request struct {
	Header http.Header
	Query  url.Values
	Body   []byte
}

// Client performs authenticated requests against the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	navigator  Navigator
	notifier   Notifier
	observer   Observer
	logger     zerolog.Logger
	userAgent  string

	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNavigator sets where terminal auth failures send the user.
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// WithNotifier sets how terminal auth failures are announced.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithObserver attaches a request/refresh observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client for the backend at baseURL backed by store.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		store:      store,
		navigator:  NavigatorFunc(func(string) {}),
		observer:   nopObserver{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		logger := c.logger
		c.notifier = NotifierFunc(func(msg string) { logger.Warn().Msg(msg) })
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the session store the client reads tokens from.
func (c *Client) Store() session.Store { return c.store }

// Do sends an authenticated request. On success the caller owns the
// response body. Non-401 statuses are returned unmodified for the caller to
// interpret; a nil response is returned together with ErrUnauthenticated,
// ErrSessionExpired or a *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, req *Request) (*http.Response, error) {
	if req == nil {
		req = &Request{}
	}

	tokens := session.Load(c.store)
	if tokens.AccessToken == "" {
		c.logger.Debug().Str("path", path).Msg("no access token, skipping request")
		c.endSession(NoticeSignInRequired, false)
		return nil, ErrUnauthenticated
	}

	resp, err := c.send(ctx, method, path, req, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	if !tokens.HasRefresh() {
		c.logger.Debug().Str("path", path).Msg("401 without refresh token")
		c.endSession(NoticeSessionExpired, true)
		return nil, ErrSessionExpired
	}

	accessToken, err := c.refreshAccessToken(ctx, tokens)
	if err != nil {
		return nil, err
	}

	// Single retry. Whatever comes back, including another 401, is final.
	return c.send(ctx, method, path, req, accessToken)
}

// Get sends an authenticated GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, &Request{Query: query})
}

// Post sends an authenticated POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	req, err := jsonRequest(body)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, http.MethodPost, path, req)
}

// Delete sends an authenticated DELETE with body encoded as JSON. A nil
// body sends no payload.
func (c *Client) Delete(ctx context.Context, path string, body any) (*http.Response, error) {
	req, err := jsonRequest(body)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, http.MethodDelete, path, req)
}

func jsonRequest(body any) (*Request, error) {
	if body == nil {
		return &Request{}, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return &Request{Body: data}, nil
}

// send issues one HTTP exchange with the given access token.
func (c *Client) send(ctx context.Context, method, path string, r *Request, accessToken string) (*http.Response, error) {
	target, err := c.target(path, r.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Authorization") != "" {
		c.logger.Debug().Str("path", path).Msg("dropping caller-supplied Authorization header")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	return c.exchange(req, path)
}

// target joins path to the base URL. A query string already on path is
// merged with query, keeping values from both.
func (c *Client) target(path string, query url.Values) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing request path %q: %w", path, err)
	}
	if len(query) == 0 {
		return c.baseURL + path, nil
	}
	merged := u.Query()
	for k, vs := range query {
		merged[k] = append(merged[k], vs...)
	}
	u.RawQuery = merged.Encode()
	return c.baseURL + u.String(), nil
}

// decorate sets headers shared by authenticated and refresh calls.
func (c *Client) decorate(req *http.Request) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
}

func (c *Client) exchange(req *http.Request, path string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.ObserveRequest(req.Method, path, 0, err)
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", path).Msg("request failed")
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	c.observer.ObserveRequest(req.Method, path, resp.StatusCode, nil)
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", path).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return resp, nil
}

// endSession runs the terminal failure path: optionally clear the store,
// notify, then navigate to the sign-in entry point.
func (c *Client) endSession(notice string, clear bool) {
	if clear {
		if err := session.Clear(c.store); err != nil {
			c.logger.Error().Err(err).Msg("clearing session")
		}
	}
	c.notifier.Notify(notice)
	c.navigator.Navigate(SignInPath)
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
