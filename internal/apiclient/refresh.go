package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aiswide/gpudash/internal/session"
)

// refreshRequest is the body of POST /refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse is the part of the refresh response the client reads.
// The refresh endpoint returns the new access token as "token", unlike the
// login endpoint which uses "access_token".
type refreshResponse struct {
	Token string `json:"token"`
}

// errRefreshRejected marks a refresh the backend answered but did not grant.
var errRefreshRejected = errors.New("refresh rejected")

// refreshAccessToken returns an access token to retry with. used is the
// token pair the failed request was sent with.
func (c *Client) refreshAccessToken(ctx context.Context, used session.Tokens) (string, error) {
	// The shared call outlives any single caller's cancellation; the HTTP
	// client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.refreshes.Do(used.RefreshToken, func() (any, error) {
		current, _ := c.store.Get(session.KeyAccessToken)
		switch {
		case current == "":
			// Another call already tore the session down.
			return "", ErrSessionExpired
		case current != used.AccessToken:
			// Another call refreshed while this one was in flight.
			c.observer.ObserveRefresh(RefreshShared)
			return current, nil
		}
		return c.refresh(shared, used.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refresh performs the refresh call and applies its outcome to the store.
// It runs at most once per refresh token at a time.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	token, err := c.requestRefresh(ctx, refreshToken)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			c.observer.ObserveRefresh(RefreshFailed)
			return "", err
		}
		c.observer.ObserveRefresh(RefreshRejected)
		c.logger.Debug().Err(err).Msg("token refresh failed")
		c.endSession(NoticeSessionExpired, true)
		return "", ErrSessionExpired
	}

	// The retry only runs with a persisted token.
	if err := session.SetAccessToken(c.store, token); err != nil {
		c.observer.ObserveRefresh(RefreshFailed)
		return "", fmt.Errorf("storing refreshed access token: %w", err)
	}
	c.observer.ObserveRefresh(RefreshSucceeded)
	return token, nil
}

func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RefreshPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.exchange(req, RefreshPath)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: status %d", errRefreshRejected, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", errRefreshRejected, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: response has no token field", errRefreshRejected)
	}
	return out.Token, nil
}
