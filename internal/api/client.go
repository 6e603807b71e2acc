// Package api wraps outbound control-center requests with the session's
// bearer token and enforces the global authentication contract: sliding
// token renewal via the X-Refresh-Token response header and forced logout
// on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/session"
)

// RefreshHeader carries the renewed bearer token on authenticated responses.
const RefreshHeader = "X-Refresh-Token"

// Client decorates every request with the current token. It performs no
// retries; a transport failure propagates to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Store
	log     *zap.Logger
}

// New builds a Client against baseURL using the given session store.
func New(baseURL string, hc *http.Client, sess *session.Store, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		session: sess,
		log:     log,
	}
}

// Do issues method path with an optional JSON body. Caller headers (may be
// nil) are merged with the bearer token and a JSON content-type default; the
// token always wins, the content type only when the caller did not set one.
// The token is read from the session at call time. If the response carries a
// refresh token the stored token is replaced before Do returns. A 401 marks
// the session expired and forces logout exactly once across concurrent
// in-flight requests; the response is still returned so callers can treat
// any non-ok status as a no-op.
func (c *Client) Do(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token())
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if refreshed := resp.Header.Get(RefreshHeader); refreshed != "" {
		c.session.SetToken(refreshed)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.MarkExpired()
		if _, acted := c.session.Logout(); acted {
			c.log.Info("session expired, forced logout")
		}
	}

	return resp, nil
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// doJSON issues a request and decodes a 2xx response body into out. A
// non-2xx status is reported as an error carrying the server's error string
// when one is present.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
