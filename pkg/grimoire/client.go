// Package grimoire implements a client for GrimoireLab-style event servers.
// The client authenticates with username/password for a JWT token pair,
// pages through the events endpoint, and transparently refreshes expired
// access tokens and reconnects on transport failures.
package grimoire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Sumatoshi-tech/trustfang/pkg/events"
)

// Sentinel errors surfaced by the client.
var (
	ErrNotConnected = errors.New("grimoire: not connected, call Connect first")
	ErrAuthFailed   = errors.New("grimoire: authentication failed")
	ErrForbidden    = errors.New("grimoire: access forbidden")
)

// Client defaults.
const (
	DefaultPageSize   = 100
	DefaultMaxRetries = 5
	DefaultTimeout    = 30 * time.Second
)

// API endpoint paths, relative to the base URL.
const (
	tokenPath        = "token/"
	tokenRefreshPath = "token/refresh/"
	eventsPath       = "events/"
)

// Client talks to one GrimoireLab event server.
type Client struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
	pageSize   int
	maxRetries uint64

	accessToken  string
	refreshToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageSize sets the number of events requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxRetries bounds reconnect attempts after transport failures.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// NewClient creates a client for the server at baseURL. The URL must be
// absolute; a trailing slash is implied.
func NewClient(baseURL, username, password string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if !parsed.IsAbs() {
		return nil, fmt.Errorf("parse base url: %q is not absolute", baseURL)
	}

	if parsed.Path == "" || parsed.Path[len(parsed.Path)-1] != '/' {
		parsed.Path += "/"
	}

	c := &Client{
		baseURL:    parsed,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
		pageSize:   DefaultPageSize,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Connect obtains a fresh token pair. It must be called before Get, Post,
// or FetchEvents.
func (c *Client) Connect(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, tokenPath, body, false)
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuthFailed
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request token: unexpected status %s", resp.Status)
	}

	var pair tokenPair

	err = json.NewDecoder(resp.Body).Decode(&pair)
	if err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = pair.Access
	c.refreshToken = pair.Refresh

	c.logger.Debug("connected to event server", slog.String("url", c.baseURL.String()))

	return nil
}

// refresh exchanges the refresh token for a new access token.
func (c *Client) refresh(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"refresh": c.refreshToken})
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, tokenRefreshPath, body, false)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: refresh rejected with %s", ErrAuthFailed, resp.Status)
	}

	var pair tokenPair

	err = json.NewDecoder(resp.Body).Decode(&pair)
	if err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}

	c.accessToken = pair.Access

	return nil
}

// Get performs an authenticated GET against a path relative to the base
// URL and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs an authenticated POST with a JSON body against a path
// relative to the base URL and returns the response body.
func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// do issues one authenticated request with full recovery: an expired
// access token is refreshed once, and transport failures trigger a
// reconnect with exponential backoff up to the retry budget.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.accessToken == "" {
		return nil, ErrNotConnected
	}

	var result []byte

	operation := func() error {
		resp, err := c.send(ctx, method, path, body, true)
		if err != nil {
			// Transport failure: reconnect for a fresh token pair,
			// then let backoff schedule the retry.
			c.logger.Warn("transport error, reconnecting",
				slog.String("path", path), slog.Any("error", err))

			connErr := c.Connect(ctx)
			if connErr != nil {
				return fmt.Errorf("reconnect: %w", connErr)
			}

			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusForbidden {
			refreshErr := c.refresh(ctx)
			if refreshErr != nil {
				return backoff.Permanent(refreshErr)
			}

			retried, retryErr := c.send(ctx, method, path, body, true)
			if retryErr != nil {
				return retryErr
			}
			defer retried.Body.Close()

			if retried.StatusCode == http.StatusForbidden {
				return backoff.Permanent(ErrForbidden)
			}

			return readInto(&result, retried)
		}

		return readInto(&result, resp)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	err := backoff.Retry(operation, policy)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	return result, nil
}

// readInto validates the status and drains the body into result. Non-2xx
// statuses are permanent: retrying an identical request will not help.
func readInto(result *[]byte, resp *http.Response) error {
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return backoff.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	*result = body

	return nil
}

// send builds and issues one HTTP request. withAuth attaches the current
// bearer token.
func (c *Client) send(ctx context.Context, method, path string, body []byte, withAuth bool) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if withAuth {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	return resp, nil
}

// FetchEvents pages through the events endpoint for one category and
// hands each decoded batch to the handler. Paging stops at the first
// empty or short page, or when the handler returns an error.
func (c *Client) FetchEvents(ctx context.Context, category string, handler func([]events.Envelope) error) error {
	offset := 0

	for {
		query := url.Values{}
		query.Set("category", category)
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(c.pageSize))

		raw, err := c.Get(ctx, eventsPath+"?"+query.Encode())
		if err != nil {
			return fmt.Errorf("fetch events page at offset %d: %w", offset, err)
		}

		batch, err := events.DecodeBatch(raw)
		if err != nil {
			return fmt.Errorf("decode events page at offset %d: %w", offset, err)
		}

		if len(batch) == 0 {
			return nil
		}

		err = handler(batch)
		if err != nil {
			return err
		}

		if len(batch) < c.pageSize {
			return nil
		}

		offset += len(batch)
	}
}
