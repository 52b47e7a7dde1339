package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default timeouts applied to each physical HTTP call, including refresh calls.
// A refreshed request makes three calls and each gets the full timeout.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// Config describes how to reach the club API
type Config struct {
	BaseURL        string
	Timeout        time.Duration // per physical call
	ConnectTimeout time.Duration
	RefreshHeader  string

	// Transport is the physical transport; nil builds one from the timeouts above
	Transport http.RoundTripper
}

// Client wraps an http.Client with the auth transport installed
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	store     TokenStore
	refresher *Refresher
	auth      *AuthTransport
	log       *slog.Logger
}

// NewClient creates a club API client whose requests carry the stored tokens.
// The refresh endpoint is called through the same physical transport but
// never through the auth transport.
func NewClient(cfg Config, store TokenStore, options ...AuthOption) (*Client, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	physical := cfg.Transport
	if physical == nil {
		physical = newPhysicalTransport(connectTimeout, timeout)
	}
	measured := NewMetricsTransport(NewDeadlineTransport(physical, timeout))

	refresher := NewRefresher(&http.Client{Transport: measured}, baseURL.String()+PathTokenRefresh)
	if cfg.RefreshHeader != "" {
		refresher.WithHeader(cfg.RefreshHeader)
	}

	options = append([]AuthOption{WithBaseURL(baseURL)}, options...)
	auth := NewAuthTransport(measured, store, refresher, options...)

	// Timeouts apply per physical call in the deadline transport
	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Transport: auth},
		store:     store,
		refresher: refresher,
		auth:      auth,
		log:       slog.Default().With(slog.String("component", "api-client")),
	}, nil
}

func newPhysicalTransport(connectTimeout, timeout time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = timeout
	return transport
}

// HTTPClient returns the authenticated http.Client
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Store returns the token store (useful for commands)
func (c *Client) Store() TokenStore {
	return c.store
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// NewRequest builds a request for path relative to the base URL.
// A non-nil body is encoded as JSON unless it is already an io.Reader.
func (c *Client) NewRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	target := *c.baseURL
	target.Path = c.baseURL.Path + ref.Path
	target.RawQuery = ref.RawQuery

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do sends req through the auth transport. Redirect hops of the same request
// share one retry budget.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if _, ok := AttemptFromContext(req.Context()); !ok {
		req = req.WithContext(WithAttempt(req.Context(), NewAttempt(req)))
	}
	return c.http.Do(req)
}

// doJSON sends a JSON request and decodes the envelope payload
func doJSON[T any](ctx context.Context, c *Client, method, path string, body interface{}) (*T, error) {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[T](resp)
}
