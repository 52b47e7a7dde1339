package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/courtside/clubapp/internal/tokenstore"
)

// ErrRefreshFailed wraps every failure of a refresh call
var ErrRefreshFailed = errors.New("token refresh failed")

// DefaultRefreshHeader carries the refresh token on the refresh call
const DefaultRefreshHeader = "Authorization-Refresh"

// Refresher exchanges a refresh token for a new token pair.
// It performs exactly one POST per call and never retries.
type Refresher struct {
	httpClient *http.Client
	endpoint   string
	header     string
	log        *slog.Logger
}

// NewRefresher creates a refresher posting to endpoint (an absolute URL).
// httpClient must not route through the auth transport.
func NewRefresher(httpClient *http.Client, endpoint string) *Refresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Refresher{
		httpClient: httpClient,
		endpoint:   endpoint,
		header:     DefaultRefreshHeader,
		log:        slog.Default().With(slog.String("component", "token-refresher")),
	}
}

// WithHeader overrides the header used to send the refresh token
func (r *Refresher) WithHeader(name string) *Refresher {
	r.header = name
	return r
}

// Refresh posts refreshToken to the refresh endpoint and returns the new pair
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, fmt.Errorf("%w: empty refresh token", ErrRefreshFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, http.NoBody)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set(r.header, "Bearer "+refreshToken)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	pair, err := decodeEnvelope[TokenPair](resp)
	if err != nil {
		r.log.Warn("refresh rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()))
		return TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if !pair.Complete() {
		return TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, ErrIncompleteTokenPair)
	}

	r.log.Debug("refresh succeeded", slog.String("access_preview", tokenstore.Preview(pair.AccessToken)))
	return *pair, nil
}
