package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/courtside/clubapp/internal/pkg/metrics"
)

// TokenRefresher exchanges a refresh token for a new pair
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// AuthOption configures an AuthTransport
type AuthOption func(*AuthTransport)

// WithAllowList replaces the default allow list
func WithAllowList(paths ...string) AuthOption {
	return func(t *AuthTransport) {
		t.allowList = NewAllowList(paths...)
	}
}

// WithBaseURL confines tokens to the API host and matches allow-list paths
// below the base URL's path
func WithBaseURL(base *url.URL) AuthOption {
	return func(t *AuthTransport) {
		t.host = base.Host
		t.basePath = strings.TrimRight(base.EscapedPath(), "/")
	}
}

// WithRefreshCoalescing controls whether concurrent 401s share one refresh call.
// When disabled every request refreshes on its own and the last save wins.
func WithRefreshCoalescing(enabled bool) AuthOption {
	return func(t *AuthTransport) {
		t.coalesce = enabled
	}
}

// WithStateObserver registers a hook called on every state transition
func WithStateObserver(fn func(a *Attempt, from, to State)) AuthOption {
	return func(t *AuthTransport) {
		t.observer = fn
	}
}

// AuthTransport is an http.RoundTripper that attaches the stored bearer token,
// refreshes it once when the server answers 401 and retries the request.
type AuthTransport struct {
	base      http.RoundTripper
	store     TokenStore
	refresher TokenRefresher
	allowList AllowList
	host      string
	basePath  string
	coalesce  bool
	group     singleflight.Group
	observer  func(a *Attempt, from, to State)
	log       *slog.Logger
}

// NewAuthTransport creates an auth transport sending through base.
// refresher must not route its calls through the returned transport.
func NewAuthTransport(base http.RoundTripper, store TokenStore, refresher TokenRefresher, options ...AuthOption) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &AuthTransport{
		base:      base,
		store:     store,
		refresher: refresher,
		allowList: NewAllowList(DefaultAllowList...),
		coalesce:  true,
		log:       slog.Default().With(slog.String("component", "auth-transport")),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempt, ok := AttemptFromContext(ctx)
	if !ok {
		attempt = NewAttempt(req)
	}
	log := t.log.With(
		slog.String("attempt_id", attempt.ID),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path))

	if !t.carriesToken(attempt, req.URL) {
		t.transition(attempt, StateUnauthenticatedPassthrough, log)
		t.finish(attempt)
		return t.base.RoundTrip(req)
	}

	accessToken, err := t.store.GetAccessToken(ctx)
	if err != nil {
		log.Warn("failed to read access token, sending anonymously", slog.String("error", err.Error()))
		accessToken = ""
	}
	if accessToken == "" {
		t.transition(attempt, StateUnauthenticatedPassthrough, log)
		t.finish(attempt)
		return t.base.RoundTrip(req)
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	t.transition(attempt, StateAuthenticatedSend, log)
	authenticated := body.request(req, accessToken)
	t.transition(attempt, StateAwaitResponse, log)
	resp, err := t.base.RoundTrip(authenticated)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.finish(attempt)
		return resp, nil
	}
	discardBody(resp)

	return t.handleUnauthorized(ctx, attempt, req, body, log)
}

// carriesToken reports whether the bearer token may be sent to u. Tokens only
// go to the API host and the host the attempt started on, and never to
// allow-listed paths.
func (t *AuthTransport) carriesToken(attempt *Attempt, u *url.URL) bool {
	if t.host != "" && !strings.EqualFold(u.Host, t.host) {
		return false
	}
	if attempt.Host != "" && !strings.EqualFold(u.Host, attempt.Host) {
		return false
	}
	path := u.EscapedPath()
	if t.allowList.Contains(path) {
		return false
	}
	if rest, ok := strings.CutPrefix(path, t.basePath); ok && t.basePath != "" && t.allowList.Contains(rest) {
		return false
	}
	return true
}

func (t *AuthTransport) handleUnauthorized(ctx context.Context, attempt *Attempt, req *http.Request, body *bufferedBody, log *slog.Logger) (*http.Response, error) {
	if attempt.RetryCount >= 1 {
		log.Info("unauthorized after refresh, clearing session")
		return t.logout(ctx, attempt, req, body, metrics.LogoutRepeated401, log)
	}

	attempt.RetryCount++
	t.transition(attempt, StateRefreshNeeded, log)
	t.transition(attempt, StateRefreshing, log)

	refreshToken, err := t.store.GetRefreshToken(ctx)
	if err != nil {
		log.Warn("failed to read refresh token", slog.String("error", err.Error()))
		refreshToken = ""
	}
	if refreshToken == "" {
		log.Info("no refresh token stored, forwarding original request")
		metrics.RecordRefresh(metrics.RefreshNoToken)
		t.finish(attempt)
		return t.base.RoundTrip(body.request(req, ""))
	}

	pair, err := t.refresh(ctx, refreshToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("token refresh failed, clearing session", slog.String("error", err.Error()))
		return t.logout(ctx, attempt, req, body, metrics.LogoutRefreshRejected, log)
	}

	t.transition(attempt, StateRetrySend, log)
	t.finish(attempt)
	return t.base.RoundTrip(body.request(req, pair.AccessToken))
}

// refresh obtains a new pair, sharing one in-flight call per refresh token when
// coalescing is enabled
func (t *AuthTransport) refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !t.coalesce {
		return t.refreshAndStore(ctx, refreshToken)
	}

	// The shared call must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	ch := t.group.DoChan(refreshToken, func() (interface{}, error) {
		if pair, ok := t.rotatedPair(flightCtx, refreshToken); ok {
			return pair, nil
		}
		return t.refreshAndStore(flightCtx, refreshToken)
	})

	select {
	case <-ctx.Done():
		return TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.RecordRefresh(metrics.RefreshCoalesced)
		}
		if res.Err != nil {
			return TokenPair{}, res.Err
		}
		return res.Val.(TokenPair), nil
	}
}

// rotatedPair returns the stored pair when an earlier call already exchanged
// refreshToken. A request can read the old token just before that call saves.
func (t *AuthTransport) rotatedPair(ctx context.Context, refreshToken string) (TokenPair, bool) {
	current, err := t.store.GetRefreshToken(ctx)
	if err != nil || current == "" || current == refreshToken {
		return TokenPair{}, false
	}
	access, err := t.store.GetAccessToken(ctx)
	if err != nil || access == "" {
		return TokenPair{}, false
	}
	metrics.RecordRefresh(metrics.RefreshCoalesced)
	return TokenPair{AccessToken: access, RefreshToken: current}, true
}

func (t *AuthTransport) refreshAndStore(ctx context.Context, refreshToken string) (TokenPair, error) {
	pair, err := t.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.RecordRefresh(metrics.RefreshFailure)
		return TokenPair{}, err
	}
	if err := t.store.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		// The retry still goes out with the new token; the next request will
		// find the stale pair and refresh again.
		t.log.Error("failed to persist refreshed tokens", slog.String("error", err.Error()))
	}
	metrics.RecordRefresh(metrics.RefreshSuccess)
	t.log.Info("successfully refreshed token")
	return pair, nil
}

func (t *AuthTransport) logout(ctx context.Context, attempt *Attempt, req *http.Request, body *bufferedBody, reason string, log *slog.Logger) (*http.Response, error) {
	t.transition(attempt, StateLoggedOut, log)
	if err := t.store.ClearTokens(ctx); err != nil {
		log.Error("failed to clear tokens", slog.String("error", err.Error()))
	}
	metrics.RecordLogout(reason)
	t.finish(attempt)
	return t.base.RoundTrip(body.request(req, ""))
}

func (t *AuthTransport) transition(attempt *Attempt, to State, log *slog.Logger) {
	from := attempt.State
	attempt.State = to
	log.Debug("auth state transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("retry_count", attempt.RetryCount))
	if t.observer != nil {
		t.observer(attempt, from, to)
	}
}

func (t *AuthTransport) finish(attempt *Attempt) {
	metrics.AuthRequests.WithLabelValues(attempt.State.String()).Inc()
}

// bufferedBody holds a request body so it can be sent more than once
type bufferedBody struct {
	data    []byte
	present bool
}

func bufferBody(req *http.Request) (*bufferedBody, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return &bufferedBody{}, nil
	}
	defer req.Body.Close()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return &bufferedBody{data: data, present: true}, nil
}

// request clones orig with a fresh body. A non-empty accessToken replaces the
// Authorization header; an empty one leaves the caller's headers untouched.
func (b *bufferedBody) request(orig *http.Request, accessToken string) *http.Request {
	r := orig.Clone(orig.Context())
	if b.present {
		data := b.data
		r.Body = io.NopCloser(bytes.NewReader(data))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		r.ContentLength = int64(len(data))
	}
	if accessToken != "" {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return r
}

// discardBody drains and closes resp so the connection can be reused
func discardBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxEnvelopeSize))
	resp.Body.Close()
}
