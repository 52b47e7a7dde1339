package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// State is a step of the authenticated request state machine
type State int

const (
	StateNew State = iota
	StateUnauthenticatedPassthrough
	StateAuthenticatedSend
	StateAwaitResponse
	StateRefreshNeeded
	StateRefreshing
	StateRetrySend
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateUnauthenticatedPassthrough:
		return "UNAUTHENTICATED_PASSTHROUGH"
	case StateAuthenticatedSend:
		return "AUTHENTICATED_SEND"
	case StateAwaitResponse:
		return "AWAIT_RESPONSE"
	case StateRefreshNeeded:
		return "REFRESH_NEEDED"
	case StateRefreshing:
		return "REFRESHING"
	case StateRetrySend:
		return "RETRY_SEND"
	case StateLoggedOut:
		return "LOGGED_OUT"
	default:
		return "UNKNOWN"
	}
}

// Attempt tracks one logical request through the auth transport.
// RetryCount bounds the request to a single refresh-and-retry. Host is where
// the request started; redirect hops to other hosts never carry the token.
type Attempt struct {
	ID         string
	Method     string
	URL        string
	Host       string
	RetryCount int
	State      State
}

// NewAttempt creates an attempt for the given request
func NewAttempt(req *http.Request) *Attempt {
	return &Attempt{
		ID:     uuid.NewString(),
		Method: req.Method,
		URL:    req.URL.String(),
		Host:   req.URL.Host,
		State:  StateNew,
	}
}

type attemptKey struct{}

// WithAttempt attaches an attempt to ctx. Every round trip made with the
// returned context shares the attempt's retry budget, so the context must not
// be used for concurrent requests.
func WithAttempt(ctx context.Context, a *Attempt) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}

// AttemptFromContext returns the attempt attached with WithAttempt, if any
func AttemptFromContext(ctx context.Context) (*Attempt, bool) {
	a, ok := ctx.Value(attemptKey{}).(*Attempt)
	return a, ok && a != nil
}
