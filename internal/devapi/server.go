// Package devapi implements the club API auth endpoints for local development
// and tests. Members and sessions live in memory.
package devapi

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courtside/clubapp/internal/auth"
	"github.com/courtside/clubapp/internal/client"
	"github.com/courtside/clubapp/internal/pkg/idgen"
	"github.com/courtside/clubapp/internal/pkg/metrics"
)

// DefaultCodeLifetime is how long a requested verification code is accepted
const DefaultCodeLifetime = 10 * time.Minute

// Options configures a Server
type Options struct {
	SigningKey       string
	AccessLifetime   time.Duration
	RefreshLifetime  time.Duration
	RefreshHeader    string
	VerificationCode string
	CodeLifetime     time.Duration // defaults to DefaultCodeLifetime
	IDs              *idgen.Generator
	Logger           *slog.Logger
}

// Server holds the in-memory state behind the dev API
type Server struct {
	jwt              *auth.JWTManager
	ids              *idgen.Generator
	refreshHeader    string
	verificationCode string
	codeLifetime     time.Duration
	log              *slog.Logger
	now              func() time.Time

	mu       sync.Mutex
	members  map[string]*client.Member // by member ID
	byPhone  map[string]string         // phone -> member ID
	pending  map[string]time.Time      // phone -> code expires at
	sessions map[string]string         // live refresh token ID -> member ID
}

// New creates a dev API server
func New(opts Options) (*Server, error) {
	if opts.SigningKey == "" {
		return nil, errors.New("signing key is required")
	}
	if opts.IDs == nil {
		return nil, errors.New("id generator is required")
	}
	if opts.RefreshHeader == "" {
		opts.RefreshHeader = client.DefaultRefreshHeader
	}
	if opts.CodeLifetime <= 0 {
		opts.CodeLifetime = DefaultCodeLifetime
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		jwt:              auth.NewJWTManager(opts.SigningKey, opts.AccessLifetime, opts.RefreshLifetime),
		ids:              opts.IDs,
		refreshHeader:    opts.RefreshHeader,
		verificationCode: opts.VerificationCode,
		codeLifetime:     opts.CodeLifetime,
		log:              opts.Logger.With(slog.String("component", "devapi")),
		now:              time.Now,
		members:          make(map[string]*client.Member),
		byPhone:          make(map[string]string),
		pending:          make(map[string]time.Time),
		sessions:         make(map[string]string),
	}, nil
}

// Router returns the HTTP handler serving every dev API route
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public routes
	router.HandleFunc(client.PathPhoneVerificationRequest, s.RequestVerification).Methods("POST")
	router.HandleFunc(client.PathPhoneVerificationVerify, s.VerifyPhone).Methods("POST")
	router.HandleFunc(client.PathTokenRefresh, s.Refresh).Methods("POST")
	router.HandleFunc(client.PathMembers, s.RegisterMember).Methods("POST")

	// Member routes (auth required); "me" must be matched before the ID pattern
	router.Handle(client.PathMe, s.RequireAuth(http.HandlerFunc(s.Me))).Methods("GET")
	router.Handle(client.PathMembers+"/{id:[0-9]+}", s.RequireAuth(http.HandlerFunc(s.GetMember))).Methods("GET")

	router.Use(s.LogRequest, RecordMetrics)
	return router
}

// issueSession signs a pair for member and records its refresh token as live
func (s *Server) issueSession(member *client.Member) (client.TokenPair, error) {
	issued, err := s.jwt.IssuePair(member.ID, member.Phone)
	if err != nil {
		return client.TokenPair{}, err
	}

	s.mu.Lock()
	s.sessions[issued.RefreshTokenID] = member.ID
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	return client.TokenPair{AccessToken: issued.AccessToken, RefreshToken: issued.RefreshToken}, nil
}

// codeRequested reports whether a code for phone was requested and has not
// expired. Callers hold s.mu.
func (s *Server) codeRequested(phone string) bool {
	expiresAt, ok := s.pending[phone]
	if !ok {
		return false
	}
	if s.now().After(expiresAt) {
		delete(s.pending, phone)
		return false
	}
	return true
}

// revokeSession removes a refresh token ID and reports whether it was live
func (s *Server) revokeSession(tokenID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[tokenID]; !ok {
		return false
	}
	delete(s.sessions, tokenID)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return true
}

// SessionCount returns the number of live refresh sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) memberByID(id string) (*client.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, false
	}
	copied := *m
	return &copied, true
}
