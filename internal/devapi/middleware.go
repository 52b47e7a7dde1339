package devapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/courtside/clubapp/internal/auth"
	"github.com/courtside/clubapp/internal/pkg/logger"
	"github.com/courtside/clubapp/internal/pkg/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// RequireAuth rejects requests without a valid access token and stores the
// member in the request context
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r.Header.Get("Authorization"))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		claims, err := s.jwt.ValidateAccessToken(raw)
		if err != nil {
			message := "invalid access token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "access token expired"
			}
			s.log.Debug("access token rejected", slog.String("path", r.URL.Path), slog.String("reason", message))
			writeError(w, http.StatusUnauthorized, message)
			return
		}
		logger.WithMember(s.log, claims.MemberID).Debug("request authenticated",
			slog.String("path", r.URL.Path),
			slog.String("token_id", claims.TokenID))

		ctx := auth.SetMemberInContext(r.Context(), &auth.MemberContext{
			MemberID: claims.MemberID,
			Phone:    claims.Phone,
			TokenID:  claims.TokenID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LogRequest logs every request with its status and duration
func (s *Server) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip logging health checks and scrapes to reduce noise
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		log := logger.WithDuration(logger.WithHTTPRequest(s.log, r.Method, r.URL.Path), time.Since(start))
		level := slog.LevelInfo
		if wrapped.statusCode >= 500 {
			level = slog.LevelError
		} else if wrapped.statusCode >= 400 {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "request served",
			slog.Int("status", wrapped.statusCode),
			slog.Int64("bytes", wrapped.written),
			slog.String("client_ip", r.RemoteAddr))
	})
}

// RecordMetrics counts requests per route template
func RecordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, path, wrapped.statusCode, time.Since(start))
	})
}
