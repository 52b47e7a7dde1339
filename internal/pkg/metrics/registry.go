package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Club API client metrics (one sample per physical HTTP call)
var (
	// APICalls tracks outgoing API calls
	APICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubapp_api_calls_total",
			Help: "Total club API calls by method, route (normalized path), and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// APIDuration tracks outgoing API call latency
	APIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "clubapp_api_duration_ms",
			Help:                            "Club API call duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "route"},
	)

	// APIErrors tracks failed API calls by error class
	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubapp_api_errors_total",
			Help: "Total club API errors by route and error type",
		},
		[]string{"route", "error_type"},
	)
)

// Auth pipeline metrics
var (
	// TokenRefreshes tracks refresh attempts by outcome
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubapp_token_refreshes_total",
			Help: "Total token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SessionLogouts tracks local session clears caused by auth failures
	SessionLogouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubapp_session_logouts_total",
			Help: "Total local session clears by reason",
		},
		[]string{"reason"},
	)

	// AuthRequests tracks requests through the auth transport by terminal state
	AuthRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubapp_auth_requests_total",
			Help: "Total requests handled by the auth transport by final state",
		},
		[]string{"final_state"},
	)
)

// Dev API server metrics
var (
	// HTTPRequests tracks HTTP requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubapp_devapi_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "clubapp_devapi_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "path"},
	)

	// ActiveSessions tracks sessions currently held by the dev API
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubapp_devapi_active_sessions",
			Help: "Number of refresh sessions held by the dev API",
		},
	)
)
