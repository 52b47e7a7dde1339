package metrics

import (
	"strconv"
	"time"
)

// Refresh outcomes
const (
	RefreshSuccess        = "success"
	RefreshFailure        = "failure"
	RefreshNoToken        = "no_refresh_token"
	RefreshCoalesced      = "coalesced"
	LogoutRepeated401     = "repeated_unauthorized"
	LogoutRefreshRejected = "refresh_rejected"
)

// RecordRefresh records the outcome of a refresh attempt
func RecordRefresh(outcome string) {
	TokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordLogout records a local session clear
func RecordLogout(reason string) {
	SessionLogouts.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records a request served by the dev API
// path: route template (e.g., "/api/members/{id}") to keep cardinality low
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(float64(duration.Milliseconds()))
}
