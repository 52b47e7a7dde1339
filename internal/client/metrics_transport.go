package client

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/courtside/clubapp/internal/pkg/metrics"
)

// metricsTransport wraps an http.RoundTripper to collect metrics on club API calls
type metricsTransport struct {
	base http.RoundTripper
}

// NewMetricsTransport creates a transport wrapper that records every physical
// call, including retries and refresh calls when installed beneath the auth transport.
func NewMetricsTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &metricsTransport{base: base}
}

// RoundTrip implements http.RoundTripper, wrapping the base transport with metrics collection
func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	route := normalizeRoute(req.URL.Path)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	metrics.APICalls.WithLabelValues(req.Method, route, strconv.Itoa(statusCode)).Inc()
	metrics.APIDuration.WithLabelValues(req.Method, route).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		metrics.APIErrors.WithLabelValues(route, classifyError(statusCode, err)).Inc()
	}

	return resp, err
}

var routePatterns = []struct {
	regex   *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`/members/\d+`), "/members/:id"},
	{regexp.MustCompile(`/activities/\d+`), "/activities/:id"},
	{regexp.MustCompile(`/academies/\d+`), "/academies/:id"},
	{regexp.MustCompile(`/products/\d+`), "/products/:id"},
	{regexp.MustCompile(`/orders/\d+`), "/orders/:id"},
	{regexp.MustCompile(`/posts/\d+`), "/posts/:id"},
	{regexp.MustCompile(`/comments/\d+`), "/comments/:id"},
	{regexp.MustCompile(`/notifications/\d+`), "/notifications/:id"},
	{regexp.MustCompile(`/attendance/[A-Za-z0-9_-]{8,}`), "/attendance/:code"},
}

// normalizeRoute replaces IDs in API paths with placeholders to keep metric
// cardinality bounded
func normalizeRoute(path string) string {
	normalized := path
	for _, p := range routePatterns {
		normalized = p.regex.ReplaceAllString(normalized, p.replace)
	}
	return normalized
}

// classifyError categorizes API call failures for metrics
func classifyError(statusCode int, err error) string {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "canceled"
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout"
		}
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "timeout"):
			return "timeout"
		case strings.Contains(errStr, "connection"):
			return "connection"
		case strings.Contains(errStr, "tls"), strings.Contains(errStr, "TLS"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
