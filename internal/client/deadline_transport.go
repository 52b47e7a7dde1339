package client

import (
	"context"
	"io"
	"net/http"
	"time"
)

// deadlineTransport bounds each physical call, body read included
type deadlineTransport struct {
	base    http.RoundTripper
	timeout time.Duration
}

// NewDeadlineTransport wraps base so every round trip must finish within
// timeout. The deadline is released when the response body is closed.
func NewDeadlineTransport(base http.RoundTripper, timeout time.Duration) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &deadlineTransport{base: base, timeout: timeout}
}

// RoundTrip implements http.RoundTripper
func (t *deadlineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.base.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
