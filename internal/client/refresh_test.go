package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresherSendsRefreshToken(t *testing.T) {
	var gotMethod, gotHeader, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get(DefaultRefreshHeader)
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		writeEnvelope(w, http.StatusOK, TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil)
	}))
	defer srv.Close()

	pair, err := NewRefresher(srv.Client(), srv.URL+PathTokenRefresh).Refresh(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, TokenPair{AccessToken: "a2", RefreshToken: "r2"}, pair)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer r1", gotHeader)
	assert.Empty(t, gotAuth)
	assert.Empty(t, gotBody)
}

func TestRefresherCustomHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Refresh-Token")
		writeEnvelope(w, http.StatusOK, TokenPair{AccessToken: "a", RefreshToken: "r"}, nil)
	}))
	defer srv.Close()

	_, err := NewRefresher(srv.Client(), srv.URL).WithHeader("X-Refresh-Token").Refresh(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got)
}

func TestRefresherFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		apiErr  bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusInternalServerError, nil, &APIError{Status: 500, Message: "boom"})
			},
			apiErr: true,
		},
		{
			name: "rejected refresh token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusUnauthorized, nil, &APIError{Status: 401, Message: "invalid refresh token"})
			},
			apiErr: true,
		},
		{
			name: "unsuccessful envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusOK, nil, &APIError{Status: 400, Message: "nope"})
			},
			apiErr: true,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
		},
		{
			name: "incomplete pair",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusOK, TokenPair{AccessToken: "only-access"}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewRefresher(srv.Client(), srv.URL).Refresh(context.Background(), "r1")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRefreshFailed)

			var apiErr *APIError
			assert.Equal(t, tt.apiErr, errors.As(err, &apiErr))
		})
	}
}

func TestRefresherEmptyTokenMakesNoCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewRefresher(srv.Client(), srv.URL).Refresh(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.False(t, called)
}

func TestRefresherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRefresher(nil, url).Refresh(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrRefreshFailed)
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *Member
		wantErr string
	}{
		{
			name:   "success",
			status: 200,
			body:   `{"success":true,"response":{"id":"7","name":"Ana","phone":"+1"},"error":null}`,
			want:   &Member{ID: "7", Name: "Ana", Phone: "+1"},
		},
		{
			name:    "error envelope",
			status:  404,
			body:    `{"success":false,"response":null,"error":{"status":404,"message":"member not found"}}`,
			wantErr: "api error 404: member not found",
		},
		{
			name:    "non-json error body",
			status:  502,
			body:    `bad gateway`,
			wantErr: "api error 502: Bad Gateway",
		},
		{
			name:    "unsuccessful with 200",
			status:  200,
			body:    `{"success":false}`,
			wantErr: "api error 200: request was not successful",
		},
		{
			name:    "missing payload",
			status:  200,
			body:    `{"success":true}`,
			wantErr: "no payload",
		},
		{
			name:    "malformed",
			status:  200,
			body:    `{"success":`,
			wantErr: "failed to parse response envelope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.status,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}
			got, err := decodeEnvelope[Member](resp)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
