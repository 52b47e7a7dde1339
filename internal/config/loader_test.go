package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devserver.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_SIGNING_KEY", "0123456789abcdef0123")
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
auth:
  jwt:
    signing_key: ${TEST_SIGNING_KEY}
    access_lifetime: 30s
ids:
  node: 7
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("Address() = %q", cfg.Server.Address())
	}
	if cfg.Auth.JWT.SigningKey != "0123456789abcdef0123" {
		t.Errorf("signing key not expanded: %q", cfg.Auth.JWT.SigningKey)
	}
	if cfg.Auth.JWT.AccessLifetime != 30*time.Second {
		t.Errorf("AccessLifetime = %v, want 30s", cfg.Auth.JWT.AccessLifetime)
	}
	// Untouched fields keep their defaults
	if cfg.Auth.JWT.RefreshLifetime != 720*time.Hour {
		t.Errorf("RefreshLifetime = %v, want default", cfg.Auth.JWT.RefreshLifetime)
	}
	if cfg.Auth.RefreshHeader != "Authorization-Refresh" {
		t.Errorf("RefreshHeader = %q, want default", cfg.Auth.RefreshHeader)
	}
	if cfg.IDs.Node != 7 {
		t.Errorf("IDs.Node = %d, want 7", cfg.IDs.Node)
	}
}

func TestLoadSigningKeyFromEnvironment(t *testing.T) {
	t.Setenv("CLUBAPP_JWT_SIGNING_KEY", "env-signing-key-0123")
	path := writeConfig(t, "environment: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWT.SigningKey != "env-signing-key-0123" {
		t.Errorf("SigningKey = %q", cfg.Auth.JWT.SigningKey)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("CLUBAPP_JWT_SIGNING_KEY", "")

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing signing key",
			body:    "server:\n  port: 8080\n",
			wantErr: "signing_key",
		},
		{
			name:    "bad port",
			body:    "server:\n  port: 70000\nauth:\n  jwt:\n    signing_key: 0123456789abcdef\n",
			wantErr: "server.port",
		},
		{
			name:    "refresh shorter than access",
			body:    "auth:\n  jwt:\n    signing_key: 0123456789abcdef\n    access_lifetime: 2h\n    refresh_lifetime: 1h\n",
			wantErr: "refresh_lifetime",
		},
		{
			name:    "non-positive code lifetime",
			body:    "auth:\n  code_lifetime: -1m\n  jwt:\n    signing_key: 0123456789abcdef\n",
			wantErr: "code_lifetime",
		},
		{
			name:    "node out of range",
			body:    "auth:\n  jwt:\n    signing_key: 0123456789abcdef\nids:\n  node: 2000\n",
			wantErr: "ids.node",
		},
		{
			name:    "malformed yaml",
			body:    "server: [",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
