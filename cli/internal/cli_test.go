package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/clubapp/internal/devapi"
	"github.com/courtside/clubapp/internal/pkg/idgen"
)

const testCode = "424242"

// setupCLI starts a dev API and points a fresh config file at it
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(ConfigPathEnv, filepath.Join(dir, "clubctl.yaml"))

	ids, err := idgen.New(2)
	require.NoError(t, err)
	api, err := devapi.New(devapi.Options{
		SigningKey:       "cli-test-signing-key-0123",
		AccessLifetime:   time.Minute,
		RefreshLifetime:  time.Hour,
		VerificationCode: testCode,
		IDs:              ids,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	ctx := NewContext(srv.URL)
	ctx.Session.CredentialsFile = filepath.Join(dir, "credentials.json")
	require.NoError(t, SaveConfig(&Config{
		CurrentContext: "test",
		Contexts:       map[string]*Context{"test": ctx},
	}))
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionLifecycle(t *testing.T) {
	dir := setupCLI(t)

	out, err := runCLI(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	_, err = runCLI(t, "", "auth", "register", "--name", "Ana", "--phone", "+34600", "--code", testCode)
	require.Error(t, err, "a code must be requested first")

	out, err = runCLI(t, "", "auth", "request-code", "--phone", "+34600")
	require.NoError(t, err)
	assert.Contains(t, out, "Verification code sent to +34600")

	out, err = runCLI(t, "", "auth", "register", "--name", "Ana", "--phone", "+34600", "--code", testCode)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered Ana")

	_, err = os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err, "session must be written to the context's credentials file")

	out, err = runCLI(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in to: test")
	assert.Contains(t, out, "Valid for")

	out, err = runCLI(t, "", "auth", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Name: Ana")

	out, err = runCLI(t, "", "api", "get", "/api/members/me")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Ana"`)

	before, err := runCLI(t, "", "auth", "token", "--refresh")
	require.NoError(t, err)
	out, err = runCLI(t, "", "auth", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Session refreshed")
	after, err := runCLI(t, "", "auth", "token", "--refresh")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	out, err = runCLI(t, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully logged out")

	out, err = runCLI(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	_, err = runCLI(t, "", "api", "GET", "api/members/me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestLoginPromptsForCode(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, testCode+"\n", "auth", "register", "--name", "Bo", "--phone", "+34611")
	require.NoError(t, err)
	_, err = runCLI(t, "", "auth", "logout")
	require.NoError(t, err)

	out, err := runCLI(t, testCode+"\n", "auth", "login", "--phone", "+34611")
	require.NoError(t, err)
	assert.Contains(t, out, "Verification code sent to +34611")
	assert.Contains(t, out, "Logged in to test")

	_, err = runCLI(t, "", "auth", "login", "--phone", "+34699")
	require.Error(t, err, "empty stdin gives no code")

	_, err = runCLI(t, "", "auth", "login", "--phone", "+34699", "--code", testCode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a club member")
}

func TestRefreshWhenLoggedOut(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "", "auth", "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	_, err = runCLI(t, "", "auth", "token")
	require.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "", "config", "add-context", "club", "--base-url", "https://api.example.club", "--store", "redis", "--redis-addr", "localhost:6390")
	require.NoError(t, err)
	assert.Contains(t, out, `Context "club" added/updated`)

	_, err = runCLI(t, "", "config", "add-context", "broken", "--base-url", "example.club")
	require.Error(t, err)

	_, err = runCLI(t, "", "config", "add-context", "broken", "--base-url", "https://example.club", "--store", "sqlite")
	require.Error(t, err)

	out, err = runCLI(t, "", "config", "list-contexts")
	require.NoError(t, err)
	assert.Contains(t, out, "https://api.example.club")
	assert.Contains(t, out, "* ")

	out, err = runCLI(t, "", "config", "use-context", "club")
	require.NoError(t, err)
	assert.Contains(t, out, `Switched to context "club"`)

	out, err = runCLI(t, "", "config", "current-context")
	require.NoError(t, err)
	assert.Equal(t, "club\n", out)

	out, err = runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "redis localhost:6390/0 clubapp:session:club")

	_, err = runCLI(t, "", "config", "delete-context", "club")
	require.Error(t, err, "current context cannot be deleted")

	_, err = runCLI(t, "", "config", "use-context", "test")
	require.NoError(t, err)
	_, err = runCLI(t, "", "config", "delete-context", "club")
	require.NoError(t, err)

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.NotContains(t, config.Contexts, "club")
	assert.Equal(t, "test", config.CurrentContext)
}

func TestConfigRoundTripKeepsTimeout(t *testing.T) {
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "clubctl.yaml"))

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev", config.CurrentContext)

	config.Contexts["dev"].Server.Timeout = 45 * time.Second
	require.NoError(t, SaveConfig(config))

	reloaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, reloaded.Contexts["dev"].Server.Timeout)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{1 * time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{90 * time.Second, "1 minute"},
		{2*time.Hour + 5*time.Minute, "2 hours and 5 minutes"},
		{26*time.Hour + time.Minute, "1 day, 2 hours and 1 minute"},
		{-3 * time.Minute, "3 minutes"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
