package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	ctx := context.Background()

	if err := NewFileStore(path).SaveTokens(ctx, "access", "refresh"); err != nil {
		t.Fatalf("SaveTokens: %v", err)
	}

	// A second instance stands in for a new process
	reopened := NewFileStore(path)
	access, err := reopened.GetAccessToken(ctx)
	if err != nil || access != "access" {
		t.Fatalf("GetAccessToken() = %q, %v, want access", access, err)
	}
	creds, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds.SavedAt.IsZero() {
		t.Error("SavedAt not recorded")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("credentials file mode = %o, want 600", perm)
		}
	}
}

func TestFileStoreHalfPairIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"access_token":"only-access"}`), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := NewFileStore(path)
	ctx := context.Background()
	if loggedIn, _ := store.IsLoggedIn(ctx); loggedIn {
		t.Error("half pair reported as logged in")
	}
	if access, _ := store.GetAccessToken(ctx); access != "" {
		t.Errorf("GetAccessToken() = %q, want empty for a half pair", access)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := NewFileStore(path)
	if _, err := store.GetAccessToken(context.Background()); err == nil {
		t.Error("expected an error for a corrupt credentials file")
	}
	// Saving over a corrupt file recovers it
	if err := store.SaveTokens(context.Background(), "a", "r"); err != nil {
		t.Fatalf("SaveTokens: %v", err)
	}
	if access, err := store.GetAccessToken(context.Background()); err != nil || access != "a" {
		t.Errorf("GetAccessToken() = %q, %v, want a", access, err)
	}
}

func TestFileStoreCanceledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.SaveTokens(ctx, "a", "r"); err == nil {
		t.Error("SaveTokens with canceled context should fail")
	}
}
