package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, "test"), rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	redisStore, _, done := newRedisStoreTest(t)
	t.Cleanup(done)
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "credentials.json")),
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			loggedIn, err := store.IsLoggedIn(ctx)
			if err != nil {
				t.Fatalf("IsLoggedIn: %v", err)
			}
			if loggedIn {
				t.Fatal("empty store reports logged in")
			}
			if access, _ := store.GetAccessToken(ctx); access != "" {
				t.Fatalf("empty store returned access token %q", access)
			}

			if err := store.SaveTokens(ctx, "access-1", "refresh-1"); err != nil {
				t.Fatalf("SaveTokens: %v", err)
			}
			access, err := store.GetAccessToken(ctx)
			if err != nil || access != "access-1" {
				t.Fatalf("GetAccessToken() = %q, %v, want access-1", access, err)
			}
			refresh, err := store.GetRefreshToken(ctx)
			if err != nil || refresh != "refresh-1" {
				t.Fatalf("GetRefreshToken() = %q, %v, want refresh-1", refresh, err)
			}
			if loggedIn, _ := store.IsLoggedIn(ctx); !loggedIn {
				t.Fatal("store with a pair reports logged out")
			}

			// Last write wins, no merge
			if err := store.SaveTokens(ctx, "access-2", "refresh-2"); err != nil {
				t.Fatalf("SaveTokens: %v", err)
			}
			if access, _ := store.GetAccessToken(ctx); access != "access-2" {
				t.Fatalf("GetAccessToken() = %q, want access-2", access)
			}
			if refresh, _ := store.GetRefreshToken(ctx); refresh != "refresh-2" {
				t.Fatalf("GetRefreshToken() = %q, want refresh-2", refresh)
			}

			if err := store.ClearTokens(ctx); err != nil {
				t.Fatalf("ClearTokens: %v", err)
			}
			if loggedIn, _ := store.IsLoggedIn(ctx); loggedIn {
				t.Fatal("cleared store reports logged in")
			}
			if refresh, _ := store.GetRefreshToken(ctx); refresh != "" {
				t.Fatalf("cleared store returned refresh token %q", refresh)
			}

			// Clearing twice is fine
			if err := store.ClearTokens(ctx); err != nil {
				t.Fatalf("second ClearTokens: %v", err)
			}
		})
	}
}

func TestStoreRejectsIncompletePair(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{name: "missing access", access: "", refresh: "refresh"},
		{name: "missing refresh", access: "access", refresh: ""},
		{name: "missing both", access: "", refresh: ""},
	}

	for backend, store := range backends(t) {
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				err := store.SaveTokens(context.Background(), tt.access, tt.refresh)
				if !errors.Is(err, ErrIncompletePair) {
					t.Errorf("SaveTokens(%q, %q) error = %v, want ErrIncompletePair", tt.access, tt.refresh, err)
				}
				if loggedIn, _ := store.IsLoggedIn(context.Background()); loggedIn {
					t.Error("incomplete save left the store logged in")
				}
			})
		}
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					if err := store.SaveTokens(ctx, fmt.Sprintf("access-%d", i), fmt.Sprintf("refresh-%d", i)); err != nil {
						t.Errorf("SaveTokens: %v", err)
					}
				}(i)
				go func() {
					defer wg.Done()
					if _, err := store.GetAccessToken(ctx); err != nil {
						t.Errorf("GetAccessToken: %v", err)
					}
				}()
			}
			wg.Wait()

			if loggedIn, _ := store.IsLoggedIn(ctx); !loggedIn {
				t.Fatal("store should hold one of the saved pairs")
			}
		})
	}
}
