package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a backend
type Config struct {
	Backend string
	Path    string // file backend

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// ErrIncompletePair is returned when saving a pair with an empty half
var ErrIncompletePair = errors.New("access and refresh token must both be set")

// Store persists the current session's token pair.
// An absent token is reported as "" with a nil error.
type Store interface {
	// SaveTokens stores both tokens, replacing whatever was stored before
	SaveTokens(ctx context.Context, accessToken, refreshToken string) error

	// GetAccessToken returns the current access token
	GetAccessToken(ctx context.Context) (string, error)

	// GetRefreshToken returns the current refresh token
	GetRefreshToken(ctx context.Context) (string, error)

	// ClearTokens removes stored credentials
	ClearTokens(ctx context.Context) error

	// IsLoggedIn reports whether a complete pair is stored
	IsLoggedIn(ctx context.Context) (bool, error)
}

// Preview shortens a token for logging
func Preview(token string) string {
	if len(token) > 12 {
		return token[:12] + "..."
	}
	return token
}

// Open creates the configured backend. The returned close function releases
// backend resources and is never nil.
func Open(ctx context.Context, cfg Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Path == "" {
			return nil, noop, fmt.Errorf("file token store requires a path")
		}
		return NewFileStore(cfg.Path), noop, nil

	case BackendMemory:
		return NewMemoryStore(), noop, nil

	case BackendRedis:
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisStore(rdb, cfg.RedisPrefix), rdb.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}
