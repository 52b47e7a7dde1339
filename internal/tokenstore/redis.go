package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the token keys
const DefaultRedisPrefix = "clubapp:session"

// RedisStore keeps the token pair under two fixed keys.
// Saves and clears run inside MULTI/EXEC so both keys change together.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	log    *slog.Logger
}

// NewRedisStore creates a store using rdb; an empty prefix uses DefaultRedisPrefix
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		log:    slog.Default().With(slog.String("component", "token-redis-store")),
	}
}

func (s *RedisStore) accessKey() string  { return s.prefix + ":access_token" }
func (s *RedisStore) refreshKey() string { return s.prefix + ":refresh_token" }

func (s *RedisStore) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrIncompletePair
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(), accessToken, 0)
		pipe.Set(ctx, s.refreshKey(), refreshToken, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	s.log.Debug("tokens saved", slog.String("preview", Preview(accessToken)))
	return nil
}

func (s *RedisStore) GetAccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, s.accessKey())
}

func (s *RedisStore) GetRefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, s.refreshKey())
}

func (s *RedisStore) ClearTokens(ctx context.Context) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.accessKey(), s.refreshKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func (s *RedisStore) IsLoggedIn(ctx context.Context) (bool, error) {
	values, err := s.rdb.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read tokens: %w", err)
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok || str == "" {
			return false, nil
		}
	}
	return true, nil
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}
