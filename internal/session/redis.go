package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore implements Store on a Redis hash per session.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed session store and verifies
// connectivity.
func NewRedisStore(ctx context.Context, client *redis.Client, logger zerolog.Logger) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{
		client: client,
		logger: logger.With().Str("component", "session-store").Logger(),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	value, err := s.client.HGet(ctx, sessionKey(sessionID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if err := s.client.HSet(ctx, sessionKey(sessionID), key, value).Err(); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, sessionKey(sessionID), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
