// ABOUTME: Redis implementation of the Store interface using go-redis/v9
// ABOUTME: Scope keys map to decimal conversation ids; absence is a valid state

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the Store interface on a shared Redis instance.
// Suitable when multiple frontends for the same user need one session record.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    *slog.Logger
}

// NewRedisStore connects to the Redis instance described by redisURL
// (redis://host:port/db form) and verifies it is reachable.
func NewRedisStore(redisURL, namespace string, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("redis store initialized", "addr", opt.Addr)
	return &RedisStore{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}, nil
}

// Get reports the stored conversation id for a scope.
// Missing keys, connection errors, and malformed values all read as absent.
func (s *RedisStore) Get(ctx context.Context, scope string) (int64, bool) {
	id, err := s.client.Get(ctx, scopeKey(s.namespace, scope)).Int64()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		s.logger.Error("failed to read conversation id", "error", err, "scope", scope)
		return 0, false
	}
	return id, true
}

// Set stores the conversation id for a scope.
func (s *RedisStore) Set(ctx context.Context, scope string, id int64) error {
	if err := s.client.Set(ctx, scopeKey(s.namespace, scope), id, 0).Err(); err != nil {
		return fmt.Errorf("saving conversation id: %w", err)
	}

	s.logger.Debug("saved conversation id", "scope", scope, "conversation_id", id)
	return nil
}

// Clear removes the stored conversation id for a scope.
func (s *RedisStore) Clear(ctx context.Context, scope string) error {
	if err := s.client.Del(ctx, scopeKey(s.namespace, scope)).Err(); err != nil {
		return fmt.Errorf("clearing conversation id: %w", err)
	}

	s.logger.Debug("cleared conversation id", "scope", scope)
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
