// ABOUTME: Store interface for durable per-user conversation id persistence
// ABOUTME: Defines the Get/Set/Clear contract and the config-driven backend factory

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/taskchat/internal/config"
)

// Store persists the current conversation id per user scope.
//
// Get reports the stored id for a scope. An absent or unparsable value is
// reported as (0, false); backend read failures are treated the same way so
// callers never have to distinguish "no id" from "store unwell". Set and Clear
// return errors, but callers are expected to keep their in-memory session
// alive when persistence fails.
type Store interface {
	Get(ctx context.Context, scope string) (int64, bool)
	Set(ctx context.Context, scope string, id int64) error
	Clear(ctx context.Context, scope string) error

	// Close releases any resources held by the store
	Close() error
}

// Open creates the store backend selected by the configuration.
func Open(cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.StoreBackendSQLite:
		return NewSQLiteStore(cfg.Path, cfg.Namespace, logger)
	case config.StoreBackendBolt:
		return NewBoltStore(cfg.Path, cfg.Namespace, logger)
	case config.StoreBackendRedis:
		return NewRedisStore(cfg.RedisURL, cfg.Namespace, logger)
	case config.StoreBackendMemory:
		return NewMemoryStore(cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// scopeKey builds the storage key for a user scope.
// Keys are namespaced so unrelated deployments can share a backend.
func scopeKey(namespace, scope string) string {
	if namespace == "" {
		namespace = "taskchat"
	}
	return namespace + ":" + scope
}
