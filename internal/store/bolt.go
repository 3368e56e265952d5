// ABOUTME: BoltDB implementation of the Store interface using go.etcd.io/bbolt
// ABOUTME: One bucket of scope keys to decimal conversation ids in a single file

package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("conversation_ids")

// BoltStore implements the Store interface using a single-file BoltDB.
// Values are stored as decimal strings so a corrupt entry degrades to an
// absent id rather than a failed lookup.
type BoltStore struct {
	db        *bolt.DB
	namespace string
	logger    *slog.Logger
}

// NewBoltStore opens (or creates) a Bolt database at the given path.
// Parent directories are created if needed.
func NewBoltStore(path, namespace string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	logger.Info("bolt store initialized", "path", path)
	return &BoltStore{
		db:        db,
		namespace: namespace,
		logger:    logger,
	}, nil
}

// Get reports the stored conversation id for a scope.
// Missing keys, read errors, and malformed values all read as absent.
func (s *BoltStore) Get(_ context.Context, scope string) (int64, bool) {
	var id int64
	var ok bool

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(scopeKey(s.namespace, scope)))
		if v == nil {
			return nil
		}
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			// Skip the malformed entry instead of failing the lookup
			s.logger.Warn("malformed conversation id in store", "scope", scope, "value", string(v))
			return nil
		}
		id = parsed
		ok = true
		return nil
	})
	if err != nil {
		s.logger.Error("failed to read conversation id", "error", err, "scope", scope)
		return 0, false
	}
	return id, ok
}

// Set stores the conversation id for a scope.
func (s *BoltStore) Set(_ context.Context, scope string, id int64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(scopeKey(s.namespace, scope))
		return tx.Bucket(boltBucket).Put(key, []byte(strconv.FormatInt(id, 10)))
	})
	if err != nil {
		return fmt.Errorf("saving conversation id: %w", err)
	}

	s.logger.Debug("saved conversation id", "scope", scope, "conversation_id", id)
	return nil
}

// Clear removes the stored conversation id for a scope.
func (s *BoltStore) Clear(_ context.Context, scope string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(scopeKey(s.namespace, scope)))
	})
	if err != nil {
		return fmt.Errorf("clearing conversation id: %w", err)
	}

	s.logger.Debug("cleared conversation id", "scope", scope)
	return nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
