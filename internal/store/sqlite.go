// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Single conversation_ids table with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db        *sql.DB
	namespace string
	logger    *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path, namespace string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS conversation_ids (
			scope_key TEXT PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return &SQLiteStore{
		db:        db,
		namespace: namespace,
		logger:    logger,
	}, nil
}

// Get reports the stored conversation id for a scope.
// A missing row, a read error, or a corrupt value all read as absent.
func (s *SQLiteStore) Get(ctx context.Context, scope string) (int64, bool) {
	query := `SELECT conversation_id FROM conversation_ids WHERE scope_key = ?`

	var id int64
	err := s.db.QueryRowContext(ctx, query, scopeKey(s.namespace, scope)).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		s.logger.Error("failed to read conversation id", "error", err, "scope", scope)
		return 0, false
	}
	return id, true
}

// Set saves or updates the conversation id for a scope.
// Uses INSERT OR REPLACE to handle both insert and update cases.
func (s *SQLiteStore) Set(ctx context.Context, scope string, id int64) error {
	query := `
		INSERT OR REPLACE INTO conversation_ids (scope_key, conversation_id, updated_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		scopeKey(s.namespace, scope),
		id,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving conversation id: %w", err)
	}

	s.logger.Debug("saved conversation id", "scope", scope, "conversation_id", id)
	return nil
}

// Clear removes the stored conversation id for a scope.
// Clearing an absent scope is not an error.
func (s *SQLiteStore) Clear(ctx context.Context, scope string) error {
	query := `DELETE FROM conversation_ids WHERE scope_key = ?`

	if _, err := s.db.ExecContext(ctx, query, scopeKey(s.namespace, scope)); err != nil {
		return fmt.Errorf("clearing conversation id: %w", err)
	}

	s.logger.Debug("cleared conversation id", "scope", scope)
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
