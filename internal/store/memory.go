// ABOUTME: In-memory Store implementation for tests and ephemeral sessions
// ABOUTME: Map guarded by a mutex; survives nothing, fails never

package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store with a process-local map.
// Useful in tests and for sessions that should not outlive the process.
type MemoryStore struct {
	mu        sync.Mutex
	namespace string
	ids       map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{
		namespace: namespace,
		ids:       make(map[string]int64),
	}
}

// Get reports the stored conversation id for a scope.
func (s *MemoryStore) Get(_ context.Context, scope string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[scopeKey(s.namespace, scope)]
	return id, ok
}

// Set stores the conversation id for a scope.
func (s *MemoryStore) Set(_ context.Context, scope string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[scopeKey(s.namespace, scope)] = id
	return nil
}

// Clear removes the stored conversation id for a scope.
func (s *MemoryStore) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, scopeKey(s.namespace, scope))
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
