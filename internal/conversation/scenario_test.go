// ABOUTME: End-to-end session scenarios over a real HTTP backend and sqlite store
// ABOUTME: Continuity across controller restarts and recovery from a backend that forgot us

package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/taskchat/internal/store"
	"github.com/2389/taskchat/internal/transport"
)

// fakeBackend is a minimal chat backend: it assigns integer conversation ids
// and rejects ids it has never issued with the stale-session sentinel.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int64
	known  map[int64]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 100, known: make(map[int64]int)}
}

// forget simulates a backend restart that lost its sessions.
func (b *fakeBackend) forget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.known = make(map[int64]int)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req transport.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var resp transport.ChatResponse
	switch {
	case req.ConversationID == nil:
		id := b.nextID
		b.nextID++
		b.known[id] = 1
		resp = transport.ChatResponse{ResponseText: "hello (new session)", ConversationID: &id}
	case b.known[*req.ConversationID] == 0:
		resp = transport.ChatResponse{Error: "Conversation not found"}
	default:
		b.known[*req.ConversationID]++
		id := *req.ConversationID
		resp = transport.ChatResponse{
			ResponseText:   "got it",
			ConversationID: &id,
			ToolCalls:      []transport.ToolCall{{Name: "add_task"}},
		}
	}
	json.NewEncoder(w).Encode(resp)
}

func TestScenario_ContinuityAcrossRestart(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	openController := func(notifier TaskRefreshNotifier) (*Controller, store.Store) {
		st, err := store.NewSQLiteStore(dbPath, "taskchat", nil)
		require.NoError(t, err)
		chat := transport.New(srv.URL, 5*time.Second, nil)
		return New(st, chat, notifier, "alice", nil), st
	}

	// First process: backend assigns id 100
	notifier := &countingNotifier{}
	ctrl, st := openController(notifier)

	state, err := ctrl.Submit(ctx, "hi")
	require.NoError(t, err)
	require.Equal(t, StatusIdle, state.Status)
	require.NotNil(t, state.ConversationID)
	firstID := *state.ConversationID
	assert.Equal(t, 0, notifier.count())

	ctrl.Close()
	require.NoError(t, st.Close())

	// Second process: the persisted id is picked up and the session continues
	ctrl, st = openController(notifier)

	state, err = ctrl.Submit(ctx, "add milk")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, state.Status)
	require.NotNil(t, state.ConversationID)
	assert.Equal(t, firstID, *state.ConversationID)
	assert.Equal(t, "got it", state.History[len(state.History)-1].Content)
	assert.Equal(t, 1, notifier.count())

	// Backend restarts and forgets everything; the controller recovers with
	// one automatic retry and a fresh id
	backend.forget()

	state, err = ctrl.Submit(ctx, "still there?")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, state.Status)
	require.NotNil(t, state.ConversationID)
	assert.NotEqual(t, firstID, *state.ConversationID)
	assert.Equal(t, "hello (new session)", state.History[len(state.History)-1].Content)

	// The recovered id is what got persisted
	stored, ok := st.Get(ctx, "alice")
	require.True(t, ok)
	assert.Equal(t, *state.ConversationID, stored)

	ctrl.Close()
	require.NoError(t, st.Close())
}
