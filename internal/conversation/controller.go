// ABOUTME: Controller is the conversation session state machine
// ABOUTME: Drives exchanges, recovers stale sessions once, and signals task refreshes

package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/taskchat/internal/transport"
)

// Precondition failures returned by Submit. Exchange failures never surface
// as errors; they resolve into an error-status State.
var (
	// ErrExchangeInFlight is returned when a submit arrives while another
	// exchange is still awaiting its response. At most one exchange is in
	// flight per session.
	ErrExchangeInFlight = errors.New("an exchange is already in flight")

	// ErrEmptyMessage is returned for blank or whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrClosed is returned after Close; the session cannot be revived.
	ErrClosed = errors.New("session is closed")
)

// staleConversationMarker is the backend's contract string for a conversation
// id it no longer recognizes. It arrives inside a free-form error message, so
// detection is a substring match.
const staleConversationMarker = "Conversation not found"

// isStaleConversation reports whether a domain error means the stored
// conversation id is no longer valid. The sentinel is isolated here so the
// contract can move to a structured error code without touching the state
// machine.
func isStaleConversation(errMsg string) bool {
	return strings.Contains(errMsg, staleConversationMarker)
}

// Status is the controller's externally visible state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusError   Status = "error"
)

// MessageRole identifies who authored a history entry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in the session history. Immutable once appended.
type Message struct {
	Role    MessageRole
	Content string
}

// State is an observable snapshot of the session.
// History is a copy; callers may keep it.
type State struct {
	Status         Status
	History        []Message
	ConversationID *int64
	Err            string
}

// ChatTransport defines what the controller needs from the exchange layer.
// A returned error is a transport-level failure; domain errors arrive in the
// response's Error field.
type ChatTransport interface {
	Exchange(ctx context.Context, req *transport.ChatRequest) (*transport.ChatResponse, error)
}

// IDStore defines what the controller needs from conversation id persistence.
type IDStore interface {
	Get(ctx context.Context, scope string) (int64, bool)
	Set(ctx context.Context, scope string, id int64) error
	Clear(ctx context.Context, scope string) error
}

// Controller owns one user's conversation session: the history, the current
// conversation id, and the exchange protocol with the chat backend.
//
// All mutations happen under one mutex, which is released while awaiting the
// transport so observers and Reset stay responsive mid-exchange. The sending
// status check under that mutex is the concurrency guard; no second exchange
// can start until the first's outcome is fully processed.
type Controller struct {
	store     IDStore
	transport ChatTransport
	notifier  TaskRefreshNotifier
	scope     string
	logger    *slog.Logger

	mu             sync.Mutex
	status         Status
	history        []Message
	conversationID *int64
	errMsg         string
	loaded         bool
	closed         bool
	epoch          uint64 // bumped by Reset and Close; in-flight outcomes under an old epoch are discarded
}

// New creates a Controller for the given user scope.
// The stored conversation id is loaded lazily on first submit.
func New(store IDStore, chat ChatTransport, notifier TaskRefreshNotifier, scope string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:     store,
		transport: chat,
		notifier:  notifier,
		scope:     scope,
		status:    StatusIdle,
		logger:    logger.With("component", "conversation", "scope", scope),
	}
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Submit sends one user message through the backend and applies the outcome.
//
// The user message is appended to history before the network round-trip, so
// observers see it immediately. The returned error is non-nil only for
// precondition failures (ErrExchangeInFlight, ErrEmptyMessage, ErrClosed);
// every exchange failure resolves into the returned State with StatusError
// and a display message.
func (c *Controller) Submit(ctx context.Context, text string) (State, error) {
	if strings.TrimSpace(text) == "" {
		return c.State(), ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, ErrClosed
	}
	if c.status == StatusSending {
		// The concurrency guard: at most one exchange in flight
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, ErrExchangeInFlight
	}
	c.ensureLoadedLocked(ctx)

	// A fresh submit clears any prior error and proceeds normally
	c.errMsg = ""
	c.status = StatusSending
	c.history = append(c.history, Message{Role: RoleUser, Content: text})
	convID := cloneID(c.conversationID)
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.transport.Exchange(ctx, &transport.ChatRequest{
		Message:        text,
		ConversationID: convID,
	})

	// Stale-session recovery: drop the dead id and retry exactly once with a
	// fresh session. If the retried exchange fails in any way, the outcome is
	// handled below as a terminal error; there is never a second retry.
	if err == nil && resp.Error != "" && isStaleConversation(resp.Error) {
		if !c.dropConversationID(ctx, epoch) {
			return c.State(), nil
		}
		c.logger.Info("stale conversation dropped, retrying with fresh session")
		resp, err = c.transport.Exchange(ctx, &transport.ChatRequest{Message: text})
	}

	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		// The session was reset or torn down while the exchange was in
		// flight; the late outcome must not be applied.
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug("discarding response for superseded session")
		return st, nil
	}

	notify := false
	switch {
	case err != nil:
		c.status = StatusError
		c.errMsg = err.Error()
		c.logger.Warn("exchange failed", "error", err)
	case resp.Error != "":
		c.status = StatusError
		c.errMsg = resp.Error
		c.logger.Warn("backend reported error", "error", resp.Error)
	default:
		c.applyResponseLocked(ctx, resp)
		c.status = StatusIdle
		notify = len(resp.ToolCalls) > 0 && c.notifier != nil
	}
	st := c.snapshotLocked()
	c.mu.Unlock()

	// History is fully updated before the refresh signal fires
	if notify {
		c.notifyTaskRefresh()
	}

	return st, nil
}

// Reset drops the session unconditionally: stored id, in-memory id, history,
// and any pending error. An exchange in flight when Reset is called has its
// outcome discarded.
func (c *Controller) Reset(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.history = nil
	c.conversationID = nil
	c.errMsg = ""
	c.status = StatusIdle
	c.loaded = true

	if err := c.store.Clear(ctx, c.scope); err != nil {
		// Persistence failure must not abort the in-memory reset
		c.logger.Warn("failed to clear stored conversation id", "error", err)
	}

	c.logger.Debug("session reset")
	return c.snapshotLocked()
}

// Close tears the session down. A late-arriving response from an in-flight
// exchange is discarded rather than applied, and further submits fail with
// ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.epoch++
}

// applyResponseLocked appends the assistant turn and persists a newly
// assigned or changed conversation id. The store write happens before the
// in-memory id becomes observable.
func (c *Controller) applyResponseLocked(ctx context.Context, resp *transport.ChatResponse) {
	c.history = append(c.history, Message{Role: RoleAssistant, Content: resp.ResponseText})

	if resp.ConversationID == nil {
		return
	}
	if c.conversationID != nil && *c.conversationID == *resp.ConversationID {
		return
	}

	if err := c.store.Set(ctx, c.scope, *resp.ConversationID); err != nil {
		// The in-memory session stays usable even when persistence fails
		c.logger.Warn("failed to persist conversation id",
			"error", err,
			"conversation_id", *resp.ConversationID)
	}
	c.conversationID = cloneID(resp.ConversationID)
	c.logger.Debug("conversation id updated", "conversation_id", *resp.ConversationID)
}

// dropConversationID clears the stored and in-memory id ahead of the stale
// retry. Reports false if the session was reset or closed mid-flight, in
// which case the retry must not happen.
func (c *Controller) dropConversationID(ctx context.Context, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.epoch != epoch {
		return false
	}

	if err := c.store.Clear(ctx, c.scope); err != nil {
		c.logger.Warn("failed to clear stored conversation id", "error", err)
	}
	c.conversationID = nil
	return true
}

// ensureLoadedLocked lazily attaches the persisted conversation id.
func (c *Controller) ensureLoadedLocked(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true
	if id, ok := c.store.Get(ctx, c.scope); ok {
		c.conversationID = &id
		c.logger.Debug("resumed conversation", "conversation_id", id)
	}
}

func (c *Controller) snapshotLocked() State {
	history := make([]Message, len(c.history))
	copy(history, c.history)
	return State{
		Status:         c.status,
		History:        history,
		ConversationID: cloneID(c.conversationID),
		Err:            c.errMsg,
	}
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
