// Package conversation implements the session protocol between a chat
// frontend and the AI task backend.
//
// # Overview
//
// The Controller is an explicit state machine with three statuses:
//
//   - idle: ready to accept a submit
//   - sending: one exchange is in flight; further submits are rejected
//   - error: the last exchange failed; the message is kept for display
//
// A submit appends the user message to history, performs one exchange through
// the ChatTransport, and applies the outcome:
//
//   - success: append the assistant message, persist a changed conversation
//     id, and fire the TaskRefreshNotifier if the response carried tool calls
//   - stale session: the backend no longer recognizes the stored conversation
//     id; drop it and retry exactly once with a fresh session
//   - anything else: land in the error status with the message preserved;
//     history and conversation id are left untouched so the user can simply
//     try again
//
// # Continuity
//
// The conversation id assigned by the backend is persisted through an IDStore
// keyed by user scope, so a session survives process restarts. The id is
// loaded lazily on the first submit and cleared by Reset.
//
// # Concurrency
//
// The sending status itself is the mutual exclusion mechanism: a second
// submit is rejected before any side effect, so responses are always applied
// in the order their requests were issued. Reset and Close invalidate any
// exchange still in flight; its late response is discarded rather than
// applied.
package conversation
