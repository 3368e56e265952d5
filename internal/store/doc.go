// Package store persists the current conversation id per user scope.
//
// # Overview
//
// The backend chat service assigns an opaque integer conversation id on the
// first exchange; keeping it across process restarts is what gives a user a
// continuous conversation. This package is that memory: a tiny durable
// key-value mapping from "<namespace>:<userScope>" to the id.
//
// # Backends
//
// One interface, four implementations:
//
//   - SQLiteStore: the default; single-file database via modernc.org/sqlite
//   - BoltStore: single-file embedded key-value store via bbolt
//   - RedisStore: shared deployment where several frontends serve one user
//   - MemoryStore: tests and sessions that should not survive the process
//
// Open selects a backend from configuration.
//
// # Failure posture
//
// Get never fails: an absent key, a malformed value, and a backend read error
// all report "no stored id", because the caller's recovery is identical in
// every case (start a fresh conversation). Set and Clear return errors, but
// the conversation layer logs and continues; losing persistence must never
// kill a live session.
package store
