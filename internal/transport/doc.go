// Package transport performs single request/response exchanges with the
// backend chat service.
//
// The Client knows nothing about sessions and never retries: one call, one
// POST, one decoded response. A transport-level failure (unreachable backend,
// timeout, non-2xx status, undecodable body) is the error return; a
// domain-level failure travels inside ChatResponse.Error. The conversation
// layer depends on that distinction to decide what is recoverable.
package transport
