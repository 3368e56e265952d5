// ABOUTME: HTTP transport for one request/response exchange with the chat backend
// ABOUTME: Exactly one network operation per call; no retries, no session knowledge

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ChatRequest is the payload sent to the chat backend.
// It is constructed fresh for every exchange.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversationId"`
}

// ToolCall describes a side-effecting action the backend took on the user's
// behalf. The contents are opaque to this client; only presence matters.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ChatResponse is the backend's reply to a ChatRequest.
// A response with Error set is terminal for that exchange regardless of the
// other fields.
type ChatResponse struct {
	ResponseText   string     `json:"responseText"`
	ConversationID *int64     `json:"conversationId,omitempty"`
	ToolCalls      []ToolCall `json:"toolCalls,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Client performs chat exchanges against a single backend endpoint.
// It holds no session state and never retries; recovery decisions belong to
// the conversation layer.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the given endpoint. The timeout bounds the entire
// exchange, including connection setup and reading the response body.
func New(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "transport"),
	}
}

// Exchange performs exactly one request/response round-trip with the backend.
//
// The error return is reserved for transport-level failure: the backend was
// unreachable, timed out, answered with a non-2xx status, or sent a body that
// does not decode. A domain-level failure arrives as a decoded ChatResponse
// with Error set, and is not an error here.
func (c *Client) Exchange(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.New().String())

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// Read a little of the body for the log line, then discard
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		c.logger.Warn("chat backend returned non-2xx status",
			"status", httpResp.StatusCode,
			"body", string(snippet))
		return nil, fmt.Errorf("chat backend returned status %d", httpResp.StatusCode)
	}

	var resp ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	c.logger.Debug("chat exchange complete",
		"duration", time.Since(start),
		"tool_calls", len(resp.ToolCalls),
		"domain_error", resp.Error != "")

	return &resp, nil
}
