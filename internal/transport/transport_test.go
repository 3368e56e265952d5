// ABOUTME: Tests for the backend chat HTTP transport
// ABOUTME: Covers wire shapes, idempotency keys, and the transport/domain error split

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange_SendsRequestShape(t *testing.T) {
	var gotBody map[string]any
	var gotContentType, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(ChatResponse{ResponseText: "ok"})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)

	id := int64(42)
	resp, err := client.Exchange(context.Background(), &ChatRequest{
		Message:        "Add milk",
		ConversationID: &id,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.ResponseText)

	assert.Equal(t, "application/json", gotContentType)
	assert.NotEmpty(t, gotKey)
	assert.Equal(t, "Add milk", gotBody["message"])
	assert.Equal(t, float64(42), gotBody["conversationId"])
}

func TestExchange_NilConversationIDIsExplicitNull(t *testing.T) {
	// The backend distinguishes "no session" from "session 0"; a fresh
	// request must carry a literal null.
	var raw map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(ChatResponse{ResponseText: "hi"})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Exchange(context.Background(), &ChatRequest{Message: "hello"})
	require.NoError(t, err)

	require.Contains(t, raw, "conversationId")
	assert.Equal(t, "null", string(raw["conversationId"]))
}

func TestExchange_FreshIdempotencyKeyPerCall(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	for i := 0; i < 2; i++ {
		_, err := client.Exchange(context.Background(), &ChatRequest{Message: "x"})
		require.NoError(t, err)
	}

	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
}

func TestExchange_DomainErrorIsNotATransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{Error: "Conversation not found"})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	resp, err := client.Exchange(context.Background(), &ChatRequest{Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "Conversation not found", resp.Error)
}

func TestExchange_DecodesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"responseText": "Added",
			"conversationId": 42,
			"toolCalls": [{"name": "add_task", "arguments": {"title": "milk"}}]
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	resp, err := client.Exchange(context.Background(), &ChatRequest{Message: "Add milk"})
	require.NoError(t, err)

	require.NotNil(t, resp.ConversationID)
	assert.Equal(t, int64(42), *resp.ConversationID)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_task", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"title": "milk"}`, string(resp.ToolCalls[0].Arguments))
}

func TestExchange_NonOKStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Exchange(context.Background(), &ChatRequest{Message: "hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExchange_UnreachableBackendIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := New(srv.URL, time.Second, nil)
	_, err := client.Exchange(context.Background(), &ChatRequest{Message: "hello"})
	assert.Error(t, err)
}

func TestExchange_TimeoutIsBounded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := New(srv.URL, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := client.Exchange(context.Background(), &ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExchange_UndecodableBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Exchange(context.Background(), &ChatRequest{Message: "hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}
