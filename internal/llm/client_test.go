package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/aria/internal/config"
	apperrors "github.com/gmsas95/aria/internal/errors"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.Provider{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Model:     "test-model",
		Timeout:   5,
		MaxTokens: 256,
	})
}

func TestChatCompletion(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "hello"}},
			},
			"usage": map[string]int{"total_tokens": 12},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "hi", gotReq.Messages[0].Content)
}

func TestChatCompletion_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "save_memory", "arguments": "{\"key\":\"favorite color\",\"value\":\"blue\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "test-model"})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)

	calls := resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "save_memory", calls[0].Function.Name)
	assert.Contains(t, calls[0].Function.Arguments, "blue")
}

func TestChatCompletion_ServerErrorIsModelUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "test-model"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
}

func TestChatCompletion_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	for i := 0; i < 3; i++ {
		_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "test-model"})
		require.Error(t, err)
	}

	// The breaker is open now: the next call must fail fast without
	// reaching the server, and still read as ModelUnavailable.
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "test-model"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
}

func TestSimpleChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "short answer"}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reply, err := client.SimpleChat(context.Background(), "be brief", "question")
	require.NoError(t, err)
	assert.Equal(t, "short answer", reply)
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 5, CountTokens("abcdefghijklmnopqrst"))
}
