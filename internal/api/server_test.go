package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/agent"
	"github.com/gmsas95/aria/internal/config"
	"github.com/gmsas95/aria/internal/history"
	"github.com/gmsas95/aria/internal/llm"
	"github.com/gmsas95/aria/internal/store"
	"github.com/gmsas95/aria/pkg/tools"
)

type echoModel struct{}

func (m *echoModel) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp := &llm.ChatResponse{}
	resp.Choices = make([]struct {
		Index        int         `json:"index"`
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}, 1)
	last := req.Messages[len(req.Messages)-1]
	resp.Choices[0].Message = llm.Message{Role: "assistant", Content: "You said: " + last.Content}
	return resp, nil
}

func (m *echoModel) GetModel() string { return "test-model" }
func (m *echoModel) MaxTokens() int   { return 256 }

func setupServer(t *testing.T) (*Server, *store.Store) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DataDir:    dir,
			SQLitePath: filepath.Join(dir, "test.db"),
			BadgerPath: filepath.Join(dir, "badger"),
		},
	}

	st, err := store.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := tools.NewAssistantRegistry(st, nil)
	buffer := history.NewBuffer(20)
	controller := agent.NewController(&echoModel{}, registry, buffer, "You are Aria.", zap.NewNop())

	return New(cfg, st, controller, zap.NewNop()), st
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
	}
	return resp, parsed
}

func TestHandleHealth(t *testing.T) {
	s, _ := setupServer(t)

	resp, body := doJSON(t, s, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "idle", body["state"])
}

func TestTaskEndpoints(t *testing.T) {
	s, _ := setupServer(t)

	resp, body := doJSON(t, s, "POST", "/api/tasks", map[string]string{"description": "buy milk"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "pending", body["status"])

	resp, body = doJSON(t, s, "POST", "/api/tasks/1/complete", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])

	resp, body = doJSON(t, s, "GET", "/api/tasks?filter=completed", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, _ = doJSON(t, s, "DELETE", "/api/tasks/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, s, "POST", "/api/tasks/1/complete", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTask_Validation(t *testing.T) {
	s, _ := setupServer(t)

	resp, _ := doJSON(t, s, "POST", "/api/tasks", map[string]string{"description": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, s, "GET", "/api/tasks?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMemoryEndpoints(t *testing.T) {
	s, _ := setupServer(t)

	resp, body := doJSON(t, s, "POST", "/api/memories", map[string]string{"key": " Favorite Color ", "value": "blue"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "favorite color", body["key"])

	resp, body = doJSON(t, s, "GET", "/api/memories", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, _ = doJSON(t, s, "DELETE", "/api/memories/favorite%20color", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, s, "DELETE", "/api/memories/favorite%20color", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	s, _ := setupServer(t)

	resp, body := doJSON(t, s, "POST", "/api/chat", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "You said: hello", body["reply"])

	resp, body = doJSON(t, s, "GET", "/api/history", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// system + user + assistant
	assert.Equal(t, float64(3), body["count"])

	resp, _ = doJSON(t, s, "POST", "/api/chat", map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
