package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/conversation"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/metrics"
)

// MockAgent implements agent.Agent with configurable behavior.
type MockAgent struct {
	ProcessQueryFunc func(ctx context.Context, query string, history []domain.Message, dryRun bool) domain.AgentResult

	Queries   []string
	Histories [][]domain.Message
	DryRuns   []bool
}

func (m *MockAgent) DecomposeTask(_ context.Context, task string, _ map[string]any) []domain.Subtask {
	return []domain.Subtask{{ID: "0", Subtask: task, TaskType: domain.GeneralTaskType, Priority: domain.DefaultPriority}}
}

func (m *MockAgent) RetrieveInstructions(_ context.Context, _, _ string, _ int) ([]domain.ScoredInstruction, error) {
	return nil, nil
}

func (m *MockAgent) ExecuteTask(_ context.Context, _ string, _ map[string]any, _ bool) domain.AgentResult {
	return domain.AgentResult{Response: "done", Success: true}
}

func (m *MockAgent) ProcessQuery(ctx context.Context, query string, history []domain.Message, dryRun bool) domain.AgentResult {
	m.Queries = append(m.Queries, query)
	m.Histories = append(m.Histories, history)
	m.DryRuns = append(m.DryRuns, dryRun)
	if m.ProcessQueryFunc != nil {
		return m.ProcessQueryFunc(ctx, query, history, dryRun)
	}
	return domain.AgentResult{Response: "All set.", Success: true}
}

func (m *MockAgent) FrameworkName() string { return "mock" }

func newTestServer(ag *MockAgent) *Server {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	conversations := conversation.NewManager(zerolog.Nop())
	if ag == nil {
		return New(cfg, nil, conversations, metrics.New(), zerolog.Nop())
	}
	return New(cfg, ag, conversations, metrics.New(), zerolog.Nop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})
		rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, ServiceName, body["service"])
	})

	t.Run("unhealthy when the agent is missing", func(t *testing.T) {
		srv := newTestServer(nil)
		rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "Agent not initialized", body["reason"])
	})
}

func TestServer_Chat(t *testing.T) {
	t.Run("successful query", func(t *testing.T) {
		ag := &MockAgent{}
		srv := newTestServer(ag)
		router := srv.Router()

		rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "reset the password for jdoe"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.SessionID)
		assert.True(t, resp.Success)
		assert.True(t, strings.HasPrefix(resp.Response, "✅ "), "expected success glyph, got %q", resp.Response)
		assert.NotNil(t, resp.Steps)
	})

	t.Run("failed query carries the failure glyph", func(t *testing.T) {
		ag := &MockAgent{
			ProcessQueryFunc: func(context.Context, string, []domain.Message, bool) domain.AgentResult {
				return domain.AgentResult{Response: "could not complete the task", Success: false, Error: "boom"}
			},
		}
		srv := newTestServer(ag)

		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/chat", ChatRequest{Message: "do the thing"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.True(t, strings.HasPrefix(resp.Response, "❌ "))
		assert.Equal(t, "boom", resp.Error)
	})

	t.Run("second turn replays the recorded history", func(t *testing.T) {
		ag := &MockAgent{}
		srv := newTestServer(ag)
		router := srv.Router()

		rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "first question"})
		var first ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

		rec = doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "follow up", SessionID: first.SessionID})
		require.Equal(t, http.StatusOK, rec.Code)

		var second ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		assert.Equal(t, first.SessionID, second.SessionID)

		require.Len(t, ag.Histories, 2)
		assert.Empty(t, ag.Histories[0])
		require.Len(t, ag.Histories[1], 2)
		assert.Equal(t, domain.RoleUser, ag.Histories[1][0].Role)
		assert.Equal(t, "first question", ag.Histories[1][0].Content)
		assert.Equal(t, domain.RoleAssistant, ag.Histories[1][1].Role)
	})

	t.Run("dry run flag reaches the agent", func(t *testing.T) {
		ag := &MockAgent{}
		srv := newTestServer(ag)

		doJSON(t, srv.Router(), http.MethodPost, "/api/chat", ChatRequest{Message: "restart the web tier", DryRun: true})
		require.Len(t, ag.DryRuns, 1)
		assert.True(t, ag.DryRuns[0])
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		ag := &MockAgent{}
		srv := newTestServer(ag)

		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/chat", ChatRequest{Message: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ag.Queries)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing agent returns service unavailable", func(t *testing.T) {
		srv := newTestServer(nil)

		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/chat", ChatRequest{Message: "hello"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_Sessions(t *testing.T) {
	newSession := func(t *testing.T, router http.Handler) string {
		t.Helper()
		rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "open a session"})
		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.SessionID
	}

	t.Run("list", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})
		router := srv.Router()
		id := newSession(t, router)

		rec := doJSON(t, router, http.MethodGet, "/api/sessions", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Sessions []conversation.Summary `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Sessions, 1)
		assert.Equal(t, id, body.Sessions[0].SessionID)
		assert.Equal(t, 2, body.Sessions[0].MessageCount)
	})

	t.Run("get returns the full transcript", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})
		router := srv.Router()
		id := newSession(t, router)

		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var conv domain.Conversation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
		assert.Equal(t, id, conv.SessionID)
		require.Len(t, conv.Messages, 2)
		assert.Equal(t, "open a session", conv.Messages[0].Content)
	})

	t.Run("get unknown session", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})

		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/sessions/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("clear keeps the session but drops messages", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})
		router := srv.Router()
		id := newSession(t, router)

		rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/clear", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var conv domain.Conversation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
		assert.Empty(t, conv.Messages)
	})

	t.Run("delete removes the session", func(t *testing.T) {
		srv := newTestServer(&MockAgent{})
		router := srv.Router()
		id := newSession(t, router)

		rec := doJSON(t, router, http.MethodDelete, "/api/sessions/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	ag := &MockAgent{
		ProcessQueryFunc: func(_ context.Context, query string, _ []domain.Message, _ bool) domain.AgentResult {
			return domain.AgentResult{Response: "ok", Success: query != "fail"}
		},
	}
	srv := newTestServer(ag)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "work"})
	doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "fail"})

	t.Run("prometheus text", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "queries_total 2")
		assert.Contains(t, body, "errors_total 1")
		assert.Contains(t, body, "healthy 1")
		assert.Contains(t, body, "success_rate 0.5")
	})

	t.Run("json", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/metrics/json", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var snap metrics.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, int64(2), snap.QueriesTotal)
		assert.Equal(t, int64(1), snap.ErrorsTotal)
		assert.True(t, snap.Healthy)
		require.NotNil(t, snap.SuccessRate)
		assert.InDelta(t, 0.5, *snap.SuccessRate, 1e-9)
	})
}
