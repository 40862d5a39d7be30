package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	// Message is the user's request. Required.
	Message string `json:"message"`

	// SessionID continues an existing conversation. Empty starts a
	// new session.
	SessionID string `json:"session_id,omitempty"`

	// DryRun previews commands without executing them.
	DryRun bool `json:"dry_run,omitempty"`
}

// ChatResponse is the POST /api/chat reply.
type ChatResponse struct {
	SessionID string             `json:"session_id"`
	Response  string             `json:"response"`
	Success   bool               `json:"success"`
	Steps     []domain.AgentStep `json:"steps"`
	Error     string             `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, "agent not initialized")
		return
	}

	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	session := s.conversations.GetOrCreate(req.SessionID, nil)
	history, err := s.conversations.Messages(session.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := s.agent.ProcessQuery(r.Context(), req.Message, history, req.DryRun)
	s.metrics.RecordQuery(result.Success)

	// Responses carry a success or failure glyph, matching the chat UI.
	glyph := "✅"
	if !result.Success {
		glyph = "❌"
	}
	response := glyph + " " + result.Response

	if err := s.conversations.AddMessage(session.SessionID, domain.RoleUser, req.Message, nil); err != nil {
		s.logger.Warn().Err(err).Msg("record user message")
	}
	if err := s.conversations.AddMessage(session.SessionID, domain.RoleAssistant, response, nil); err != nil {
		s.logger.Warn().Err(err).Msg("record assistant message")
	}

	steps := result.Steps
	if steps == nil {
		steps = []domain.AgentStep{}
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: session.SessionID,
		Response:  response,
		Success:   result.Success,
		Steps:     steps,
		Error:     result.Error,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	ids := s.conversations.List()
	summaries := make([]any, 0, len(ids))
	for _, id := range ids {
		summary, err := s.conversations.Summarize(id)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversations.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.conversations.Clear(id); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.conversations.Delete(id); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.agent == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"reason": "Agent not initialized",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleMetricsJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, errors.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
