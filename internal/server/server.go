// Package server exposes the chat surface over HTTP: a JSON chat API,
// session management, and the health and metrics endpoints used by
// container orchestration.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/agent"
	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/conversation"
	"github.com/runbookhq/opsagent/internal/errors"
	"github.com/runbookhq/opsagent/internal/metrics"
)

// ServiceName identifies this service in health responses.
const ServiceName = "opsagent"

const readHeaderTimeout = 5 * time.Second

// Server is the HTTP front end over the agent.
type Server struct {
	agent         agent.Agent
	conversations *conversation.Manager
	metrics       *metrics.Metrics
	cfg           config.ServerConfig
	logger        zerolog.Logger

	httpServer *http.Server
}

// New wires the HTTP surface. A nil agent is tolerated so the server
// can come up unhealthy and report why instead of crash-looping.
func New(cfg config.ServerConfig, ag agent.Agent, conversations *conversation.Manager, m *metrics.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		agent:         ag,
		conversations: conversations,
		metrics:       m,
		cfg:           cfg,
		logger:        logger.With().Str("component", "server").Logger(),
	}
	s.metrics.SetHealthy(ag != nil)
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/metrics/json", s.handleMetricsJSON)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/clear", s.handleClearSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	return <-errCh
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrInvalidRequest, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
