// Package server exposes the planning runtime over HTTP: a streaming chat
// endpoint, stored trips, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/logger"
	"github.com/wayfarer-ai/wayfarer/pkg/observability"
	"github.com/wayfarer-ai/wayfarer/pkg/orchestrator"
	"github.com/wayfarer-ai/wayfarer/pkg/trip"
)

// Server hosts the HTTP API.
type Server struct {
	orch       *orchestrator.Orchestrator
	store      trip.Store
	metrics    *observability.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

type Option func(*Server)

func WithStore(s trip.Store) Option {
	return func(srv *Server) { srv.store = s }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

func New(cfg config.ServerConfig, orch *orchestrator.Orchestrator, opts ...Option) *Server {
	srv := &Server{
		orch:   orch,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: srv.routes(),
	}
	return srv
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/trips", s.handleListTrips)
	r.Get("/v1/trips/{id}", s.handleGetTrip)
	r.Delete("/v1/trips/{id}", s.handleDeleteTrip)

	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat runs one planning turn and streams its events as SSE frames.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.RunInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	events, err := s.orch.Run(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Warn("failed to encode event", "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "trip storage disabled")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	trips, err := s.store.LoadTrips(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trips": trips})
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "trip storage disabled")
		return
	}
	t, err := s.store.LoadTrip(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, trip.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "trip storage disabled")
		return
	}
	if err := s.store.DeleteTrip(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, trip.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
