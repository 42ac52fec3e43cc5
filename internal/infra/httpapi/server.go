package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-butler/internal/application"
)

const maxJSONBodyBytes = 1 << 20

// PipelineStatus is implemented by the dispatch loop.
type PipelineStatus interface {
	State() application.State
}

type Server struct {
	addr       string
	controller *application.Controller
	hub        *Hub
	limiter    *RateLimiter
	logger     *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	pipeline PipelineStatus
}

func NewServer(addr string, controller *application.Controller, hub *Hub, rateLimit int, logger *slog.Logger) *Server {
	return &Server{
		addr:       addr,
		controller: controller,
		hub:        hub,
		limiter:    NewRateLimiter(rateLimit, time.Minute),
		logger:     logger,
	}
}

// SetPipeline makes /health report the dispatch loop state.
func (s *Server) SetPipeline(p PipelineStatus) {
	s.mu.Lock()
	s.pipeline = p
	s.mu.Unlock()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/control", s.limiter.Middleware(http.HandlerFunc(s.handleControl)))
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.hub != nil {
		mux.Handle("GET /api/events", s.hub)
	}

	return loggingMiddleware(s.logger, recoverMiddleware(s.logger, corsMiddleware(mux)))
}

// Start listens in the background. It returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	go func() {
		s.logger.Info("admin HTTP server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Close()
	}
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := srv.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

type controlRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	result, err := s.controller.Control(r.Context(), req.Command)
	if err != nil {
		s.logger.Error("control command failed", "command", req.Command, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.controller.Devices(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}

	s.mu.Lock()
	pipeline := s.pipeline
	s.mu.Unlock()
	if pipeline != nil {
		body["pipeline"] = pipeline.State().String()
	}
	if s.hub != nil {
		body["subscribers"] = s.hub.Subscribers()
	}

	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  application.StatusError,
		"message": message,
	})
}
