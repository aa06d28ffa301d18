// Package adminapi implements an optional gorilla/mux HTTP server
// exposing read-only introspection endpoints over a running
// Dispatcher: liveness status and queue depth. It is never started
// automatically; a host opts in by constructing and starting one
// alongside its Dispatcher.
//
// Grounded on the teacher's triggers/http.go (mux.NewRouter, an
// http.Server with explicit read/write timeouts, and a /health
// handler) — rewritten from a workflow-webhook receiver into a
// read-only status surface, since horton has no inbound event API.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/liveness"
)

// Server exposes /healthz, /livez, and /queue/stats.
type Server struct {
	logger *zap.Logger
	router *mux.Router
	server *http.Server

	mu         sync.RWMutex
	lastHealth liveness.Health
	queueStats QueueStats
}

// QueueStats is the payload returned from /queue/stats.
type QueueStats struct {
	PendingRows int       `json:"pending_rows"`
	AsOf        time.Time `json:"as_of"`
}

// New constructs a Server bound to addr (e.g. "0.0.0.0:8089").
func New(addr string, logger *zap.Logger) *Server {
	s := &Server{
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/livez", s.handleLivez).Methods(http.MethodGet)
	s.router.HandleFunc("/queue/stats", s.handleQueueStats).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// ObserveHealth records the latest Liveness Checker status for
// /healthz and /livez to report. Wire it up via
// dispatcher.OnHealth(server.ObserveHealth).
func (s *Server) ObserveHealth(h liveness.Health) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHealth = h
}

// ObserveQueueStats records the latest queue depth snapshot for
// /queue/stats to report.
func (s *Server) ObserveQueueStats(stats QueueStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueStats = stats
}

// Start begins serving in a background goroutine. Errors other than
// http.ErrServerClosed are logged, not returned, matching the
// fire-and-forget ListenAndServe idiom the teacher's HTTPTrigger uses.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("adminapi: server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("adminapi: server started", zap.String("addr", s.server.Addr))
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.lastHealth
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            h.Status,
		"last_heartbeat_at": h.LastHeartbeatAt,
	})
}

// handleLivez is a liveness probe distinct from healthz: it returns
// 200 unless status is dead, so an orchestrator restarts the process
// only on the terminal condition, not on a transient "unhealthy" blip.
func (s *Server) handleLivez(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.lastHealth
	s.mu.RUnlock()

	if h.Status == liveness.StatusDead {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": h.Status})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": h.Status})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stats := s.queueStats
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
