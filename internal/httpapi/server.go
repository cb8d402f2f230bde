// Package httpapi is the ambient debug/status surface (SS11): a chi router
// serving health, Prometheus metrics, and a websocket stream of the
// Orchestrator Core's debug events, grounded on ent0n29's httpapi.Server.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/orchestrator"
)

// StateReporter is the narrow orchestrator surface the debug/status
// endpoints need.
type StateReporter interface {
	State() orchestrator.State
	Events() <-chan orchestrator.Event
}

// Server hosts the debug/status HTTP surface.
type Server struct {
	orch    StateReporter
	log     logging.Logger
	metrics http.Handler
}

// New builds a Server. metricsHandler may be nil to disable /metrics.
func New(orch StateReporter, logger logging.Logger, metricsHandler http.Handler) *Server {
	return &Server{orch: orch, log: logging.OrNoOp(logger), metrics: metricsHandler}
}

// Router builds the chi mux.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.ServeHTTP)
	}
	r.Get("/debug/events", s.handleEventStream)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"state": string(s.orch.State())})
}

// handleEventStream upgrades to a websocket and relays every Orchestrator
// debug event until the client disconnects or ctx is done (SS11).
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-s.orch.Events():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				s.log.Warn("httpapi: debug event write failed", "err", err)
				conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
