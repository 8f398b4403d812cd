// Package api provides the HTTP trigger surface for the reconciliation
// service: a batch trigger endpoint, health check and Prometheus metrics.
// Request handling is deliberately thin; authorization is out of scope and
// handled upstream of this service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/finpulse/backend/internal/reconcile"
)

// defaultWindowMonths is how far around now the period window extends when
// a request does not bound it explicitly.
const defaultWindowMonths = 3

// Server is the reconciliation HTTP API server.
type Server struct {
	orchestrator   *reconcile.Orchestrator
	log            zerolog.Logger
	allowedOrigins []string
}

// NewServer creates a new API server.
func NewServer(orchestrator *reconcile.Orchestrator, log zerolog.Logger, allowedOrigins []string) *Server {
	return &Server{orchestrator: orchestrator, log: log, allowedOrigins: allowedOrigins}
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/reconcile", s.handleReconcile)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

type reconcileRequest struct {
	OwnerID     string     `json:"ownerId"`
	WindowStart *time.Time `json:"windowStart,omitempty"`
	WindowEnd   *time.Time `json:"windowEnd,omitempty"`
}

// handleReconcile runs one reconciliation batch. Per-item failures are
// reported inside the summary, not as an HTTP error; only a batch that
// could not start returns a 5xx.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OwnerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ownerId is required"})
		return
	}

	now := time.Now()
	windowStart := now.AddDate(0, -defaultWindowMonths, 0)
	windowEnd := now.AddDate(0, defaultWindowMonths, 0)
	if req.WindowStart != nil {
		windowStart = *req.WindowStart
	}
	if req.WindowEnd != nil {
		windowEnd = *req.WindowEnd
	}

	summary, err := s.orchestrator.Run(r.Context(), req.OwnerID, windowStart, windowEnd)
	if err != nil {
		s.log.Error().Err(err).Str("owner_id", req.OwnerID).Msg("reconciliation batch failed to start")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reconciliation failed to start"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
