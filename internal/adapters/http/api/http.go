// Package api serves the read-only status API of a running session.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/rollcall/internal/adapters/render"
	"github.com/okian/rollcall/internal/domain/model"
)

const requestTimeout = 10 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the session implementation.
type Dependencies interface {
	StatsProvider

	Attendance(ctx context.Context) []model.Record
	Roster(ctx context.Context) []model.Identity
	Overlay(ctx context.Context) render.Overlay
}

// Server wires HTTP routes for the status API.
type Server struct {
	router *chi.Mux
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))
	r.Use(MetricsMiddleware)

	health := NewHealthHandler()
	stats := NewStatsHandler(deps)
	attendance := NewAttendanceHandler(deps)

	r.Get("/healthz", health.HandleHealth)
	r.Get("/stats", stats.HandleStats)
	r.Get("/attendance", attendance.HandleAttendance)
	r.Get("/roster", attendance.HandleRoster)
	r.Get("/overlay", attendance.HandleOverlay)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})

	return &Server{router: r}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
