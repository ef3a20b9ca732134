// Package api exposes the moment PBP service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds request bodies for the POST endpoints.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Each handler only sees the slice
// of it that it needs.
type Dependencies interface {
	StatsProvider
	MomentDependencies
	OrderDependencies
	PrefetchDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	momentsHandler  *MomentsHandler
	orderHandler    *OrderHandler
	prefetchHandler *PrefetchHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		momentsHandler:  NewMomentsHandler(deps),
		orderHandler:    NewOrderHandler(deps),
		prefetchHandler: NewPrefetchHandler(deps),
	}
}

// Routes returns a router with request IDs, panic recovery and every route
// registered.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/moments/{momentID}/pbp", MetricsMiddleware(s.momentsHandler.HandleGetPbp, "moment_pbp"))
	r.Post("/moments/order", MetricsMiddleware(s.orderHandler.HandleOrder, "order"))
	r.Post("/prefetch", MetricsMiddleware(s.prefetchHandler.HandlePrefetch, "prefetch"))
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

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
