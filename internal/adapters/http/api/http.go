// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ClassifyDependencies
	ReadingDependencies
	ProfileDependencies
	StationDependencies
	ReadinessChecker
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	classifyHandler  *ClassifyHandler
	readingsHandler  *ReadingsHandler
	profilesHandler  *ProfilesHandler
	stationsHandler  *StationsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxRecent caps the
// limit accepted by GET /readings/recent.
func NewServer(deps Dependencies, maxRecent int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(deps, deps),
		classifyHandler:  NewClassifyHandler(deps),
		readingsHandler:  NewReadingsHandler(deps, maxRecent),
		profilesHandler:  NewProfilesHandler(deps),
		stationsHandler:  NewStationsHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /classify", MetricsMiddleware(s.classifyHandler.HandleClassify, "classify"))
	mux.HandleFunc("POST /readings", MetricsMiddleware(s.readingsHandler.HandlePostReading, "readings"))
	mux.HandleFunc("GET /readings/recent", MetricsMiddleware(s.readingsHandler.HandleRecent, "readings_recent"))
	mux.HandleFunc("GET /profiles", MetricsMiddleware(s.profilesHandler.HandleList, "profiles"))
	mux.HandleFunc("GET /profiles/{name}", MetricsMiddleware(s.profilesHandler.HandleGet, "profile"))
	mux.HandleFunc("GET /stations/{id}/latest", MetricsMiddleware(s.stationsHandler.HandleLatest, "station_latest"))
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
