package api

import (
	"net/http"
)

// StatsProvider exposes the service counters behind GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler reports service counters together with the readiness verdict.
type StatsHandler struct {
	stats     StatsProvider
	readiness ReadinessChecker
}

// NewStatsHandler creates a stats handler. readiness may be nil.
func NewStatsHandler(stats StatsProvider, readiness ReadinessChecker) *StatsHandler {
	return &StatsHandler{stats: stats, readiness: readiness}
}

// HandleStats handles GET /stats. The "ready" key is false, with the reason
// under "notReady", whenever the readiness probe would answer 503.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	out := h.stats.GetStats()
	if out == nil {
		out = map[string]interface{}{}
	}
	if h.readiness != nil {
		err := h.readiness.CheckReadiness(r.Context())
		out["ready"] = err == nil
		if err != nil {
			out["notReady"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, out)
}
