package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/internal/domain/types"
)

// StationDependencies defines the interface for per-station reads.
type StationDependencies interface {
	Latest(ctx context.Context, stationID string) (model.Evaluation, error)
}

// StationsHandler handles station requests.
type StationsHandler struct {
	deps StationDependencies
}

// NewStationsHandler creates a new stations handler.
func NewStationsHandler(deps StationDependencies) *StationsHandler {
	return &StationsHandler{deps: deps}
}

// HandleLatest handles GET /stations/{id}/latest requests.
func (h *StationsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.station_latest"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	ev, err := h.deps.Latest(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromEvaluation(ev))
}
