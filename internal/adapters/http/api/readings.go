package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/internal/domain/types"
)

const defaultRecentLimit = 20

// ReadingDependencies defines the interface for asynchronous submission and
// history reads.
type ReadingDependencies interface {
	// Submit queues a reading. duplicate is true when its id was seen before.
	Submit(ctx context.Context, r model.Reading) (duplicate bool, err error)
	Recent(ctx context.Context, n int) ([]model.Evaluation, error)
}

// readingRequest mirrors the OpenAPI schema for POST /readings.
type readingRequest struct {
	ID         string          `json:"id"`
	StationID  string          `json:"station_id"`
	Profile    string          `json:"profile"`
	Values     model.RawValues `json:"values"`
	ReceivedAt time.Time       `json:"received_at"`
}

// ReadingsHandler handles reading requests.
type ReadingsHandler struct {
	deps     ReadingDependencies
	maxLimit int
}

// NewReadingsHandler creates a new readings handler.
func NewReadingsHandler(deps ReadingDependencies, maxLimit int) *ReadingsHandler {
	if maxLimit < 1 {
		maxLimit = 100
	}
	return &ReadingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandlePostReading handles POST /readings requests.
func (h *ReadingsHandler) HandlePostReading(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reading"
	var req readingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	values, err := req.Values.Decode()
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}

	reading := model.Reading{
		ID:         req.ID,
		StationID:  req.StationID,
		Profile:    req.Profile,
		Values:     values,
		ReceivedAt: req.ReceivedAt,
	}
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	duplicate, err := h.deps.Submit(r.Context(), reading)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{ID: reading.ID, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: reading.ID, Status: "accepted"})
}

// HandleRecent handles GET /readings/recent?limit=N requests.
func (h *ReadingsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_readings"
	n := defaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit exceeds %d", h.maxLimit)))
		return
	}
	evs, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromEvaluations(evs))
}
