package api

import (
	"context"
	"net/http"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/internal/domain/types"
)

// ClassifyDependencies defines the interface for synchronous classification.
type ClassifyDependencies interface {
	Classify(ctx context.Context, profile string, values map[string]float64) (model.Evaluation, error)
}

type classifyRequest struct {
	Profile string          `json:"profile"`
	Values  model.RawValues `json:"values"`
}

// ClassifyHandler handles classification requests.
type ClassifyHandler struct {
	deps ClassifyDependencies
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(deps ClassifyDependencies) *ClassifyHandler {
	return &ClassifyHandler{deps: deps}
}

// HandleClassify handles POST /classify requests.
func (h *ClassifyHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify"
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	values, err := req.Values.Decode()
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	ev, err := h.deps.Classify(r.Context(), req.Profile, values)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromEvaluation(ev))
}
