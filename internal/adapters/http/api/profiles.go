package api

import (
	"errors"
	"net/http"

	service "github.com/okian/airq/internal/app"
	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/types"
)

// ProfileDependencies defines the interface for profile lookups.
type ProfileDependencies interface {
	Profiles() []*aqi.Profile
	Profile(name string) (*aqi.Profile, error)
	DefaultProfile() string
	ModelVersion(profile string) string
}

type profileResponse struct {
	types.Profile
	Default      bool   `json:"default"`
	ModelVersion string `json:"model_version,omitempty"`
}

// ProfilesHandler handles profile requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

func (h *ProfilesHandler) view(p *aqi.Profile) profileResponse {
	return profileResponse{
		Profile:      types.FromProfile(p),
		Default:      p.Name == h.deps.DefaultProfile(),
		ModelVersion: h.deps.ModelVersion(p.Name),
	}
}

// HandleList handles GET /profiles requests.
func (h *ProfilesHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	ps := h.deps.Profiles()
	out := make([]profileResponse, len(ps))
	for i, p := range ps {
		out[i] = h.view(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /profiles/{name} requests.
func (h *ProfilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	p, err := h.deps.Profile(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownProfile) {
			writeError(w, WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}
