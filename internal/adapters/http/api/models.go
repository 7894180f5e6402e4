// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// ModelsHandler serves model registry state for the admin surface.
type ModelsHandler struct {
	deps Dependencies
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps Dependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

// modelResponse mirrors the OpenAPI schema for GET /v1/models/{skill}.
type modelResponse struct {
	Skill         string   `json:"skill"`
	ActiveVersion string   `json:"active_version"`
	Loaded        []string `json:"loaded_versions"`
}

// HandleGetModel handles GET /v1/models/{skill} requests.
func (h *ModelsHandler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/v1/models/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	skill, err := model.ParseSkill(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_skill", err)
		return
	}

	active, loaded, err := h.deps.ModelInfo(skill)
	if err != nil {
		writeError(w, http.StatusNotFound, "model_unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, modelResponse{
		Skill:         skill.String(),
		ActiveVersion: active,
		Loaded:        loaded,
	})
}
