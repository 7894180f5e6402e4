// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reena96/unseenedgeai/internal/adapters/weights"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// WeightsHandler serves and updates per-skill fusion weights.
type WeightsHandler struct {
	deps Dependencies
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(deps Dependencies) *WeightsHandler {
	return &WeightsHandler{deps: deps}
}

// weightsResponse mirrors the OpenAPI schema for /v1/weights/{skill}.
type weightsResponse struct {
	Skill   string               `json:"skill"`
	Version string               `json:"version"`
	Weights fusion.FusionWeights `json:"weights"`
}

// HandleWeights handles GET and PUT /v1/weights/{skill} requests. Updates
// are validated before they take effect; a set that does not sum to one
// never reaches the fusion engine.
func (h *WeightsHandler) HandleWeights(w http.ResponseWriter, r *http.Request) {
	const op = "api.weights"
	name := strings.TrimPrefix(r.URL.Path, "/v1/weights/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	skill, err := model.ParseSkill(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_skill", err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		active, version := h.deps.Weights(skill)
		writeJSON(w, http.StatusOK, weightsResponse{
			Skill:   skill.String(),
			Version: version,
			Weights: active,
		})
	case http.MethodPut:
		var next fusion.FusionWeights
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.UpdateWeights(r.Context(), skill, next); err != nil {
			if errors.Is(err, weights.ErrWeightsSum) {
				writeError(w, http.StatusUnprocessableEntity, "weights_sum", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		active, version := h.deps.Weights(skill)
		writeJSON(w, http.StatusOK, weightsResponse{
			Skill:   skill.String(),
			Version: version,
			Weights: active,
		})
	default:
		http.NotFound(w, r)
	}
}
