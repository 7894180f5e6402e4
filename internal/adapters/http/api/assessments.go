// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reena96/unseenedgeai/internal/domain/features"
)

// AssessmentsHandler handles assessment ingestion requests.
type AssessmentsHandler struct {
	deps Dependencies
}

// NewAssessmentsHandler creates a new assessments handler.
func NewAssessmentsHandler(deps Dependencies) *AssessmentsHandler {
	return &AssessmentsHandler{deps: deps}
}

// HandlePostAssessment handles POST /v1/assessments requests. The feature
// vector is validated up front so a malformed payload never reaches the
// queue; accepted requests are processed asynchronously.
func (h *AssessmentsHandler) HandlePostAssessment(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_assessment"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	vec, err := h.deps.ValidateFeatures(req.rawVector())
	if err != nil {
		if errors.Is(err, features.ErrShapeMismatch) {
			writeError(w, http.StatusUnprocessableEntity, "shape_mismatch", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	work := req.toModel()
	work.Vector = vec
	if ok := h.deps.Enqueue(r.Context(), work); !ok {
		// Roll back the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.RequestID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
