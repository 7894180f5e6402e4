// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/reena96/unseenedgeai/internal/adapters/repository"
)

// SubjectsHandler handles subject read requests.
type SubjectsHandler struct {
	deps Dependencies
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(deps Dependencies) *SubjectsHandler {
	return &SubjectsHandler{deps: deps}
}

// HandleGetSubject handles GET /v1/subjects/{subject_id}/assessments
// requests, returning the latest assessment per (skill, period).
func (h *SubjectsHandler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/subjects/")
	subjectID, rest, found := strings.Cut(path, "/")
	if !found || subjectID == "" || rest != "assessments" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	assessments, err := h.deps.SubjectAssessments(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id":  subjectID,
		"assessments": assessments,
	})
}
