// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// maxBatchSize bounds one synchronous batch call.
const maxBatchSize = 500

// BatchHandler handles synchronous batch assessment requests.
type BatchHandler struct {
	deps Dependencies
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps Dependencies) *BatchHandler {
	return &BatchHandler{deps: deps}
}

// batchRequest mirrors the OpenAPI schema for POST /v1/assessments/batch.
type batchRequest struct {
	Requests []assessmentRequest `json:"requests"`
}

// batchSubjectResult is one subject's outcome in the batch response.
type batchSubjectResult struct {
	SubjectID    string                  `json:"subject_id"`
	Assessments  []model.SkillAssessment `json:"assessments,omitempty"`
	Unavailable  []model.Skill           `json:"unavailable,omitempty"`
	Error        string                  `json:"error,omitempty"`
	RateLimited  bool                    `json:"rate_limited,omitempty"`
	RetryAfterMS int64                   `json:"retry_after_ms,omitempty"`
}

// batchResponse summarizes a synchronous batch run.
type batchResponse struct {
	Total      int                  `json:"total"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	ElapsedMS  int64                `json:"elapsed_ms"`
	Results    []batchSubjectResult `json:"results"`
}

// HandlePostBatch handles POST /v1/assessments/batch requests. Subjects
// run with bounded parallelism; one subject's failure never aborts the
// rest.
func (h *BatchHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if len(req.Requests) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "batch_too_large",
			WrapKind(op, ErrBadRequest, fmt.Errorf("%d requests, limit %d", len(req.Requests), maxBatchSize)))
		return
	}

	// Feature validation failures are per-subject outcomes, never a
	// whole-batch rejection: one malformed vector must not abort its
	// peers. Structurally malformed requests still fail the batch.
	results := make([]batchSubjectResult, len(req.Requests))
	work := make([]model.AssessmentRequest, 0, len(req.Requests))
	workIdx := make([]int, 0, len(req.Requests))
	for i, item := range req.Requests {
		if err := item.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("request %d: %v", i, err)))
			return
		}
		vec, err := h.deps.ValidateFeatures(item.rawVector())
		if err != nil {
			results[i] = batchSubjectResult{SubjectID: item.SubjectID, Error: err.Error()}
			continue
		}
		m := item.toModel()
		m.Vector = vec
		work = append(work, m)
		workIdx = append(workIdx, i)
	}

	report := h.deps.RunBatch(r.Context(), work)

	resp := batchResponse{
		Total:      len(req.Requests),
		Successful: report.Successful,
		Failed:     len(req.Requests) - report.Successful,
		ElapsedMS:  report.Elapsed.Milliseconds(),
	}
	for j, res := range report.Results {
		out := batchSubjectResult{
			SubjectID:    res.SubjectID,
			Error:        res.Error,
			RateLimited:  res.RateLimited,
			RetryAfterMS: res.RetryAfter.Milliseconds(),
		}
		if res.Result != nil {
			out.Assessments = res.Result.Assessments
			out.Unavailable = res.Result.Unavailable
		}
		results[workIdx[j]] = out
	}
	resp.Results = results
	writeJSON(w, http.StatusOK, resp)
}
