// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/reena96/unseenedgeai/internal/domain/batch"
	"github.com/reena96/unseenedgeai/internal/domain/features"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SeenAndRecord atomically checks and records a request id.
	SeenAndRecord(ctx context.Context, id string) bool
	// Unrecord rolls back a seen mark after a failed enqueue.
	Unrecord(ctx context.Context, id string)

	// ValidateFeatures checks a raw payload against the feature contract.
	ValidateFeatures(raw features.RawVector) (model.FeatureVector, error)

	// Enqueue pushes a request for async processing. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, req model.AssessmentRequest) bool

	// RunBatch assesses a set of subjects synchronously.
	RunBatch(ctx context.Context, reqs []model.AssessmentRequest) batch.Report

	// Read operations expose recorded assessments and admin state.
	SubjectAssessments(ctx context.Context, subjectID string) ([]model.SkillAssessment, error)
	Weights(skill model.Skill) (fusion.FusionWeights, string)
	UpdateWeights(ctx context.Context, skill model.Skill, w fusion.FusionWeights) error
	ModelInfo(skill model.Skill) (active string, loaded []string, err error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assessmentsHandler *AssessmentsHandler
	batchHandler       *BatchHandler
	subjectsHandler    *SubjectsHandler
	weightsHandler     *WeightsHandler
	modelsHandler      *ModelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		assessmentsHandler: NewAssessmentsHandler(deps),
		batchHandler:       NewBatchHandler(deps),
		subjectsHandler:    NewSubjectsHandler(deps),
		weightsHandler:     NewWeightsHandler(deps),
		modelsHandler:      NewModelsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/assessments", MetricsMiddleware(s.assessmentsHandler.HandlePostAssessment, "assessments"))
	mux.HandleFunc("/v1/assessments/batch", MetricsMiddleware(s.batchHandler.HandlePostBatch, "batch"))
	mux.HandleFunc("/v1/subjects/", MetricsMiddleware(s.subjectsHandler.HandleGetSubject, "subjects"))
	mux.HandleFunc("/v1/weights/", MetricsMiddleware(s.weightsHandler.HandleWeights, "weights"))
	mux.HandleFunc("/v1/models/", MetricsMiddleware(s.modelsHandler.HandleGetModel, "models"))
}

// assessmentRequest mirrors the OpenAPI schema for POST /v1/assessments.
type assessmentRequest struct {
	RequestID     string    `json:"request_id"`
	SubjectID     string    `json:"subject_id"`
	PeriodStart   string    `json:"period_start"`
	PeriodEnd     string    `json:"period_end"`
	SchemaVersion string    `json:"schema_version"`
	Values        []float64 `json:"values"`
	Missing       []int     `json:"missing,omitempty"`
}

func (a assessmentRequest) validate() error {
	switch {
	case strings.TrimSpace(a.RequestID) == "":
		return errors.New("missing request_id")
	case strings.TrimSpace(a.SubjectID) == "":
		return errors.New("missing subject_id")
	case strings.TrimSpace(a.PeriodStart) == "":
		return errors.New("missing period_start")
	case strings.TrimSpace(a.PeriodEnd) == "":
		return errors.New("missing period_end")
	}
	start, err := time.Parse(time.RFC3339, a.PeriodStart)
	if err != nil {
		return errors.New("invalid period_start; must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, a.PeriodEnd)
	if err != nil {
		return errors.New("invalid period_end; must be RFC3339")
	}
	if !end.After(start) {
		return errors.New("period_end must be after period_start")
	}
	return nil
}

// period converts the validated RFC3339 pair. Call validate first.
func (a assessmentRequest) period() model.Period {
	start, _ := time.Parse(time.RFC3339, a.PeriodStart)
	end, _ := time.Parse(time.RFC3339, a.PeriodEnd)
	return model.Period{Start: start, End: end}
}

// toModel builds the queue payload minus the validated vector, which the
// caller attaches after ValidateFeatures.
func (a assessmentRequest) toModel() model.AssessmentRequest {
	return model.AssessmentRequest{
		RequestID: a.RequestID,
		SubjectID: a.SubjectID,
		Period:    a.period(),
	}
}

func (a assessmentRequest) rawVector() features.RawVector {
	return features.RawVector{
		SubjectID:     a.SubjectID,
		SchemaVersion: a.SchemaVersion,
		Values:        a.Values,
		Missing:       a.Missing,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
