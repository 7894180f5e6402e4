// Package inference runs one trained regression model per skill against a
// validated feature vector, producing a raw score and a multi-component
// confidence estimate.
package inference

import (
	"context"
	"fmt"
	"sort"

	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

const defaultImportanceTopK = 5

// Model is the trained artifact contract the service runs against. The
// registry's ensembles satisfy it; tests substitute fixtures.
type Model interface {
	Version() string
	Importances() []float64
	// PredictAll returns per-estimator predictions in [0,1]. An
	// implementation without per-estimator outputs may return a single
	// prediction; confidence then falls back to the remaining components.
	PredictAll(values [model.FeatureCount]float64) []float64
}

// Source resolves the active model for a skill.
type Source interface {
	Active(skill model.Skill) (Model, error)
}

// FeatureImportance is one ranked entry of the importance breakdown
// surfaced to the downstream reasoning collaborator.
type FeatureImportance struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Result is the output of a single model run.
type Result struct {
	Skill        model.Skill
	RawScore     float64 // [0,1]
	Confidence   float64 // [0,1]
	Importance   []FeatureImportance
	ModelVersion string
}

// Service runs per-skill model inference.
type Service struct {
	models Source
	topK   int
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithImportanceTopK sets how many ranked importances a result carries.
func WithImportanceTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an inference Service backed by the given model source.
func New(models Source, opts ...Option) *Service {
	s := &Service{
		models: models,
		topK:   defaultImportanceTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("inference")
	}
	return s
}

// Infer runs the active model for skill against a validated vector.
// A missing or failing model yields ErrModelUnavailable; the fusion
// engine treats that as "ML source missing", never as a zero score.
func (s *Service) Infer(ctx context.Context, skill model.Skill, vec *model.FeatureVector) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("inference canceled: %w", err)
	}

	m, err := s.models.Active(skill)
	if err != nil {
		metrics.RecordInferenceError()
		return Result{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	preds := m.PredictAll(vec.Values)
	if len(preds) == 0 {
		metrics.RecordInferenceError()
		return Result{}, fmt.Errorf("%w: model %s produced no output", ErrModelUnavailable, m.Version())
	}

	raw := mean(preds)
	conf := confidence(preds, raw, vec.Completeness())

	return Result{
		Skill:        skill,
		RawScore:     raw,
		Confidence:   conf,
		Importance:   topImportances(m.Importances(), s.topK),
		ModelVersion: m.Version(),
	}, nil
}

// topImportances ranks the trained per-slot importances and keeps the
// strongest k, labeled with slot names.
func topImportances(weights []float64, k int) []FeatureImportance {
	ranked := make([]FeatureImportance, 0, len(weights))
	for i, w := range weights {
		ranked = append(ranked, FeatureImportance{Name: model.FeatureName(i), Weight: w})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Weight > ranked[b].Weight
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
