package extract

import (
	"context"
	"fmt"

	"github.com/reena96/unseenedgeai/internal/domain/inference"
	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// Inferrer is the slice of the inference service the ML extractor needs.
type Inferrer interface {
	Infer(ctx context.Context, skill model.Skill, vec *model.FeatureVector) (inference.Result, error)
}

// MLExtractor wraps per-skill model inference as an evidence source. The
// model already emits [0,1], so no further normalization is applied.
type MLExtractor struct {
	inferrer Inferrer
}

// NewMLExtractor creates the model-derived extractor.
func NewMLExtractor(inferrer Inferrer) *MLExtractor {
	return &MLExtractor{inferrer: inferrer}
}

// Source identifies this extractor's evidence source.
func (e *MLExtractor) Source() model.SourceType {
	return model.SourceML
}

// Extract runs inference and converts the result into a sub-score whose
// evidence is the model's top feature importances. A model failure
// propagates as an error (not a missing source): the caller decides
// whether a prior model version or a "skill unavailable" marker applies.
func (e *MLExtractor) Extract(ctx context.Context, skill model.Skill, vec *model.FeatureVector) (*model.SkillSubScore, error) {
	res, err := e.inferrer.Infer(ctx, skill, vec)
	if err != nil {
		return nil, err
	}

	maxWeight := 0.0
	for _, imp := range res.Importance {
		if imp.Weight > maxWeight {
			maxWeight = imp.Weight
		}
	}
	candidates := make([]model.EvidenceItem, 0, len(res.Importance))
	for _, imp := range res.Importance {
		relevance := 0.0
		if maxWeight > 0 {
			relevance = imp.Weight / maxWeight
		}
		candidates = append(candidates, model.EvidenceItem{
			Source:    model.SourceML,
			Content:   fmt.Sprintf("model signal: %s (importance %.3f)", imp.Name, imp.Weight),
			Relevance: relevance,
		})
	}

	conf := res.Confidence
	return &model.SkillSubScore{
		Source:       model.SourceML,
		Skill:        skill,
		Value:        res.RawScore,
		Evidence:     rankEvidence(candidates),
		Confidence:   &conf,
		ModelVersion: res.ModelVersion,
	}, nil
}
