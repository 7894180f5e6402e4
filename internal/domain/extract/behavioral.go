package extract

import (
	"context"
	"fmt"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// BehavioralExtractor scores the behavioral slots of a vector against
// per-skill [min, max] ranges with hard caps.
type BehavioralExtractor struct {
	norms NormSource
}

// NewBehavioralExtractor creates the behavioral-source extractor.
func NewBehavioralExtractor(norms NormSource) *BehavioralExtractor {
	return &BehavioralExtractor{norms: norms}
}

// Source identifies this extractor's evidence source.
func (e *BehavioralExtractor) Source() model.SourceType {
	return model.SourceBehavioral
}

// Extract min-max scales each present behavioral signal, clamping values
// into range first so rare extreme events cannot dominate. Inverted slots
// count distance from the top of the range instead.
func (e *BehavioralExtractor) Extract(ctx context.Context, skill model.Skill, vec *model.FeatureVector) (*model.SkillSubScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !vec.HasBehavioral() {
		return nil, nil
	}

	norms := e.norms.Norms(skill)

	var sum, weightSum float64
	candidates := make([]model.EvidenceItem, 0, model.BehavioralFeatureCount)

	for i := 0; i < model.BehavioralFeatureCount; i++ {
		slot := model.BehavioralOffset + i
		if !vec.Present[slot] {
			continue
		}
		n := norms.Behavioral[i]
		if n.Max <= n.Min || n.Weight <= 0 {
			continue
		}
		scaled := (clamp(vec.Values[slot], n.Min, n.Max) - n.Min) / (n.Max - n.Min)
		if n.Inverted {
			scaled = 1 - scaled
		}
		sum += n.Weight * scaled
		weightSum += n.Weight

		// Distance from the neutral midpoint is what makes a signal
		// worth showing a reviewer.
		candidates = append(candidates, model.EvidenceItem{
			Source:    model.SourceBehavioral,
			Content:   fmt.Sprintf("%s: %.1f (normalized %.2f)", model.FeatureName(slot), vec.Values[slot], scaled),
			Relevance: clamp(2*abs(scaled-0.5)*n.Weight, 0, 1),
		})
	}
	if weightSum == 0 {
		return nil, nil
	}

	return &model.SkillSubScore{
		Source:   model.SourceBehavioral,
		Skill:    skill,
		Value:    sum / weightSum,
		Evidence: rankEvidence(candidates),
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
