package extract

import (
	"context"
	"fmt"
	"math"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// zClamp bounds z-scores before the sigmoid squash so a single outlier
// marker cannot dominate the sub-score.
const zClamp = 3.0

// LinguisticExtractor scores the linguistic slots of a vector against
// per-skill (mean, std) normalization parameters.
type LinguisticExtractor struct {
	norms NormSource
}

// NewLinguisticExtractor creates the linguistic-source extractor.
func NewLinguisticExtractor(norms NormSource) *LinguisticExtractor {
	return &LinguisticExtractor{norms: norms}
}

// Source identifies this extractor's evidence source.
func (e *LinguisticExtractor) Source() model.SourceType {
	return model.SourceLinguistic
}

// Extract z-scores each present linguistic marker, clamps to ±3, and
// squashes the weighted mean through a sigmoid into [0,1]. Evidence
// snippets are the markers that contributed most.
func (e *LinguisticExtractor) Extract(ctx context.Context, skill model.Skill, vec *model.FeatureVector) (*model.SkillSubScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !vec.HasLinguistic() {
		return nil, nil
	}

	norms := e.norms.Norms(skill)

	var zSum, weightSum float64
	candidates := make([]model.EvidenceItem, 0, model.LinguisticFeatureCount)

	for i := 0; i < model.LinguisticFeatureCount; i++ {
		slot := model.LinguisticOffset + i
		if !vec.Present[slot] {
			continue
		}
		n := norms.Linguistic[i]
		if n.Std <= 0 || n.Weight <= 0 {
			continue
		}
		z := clamp((vec.Values[slot]-n.Mean)/n.Std, -zClamp, zClamp)
		zSum += n.Weight * z
		weightSum += n.Weight

		candidates = append(candidates, model.EvidenceItem{
			Source:    model.SourceLinguistic,
			Content:   fmt.Sprintf("%s: %.2f (z %+.2f)", model.FeatureName(slot), vec.Values[slot], z),
			Relevance: clamp(math.Abs(z)/zClamp*n.Weight, 0, 1),
		})
	}
	if weightSum == 0 {
		return nil, nil
	}

	return &model.SkillSubScore{
		Source:   model.SourceLinguistic,
		Skill:    skill,
		Value:    sigmoid(zSum / weightSum),
		Evidence: rankEvidence(candidates),
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
