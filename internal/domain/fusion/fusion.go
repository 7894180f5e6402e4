// Package fusion combines the three evidence sub-scores for one skill
// into a final assessment with calibrated confidence and attached
// evidence.
package fusion

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// Tunable defaults. The penalty factor and disagreement threshold are
// operational parameters without a derivation from outcome data, so they
// are configuration, not constants baked into the formula.
const (
	defaultMissingSourcePenalty  = 0.85
	defaultDisagreementThreshold = 0.3
	defaultSingleSourceCeiling   = 0.75
	defaultMaxEvidence           = 5

	// midpointConfidence stands in for the ML confidence when the ML
	// source is absent.
	midpointConfidence = 0.5
)

// Engine fuses sub-scores under a configured weighting scheme.
type Engine struct {
	missingPenalty        float64
	disagreementThreshold float64
	singleSourceCeiling   float64
	maxEvidence           int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMissingSourcePenalty sets the confidence multiplier applied once
// per missing source.
func WithMissingSourcePenalty(p float64) Option {
	return func(e *Engine) {
		if p > 0 && p <= 1 {
			e.missingPenalty = p
		}
	}
}

// WithDisagreementThreshold sets the sub-score standard deviation above
// which an assessment is flagged for review.
func WithDisagreementThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.disagreementThreshold = t
		}
	}
}

// WithSingleSourceCeiling caps confidence when only one source is
// present; one corroborating source is weaker evidence than three.
func WithSingleSourceCeiling(c float64) Option {
	return func(e *Engine) {
		if c > 0 && c <= 1 {
			e.singleSourceCeiling = c
		}
	}
}

// WithMaxEvidence sets how many globally ranked evidence items an
// assessment carries.
func WithMaxEvidence(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxEvidence = n
		}
	}
}

// New creates a fusion Engine with default tuning.
func New(opts ...Option) *Engine {
	e := &Engine{
		missingPenalty:        defaultMissingSourcePenalty,
		disagreementThreshold: defaultDisagreementThreshold,
		singleSourceCeiling:   defaultSingleSourceCeiling,
		maxEvidence:           defaultMaxEvidence,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input carries everything one fusion run needs. Nil sub-scores mark
// missing sources; their weight is redistributed, never treated as zero.
type Input struct {
	SubjectID     string
	Skill         model.Skill
	Period        model.Period
	ML            *model.SkillSubScore
	Linguistic    *model.SkillSubScore
	Behavioral    *model.SkillSubScore
	Weights       FusionWeights
	WeightVersion string
}

// Fuse produces the final assessment for one (subject, skill, period).
//
//	base       = Σ wᵢ·scoreᵢ over present sources; weights are
//	             re-normalized only when a source is missing
//	adjustment = 1 + w_conf·(confidence − 0.5)
//	final      = clamp(base·adjustment, 0, 1)
func (e *Engine) Fuse(in Input) (model.SkillAssessment, error) {
	candidates := []weighted{
		{in.ML, in.Weights.MLInference},
		{in.Linguistic, in.Weights.LinguisticFeatures},
		{in.Behavioral, in.Weights.BehavioralFeatures},
	}

	present := make([]weighted, 0, len(candidates))
	for _, c := range candidates {
		if c.sub != nil {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return model.SkillAssessment{}, ErrNoSources
	}
	missing := len(candidates) - len(present)

	// Weighted base over present sources. With every source present the
	// configured weights apply as-is; when one is absent its weight is
	// redistributed proportionally across the rest.
	var weightSum, base float64
	for _, p := range present {
		weightSum += p.weight
	}
	if weightSum <= 0 {
		return model.SkillAssessment{}, ErrNoSources
	}
	for _, p := range present {
		w := p.weight
		if missing > 0 {
			w /= weightSum
		}
		base += w * p.sub.Value
	}

	// Confidence starts from the ML source when available, the neutral
	// midpoint otherwise, then pays for every absent source. The midpoint
	// fallback is discounted by one extra penalty factor so that dropping
	// the ML source never yields more confidence than keeping a
	// low-confidence one.
	confidence := midpointConfidence * e.missingPenalty
	modelVersion := ""
	if in.ML != nil {
		modelVersion = in.ML.ModelVersion
		confidence = midpointConfidence
		if in.ML.Confidence != nil {
			confidence = *in.ML.Confidence
		}
	}
	for i := 0; i < missing; i++ {
		confidence *= e.missingPenalty
	}
	if len(present) == 1 && confidence > e.singleSourceCeiling {
		confidence = e.singleSourceCeiling
	}
	confidence = clamp01(confidence)

	adjustment := 1 + in.Weights.ConfidenceAdjustment*(confidence-midpointConfidence)
	final := clamp01(base * adjustment)

	needsReview := len(present) > 1 && subScoreStddev(present) > e.disagreementThreshold
	if needsReview {
		metrics.RecordDisagreementFlag()
	}
	if missing > 0 {
		metrics.RecordMissingSources(missing)
	}

	subScores := make([]model.SkillSubScore, 0, len(present))
	evidence := make([]model.EvidenceItem, 0, e.maxEvidence)
	for _, p := range present {
		subScores = append(subScores, *p.sub)
		evidence = append(evidence, p.sub.Evidence...)
	}
	sort.SliceStable(evidence, func(a, b int) bool {
		return evidence[a].Relevance > evidence[b].Relevance
	})
	if len(evidence) > e.maxEvidence {
		evidence = evidence[:e.maxEvidence]
	}

	return model.SkillAssessment{
		ID:            uuid.NewString(),
		SubjectID:     in.SubjectID,
		Skill:         in.Skill,
		FinalScore:    final,
		Confidence:    confidence,
		SubScores:     subScores,
		Evidence:      evidence,
		NeedsReview:   needsReview,
		Period:        in.Period,
		ModelVersion:  modelVersion,
		WeightVersion: in.WeightVersion,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// weighted pairs a sub-score with its configured fusion weight.
type weighted struct {
	sub    *model.SkillSubScore
	weight float64
}

// subScoreStddev is the population standard deviation across present
// sub-score values.
func subScoreStddev(present []weighted) float64 {
	mean := 0.0
	for _, p := range present {
		mean += p.sub.Value
	}
	mean /= float64(len(present))
	variance := 0.0
	for _, p := range present {
		d := p.sub.Value - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(present)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
