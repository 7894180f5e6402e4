// Package assess runs the full per-subject assessment pipeline: feature
// validation, one extraction per evidence source, and fusion, repeated
// across all seven skill dimensions.
//
// Failures are contained at skill granularity. One skill failing to
// produce an assessment never aborts the remaining skills for the same
// subject; the result records the failure alongside whatever succeeded.
package assess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reena96/unseenedgeai/internal/domain/extract"
	"github.com/reena96/unseenedgeai/internal/domain/features"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/inference"
	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// WeightSource serves the active fusion weights per skill together with
// the version stamped on resulting assessments.
type WeightSource interface {
	Weights(skill model.Skill) (fusion.FusionWeights, string)
}

// SkillFailure records why one skill produced no assessment.
type SkillFailure struct {
	Skill  model.Skill `json:"skill"`
	Reason string      `json:"reason"`
}

// Result is the per-subject pipeline output. Assessments holds the
// skills that fused successfully; Unavailable marks skills that had no
// usable evidence source at all; Failures records everything else.
type Result struct {
	SubjectID   string                  `json:"subject_id"`
	Period      model.Period            `json:"period"`
	Assessments []model.SkillAssessment `json:"assessments"`
	Unavailable []model.Skill           `json:"unavailable,omitempty"`
	Failures    []SkillFailure          `json:"failures,omitempty"`
}

// Pipeline wires the validator, the three extractors, and the fusion
// engine into one per-subject run.
type Pipeline struct {
	validator  *features.Validator
	ml         extract.Extractor
	linguistic extract.Extractor
	behavioral extract.Extractor
	engine     *fusion.Engine
	weights    WeightSource
	logger     logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithValidator overrides the feature validator.
func WithValidator(v *features.Validator) Option {
	return func(p *Pipeline) {
		if v != nil {
			p.validator = v
		}
	}
}

// New creates a Pipeline from its collaborators.
func New(ml, linguistic, behavioral extract.Extractor, engine *fusion.Engine, weights WeightSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		validator:  features.NewValidator(),
		ml:         ml,
		linguistic: linguistic,
		behavioral: behavioral,
		engine:     engine,
		weights:    weights,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("assess")
	}
	return p
}

// AssessRaw validates an untrusted payload and runs the pipeline on it.
// Validation failures abort the whole subject; a vector of the wrong
// shape cannot produce a trustworthy score for any skill.
func (p *Pipeline) AssessRaw(ctx context.Context, requestID string, period model.Period, raw features.RawVector) (Result, error) {
	vec, err := p.validator.Validate(raw)
	if err != nil {
		return Result{}, err
	}
	return p.Assess(ctx, model.AssessmentRequest{
		RequestID: requestID,
		SubjectID: vec.SubjectID,
		Period:    period,
		Vector:    vec,
	})
}

// Assess runs extraction and fusion for every skill dimension. It returns
// an error only when the context ends; per-skill problems are recorded in
// the Result instead.
func (p *Pipeline) Assess(ctx context.Context, req model.AssessmentRequest) (Result, error) {
	start := time.Now()
	out := Result{
		SubjectID:   req.SubjectID,
		Period:      req.Period,
		Assessments: make([]model.SkillAssessment, 0, model.SkillCount),
	}

	for _, skill := range model.AllSkills() {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		assessment, err := p.assessSkill(ctx, skill, &req)
		switch {
		case err == nil:
			out.Assessments = append(out.Assessments, assessment)
			metrics.RecordAssessment(skill.String())
		case errors.Is(err, fusion.ErrNoSources):
			out.Unavailable = append(out.Unavailable, skill)
			metrics.RecordSkillUnavailable(skill.String())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return out, err
		default:
			out.Failures = append(out.Failures, SkillFailure{Skill: skill, Reason: err.Error()})
			p.logger.Warn(ctx, "skill assessment failed",
				logger.String("subject_id", req.SubjectID),
				logger.String("skill", skill.String()),
				logger.Error(err),
			)
		}
	}

	metrics.RecordSubjectLatency(time.Since(start).Seconds())
	p.logger.Debug(ctx, "subject assessed",
		logger.String("subject_id", req.SubjectID),
		logger.Int("assessed", len(out.Assessments)),
		logger.Int("unavailable", len(out.Unavailable)),
		logger.Int("failed", len(out.Failures)),
	)
	return out, nil
}

// assessSkill extracts the three sub-scores concurrently and fuses them.
// A model that cannot serve this skill degrades to a missing ML source;
// the remaining sources still fuse if any carry data.
func (p *Pipeline) assessSkill(ctx context.Context, skill model.Skill, req *model.AssessmentRequest) (model.SkillAssessment, error) {
	var (
		wg            sync.WaitGroup
		ml, ling, beh *model.SkillSubScore
		mlErr         error
		lingErr       error
		behErr        error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		ml, mlErr = p.ml.Extract(ctx, skill, &req.Vector)
	}()
	go func() {
		defer wg.Done()
		ling, lingErr = p.linguistic.Extract(ctx, skill, &req.Vector)
	}()
	go func() {
		defer wg.Done()
		beh, behErr = p.behavioral.Extract(ctx, skill, &req.Vector)
	}()
	wg.Wait()

	if mlErr != nil {
		if !errors.Is(mlErr, inference.ErrModelUnavailable) {
			return model.SkillAssessment{}, fmt.Errorf("ml extraction: %w", mlErr)
		}
		ml = nil
	}
	if lingErr != nil {
		return model.SkillAssessment{}, fmt.Errorf("linguistic extraction: %w", lingErr)
	}
	if behErr != nil {
		return model.SkillAssessment{}, fmt.Errorf("behavioral extraction: %w", behErr)
	}

	w, version := p.weights.Weights(skill)
	return p.engine.Fuse(fusion.Input{
		SubjectID:     req.SubjectID,
		Skill:         skill,
		Period:        req.Period,
		ML:            ml,
		Linguistic:    ling,
		Behavioral:    beh,
		Weights:       w,
		WeightVersion: version,
	})
}
