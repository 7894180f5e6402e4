package assess_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/reena96/unseenedgeai/internal/domain/assess"
	"github.com/reena96/unseenedgeai/internal/domain/features"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/inference"
	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// stubExtractor returns a fixed sub-score, optionally failing or going
// missing for a chosen skill.
type stubExtractor struct {
	source      model.SourceType
	value       float64
	confidence  *float64
	failSkill   model.Skill
	failErr     error
	missing     bool
	missingOnly model.Skill
	hasMissing  bool
}

func (s *stubExtractor) Source() model.SourceType { return s.source }

func (s *stubExtractor) Extract(_ context.Context, skill model.Skill, _ *model.FeatureVector) (*model.SkillSubScore, error) {
	if s.failErr != nil && skill == s.failSkill {
		return nil, s.failErr
	}
	if s.missing || (s.hasMissing && skill == s.missingOnly) {
		return nil, nil
	}
	sub := &model.SkillSubScore{
		Source:     s.source,
		Skill:      skill,
		Value:      s.value,
		Confidence: s.confidence,
	}
	if s.source == model.SourceML {
		sub.ModelVersion = "1.0.0"
	}
	return sub, nil
}

type stubWeights struct{}

func (stubWeights) Weights(model.Skill) (fusion.FusionWeights, string) {
	return fusion.DefaultWeights(), "w-test"
}

func testPeriod() model.Period {
	return model.Period{
		Start: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
	}
}

func fullVector(subjectID string) model.FeatureVector {
	var vec model.FeatureVector
	vec.SubjectID = subjectID
	vec.SchemaVersion = model.FeatureSchemaVersion
	for i := range vec.Values {
		vec.Values[i] = 0.5
		vec.Present[i] = true
	}
	return vec
}

func TestPipelineAssess(t *testing.T) {
	Convey("Given a pipeline with all sources healthy", t, func() {
		conf := 0.8
		pipeline := assess.New(
			&stubExtractor{source: model.SourceML, value: 0.7, confidence: &conf},
			&stubExtractor{source: model.SourceLinguistic, value: 0.6},
			&stubExtractor{source: model.SourceBehavioral, value: 0.65},
			fusion.New(),
			stubWeights{},
		)

		Convey("When a subject is assessed", func() {
			out, err := pipeline.Assess(context.Background(), model.AssessmentRequest{
				RequestID: "req-1",
				SubjectID: "subj-1",
				Period:    testPeriod(),
				Vector:    fullVector("subj-1"),
			})

			Convey("Then every skill dimension yields an assessment", func() {
				So(err, ShouldBeNil)
				So(out.Assessments, ShouldHaveLength, model.SkillCount)
				So(out.Unavailable, ShouldBeEmpty)
				So(out.Failures, ShouldBeEmpty)
			})

			Convey("Then each assessment carries full provenance", func() {
				So(err, ShouldBeNil)
				for _, a := range out.Assessments {
					So(a.SubjectID, ShouldEqual, "subj-1")
					So(a.ModelVersion, ShouldEqual, "1.0.0")
					So(a.WeightVersion, ShouldEqual, "w-test")
					So(a.SubScores, ShouldHaveLength, 3)
				}
			})
		})
	})
}

func TestPipelineSkillIsolation(t *testing.T) {
	Convey("Given an ML extractor that fails for one skill", t, func() {
		conf := 0.8
		pipeline := assess.New(
			&stubExtractor{
				source: model.SourceML, value: 0.7, confidence: &conf,
				failSkill: model.SkillLeadership, failErr: errors.New("scaler corrupt"),
			},
			&stubExtractor{source: model.SourceLinguistic, value: 0.6},
			&stubExtractor{source: model.SourceBehavioral, value: 0.65},
			fusion.New(),
			stubWeights{},
		)

		Convey("When the subject is assessed", func() {
			out, err := pipeline.Assess(context.Background(), model.AssessmentRequest{
				SubjectID: "subj-2",
				Period:    testPeriod(),
				Vector:    fullVector("subj-2"),
			})

			Convey("Then only the failing skill is recorded as a failure", func() {
				So(err, ShouldBeNil)
				So(out.Assessments, ShouldHaveLength, model.SkillCount-1)
				So(out.Failures, ShouldHaveLength, 1)
				So(out.Failures[0].Skill, ShouldEqual, model.SkillLeadership)
				So(out.Failures[0].Reason, ShouldContainSubstring, "scaler corrupt")
			})
		})
	})

	Convey("Given an ML source with no model for one skill", t, func() {
		conf := 0.8
		pipeline := assess.New(
			&stubExtractor{
				source: model.SourceML, value: 0.7, confidence: &conf,
				failSkill: model.SkillCreativity, failErr: inference.ErrModelUnavailable,
			},
			&stubExtractor{source: model.SourceLinguistic, value: 0.6},
			&stubExtractor{source: model.SourceBehavioral, value: 0.65},
			fusion.New(),
			stubWeights{},
		)

		Convey("When the subject is assessed", func() {
			out, err := pipeline.Assess(context.Background(), model.AssessmentRequest{
				SubjectID: "subj-3",
				Period:    testPeriod(),
				Vector:    fullVector("subj-3"),
			})

			Convey("Then the skill still fuses from the remaining sources", func() {
				So(err, ShouldBeNil)
				So(out.Assessments, ShouldHaveLength, model.SkillCount)
				So(out.Failures, ShouldBeEmpty)
				for _, a := range out.Assessments {
					if a.Skill == model.SkillCreativity {
						So(a.SubScores, ShouldHaveLength, 2)
						So(a.ModelVersion, ShouldBeEmpty)
					}
				}
			})
		})
	})

	Convey("Given no source has any data", t, func() {
		pipeline := assess.New(
			&stubExtractor{source: model.SourceML, failErr: inference.ErrModelUnavailable, failSkill: model.SkillCommunication, missing: true},
			&stubExtractor{source: model.SourceLinguistic, missing: true},
			&stubExtractor{source: model.SourceBehavioral, missing: true},
			fusion.New(),
			stubWeights{},
		)

		Convey("When the subject is assessed", func() {
			out, err := pipeline.Assess(context.Background(), model.AssessmentRequest{
				SubjectID: "subj-4",
				Period:    testPeriod(),
				Vector:    fullVector("subj-4"),
			})

			Convey("Then every skill is marked unavailable, none fabricated", func() {
				So(err, ShouldBeNil)
				So(out.Assessments, ShouldBeEmpty)
				So(out.Unavailable, ShouldHaveLength, model.SkillCount)
			})
		})
	})
}

func TestPipelineAssessRaw(t *testing.T) {
	Convey("Given a pipeline behind the raw-payload entry point", t, func() {
		pipeline := assess.New(
			&stubExtractor{source: model.SourceML, missing: true},
			&stubExtractor{source: model.SourceLinguistic, value: 0.6},
			&stubExtractor{source: model.SourceBehavioral, value: 0.65},
			fusion.New(),
			stubWeights{},
		)

		Convey("When the payload has the wrong slot count", func() {
			_, err := pipeline.AssessRaw(context.Background(), "req-5", testPeriod(), features.RawVector{
				SubjectID:     "subj-5",
				SchemaVersion: model.FeatureSchemaVersion,
				Values:        make([]float64, 3),
			})

			Convey("Then the whole subject fails with a shape mismatch", func() {
				So(err, ShouldWrap, features.ErrShapeMismatch)
			})
		})

		Convey("When the payload is well formed", func() {
			values := make([]float64, model.FeatureCount)
			for i := range values {
				values[i] = 0.4
			}
			out, err := pipeline.AssessRaw(context.Background(), "req-6", testPeriod(), features.RawVector{
				SubjectID:     "subj-6",
				SchemaVersion: model.FeatureSchemaVersion,
				Values:        values,
			})

			Convey("Then the pipeline runs to completion", func() {
				So(err, ShouldBeNil)
				So(out.SubjectID, ShouldEqual, "subj-6")
				So(out.Assessments, ShouldHaveLength, model.SkillCount)
			})
		})
	})
}

func TestPipelineContextCancellation(t *testing.T) {
	Convey("Given a canceled context", t, func() {
		pipeline := assess.New(
			&stubExtractor{source: model.SourceML, missing: true},
			&stubExtractor{source: model.SourceLinguistic, value: 0.6},
			&stubExtractor{source: model.SourceBehavioral, value: 0.65},
			fusion.New(),
			stubWeights{},
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When the subject is assessed", func() {
			_, err := pipeline.Assess(ctx, model.AssessmentRequest{
				SubjectID: "subj-7",
				Period:    testPeriod(),
				Vector:    fullVector("subj-7"),
			})

			Convey("Then the run aborts with the context error", func() {
				So(err, ShouldWrap, context.Canceled)
			})
		})
	})
}
