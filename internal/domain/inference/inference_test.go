package inference_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/reena96/unseenedgeai/internal/domain/inference"
	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fixtureModel returns canned per-estimator predictions.
type fixtureModel struct {
	version     string
	importances []float64
	preds       []float64
}

func (m fixtureModel) Version() string        { return m.version }
func (m fixtureModel) Importances() []float64 { return m.importances }

func (m fixtureModel) PredictAll([model.FeatureCount]float64) []float64 {
	return m.preds
}

// fixtureSource serves one model for every skill.
type fixtureSource struct {
	m   inference.Model
	err error
}

func (s fixtureSource) Active(model.Skill) (inference.Model, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.m, nil
}

func uniformImportances() []float64 {
	imp := make([]float64, model.FeatureCount)
	for i := range imp {
		imp[i] = float64(i) / float64(model.FeatureCount)
	}
	return imp
}

func completeVector() *model.FeatureVector {
	vec := &model.FeatureVector{SubjectID: "subject-1", SchemaVersion: model.FeatureSchemaVersion}
	for i := 0; i < model.FeatureCount; i++ {
		vec.Values[i] = 0.5
		vec.Present[i] = true
	}
	return vec
}

func TestInfer(t *testing.T) {
	Convey("Given an inference service over a fixture model", t, func() {
		ctx := context.Background()
		m := fixtureModel{
			version:     "1.2.3",
			importances: uniformImportances(),
			preds:       []float64{0.7, 0.8, 0.9},
		}
		svc := inference.New(fixtureSource{m: m})

		Convey("When inferring a complete vector", func() {
			res, err := svc.Infer(ctx, model.SkillLeadership, completeVector())

			Convey("Then the raw score should be the ensemble mean", func() {
				So(err, ShouldBeNil)
				So(res.Skill, ShouldEqual, model.SkillLeadership)
				So(res.RawScore, ShouldAlmostEqual, 0.8)
				So(res.ModelVersion, ShouldEqual, "1.2.3")
				So(res.Confidence, ShouldBeBetweenOrEqual, 0, 1)
			})

			Convey("And the importance breakdown should be the top five slots", func() {
				So(err, ShouldBeNil)
				So(len(res.Importance), ShouldEqual, 5)
				for i := 1; i < len(res.Importance); i++ {
					So(res.Importance[i].Weight, ShouldBeLessThanOrEqualTo, res.Importance[i-1].Weight)
				}
				So(res.Importance[0].Name, ShouldEqual, model.FeatureName(model.FeatureCount-1))
			})
		})

		Convey("When the importance budget is tightened", func() {
			small := inference.New(fixtureSource{m: m}, inference.WithImportanceTopK(2))
			res, err := small.Infer(ctx, model.SkillLeadership, completeVector())

			Convey("Then only that many entries should be returned", func() {
				So(err, ShouldBeNil)
				So(len(res.Importance), ShouldEqual, 2)
			})
		})

		Convey("When the context is already canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Infer(canceled, model.SkillLeadership, completeVector())

			Convey("Then inference should fail with the context error", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestInferFailures(t *testing.T) {
	Convey("Given models that cannot serve", t, func() {
		ctx := context.Background()

		Convey("When no model is active for the skill", func() {
			svc := inference.New(fixtureSource{err: fmt.Errorf("no model")})
			_, err := svc.Infer(ctx, model.SkillCreativity, completeVector())

			Convey("Then the failure should surface as unavailability", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, inference.ErrModelUnavailable)
			})
		})

		Convey("When the model produces no output", func() {
			svc := inference.New(fixtureSource{m: fixtureModel{version: "1.0.0"}})
			_, err := svc.Infer(ctx, model.SkillCreativity, completeVector())

			Convey("Then the failure should surface as unavailability", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, inference.ErrModelUnavailable)
			})
		})
	})
}

func TestConfidenceComponents(t *testing.T) {
	Convey("Given the three-component confidence estimate", t, func() {
		ctx := context.Background()
		infer := func(preds []float64, vec *model.FeatureVector) inference.Result {
			svc := inference.New(fixtureSource{m: fixtureModel{
				version:     "1.0.0",
				importances: uniformImportances(),
				preds:       preds,
			}})
			res, err := svc.Infer(ctx, model.SkillAdaptability, vec)
			So(err, ShouldBeNil)
			return res
		}

		Convey("When estimators disagree", func() {
			tight := infer([]float64{0.8, 0.8, 0.8}, completeVector())
			spread := infer([]float64{0.6, 0.8, 1.0}, completeVector())

			Convey("Then agreement should earn more confidence than spread", func() {
				So(tight.RawScore, ShouldAlmostEqual, spread.RawScore)
				So(tight.Confidence, ShouldBeGreaterThan, spread.Confidence)
			})
		})

		Convey("When the prediction sits near the midpoint", func() {
			mid := infer([]float64{0.5, 0.5}, completeVector())
			extreme := infer([]float64{0.9, 0.9}, completeVector())

			Convey("Then midpoint proximity should be penalized", func() {
				So(mid.Confidence, ShouldBeLessThan, extreme.Confidence)
			})
		})

		Convey("When the input vector is sparse", func() {
			sparse := completeVector()
			for i := 0; i < model.FeatureCount; i += 2 {
				sparse.Present[i] = false
			}
			full := infer([]float64{0.8, 0.8}, completeVector())
			partial := infer([]float64{0.8, 0.8}, sparse)

			Convey("Then data quality should lower confidence", func() {
				So(partial.Confidence, ShouldBeLessThan, full.Confidence)
			})
		})

		Convey("When the model exposes a single estimator", func() {
			res := infer([]float64{0.8}, completeVector())

			Convey("Then the variance component should be dropped, not zeroed", func() {
				// Extremity and completeness are both maximal here, so the
				// renormalized combination is full confidence.
				So(res.Confidence, ShouldAlmostEqual, 1.0)
			})
		})
	})
}
