package fusion_test

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/model"
)

func subScore(src model.SourceType, skill model.Skill, value float64, evidence ...model.EvidenceItem) *model.SkillSubScore {
	return &model.SkillSubScore{Source: src, Skill: skill, Value: value, Evidence: evidence}
}

func mlSubScore(skill model.Skill, value, conf float64) *model.SkillSubScore {
	s := subScore(model.SourceML, skill, value)
	s.Confidence = &conf
	s.ModelVersion = "3.2.0"
	return s
}

func testPeriod() model.Period {
	return model.Period{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestFuseAllSourcesPresent(t *testing.T) {
	Convey("Given sub-scores from all three sources", t, func() {
		engine := fusion.New()
		in := fusion.Input{
			SubjectID:     "subj-1",
			Skill:         model.SkillCollaboration,
			Period:        testPeriod(),
			ML:            mlSubScore(model.SkillCollaboration, 0.8, 0.9),
			Linguistic:    subScore(model.SourceLinguistic, model.SkillCollaboration, 0.7),
			Behavioral:    subScore(model.SourceBehavioral, model.SkillCollaboration, 0.6),
			Weights:       fusion.DefaultWeights(),
			WeightVersion: "7",
		}

		Convey("When the sub-scores are fused", func() {
			out, err := engine.Fuse(in)

			Convey("Then the weighted base is amplified by the confidence adjustment", func() {
				So(err, ShouldBeNil)
				// base = 0.5*0.8 + 0.25*0.7 + 0.15*0.6 = 0.665, with the
				// configured weights applied as-is: nothing is missing, so
				// nothing gets re-normalized.
				So(out.FinalScore, ShouldAlmostEqual, 0.665*1.04, 1e-9)
				So(out.FinalScore, ShouldAlmostEqual, 0.6916, 1e-9)
				So(out.Confidence, ShouldAlmostEqual, 0.9, 1e-9)
				So(out.NeedsReview, ShouldBeFalse)
			})

			Convey("Then provenance is recorded on the assessment", func() {
				So(err, ShouldBeNil)
				So(out.ID, ShouldNotBeEmpty)
				So(out.ModelVersion, ShouldEqual, "3.2.0")
				So(out.WeightVersion, ShouldEqual, "7")
				So(out.SubScores, ShouldHaveLength, 3)
				So(out.Period, ShouldResemble, testPeriod())
			})
		})

		Convey("When fused twice with the same inputs", func() {
			first, err1 := engine.Fuse(in)
			second, err2 := engine.Fuse(in)

			Convey("Then score and confidence are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.FinalScore, ShouldEqual, first.FinalScore)
				So(second.Confidence, ShouldEqual, first.Confidence)
				So(second.ID, ShouldNotEqual, first.ID)
			})
		})
	})
}

func TestFuseMissingSources(t *testing.T) {
	Convey("Given a fusion engine with default tuning", t, func() {
		engine := fusion.New()
		skill := model.SkillLeadership

		Convey("When the linguistic source is missing", func() {
			out, err := engine.Fuse(fusion.Input{
				SubjectID:  "subj-2",
				Skill:      skill,
				Period:     testPeriod(),
				ML:         mlSubScore(skill, 0.8, 0.9),
				Behavioral: subScore(model.SourceBehavioral, skill, 0.6),
				Weights:    fusion.DefaultWeights(),
			})

			Convey("Then its weight is redistributed proportionally", func() {
				So(err, ShouldBeNil)
				base := (0.5*0.8 + 0.15*0.6) / 0.65
				So(out.FinalScore, ShouldAlmostEqual, base*(1+0.1*(0.9*0.85-0.5)), 1e-9)
			})

			Convey("Then confidence pays one missing-source penalty", func() {
				So(err, ShouldBeNil)
				So(out.Confidence, ShouldAlmostEqual, 0.9*0.85, 1e-9)
			})

			Convey("Then only the present sources appear in sub-scores", func() {
				So(err, ShouldBeNil)
				So(out.SubScores, ShouldHaveLength, 2)
			})
		})

		Convey("When only the behavioral source is present", func() {
			out, err := engine.Fuse(fusion.Input{
				SubjectID:  "subj-3",
				Skill:      skill,
				Period:     testPeriod(),
				Behavioral: subScore(model.SourceBehavioral, skill, 0.55),
				Weights:    fusion.DefaultWeights(),
			})

			Convey("Then the score equals the lone sub-score adjusted", func() {
				So(err, ShouldBeNil)
				// The midpoint fallback is discounted once on top of the
				// two missing-source penalties.
				conf := 0.5 * 0.85 * 0.85 * 0.85
				So(out.Confidence, ShouldAlmostEqual, conf, 1e-9)
				So(out.FinalScore, ShouldAlmostEqual, 0.55*(1+0.1*(conf-0.5)), 1e-9)
				So(out.ModelVersion, ShouldBeEmpty)
			})
		})

		Convey("When a single high-confidence ML source is present", func() {
			engine := fusion.New(fusion.WithMissingSourcePenalty(1.0))
			out, err := engine.Fuse(fusion.Input{
				SubjectID: "subj-4",
				Skill:     skill,
				Period:    testPeriod(),
				ML:        mlSubScore(skill, 0.9, 0.95),
				Weights:   fusion.DefaultWeights(),
			})

			Convey("Then the single-source ceiling caps confidence", func() {
				So(err, ShouldBeNil)
				So(out.Confidence, ShouldEqual, 0.75)
			})
		})

		Convey("When every source is missing", func() {
			_, err := engine.Fuse(fusion.Input{
				SubjectID: "subj-5",
				Skill:     skill,
				Period:    testPeriod(),
				Weights:   fusion.DefaultWeights(),
			})

			Convey("Then fusion fails with ErrNoSources", func() {
				So(err, ShouldWrap, fusion.ErrNoSources)
			})
		})
	})
}

func TestFuseDisagreement(t *testing.T) {
	Convey("Given sources that disagree strongly", t, func() {
		engine := fusion.New()
		skill := model.SkillResilience
		out, err := engine.Fuse(fusion.Input{
			SubjectID:  "subj-6",
			Skill:      skill,
			Period:     testPeriod(),
			ML:         mlSubScore(skill, 0.95, 0.8),
			Linguistic: subScore(model.SourceLinguistic, skill, 0.15),
			Weights:    fusion.DefaultWeights(),
		})

		Convey("Then the assessment is flagged for review", func() {
			So(err, ShouldBeNil)
			So(out.NeedsReview, ShouldBeTrue)
		})
	})

	Convey("Given sources in mild disagreement", t, func() {
		engine := fusion.New()
		skill := model.SkillResilience
		out, err := engine.Fuse(fusion.Input{
			SubjectID:  "subj-7",
			Skill:      skill,
			Period:     testPeriod(),
			ML:         mlSubScore(skill, 0.6, 0.8),
			Linguistic: subScore(model.SourceLinguistic, skill, 0.5),
			Behavioral: subScore(model.SourceBehavioral, skill, 0.55),
			Weights:    fusion.DefaultWeights(),
		})

		Convey("Then no review flag is raised", func() {
			So(err, ShouldBeNil)
			So(out.NeedsReview, ShouldBeFalse)
		})
	})

	Convey("Given a custom disagreement threshold", t, func() {
		engine := fusion.New(fusion.WithDisagreementThreshold(0.01))
		skill := model.SkillCreativity
		out, err := engine.Fuse(fusion.Input{
			SubjectID:  "subj-8",
			Skill:      skill,
			Period:     testPeriod(),
			Linguistic: subScore(model.SourceLinguistic, skill, 0.5),
			Behavioral: subScore(model.SourceBehavioral, skill, 0.55),
			Weights:    fusion.DefaultWeights(),
		})

		Convey("Then even small spreads trip the flag", func() {
			So(err, ShouldBeNil)
			So(out.NeedsReview, ShouldBeTrue)
		})
	})
}

func TestFuseEvidenceRanking(t *testing.T) {
	Convey("Given sub-scores carrying more evidence than the cap", t, func() {
		engine := fusion.New()
		skill := model.SkillCommunication
		ling := subScore(model.SourceLinguistic, skill, 0.6,
			model.EvidenceItem{Source: model.SourceLinguistic, Content: "l1", Relevance: 0.9},
			model.EvidenceItem{Source: model.SourceLinguistic, Content: "l2", Relevance: 0.4},
			model.EvidenceItem{Source: model.SourceLinguistic, Content: "l3", Relevance: 0.7},
		)
		beh := subScore(model.SourceBehavioral, skill, 0.65,
			model.EvidenceItem{Source: model.SourceBehavioral, Content: "b1", Relevance: 0.8},
			model.EvidenceItem{Source: model.SourceBehavioral, Content: "b2", Relevance: 0.5},
			model.EvidenceItem{Source: model.SourceBehavioral, Content: "b3", Relevance: 0.3},
			model.EvidenceItem{Source: model.SourceBehavioral, Content: "b4", Relevance: 0.6},
		)

		Convey("When fused", func() {
			out, err := engine.Fuse(fusion.Input{
				SubjectID:  "subj-9",
				Skill:      skill,
				Period:     testPeriod(),
				Linguistic: ling,
				Behavioral: beh,
				Weights:    fusion.DefaultWeights(),
			})

			Convey("Then the top five items across sources survive, ordered by relevance", func() {
				So(err, ShouldBeNil)
				So(out.Evidence, ShouldHaveLength, 5)
				contents := make([]string, 0, len(out.Evidence))
				for _, item := range out.Evidence {
					contents = append(contents, item.Content)
				}
				So(contents, ShouldResemble, []string{"l1", "b1", "l3", "b4", "b2"})
			})
		})
	})
}

func TestFuseBounds(t *testing.T) {
	Convey("Given extreme sub-score values", t, func() {
		engine := fusion.New()
		skill := model.SkillAdaptability

		Convey("When every source reports the maximum with high confidence", func() {
			out, err := engine.Fuse(fusion.Input{
				SubjectID:  "subj-10",
				Skill:      skill,
				Period:     testPeriod(),
				ML:         mlSubScore(skill, 1.0, 1.0),
				Linguistic: subScore(model.SourceLinguistic, skill, 1.0),
				Behavioral: subScore(model.SourceBehavioral, skill, 1.0),
				Weights:    fusion.DefaultWeights(),
			})

			Convey("Then the amplified score clamps at one", func() {
				So(err, ShouldBeNil)
				So(out.FinalScore, ShouldEqual, 1.0)
			})
		})

		Convey("When every source reports zero", func() {
			out, err := engine.Fuse(fusion.Input{
				SubjectID:  "subj-11",
				Skill:      skill,
				Period:     testPeriod(),
				ML:         mlSubScore(skill, 0.0, 0.2),
				Linguistic: subScore(model.SourceLinguistic, skill, 0.0),
				Behavioral: subScore(model.SourceBehavioral, skill, 0.0),
				Weights:    fusion.DefaultWeights(),
			})

			Convey("Then the score stays at zero", func() {
				So(err, ShouldBeNil)
				So(out.FinalScore, ShouldEqual, 0.0)
			})
		})
	})
}

func TestFuseRandomizedBounds(t *testing.T) {
	Convey("Given randomized sub-scores, weights, and presence patterns", t, func() {
		engine := fusion.New()
		skill := model.SkillProblemSolving
		rng := rand.New(rand.NewSource(42))

		Convey("Then final score and confidence stay within the unit interval", func() {
			for i := 0; i < 500; i++ {
				wML, wLing, wBeh := rng.Float64(), rng.Float64(), rng.Float64()
				sum := (wML + wLing + wBeh) / 0.9
				in := fusion.Input{
					SubjectID: "subj-rand",
					Skill:     skill,
					Period:    testPeriod(),
					Weights: fusion.FusionWeights{
						MLInference:          wML / sum,
						LinguisticFeatures:   wLing / sum,
						BehavioralFeatures:   wBeh / sum,
						ConfidenceAdjustment: rng.Float64() * 0.2,
					},
				}
				if rng.Intn(4) > 0 {
					in.ML = mlSubScore(skill, rng.Float64(), rng.Float64())
				}
				if rng.Intn(4) > 0 {
					in.Linguistic = subScore(model.SourceLinguistic, skill, rng.Float64())
				}
				if rng.Intn(4) > 0 {
					in.Behavioral = subScore(model.SourceBehavioral, skill, rng.Float64())
				}
				if in.ML == nil && in.Linguistic == nil && in.Behavioral == nil {
					continue
				}

				out, err := engine.Fuse(in)
				So(err, ShouldBeNil)
				So(out.FinalScore, ShouldBeBetweenOrEqual, 0, 1)
				So(out.Confidence, ShouldBeBetweenOrEqual, 0, 1)
			}
		})
	})
}

func TestFuseConfidenceMonotonicInCompleteness(t *testing.T) {
	Convey("Given an all-sources-present baseline", t, func() {
		engine := fusion.New()
		skill := model.SkillCollaboration

		// Calibrated ML confidence never falls below 0.4 in practice; the
		// midpoint fallback is discounted so removing the ML source cannot
		// beat keeping one at that floor.
		for _, mlConf := range []float64{0.4, 0.5, 0.7, 0.9, 1.0} {
			full := fusion.Input{
				SubjectID:  "subj-mono",
				Skill:      skill,
				Period:     testPeriod(),
				ML:         mlSubScore(skill, 0.7, mlConf),
				Linguistic: subScore(model.SourceLinguistic, skill, 0.65),
				Behavioral: subScore(model.SourceBehavioral, skill, 0.6),
				Weights:    fusion.DefaultWeights(),
			}
			baseline, err := engine.Fuse(full)
			So(err, ShouldBeNil)

			Convey("Then removing any one source never raises confidence (ml conf "+
				strconv.FormatFloat(mlConf, 'f', -1, 64)+")", func() {
				for _, drop := range []func(*fusion.Input){
					func(in *fusion.Input) { in.ML = nil },
					func(in *fusion.Input) { in.Linguistic = nil },
					func(in *fusion.Input) { in.Behavioral = nil },
				} {
					in := full
					drop(&in)
					out, err := engine.Fuse(in)
					So(err, ShouldBeNil)
					So(out.Confidence, ShouldBeLessThanOrEqualTo, baseline.Confidence)
				}
			})
		}
	})
}
