package weights_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reena96/unseenedgeai/internal/adapters/weights"
	"github.com/reena96/unseenedgeai/internal/domain/extract"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
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

const sampleArtifact = `version: 3
skills:
  communication:
    ml_inference: 0.4
    linguistic_features: 0.3
    behavioral_features: 0.2
    confidence_adjustment: 0.1
norms:
  communication:
    linguistic:
      word_count:
        mean: 500
        std: 100
        weight: 0.9
    behavioral:
      retry_count:
        min: 0
        max: 50
        weight: 0.4
        inverted: true
`

func writeTempArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStoreDefaults(t *testing.T) {
	Convey("Given a store with no artifact", t, func() {
		store := weights.NewStore("")

		Convey("When reading the initial generation", func() {
			Convey("Then it should serve built-in defaults", func() {
				So(store.Version(), ShouldEqual, "builtin-1")
				for _, skill := range model.AllSkills() {
					w, version := store.Weights(skill)
					So(w, ShouldResemble, fusion.DefaultWeights())
					So(version, ShouldEqual, "builtin-1")
					So(store.Norms(skill), ShouldResemble, extract.DefaultNorms(skill))
				}
			})

			Convey("And an invalid skill should fall back to defaults", func() {
				w, _ := store.Weights(model.Skill(99))
				So(w, ShouldResemble, fusion.DefaultWeights())
				So(store.Norms(model.Skill(99)), ShouldResemble, extract.DefaultNorms(model.Skill(99)))
			})
		})

		Convey("When loading with an empty path", func() {
			err := store.Load(context.Background())

			Convey("Then defaults should stay in effect", func() {
				So(err, ShouldBeNil)
				So(store.Version(), ShouldEqual, "builtin-1")
			})
		})
	})
}

func TestStoreLoad(t *testing.T) {
	Convey("Given a store backed by an artifact", t, func() {
		ctx := context.Background()

		Convey("When the artifact file does not exist yet", func() {
			store := weights.NewStore(filepath.Join(t.TempDir(), "missing.yaml"))
			err := store.Load(ctx)

			Convey("Then built-in defaults should stay active", func() {
				So(err, ShouldBeNil)
				So(store.Version(), ShouldEqual, "builtin-1")
			})
		})

		Convey("When the artifact overrides one skill", func() {
			store := weights.NewStore(writeTempArtifact(t, sampleArtifact))
			err := store.Load(ctx)

			Convey("Then the override should be active for that skill only", func() {
				So(err, ShouldBeNil)
				So(store.Version(), ShouldEqual, "3")

				w, version := store.Weights(model.SkillCommunication)
				So(version, ShouldEqual, "3")
				So(w.MLInference, ShouldAlmostEqual, 0.4)
				So(w.LinguisticFeatures, ShouldAlmostEqual, 0.3)
				So(w.BehavioralFeatures, ShouldAlmostEqual, 0.2)
				So(w.ConfidenceAdjustment, ShouldAlmostEqual, 0.1)

				other, _ := store.Weights(model.SkillLeadership)
				So(other, ShouldResemble, fusion.DefaultWeights())
			})

			Convey("And sparse norm overrides should layer onto defaults", func() {
				So(err, ShouldBeNil)
				norms := store.Norms(model.SkillCommunication)
				So(norms.Linguistic[0].Mean, ShouldAlmostEqual, 500)
				So(norms.Linguistic[0].Std, ShouldAlmostEqual, 100)
				So(norms.Linguistic[0].Weight, ShouldAlmostEqual, 0.9)
				// Untouched slots keep the built-in parameters.
				defaults := extract.DefaultNorms(model.SkillCommunication)
				So(norms.Linguistic[1], ShouldResemble, defaults.Linguistic[1])
				So(store.Norms(model.SkillLeadership), ShouldResemble, extract.DefaultNorms(model.SkillLeadership))
			})
		})

		Convey("When the artifact is not valid YAML", func() {
			store := weights.NewStore(writeTempArtifact(t, "skills: ["))
			err := store.Load(ctx)

			Convey("Then loading should fail", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrArtifact)
			})
		})

		Convey("When the artifact names an unknown skill", func() {
			store := weights.NewStore(writeTempArtifact(t, `version: 1
skills:
  telepathy:
    ml_inference: 0.5
    linguistic_features: 0.25
    behavioral_features: 0.15
    confidence_adjustment: 0.1
`))
			err := store.Load(ctx)

			Convey("Then loading should fail", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrArtifact)
			})
		})

		Convey("When the artifact weights do not sum to one", func() {
			store := weights.NewStore(writeTempArtifact(t, `version: 1
skills:
  communication:
    ml_inference: 0.9
    linguistic_features: 0.3
    behavioral_features: 0.2
    confidence_adjustment: 0.1
`))
			err := store.Load(ctx)

			Convey("Then loading should fail with a sum violation", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrWeightsSum)
			})
		})
	})
}

func TestStoreUpdateWeights(t *testing.T) {
	Convey("Given a store with built-in defaults", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "weights.yaml")
		store := weights.NewStore(path)
		So(store.Load(ctx), ShouldBeNil)

		Convey("When applying a valid weight set", func() {
			next := fusion.FusionWeights{
				MLInference:          0.6,
				LinguisticFeatures:   0.2,
				BehavioralFeatures:   0.1,
				ConfidenceAdjustment: 0.1,
			}
			err := store.UpdateWeights(ctx, model.SkillCreativity, next)

			Convey("Then the new generation should be active", func() {
				So(err, ShouldBeNil)
				So(store.Version(), ShouldEqual, "1")

				w, version := store.Weights(model.SkillCreativity)
				So(w, ShouldResemble, next)
				So(version, ShouldEqual, "1")

				// Other skills keep their weights.
				other, _ := store.Weights(model.SkillCommunication)
				So(other, ShouldResemble, fusion.DefaultWeights())
			})

			Convey("And the artifact should be persisted for restart", func() {
				So(err, ShouldBeNil)
				fresh := weights.NewStore(path)
				So(fresh.Load(ctx), ShouldBeNil)
				So(fresh.Version(), ShouldEqual, "1")
				w, _ := fresh.Weights(model.SkillCreativity)
				So(w, ShouldResemble, next)
			})

			Convey("And a second update should bump the version again", func() {
				So(err, ShouldBeNil)
				So(store.UpdateWeights(ctx, model.SkillCreativity, fusion.DefaultWeights()), ShouldBeNil)
				So(store.Version(), ShouldEqual, "2")
			})
		})

		Convey("When the weights do not sum to one", func() {
			err := store.UpdateWeights(ctx, model.SkillCreativity, fusion.FusionWeights{
				MLInference:          0.8,
				LinguisticFeatures:   0.3,
				BehavioralFeatures:   0.2,
				ConfidenceAdjustment: 0.1,
			})

			Convey("Then the update should be rejected and nothing change", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrWeightsSum)
				So(store.Version(), ShouldEqual, "builtin-1")
				w, _ := store.Weights(model.SkillCreativity)
				So(w, ShouldResemble, fusion.DefaultWeights())
			})
		})

		Convey("When a weight is out of range", func() {
			err := store.UpdateWeights(ctx, model.SkillCreativity, fusion.FusionWeights{
				MLInference:          1.5,
				LinguisticFeatures:   -0.3,
				BehavioralFeatures:   -0.1,
				ConfidenceAdjustment: -0.1,
			})

			Convey("Then the update should be rejected", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrWeightsSum)
			})
		})

		Convey("When the skill is invalid", func() {
			err := store.UpdateWeights(ctx, model.Skill(99), fusion.DefaultWeights())

			Convey("Then the update should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestStoreReload(t *testing.T) {
	Convey("Given a store loaded from an artifact", t, func() {
		ctx := context.Background()
		path := writeTempArtifact(t, sampleArtifact)
		store := weights.NewStore(path)
		So(store.Load(ctx), ShouldBeNil)
		So(store.Version(), ShouldEqual, "3")

		Convey("When the artifact is rewritten with a new version", func() {
			So(os.WriteFile(path, []byte("version: 4\n"), 0o644), ShouldBeNil)
			err := store.Reload(ctx)

			Convey("Then the new generation should be active", func() {
				So(err, ShouldBeNil)
				So(store.Version(), ShouldEqual, "4")
				// Version 4 drops the override, so defaults return.
				w, _ := store.Weights(model.SkillCommunication)
				So(w, ShouldResemble, fusion.DefaultWeights())
			})
		})

		Convey("When the rewritten artifact is malformed", func() {
			So(os.WriteFile(path, []byte("skills: ["), 0o644), ShouldBeNil)
			err := store.Reload(ctx)

			Convey("Then the active generation should be kept", func() {
				So(err, ShouldNotBeNil)
				So(store.Version(), ShouldEqual, "3")
				w, _ := store.Weights(model.SkillCommunication)
				So(w.MLInference, ShouldAlmostEqual, 0.4)
			})
		})

		Convey("When the artifact disappears", func() {
			So(os.Remove(path), ShouldBeNil)
			err := store.Reload(ctx)

			Convey("Then the active generation should be kept", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrArtifact)
				So(store.Version(), ShouldEqual, "3")
			})
		})
	})
}

func TestStoreWatch(t *testing.T) {
	Convey("Given stores watching for artifact changes", t, func() {
		Convey("When watching with no artifact path", func() {
			store := weights.NewStore("")
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			Convey("Then Watch should block until cancellation", func() {
				So(store.Watch(ctx), ShouldBeNil)
			})
		})

		Convey("When the watch context is canceled", func() {
			store := weights.NewStore(writeTempArtifact(t, sampleArtifact))
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			Convey("Then Watch should return without error", func() {
				So(store.Watch(ctx), ShouldBeNil)
			})
		})
	})
}
