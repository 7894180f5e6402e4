// Package registry loads, versions, and serves trained per-skill regression
// models. Artifacts are immutable once loaded and shared read-only across
// all concurrent inference calls.
package registry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// treeNode is one node of a serialized regression tree. Leaf nodes carry
// Feature == -1 and a prediction in Value.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// regressionTree is a single estimator of the ensemble.
type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

// predict walks the tree for one feature vector.
func (t *regressionTree) predict(values [model.FeatureCount]float64) float64 {
	idx := 0
	for idx >= 0 && idx < len(t.Nodes) {
		node := t.Nodes[idx]
		if node.Feature < 0 {
			return node.Value
		}
		if node.Feature >= model.FeatureCount {
			return 0
		}
		if values[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0
}

// Ensemble is a trained per-skill regression model: a bag of shallow
// regression trees plus trained feature importances. It satisfies the
// model interface expected by the inference service.
type Ensemble struct {
	skill       model.Skill
	version     string
	checksum    string
	featureList []string
	importances []float64
	trees       []regressionTree
}

// ensembleArtifact mirrors the serialized artifact layout.
type ensembleArtifact struct {
	Skill        string           `json:"skill"`
	Version      string           `json:"version"`
	FeatureNames []string         `json:"feature_names"`
	Importances  []float64        `json:"feature_importances"`
	Trees        []regressionTree `json:"trees"`
}

// parseEnsemble decodes and validates artifact bytes. The expected feature
// order must match the current vector contract exactly; a mismatch is a
// load failure, never a silent truncation.
func parseEnsemble(raw []byte, checksum string) (*Ensemble, error) {
	var art ensembleArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}

	skill, err := model.ParseSkill(art.Skill)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if art.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrBadArtifact)
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: no estimators", ErrBadArtifact)
	}

	expected := model.FeatureNames()
	if len(art.FeatureNames) != len(expected) {
		return nil, fmt.Errorf("%w: model expects %d features, contract has %d",
			ErrFeatureOrderMismatch, len(art.FeatureNames), len(expected))
	}
	for i, name := range art.FeatureNames {
		if name != expected[i] {
			return nil, fmt.Errorf("%w: slot %d is %q, contract says %q",
				ErrFeatureOrderMismatch, i, name, expected[i])
		}
	}
	if len(art.Importances) != len(expected) {
		return nil, fmt.Errorf("%w: %d importances for %d features",
			ErrBadArtifact, len(art.Importances), len(expected))
	}

	return &Ensemble{
		skill:       skill,
		version:     art.Version,
		checksum:    checksum,
		featureList: art.FeatureNames,
		importances: art.Importances,
		trees:       art.Trees,
	}, nil
}

// Skill returns the skill this model is bound to.
func (e *Ensemble) Skill() model.Skill { return e.skill }

// Version returns the semantic version of the artifact.
func (e *Ensemble) Version() string { return e.version }

// Checksum returns the sha256 hex digest recorded at load time.
func (e *Ensemble) Checksum() string { return e.checksum }

// Importances returns the trained per-slot feature importances.
func (e *Ensemble) Importances() []float64 { return e.importances }

// PredictAll returns the per-estimator predictions for one vector, each
// clamped to [0,1]. The spread across estimators feeds the
// ensemble-variance confidence component.
func (e *Ensemble) PredictAll(values [model.FeatureCount]float64) []float64 {
	preds := make([]float64, len(e.trees))
	for i := range e.trees {
		preds[i] = math.Max(0, math.Min(1, e.trees[i].predict(values)))
	}
	return preds
}
