package weights

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reena96/unseenedgeai/internal/domain/extract"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// artifactFile mirrors the versioned YAML configuration artifact. Skills
// absent from the file keep built-in defaults; norm overrides are sparse,
// keyed by slot name.
type artifactFile struct {
	Version int                             `yaml:"version"`
	Skills  map[string]fusion.FusionWeights `yaml:"skills"`
	Norms   map[string]normOverride         `yaml:"norms,omitempty"`
}

type normOverride struct {
	Linguistic map[string]extract.LinguisticNorm `yaml:"linguistic,omitempty"`
	Behavioral map[string]extract.BehavioralNorm `yaml:"behavioral,omitempty"`
}

// readArtifact loads and validates the artifact file. found is false when
// the file does not exist.
func (s *Store) readArtifact() (*snapshot, bool, error) {
	if s.path == "" {
		return nil, false, nil
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrArtifact, err)
	}

	var file artifactFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	snap, err := s.buildSnapshot(&file)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// buildSnapshot validates a decoded artifact and assembles the immutable
// generation served to readers.
func (s *Store) buildSnapshot(file *artifactFile) (*snapshot, error) {
	snap := &snapshot{
		version:  strconv.Itoa(file.Version),
		rawNorms: file.Norms,
	}

	for _, skill := range model.AllSkills() {
		snap.weights[skill] = fusion.DefaultWeights()
		if w, ok := file.Skills[skill.String()]; ok {
			if err := s.validateWeights(w); err != nil {
				return nil, fmt.Errorf("skill %s: %w", skill, err)
			}
			snap.weights[skill] = w
		}
		snap.norms[skill] = applyNormOverride(skill, file.Norms[skill.String()])
	}
	for name := range file.Skills {
		if _, err := model.ParseSkill(name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
		}
	}
	return snap, nil
}

// applyNormOverride layers sparse per-skill norm overrides on top of the
// built-in defaults.
func applyNormOverride(skill model.Skill, override normOverride) extract.SkillNorms {
	norms := extract.DefaultNorms(skill)
	for name, n := range override.Linguistic {
		for i := 0; i < model.LinguisticFeatureCount; i++ {
			if model.FeatureName(model.LinguisticOffset+i) == name {
				norms.Linguistic[i] = n
			}
		}
	}
	for name, n := range override.Behavioral {
		for i := 0; i < model.BehavioralFeatureCount; i++ {
			if model.FeatureName(model.BehavioralOffset+i) == name {
				norms.Behavioral[i] = n
			}
		}
	}
	return norms
}

// writeArtifact persists a snapshot, using a temp-file rename so the
// watcher never reads a half-written artifact.
func (s *Store) writeArtifact(snap *snapshot) error {
	if s.path == "" {
		return nil
	}

	file := artifactFile{
		Skills: make(map[string]fusion.FusionWeights, model.SkillCount),
		Norms:  snap.rawNorms,
	}
	if n, err := strconv.Atoi(snap.version); err == nil {
		file.Version = n
	}
	for _, skill := range model.AllSkills() {
		file.Skills[skill.String()] = snap.weights[skill]
	}

	raw, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	return nil
}
