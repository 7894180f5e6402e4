package extract

import "github.com/reena96/unseenedgeai/internal/domain/model"

// LinguisticNorm holds the population (mean, std) used for z-scoring one
// linguistic slot, plus the weight of that marker for a given skill.
type LinguisticNorm struct {
	Mean   float64 `yaml:"mean" json:"mean"`
	Std    float64 `yaml:"std" json:"std"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// BehavioralNorm holds the hard [Min, Max] cap for one behavioral slot.
// Values are clamped into range before scaling so a rare extreme event
// (a 400-retry session) cannot dominate the sub-score. Inverted marks
// slots where more means worse for the skill at hand.
type BehavioralNorm struct {
	Min      float64 `yaml:"min" json:"min"`
	Max      float64 `yaml:"max" json:"max"`
	Weight   float64 `yaml:"weight" json:"weight"`
	Inverted bool    `yaml:"inverted" json:"inverted"`
}

// SkillNorms is the full normalization parameter set for one skill.
type SkillNorms struct {
	Linguistic [model.LinguisticFeatureCount]LinguisticNorm
	Behavioral [model.BehavioralFeatureCount]BehavioralNorm
}

// NormSource supplies the currently active normalization parameters.
// The weights configuration adapter implements it with hot-reload.
type NormSource interface {
	Norms(skill model.Skill) SkillNorms
}

// baseWeight applies to markers a skill profile does not single out.
const baseWeight = 0.25

// Population statistics per linguistic slot, shared across skills. The
// per-skill part is which markers matter, captured in skillProfiles.
var baseLinguistic = [model.LinguisticFeatureCount]LinguisticNorm{
	{Mean: 420, Std: 180},    // word_count
	{Mean: 0.46, Std: 0.12},  // unique_word_ratio
	{Mean: 11.5, Std: 3.2},   // avg_sentence_length
	{Mean: 0.08, Std: 0.05},  // question_rate
	{Mean: 0.06, Std: 0.03},  // first_person_rate
	{Mean: 0.04, Std: 0.025}, // second_person_rate
	{Mean: 6, Std: 4},        // politeness_marker_count
	{Mean: 4, Std: 3},        // hedge_word_count
	{Mean: 5, Std: 3},        // certainty_word_count
	{Mean: 0.05, Std: 0.03},  // emotion_word_rate
	{Mean: 7, Std: 4},        // agreement_marker_count
	{Mean: 2, Std: 2},        // disagreement_marker_count
	{Mean: 18, Std: 9},       // turn_length_variance
	{Mean: 0.38, Std: 0.10},  // vocabulary_complexity
	{Mean: 5, Std: 4},        // instruction_word_count
	{Mean: 4, Std: 3},        // feedback_word_count
}

var baseBehavioral = [model.BehavioralFeatureCount]BehavioralNorm{
	{Min: 0, Max: 40},                 // session_count
	{Min: 0, Max: 1},                  // task_completion_rate
	{Min: 0, Max: 25, Inverted: true}, // retry_count
	{Min: 0, Max: 20},                 // help_request_count
	{Min: 0, Max: 1, Inverted: true},  // idle_time_ratio
	{Min: 0, Max: 12},                 // action_diversity
	{Min: 0, Max: 60},                 // peer_interaction_count
	{Min: 0, Max: 8, Inverted: true},  // objective_switch_rate
	{Min: 0, Max: 30},                 // tool_usage_count
}

// skillProfile lists the markers a skill emphasizes and any per-skill
// inversion overrides, keyed by slot name. Unlisted slots keep baseWeight.
type skillProfile struct {
	linguistic map[string]float64
	behavioral map[string]float64
	invert     map[string]bool
}

var skillProfiles = [model.SkillCount]skillProfile{
	model.SkillCommunication: {
		linguistic: map[string]float64{
			"politeness_marker_count": 1.0,
			"question_rate":           0.8,
			"feedback_word_count":     0.9,
			"second_person_rate":      0.7,
			"turn_length_variance":    0.6,
			"word_count":              0.5,
		},
		behavioral: map[string]float64{
			"peer_interaction_count": 1.0,
			"help_request_count":     0.6,
		},
	},
	model.SkillCollaboration: {
		linguistic: map[string]float64{
			"agreement_marker_count":    1.0,
			"second_person_rate":        0.9,
			"politeness_marker_count":   0.7,
			"disagreement_marker_count": 0.5,
		},
		behavioral: map[string]float64{
			"peer_interaction_count": 1.0,
			"task_completion_rate":   0.7,
			"help_request_count":     0.7,
		},
	},
	model.SkillLeadership: {
		linguistic: map[string]float64{
			"instruction_word_count": 1.0,
			"certainty_word_count":   0.9,
			"feedback_word_count":    0.8,
			"first_person_rate":      0.5,
		},
		behavioral: map[string]float64{
			"peer_interaction_count": 0.9,
			"action_diversity":       0.7,
			"task_completion_rate":   0.8,
		},
	},
	model.SkillAdaptability: {
		linguistic: map[string]float64{
			"hedge_word_count":      0.7,
			"unique_word_ratio":     0.8,
			"vocabulary_complexity": 0.6,
		},
		behavioral: map[string]float64{
			"action_diversity":      1.0,
			"objective_switch_rate": 0.9,
			"tool_usage_count":      0.8,
		},
		// Switching objectives is the signal here, not a distraction.
		invert: map[string]bool{"objective_switch_rate": false},
	},
	model.SkillProblemSolving: {
		linguistic: map[string]float64{
			"certainty_word_count":  0.8,
			"question_rate":         0.9,
			"vocabulary_complexity": 0.8,
			"avg_sentence_length":   0.5,
		},
		behavioral: map[string]float64{
			"task_completion_rate": 1.0,
			"tool_usage_count":     0.8,
			"retry_count":          0.6,
		},
	},
	model.SkillCreativity: {
		linguistic: map[string]float64{
			"unique_word_ratio":     1.0,
			"emotion_word_rate":     0.7,
			"vocabulary_complexity": 0.9,
		},
		behavioral: map[string]float64{
			"action_diversity": 1.0,
			"tool_usage_count": 0.9,
		},
	},
	model.SkillResilience: {
		linguistic: map[string]float64{
			"hedge_word_count":     0.5,
			"certainty_word_count": 0.7,
			"emotion_word_rate":    0.6,
		},
		behavioral: map[string]float64{
			"retry_count":          1.0,
			"task_completion_rate": 0.9,
			"idle_time_ratio":      0.6,
		},
		// Retrying after failure is the whole point of this skill.
		invert: map[string]bool{"retry_count": false},
	},
}

// DefaultNorms returns the built-in normalization parameters for a skill.
// The weights configuration artifact can override them at runtime.
func DefaultNorms(skill model.Skill) SkillNorms {
	var norms SkillNorms
	profile := skillProfile{}
	if skill.Valid() {
		profile = skillProfiles[skill]
	}

	for i := range norms.Linguistic {
		norms.Linguistic[i] = baseLinguistic[i]
		norms.Linguistic[i].Weight = baseWeight
		name := model.FeatureName(model.LinguisticOffset + i)
		if w, ok := profile.linguistic[name]; ok {
			norms.Linguistic[i].Weight = w
		}
	}
	for i := range norms.Behavioral {
		norms.Behavioral[i] = baseBehavioral[i]
		norms.Behavioral[i].Weight = baseWeight
		name := model.FeatureName(model.BehavioralOffset + i)
		if w, ok := profile.behavioral[name]; ok {
			norms.Behavioral[i].Weight = w
		}
		if inv, ok := profile.invert[name]; ok {
			norms.Behavioral[i].Inverted = inv
		}
	}
	return norms
}
