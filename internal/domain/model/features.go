package model

// Feature vector layout. Slot order is part of the contract between the
// external feature-extraction collaborator and every trained model; a model
// whose expected order differs must be rejected at load time, never served.
const (
	LinguisticFeatureCount = 16
	BehavioralFeatureCount = 9
	DerivedFeatureCount    = 1
	FeatureCount           = LinguisticFeatureCount + BehavioralFeatureCount + DerivedFeatureCount

	LinguisticOffset = 0
	BehavioralOffset = LinguisticFeatureCount
	DerivedOffset    = LinguisticFeatureCount + BehavioralFeatureCount
)

// FeatureSchemaVersion identifies the slot layout below. Callers declare the
// version their vectors were extracted against; a mismatch is a contract
// violation.
const FeatureSchemaVersion = "v2"

var featureNames = [FeatureCount]string{
	// Linguistic markers (slots 0-15).
	"word_count",
	"unique_word_ratio",
	"avg_sentence_length",
	"question_rate",
	"first_person_rate",
	"second_person_rate",
	"politeness_marker_count",
	"hedge_word_count",
	"certainty_word_count",
	"emotion_word_rate",
	"agreement_marker_count",
	"disagreement_marker_count",
	"turn_length_variance",
	"vocabulary_complexity",
	"instruction_word_count",
	"feedback_word_count",
	// Behavioral signals (slots 16-24).
	"session_count",
	"task_completion_rate",
	"retry_count",
	"help_request_count",
	"idle_time_ratio",
	"action_diversity",
	"peer_interaction_count",
	"objective_switch_rate",
	"tool_usage_count",
	// Derived cross-source ratio (slot 25).
	"linguistic_behavioral_ratio",
}

// FeatureNames returns the ordered slot names of the current schema.
func FeatureNames() []string {
	names := make([]string, FeatureCount)
	copy(names, featureNames[:])
	return names
}

// FeatureName returns the name of slot i, or "" when out of range.
func FeatureName(i int) string {
	if i < 0 || i >= FeatureCount {
		return ""
	}
	return featureNames[i]
}

// FeatureVector is the ordered, fixed-length numeric input for one subject
// and one assessment period. Missing slots are zero-filled with the
// corresponding Present flag cleared; the flags feed the completeness
// component of the confidence estimate, so zero-filling never masquerades
// as real data.
type FeatureVector struct {
	SubjectID     string
	SchemaVersion string
	Values        [FeatureCount]float64
	Present       [FeatureCount]bool
}

// Completeness returns the fraction of slots carrying real data.
func (v *FeatureVector) Completeness() float64 {
	present := 0
	for _, p := range v.Present {
		if p {
			present++
		}
	}
	return float64(present) / float64(FeatureCount)
}

// HasLinguistic reports whether any linguistic slot carries real data.
func (v *FeatureVector) HasLinguistic() bool {
	for i := LinguisticOffset; i < LinguisticOffset+LinguisticFeatureCount; i++ {
		if v.Present[i] {
			return true
		}
	}
	return false
}

// HasBehavioral reports whether any behavioral slot carries real data.
func (v *FeatureVector) HasBehavioral() bool {
	for i := BehavioralOffset; i < BehavioralOffset+BehavioralFeatureCount; i++ {
		if v.Present[i] {
			return true
		}
	}
	return false
}
