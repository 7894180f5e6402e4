package model

import "time"

// SourceType identifies which of the three evidence sources produced a
// sub-score or evidence item.
type SourceType string

const (
	SourceML         SourceType = "ml_inference"
	SourceLinguistic SourceType = "linguistic_features"
	SourceBehavioral SourceType = "behavioral_features"
)

// EvidenceItem is a ranked, human-readable snippet supporting a sub-score.
// Items are immutable once created and owned by the assessment they are
// attached to.
type EvidenceItem struct {
	Source    SourceType `json:"source"`
	Content   string     `json:"content"`
	Relevance float64    `json:"relevance"` // [0,1]
	Timestamp time.Time  `json:"timestamp,omitempty"`
	Context   string     `json:"context,omitempty"`
}

// SkillSubScore is one source's normalized [0,1] estimate for one skill,
// prior to fusion. A missing source is represented by the absence of a
// sub-score (nil at the fusion boundary), never by a zero value.
type SkillSubScore struct {
	Source   SourceType     `json:"source"`
	Skill    Skill          `json:"skill"`
	Value    float64        `json:"value"` // [0,1]
	Evidence []EvidenceItem `json:"evidence,omitempty"`

	// Confidence and ModelVersion are populated only by the ML source;
	// the fusion engine reads the ML confidence for its adjustment term.
	Confidence   *float64 `json:"confidence,omitempty"`
	ModelVersion string   `json:"model_version,omitempty"`
}
