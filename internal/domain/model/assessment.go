package model

import "time"

// Period is the assessment window a feature vector was extracted over.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Key uniquely identifies an assessment slot. Later assessments for the
// same key supersede earlier ones; they never overwrite them in place.
type Key struct {
	SubjectID string
	Skill     Skill
	Period    Period
}

// SkillAssessment is the fused output for one (subject, skill, period).
// It is created once by the fusion engine and never mutated afterwards.
type SkillAssessment struct {
	ID            string          `json:"id"`
	SubjectID     string          `json:"subject_id"`
	Skill         Skill           `json:"skill"`
	FinalScore    float64         `json:"final_score"` // [0,1]
	Confidence    float64         `json:"confidence"`  // [0,1]
	SubScores     []SkillSubScore `json:"sub_scores"`
	Evidence      []EvidenceItem  `json:"evidence"`
	NeedsReview   bool            `json:"needs_review"`
	Period        Period          `json:"period"`
	ModelVersion  string          `json:"model_version"`
	WeightVersion string          `json:"weight_version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Key returns the identity of the assessment.
func (a *SkillAssessment) Key() Key {
	return Key{SubjectID: a.SubjectID, Skill: a.Skill, Period: a.Period}
}

// AssessmentRequest is the unit of work flowing from the ingestion API
// through the queue to the worker pool.
type AssessmentRequest struct {
	RequestID string
	SubjectID string
	Period    Period
	Vector    FeatureVector
}
