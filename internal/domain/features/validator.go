// Package features enforces the feature-vector contract before a vector
// may reach any model. A malformed vector that slips through produces a
// silently wrong score, which is strictly worse than a visible error, so
// validation fails fast and nothing downstream re-checks shape.
package features

import (
	"fmt"
	"math"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// RawVector is the untrusted payload handed over by the external
// feature-extraction collaborator.
type RawVector struct {
	SubjectID     string    `json:"subject_id"`
	SchemaVersion string    `json:"schema_version"`
	Values        []float64 `json:"values"`
	// Missing lists slot indices that carry no real data for the period.
	// Their values are ignored and zero-filled.
	Missing []int `json:"missing,omitempty"`
}

// Validator checks raw vectors against the schema expected by the models
// currently being served.
type Validator struct {
	schemaVersion string
	slotCount     int
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithSchemaVersion overrides the expected schema version.
func WithSchemaVersion(version string) Option {
	return func(v *Validator) {
		if version != "" {
			v.schemaVersion = version
		}
	}
}

// NewValidator creates a Validator for the current feature schema.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		schemaVersion: model.FeatureSchemaVersion,
		slotCount:     model.FeatureCount,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate converts a raw payload into a FeatureVector or fails with
// ErrShapeMismatch. NaN and infinite slots are coerced to zero with their
// presence flag cleared; they reduce completeness instead of poisoning the
// model input.
func (v *Validator) Validate(raw RawVector) (model.FeatureVector, error) {
	var out model.FeatureVector

	if raw.SubjectID == "" {
		return out, fmt.Errorf("%w: empty subject id", ErrShapeMismatch)
	}
	if raw.SchemaVersion != v.schemaVersion {
		return out, fmt.Errorf("%w: schema version %q, expected %q",
			ErrShapeMismatch, raw.SchemaVersion, v.schemaVersion)
	}
	if len(raw.Values) != v.slotCount {
		return out, fmt.Errorf("%w: got %d slots, expected %d",
			ErrShapeMismatch, len(raw.Values), v.slotCount)
	}

	out.SubjectID = raw.SubjectID
	out.SchemaVersion = raw.SchemaVersion
	for i, val := range raw.Values {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			out.Values[i] = 0
			out.Present[i] = false
			continue
		}
		out.Values[i] = val
		out.Present[i] = true
	}
	for _, idx := range raw.Missing {
		if idx < 0 || idx >= v.slotCount {
			return out, fmt.Errorf("%w: missing index %d out of range",
				ErrShapeMismatch, idx)
		}
		out.Values[idx] = 0
		out.Present[idx] = false
	}

	return out, nil
}

// ExpectedSchemaVersion returns the schema version this validator enforces.
func (v *Validator) ExpectedSchemaVersion() string {
	return v.schemaVersion
}
