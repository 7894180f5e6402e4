// Package repository defines the assessment store interface and errors.
package repository

import (
	"context"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// Store provides read/write access to fused assessments. Writes append:
// a newer assessment for the same (subject, skill, period) supersedes the
// previous one for reads but never overwrites it, so the full history
// stays queryable.
type Store interface {
	// Record persists a batch of assessments from one pipeline run.
	Record(ctx context.Context, assessments []model.SkillAssessment) error

	// Latest returns the current assessment for a key.
	// Returns ErrNotFound if the key has never been assessed.
	Latest(ctx context.Context, key model.Key) (model.SkillAssessment, error)

	// BySubject returns the latest assessment per (skill, period) for one
	// subject, ordered by skill then period start.
	BySubject(ctx context.Context, subjectID string) ([]model.SkillAssessment, error)

	// History returns every assessment ever recorded for a key, oldest
	// first. Returns ErrNotFound if the key has never been assessed.
	History(ctx context.Context, key model.Key) ([]model.SkillAssessment, error)

	// Subjects returns the number of distinct subjects tracked.
	Subjects(ctx context.Context) int

	// Count returns the total number of recorded assessments, superseded
	// ones included.
	Count(ctx context.Context) int
}
