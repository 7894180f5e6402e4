// Package extract turns each raw evidence source into a normalized [0,1]
// sub-score plus a small ranked set of human-readable evidence snippets.
//
// All three extractors share one contract. When a source has no data for
// the period the extractor returns a nil sub-score and no error: "no
// evidence" must lower confidence downstream, not drag the score toward
// zero.
package extract

import (
	"context"
	"sort"

	"github.com/reena96/unseenedgeai/internal/domain/model"
)

// Evidence caps. Extractors rank candidates by contribution magnitude and
// keep only the strongest few.
const (
	maxEvidencePerSource = 5
	minEvidencePerSource = 3
)

// Extractor computes one source's sub-score for a skill.
type Extractor interface {
	Source() model.SourceType

	// Extract returns nil (not an error) when the source has no data for
	// the period covered by vec.
	Extract(ctx context.Context, skill model.Skill, vec *model.FeatureVector) (*model.SkillSubScore, error)
}

// rankEvidence orders candidates by relevance and truncates to the
// per-source cap.
func rankEvidence(items []model.EvidenceItem) []model.EvidenceItem {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Relevance > items[b].Relevance
	})
	if len(items) > maxEvidencePerSource {
		items = items[:maxEvidencePerSource]
	}
	return items
}
