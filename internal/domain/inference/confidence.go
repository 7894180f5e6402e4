package inference

import "math"

// Confidence component weights. Model-internal certainty (ensemble
// variance), boundary proximity, and input data quality are different
// things; collapsing them into one heuristic loses information, so each
// is computed independently and combined by fixed weights.
const (
	varianceWeight     = 0.5
	extremityWeight    = 0.3
	completenessWeight = 0.2

	// variance is mapped via 1/(1+varianceSteepness*var).
	varianceSteepness = 10.0

	// Predictions within extremityBand of the 0.5 midpoint are penalized;
	// a score hugging the midpoint is a weaker signal than a decisive one
	// near either boundary.
	extremityBand  = 0.2
	extremityFloor = 0.5
	extremitySlope = 2.5
)

// confidence combines the three components. When the model exposes only a
// single estimator the variance component is meaningless, so the remaining
// two weights are re-normalized to sum to 1.
func confidence(preds []float64, raw, completeness float64) float64 {
	extremity := extremityComponent(raw)
	complete := completenessComponent(completeness)

	if len(preds) < 2 {
		total := extremityWeight + completenessWeight
		return extremityWeight/total*extremity + completenessWeight/total*complete
	}

	return varianceWeight*varianceComponent(preds) +
		extremityWeight*extremity +
		completenessWeight*complete
}

// varianceComponent maps per-estimator spread to [0,1]: tight agreement
// across the ensemble yields high confidence.
func varianceComponent(preds []float64) float64 {
	m := mean(preds)
	variance := 0.0
	for _, p := range preds {
		d := p - m
		variance += d * d
	}
	variance /= float64(len(preds))
	return 1 / (1 + varianceSteepness*variance)
}

// extremityComponent penalizes predictions near the 0.5 midpoint.
func extremityComponent(raw float64) float64 {
	dist := math.Abs(raw - 0.5)
	if dist >= extremityBand {
		return 1.0
	}
	return extremityFloor + extremitySlope*dist
}

// completenessComponent maps the fraction of non-missing slots into
// [0.5, 1]: even a fully sparse vector retains half confidence from this
// component because zero-filled slots are known-zero, not garbage.
func completenessComponent(completeness float64) float64 {
	return 0.5 + 0.5*completeness
}
