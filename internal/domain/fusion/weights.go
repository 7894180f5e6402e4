package fusion

// FusionWeights are the four per-skill fusion coefficients: one per
// evidence source plus the scale of the confidence adjustment term. They
// must sum to 1.0 within tolerance; the configuration store enforces that
// at write time so fusion never has to.
type FusionWeights struct {
	MLInference          float64 `yaml:"ml_inference" json:"ml_inference" validate:"gte=0,lte=1"`
	LinguisticFeatures   float64 `yaml:"linguistic_features" json:"linguistic_features" validate:"gte=0,lte=1"`
	BehavioralFeatures   float64 `yaml:"behavioral_features" json:"behavioral_features" validate:"gte=0,lte=1"`
	ConfidenceAdjustment float64 `yaml:"confidence_adjustment" json:"confidence_adjustment" validate:"gte=0,lte=1"`
}

// Sum returns the total of all four weights.
func (w FusionWeights) Sum() float64 {
	return w.MLInference + w.LinguisticFeatures + w.BehavioralFeatures + w.ConfidenceAdjustment
}

// DefaultWeights is the built-in weighting used until a configuration
// artifact is loaded.
func DefaultWeights() FusionWeights {
	return FusionWeights{
		MLInference:          0.50,
		LinguisticFeatures:   0.25,
		BehavioralFeatures:   0.15,
		ConfidenceAdjustment: 0.10,
	}
}
