package features

import "errors"

// Sentinel kinds for feature contract violations.
var (
	ErrShapeMismatch = errors.New("feature vector shape mismatch")
)
