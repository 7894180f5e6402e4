package weights

import "errors"

// Sentinel kinds for configuration errors.
var (
	ErrWeightsSum = errors.New("fusion weights do not sum to one")
	ErrArtifact   = errors.New("weights artifact unreadable")
)
