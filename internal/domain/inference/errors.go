package inference

import "errors"

// Sentinel kinds for inference errors.
var (
	ErrModelUnavailable = errors.New("model unavailable")
)
