package metrics

import "errors"

// Sentinel kinds for metric recording failures.
var (
	ErrObserveFailed = errors.New("metrics observe failed")
)
