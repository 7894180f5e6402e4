package registry

import "errors"

// Sentinel kinds for model loading and serving errors.
var (
	ErrModelUnavailable     = errors.New("model unavailable")
	ErrChecksumMismatch     = errors.New("artifact checksum mismatch")
	ErrBadArtifact          = errors.New("malformed model artifact")
	ErrFeatureOrderMismatch = errors.New("model feature order mismatch")
	ErrManifest             = errors.New("model manifest unreadable")
)
