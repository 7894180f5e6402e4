package fusion

import "errors"

// ErrNoSources reports that every evidence source was missing, leaving
// nothing to fuse.
var ErrNoSources = errors.New("no evidence sources present")
