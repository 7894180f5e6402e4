package config

import "errors"

// Sentinel kinds for configuration errors, matchable with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
