package repository

import "errors"

// Sentinel kinds for assessment store errors.
var (
	ErrNotFound = errors.New("assessment not found")
	ErrEmpty    = errors.New("empty assessment batch")
)
