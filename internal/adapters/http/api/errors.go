package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel and carries the underlying cause's message.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, cause)
}

// Wrap tags an arbitrary error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
