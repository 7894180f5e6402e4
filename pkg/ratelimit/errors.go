package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is surfaced to callers when the downstream budget is
// exhausted; match it with errors.Is.
var ErrRateLimited = errors.New("rate limited")

// Error reports an exhausted budget together with the retry-after hint
// from the moment the wait gave up. It matches ErrRateLimited via
// errors.Is and unwraps to the context error that ended the wait.
type Error struct {
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (retry after %s): %v", ErrRateLimited, e.RetryAfter, e.cause)
}

// Is matches ErrRateLimited so callers need not know the concrete type.
func (e *Error) Is(target error) bool {
	return target == ErrRateLimited
}

func (e *Error) Unwrap() error {
	return e.cause
}
