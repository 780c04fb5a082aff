package intercept

import "errors"

var (
	// ErrTargetNotFound is returned by Install when no handler is registered
	// for the requested key. The returned ReleaseFunc is a no-op.
	ErrTargetNotFound = errors.New("intercept: target service not found")

	// ErrNilMutate is returned by Install when the mutate function is nil.
	ErrNilMutate = errors.New("intercept: mutate function is nil")

	// ErrMutatePanic wraps a panic recovered from a mutate function.
	ErrMutatePanic = errors.New("intercept: mutate function panicked")
)
