package smoothlights

import "errors"

var (
	// ErrInvalidConfig is returned by Activate when the settings fail validation.
	ErrInvalidConfig = errors.New("smoothlights: invalid configuration")
)
