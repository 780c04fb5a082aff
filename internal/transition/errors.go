package transition

import "errors"

var (
	// ErrInvalidTransition is returned when the transition time is outside
	// [MinTransitionTime, MaxTransitionTime] or not a finite number.
	ErrInvalidTransition = errors.New("transition: transition time out of range")

	// ErrInvalidEntityID is returned when an excluded entity is not of the
	// form domain.object_id.
	ErrInvalidEntityID = errors.New("transition: invalid entity id")
)
