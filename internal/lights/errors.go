package lights

import "errors"

var (
	// ErrNoTarget is returned when a call names no entity.
	ErrNoTarget = errors.New("lights: call has no target entity")

	// ErrPublishFailed is returned when a command could not be sent to the bridge.
	ErrPublishFailed = errors.New("lights: publishing command failed")
)
