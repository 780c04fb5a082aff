package flow

import "errors"

var (
	// ErrFlowNotFound is returned when a flow ID is unknown or already finished.
	ErrFlowNotFound = errors.New("flow: not found")

	// ErrUnknownHandler is returned when a flow is started for an unsupported integration.
	ErrUnknownHandler = errors.New("flow: unknown handler")
)
