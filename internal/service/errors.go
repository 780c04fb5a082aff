package service

import "errors"

// Domain errors for the service package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, service.ErrServiceNotFound) {
//	    // no handler registered for the key
//	}
var (
	// ErrServiceNotFound is returned when no handler is registered for a key.
	ErrServiceNotFound = errors.New("service: not found")

	// ErrServiceExists is returned when registering a key that already has a handler.
	// Use Replace to swap the handler of an existing key.
	ErrServiceExists = errors.New("service: already registered")

	// ErrInvalidService is returned when a domain or service name is empty.
	ErrInvalidService = errors.New("service: invalid name")

	// ErrInvalidHandler is returned when a nil handler is registered or installed.
	ErrInvalidHandler = errors.New("service: invalid handler")

	// ErrInvalidEntityRef is returned when a payload's entity_id field is neither
	// a string nor a list of strings.
	ErrInvalidEntityRef = errors.New("service: invalid entity reference")

	// ErrInvalidTopic is returned when an ingress message arrives on a topic
	// that does not name a domain and service.
	ErrInvalidTopic = errors.New("service: invalid call topic")

	// ErrInvalidPayload is returned when an ingress message cannot be decoded.
	ErrInvalidPayload = errors.New("service: invalid call payload")
)
