package entry

import "errors"

// Domain errors for the entry package.
var (
	// ErrEntryNotFound is returned when an entry ID does not exist.
	ErrEntryNotFound = errors.New("entry: not found")

	// ErrEntryExists is returned when creating an entry with an ID that already exists.
	ErrEntryExists = errors.New("entry: already exists")

	// ErrInvalidEntry is returned when entry data fails validation.
	ErrInvalidEntry = errors.New("entry: invalid")
)
