package auth

import "errors"

var (
	// ErrMalformedHash is returned when a stored hash is not a parseable
	// Argon2id PHC string.
	ErrMalformedHash = errors.New("auth: malformed password hash")

	// ErrUnsupportedAlgorithm is returned for PHC strings of another
	// algorithm or Argon2 version.
	ErrUnsupportedAlgorithm = errors.New("auth: unsupported hash algorithm")
)
