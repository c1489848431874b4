package model

import "github.com/rotisserie/eris"

// Error taxonomy shared by all engine packages. Configuration and validation
// errors indicate caller bugs and are never retried; persistence errors on
// load are recoverable and callers may fall back to an untrained state.
var (
	// ErrConfiguration marks an unknown algorithm or a missing required parameter.
	ErrConfiguration = eris.New("configuration error")

	// ErrValidation marks empty or malformed input, including feature-column mismatches.
	ErrValidation = eris.New("validation error")

	// ErrPersistence marks a missing or corrupt model file.
	ErrPersistence = eris.New("persistence error")
)
