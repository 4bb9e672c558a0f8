package core

import "errors"

var (
	// ErrEmptyRegistry is returned when a registry is built without entries.
	ErrEmptyRegistry = errors.New("model registry is empty")

	// ErrDuplicateModelKey is returned when two registry entries share a key.
	ErrDuplicateModelKey = errors.New("duplicate model key")

	// ErrInvalidModelSpec is returned for entries with an empty key or id.
	ErrInvalidModelSpec = errors.New("invalid model spec")
)

// ErrUnknownModelKey is returned when a session is addressed with a key that
// is not part of its registry.
var ErrUnknownModelKey = errors.New("unknown model key")
