package cache

import "errors"

var (
	// ErrRootRequired is returned when no cache root directory is given.
	ErrRootRequired = errors.New("cache root required")

	// ErrInvalidRetention is returned for a negative retention period.
	ErrInvalidRetention = errors.New("retention days must not be negative")

	// ErrNotBuilt is returned when an entry has no marker file yet.
	ErrNotBuilt = errors.New("index not built")

	// ErrCorruptIndex is returned when a marker exists but its content or the
	// store behind it does not describe a complete index.
	ErrCorruptIndex = errors.New("corrupt index")
)
