package dailyrag

import "errors"

var (
	// ErrConfigRequired is returned when Open is called without a configuration.
	ErrConfigRequired = errors.New("config required")

	// ErrClosed is returned when an Assistant is used after Close.
	ErrClosed = errors.New("assistant closed")
)
