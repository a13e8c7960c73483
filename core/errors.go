package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidPosition indicates a negative chunk position.
	ErrInvalidPosition = errors.New("position cannot be negative")

	// ErrInvalidDateKey indicates a string is not a dd.mm.yy date.
	ErrInvalidDateKey = errors.New("invalid date key")

	// ErrInvalidManifest indicates an IndexManifest failed validation.
	ErrInvalidManifest = errors.New("invalid index manifest")
)
