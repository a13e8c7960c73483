package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbeddingMismatch is returned when a batch yields a different number of vectors than chunks.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrEmptyEmbedding is returned when the embedder returns an empty vector.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrModelRequired is returned when no embedding model name is given.
	ErrModelRequired = errors.New("embedding model name required")
)
