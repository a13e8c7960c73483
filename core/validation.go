package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Position must not be negative
//
// NOT validated (populated by ingestion):
//   - Vector (empty until the chunk is embedded)
//   - ID (derived from position and content on insert)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Position < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidPosition)
	}

	return nil
}

// ValidateManifest validates the marker of a built index.
func ValidateManifest(m *IndexManifest) error {
	if m == nil {
		return fmt.Errorf("%w: manifest is nil", ErrInvalidManifest)
	}
	if _, err := ParseDateKey(string(m.DateKey), nil); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if m.Chunks < 0 {
		return fmt.Errorf("%w: negative chunk count %d", ErrInvalidManifest, m.Chunks)
	}
	return nil
}
