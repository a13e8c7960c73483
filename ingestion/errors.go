package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when a document source is not provided.
	ErrSourceRequired = errors.New("document source required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmptyDocument is returned when the fetched article yields no text to index.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrEmptyEmbedding is returned when the embedder returns an empty vector for a chunk.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrEmbeddingMismatch is returned when a batch yields a different number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")

	// ErrInvalidChunking is returned for a chunk size or overlap the splitter cannot use.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
)
