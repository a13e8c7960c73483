package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID of a chunk from its position and text.
// Two identical passages at different positions get different IDs.
func ChunkID(position int, content string) ID {
	return IDFromContent(strconv.Itoa(position) + ":" + content)
}

// Chunk is a bounded fragment of the day's article. It is the unit of
// embedding and retrieval.
type Chunk struct {
	Id         ID        `json:"id"`
	Position   int       `json:"position"`             // Order of the chunk within the article
	Content    string    `json:"content"`              // Chunk text
	SourceURL  string    `json:"source_url,omitempty"` // Article the chunk was cut from
	Vector     []float32 `json:"vector,omitempty"`     // Unit-length embedding (populated by ingestion)
	InsertedAt time.Time `json:"inserted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SearchResult represents a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

// IndexManifest describes a fully built index. It is the content of the
// marker file that signals a reusable cache entry.
type IndexManifest struct {
	DateKey        DateKey   `json:"date_key"`
	SourceURL      string    `json:"source_url"`
	Title          string    `json:"title,omitempty"`
	Chunks         int       `json:"chunks"`
	EmbeddingModel string    `json:"embedding_model"`
	BuiltAt        time.Time `json:"built_at"`
}

// Checkpoint records how far a long-running maintenance job got so an
// interrupted run can resume.
type Checkpoint struct {
	ProcessorType  string    `json:"processor_type"`
	LastPosition   int       `json:"last_position"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
