package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/article"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/storage"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighboring chunks.
	DefaultChunkOverlap = 200

	// DefaultBatchSize is the number of chunks sent per embedding request.
	DefaultBatchSize = 16
)

// Source loads an article and extracts its text.
type Source interface {
	Load(ctx context.Context, url string) (*article.Document, error)
}

var _ Source = (*article.Loader)(nil)

// Result describes a completed build.
type Result struct {
	URL    string
	Title  string
	Chunks int
}

// Pipeline orchestrates fetching, splitting, embedding and storing one article.
type Pipeline struct {
	source       Source
	repository   storage.ChunkRepository
	splitter     textsplitter.TextSplitter
	embedder     *batchEmbedder
	pool         *ants.Pool
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.embedder.batchSize = size
		return nil
	}
}

// WithChunking sets the chunk size and overlap of the default splitter.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size < 1 || overlap < 0 || overlap >= size {
			return fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunking, size, overlap)
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithSplitter replaces the recursive character splitter.
func WithSplitter(splitter textsplitter.TextSplitter) Option {
	return func(p *Pipeline) error {
		p.splitter = splitter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	source Source,
	repository storage.ChunkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if repository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source:       source,
		repository:   repository,
		pool:         pool,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		embedder: &batchEmbedder{
			embedder:  provider.Embedder(),
			batchSize: DefaultBatchSize,
		},
		logger: slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.splitter == nil {
		p.splitter = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(p.chunkSize),
			textsplitter.WithChunkOverlap(p.chunkOverlap),
		)
	}
	p.embedder.pool = p.pool
	p.embedder.logger = p.logger

	return p, nil
}

// Ingest loads the article at url, embeds its chunks and stores them.
// The repository holds the complete article on success. Any failure aborts
// the build; the caller is responsible for discarding a partial index.
func (p *Pipeline) Ingest(ctx context.Context, url string) (*Result, error) {
	p.logger.Debug("ingesting article", "url", url)

	doc, err := p.source.Load(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, url)
	}

	texts, err := p.split(doc.Text)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, url)
	}
	p.logger.Debug("split article", "url", url, "chunks", len(texts))

	vectors, err := p.embedder.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Position:  i,
			Content:   text,
			SourceURL: url,
			Vector:    vectors[i],
		}
	}

	added, err := p.repository.AddChunks(ctx, chunks...)
	if err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}

	p.logger.Info("article indexed", "url", url, "title", doc.Title, "chunks", len(added))
	return &Result{
		URL:    url,
		Title:  doc.Title,
		Chunks: len(added),
	}, nil
}

// split returns the non-blank chunks of text in article order.
func (p *Pipeline) split(text string) ([]string, error) {
	parts, err := p.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		texts = append(texts, part)
	}
	return texts, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
