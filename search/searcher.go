package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/storage"
)

// NoThreshold disables the minimum similarity filter.
// It sits below the cosine range so rounding never drops a chunk.
const NoThreshold float32 = -2

// Searcher ranks stored chunks by cosine similarity to a query.
type Searcher struct {
	repository    storage.Repository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity drops chunks scoring below threshold.
// Thresholds above 1 would reject every chunk and are refused.
// Default is NoThreshold, so the top hits are always returned.
func WithMinSimilarity(threshold float32) Option {
	return func(s *Searcher) error {
		if threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		s.minSimilarity = threshold
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	repository storage.Repository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository:    repository,
		embedder:      provider.Embedder(),
		minSimilarity: NoThreshold,
		logger:        slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches for chunks similar to the query.
// Returns up to maxHits results, ranked by similarity score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor searches for chunks similar to the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Returns up to maxHits results, highest score first. Equal scores keep
// article order.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if maxHits < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxHits, maxHits)
	}

	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	embedding = core.NormalizeVector(embedding)
	monitor.AfterEmbedding(embedding)

	results, err := s.repository.FindSimilar(ctx, embedding, s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	monitor.AfterSimilaritySearch(results)

	s.logger.Debug("similarity search finished", "hits", len(results), "max_hits", maxHits)
	monitor.Finish(results)

	return results, nil
}
