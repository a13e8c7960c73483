// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dailyrag answers questions about the day's article.
//
// Open resolves today's date key, prunes stale indexes, and either loads
// today's cached index or fetches, embeds and stores the article. The
// returned Assistant is ready to answer questions against that index.
package dailyrag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/ai/openai"
	"github.com/poiesic/dailyrag/answer"
	"github.com/poiesic/dailyrag/article"
	"github.com/poiesic/dailyrag/cache"
	"github.com/poiesic/dailyrag/config"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/ingestion"
	"github.com/poiesic/dailyrag/search"
	"github.com/poiesic/dailyrag/storage"
	"github.com/poiesic/dailyrag/storage/badger"
)

// Assistant owns today's index and answers questions against it.
// It is safe for concurrent use once Open returns.
type Assistant struct {
	entry        cache.Entry
	manifest     core.IndexManifest
	repo         storage.ChunkRepository
	provider     ai.AIProvider
	ownsProvider bool
	searcher     *search.Searcher
	answerer     *answer.Answerer
	queryTimeout time.Duration
	logger       *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Option configures Open.
type Option func(*options)

type options struct {
	clock    func() time.Time
	provider ai.AIProvider
	fetcher  article.PageFetcher
	logger   *slog.Logger
}

// WithClock sets the time source used to pick the date key and prune.
// Default is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithProvider supplies the AI services. The caller keeps ownership and
// closes it. Default is an OpenAI-compatible provider built from the config.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithFetcher replaces the HTTP article fetcher.
func WithFetcher(fetcher article.PageFetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open prepares today's index and returns a ready Assistant. The article is
// fetched and embedded only when no committed index exists for today.
// Any failure is returned; nothing is retried.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Assistant, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "assistant")

	manager, err := cache.NewManager(cfg.CacheRoot,
		cache.WithRetentionDays(cfg.RetentionDays),
		cache.WithLogger(o.logger.With("component", "cache")),
	)
	if err != nil {
		return nil, err
	}

	now := o.clock()
	key := core.TodayKey(now)
	sourceURL := core.SourceURL(cfg.SourceBaseURL, key)
	logger.Debug("resolved date key", "date", key, "url", sourceURL)

	if _, err := manager.Prune(now); err != nil {
		return nil, fmt.Errorf("pruning cache: %w", err)
	}

	entry, err := manager.Resolve(key)
	if err != nil {
		return nil, err
	}

	a := &Assistant{
		entry:        entry,
		provider:     o.provider,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger,
	}
	if a.provider == nil {
		a.provider, err = openai.NewProvider(cfg.AIServices())
		if err != nil {
			return nil, err
		}
		a.ownsProvider = true
	}

	if entry.Reuse {
		err = a.loadCached(ctx, cfg, manager)
	} else {
		err = a.build(ctx, cfg, manager, o.fetcher, sourceURL, now)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	a.searcher, err = search.NewSearcher(a.repo, a.provider, search.WithLogger(o.logger.With("component", "search")))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.answerer, err = answer.NewAnswerer(a.searcher, a.provider.Completer(),
		answer.WithTopN(cfg.TopN),
		answer.WithLogger(o.logger.With("component", "answer")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// build fetches, embeds and stores today's article, then commits the marker.
func (a *Assistant) build(ctx context.Context, cfg *config.Config, manager *cache.Manager,
	fetcher article.PageFetcher, sourceURL string, now time.Time) error {
	a.logger.Info("fetching and embedding", "date", a.entry.Key, "url", sourceURL)

	if err := manager.Prepare(a.entry); err != nil {
		return err
	}

	repo, err := badger.NewRepository(a.entry.StorePath())
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	a.repo = repo

	if fetcher == nil {
		fetcher = article.NewFetcher(article.WithTimeout(cfg.FetchTimeout))
	}
	extractor, err := article.NewExtractor(cfg.Extractor)
	if err != nil {
		return err
	}
	loader, err := article.NewLoader(fetcher, extractor)
	if err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
		ingestion.WithBatchSize(cfg.BatchSize),
		ingestion.WithLogger(a.logger.With("component", "ingestion")),
	}
	if cfg.Workers > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(cfg.Workers))
	}
	pipeline, err := ingestion.NewPipeline(loader, repo, a.provider, pipelineOpts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	result, err := pipeline.Ingest(ctx, sourceURL)
	if err != nil {
		return err
	}

	a.manifest = core.IndexManifest{
		DateKey:        a.entry.Key,
		SourceURL:      sourceURL,
		Title:          result.Title,
		Chunks:         result.Chunks,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		BuiltAt:        now.UTC(),
	}
	return manager.Commit(a.entry, a.manifest)
}

// loadCached opens today's committed index without touching the network.
func (a *Assistant) loadCached(ctx context.Context, cfg *config.Config, manager *cache.Manager) error {
	a.logger.Info("loading cached embeddings", "date", a.entry.Key, "path", a.entry.Path)

	manifest, err := manager.Manifest(a.entry)
	if err != nil {
		return err
	}
	a.manifest = *manifest

	repo, err := badger.NewRepository(a.entry.StorePath())
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", cache.ErrCorruptIndex, a.entry.StorePath(), err)
	}
	a.repo = repo

	count, err := repo.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("%w: counting chunks: %w", cache.ErrCorruptIndex, err)
	}
	if count != manifest.Chunks {
		return fmt.Errorf("%w: %s holds %d chunks, marker expects %d",
			cache.ErrCorruptIndex, a.entry.Key, count, manifest.Chunks)
	}

	if manifest.EmbeddingModel != "" && manifest.EmbeddingModel != cfg.AI.EmbeddingModel {
		a.logger.Warn("index was built with a different embedding model",
			"index_model", manifest.EmbeddingModel, "configured_model", cfg.AI.EmbeddingModel)
	}
	return nil
}

// Ask answers question from today's article.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	ans, err := a.Answer(ctx, question)
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}

// Answer answers question and reports the chunks used as context.
func (a *Assistant) Answer(ctx context.Context, question string) (*answer.Answer, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := a.withQueryTimeout(ctx)
	defer cancel()
	return a.answerer.Answer(ctx, question)
}

// Search returns the maxHits chunks most similar to query.
func (a *Assistant) Search(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := a.withQueryTimeout(ctx)
	defer cancel()
	return a.searcher.FindSimilar(ctx, query, maxHits)
}

func (a *Assistant) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.queryTimeout > 0 {
		return context.WithTimeout(ctx, a.queryTimeout)
	}
	return context.WithCancel(ctx)
}

// Key returns the date key of the loaded index.
func (a *Assistant) Key() core.DateKey {
	return a.entry.Key
}

// SourceURL returns the article URL the index was built from.
func (a *Assistant) SourceURL() string {
	return a.manifest.SourceURL
}

// Title returns the article title, which may be empty.
func (a *Assistant) Title() string {
	return a.manifest.Title
}

// Reused reports whether the index was loaded from cache instead of built.
func (a *Assistant) Reused() bool {
	return a.entry.Reuse
}

// Manifest returns a copy of the index marker.
func (a *Assistant) Manifest() core.IndexManifest {
	return a.manifest
}

// Close releases the index and, if Open created it, the AI provider.
func (a *Assistant) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		if a.ownsProvider && a.provider != nil {
			if err := a.provider.Close(); err != nil {
				a.logger.Error("error closing AI provider", "err", err)
			}
		}
		if a.repo != nil {
			if err := a.repo.Close(); err != nil {
				a.logger.Error("error closing index", "err", err)
				a.closeErr = err
			}
		}
	})
	return a.closeErr
}
