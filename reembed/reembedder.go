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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/storage"
)

// CheckpointType identifies reembedding checkpoints in the store.
const CheckpointType = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 50,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarizes a completed run.
type Result struct {
	Total     int
	Processed int
	Resumed   bool
	Elapsed   time.Duration
}

// Reembedder re-embeds every chunk of one index.
type Reembedder struct {
	repo        storage.ChunkRepository
	checkpoints storage.CheckpointRepository
	model       string
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *ChunkIterator
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder. model names the embedding model
// behind embedder; checkpoints only resume runs for the same model.
// checkpoints may be nil, in which case every run starts from the beginning.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.ChunkRepository, checkpoints storage.CheckpointRepository,
	embedder ai.Embedder, model string, config *Config, progress io.Writer) (*Reembedder, error) {
	if model == "" {
		return nil, ErrModelRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:        repo,
		checkpoints: checkpoints,
		model:       model,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:    NewChunkIterator(repo, config.BatchSize),
		logger:      slog.Default().With("component", "reembed"),
	}, nil
}

// Run re-embeds all chunks, resuming from a matching checkpoint if one
// exists. The checkpoint is removed once every chunk has been processed.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.repo.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	result := &Result{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in index (0 chunks)\n")
		return result, nil
	}

	start, err := r.resumePosition(ctx)
	if err != nil {
		return nil, err
	}
	result.Resumed = start > 0

	if result.Resumed {
		fmt.Fprintf(r.progress, "Resuming reembedding at chunk %d of %d (batch size: %d)\n",
			start, total, r.config.BatchSize)
	} else {
		fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
			total, r.config.BatchSize)
	}

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()
	tracker.Resume(start)

	done := start
	err = r.iterator.ForEach(ctx, start, func(chunks []*core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return err
		}

		last := chunks[len(chunks)-1].Position
		if err := r.saveCheckpoint(ctx, last); err != nil {
			return err
		}

		done += len(chunks)
		result.Processed += len(chunks)
		tracker.Update(done)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracker.Finish()

	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, CheckpointType); err != nil {
			return nil, fmt.Errorf("clearing checkpoint: %w", err)
		}
	}

	result.Elapsed = tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		result.Processed, result.Elapsed.Round(time.Millisecond), float64(result.Processed)/result.Elapsed.Seconds())

	return result, nil
}

// resumePosition returns the first position still to be processed.
func (r *Reembedder) resumePosition(ctx context.Context) (int, error) {
	if r.checkpoints == nil {
		return 0, nil
	}

	cp, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointType)
	if err != nil {
		return 0, fmt.Errorf("loading checkpoint: %w", err)
	}
	if cp == nil {
		return 0, nil
	}
	if cp.EmbeddingModel != r.model {
		r.logger.Info("ignoring checkpoint for another model", "checkpoint_model", cp.EmbeddingModel, "model", r.model)
		return 0, nil
	}
	return cp.LastPosition + 1, nil
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, last int) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType:  CheckpointType,
		LastPosition:   last,
		EmbeddingModel: r.model,
		UpdatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}
