package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/dailyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "nomic-embed-text"

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
}

func TestNewReembedder_ModelRequired(t *testing.T) {
	repo, checkpoints := setupTestDB(t)

	_, err := NewReembedder(repo, checkpoints, &mockEmbedder{}, "", nil, nil)
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestReembedder_Run(t *testing.T) {
	repo, checkpoints := setupTestDB(t)
	ctx := context.Background()
	seedChunks(t, repo, 10)

	var buf bytes.Buffer
	embedder := &mockEmbedder{}
	reembedder, err := NewReembedder(repo, checkpoints, embedder, testModel, testConfig(), &buf)
	require.NoError(t, err)

	result, err := reembedder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 10, result.Processed)
	assert.False(t, result.Resumed)
	assert.Equal(t, int32(4), embedder.calls.Load(), "10 chunks in batches of 3")

	updated, err := repo.GetChunks(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, updated, 10)
	for _, chunk := range updated {
		assert.InDelta(t, 1.0/3.0, chunk.Vector[0], 0.001, "chunk %d should be re-embedded", chunk.Position)
		assert.InDelta(t, 1.0, magnitude(chunk.Vector), 0.01, "vector should be normalized")
	}

	cp, err := checkpoints.LoadCheckpoint(ctx, CheckpointType)
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoint is removed after a complete run")

	output := buf.String()
	assert.Contains(t, output, "Starting reembedding of 10 chunks")
	assert.Contains(t, output, "10/10", "should show completion")
	assert.Contains(t, output, "Reembedding complete. Processed 10 chunks")
}

func TestReembedder_EmptyIndex(t *testing.T) {
	repo, checkpoints := setupTestDB(t)

	var buf bytes.Buffer
	embedder := &mockEmbedder{}
	reembedder, err := NewReembedder(repo, checkpoints, embedder, testModel, testConfig(), &buf)
	require.NoError(t, err)

	result, err := reembedder.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Zero(t, embedder.calls.Load())
	assert.Contains(t, buf.String(), "0 chunks")
}

func TestReembedder_ResumesFromCheckpoint(t *testing.T) {
	repo, checkpoints := setupTestDB(t)
	ctx := context.Background()
	seedChunks(t, repo, 10)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType:  CheckpointType,
		LastPosition:   5,
		EmbeddingModel: testModel,
		UpdatedAt:      time.Now(),
	}))

	var seen []string
	embedder := &mockEmbedder{
		embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			seen = append(seen, texts...)
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{0, 3, 4}
			}
			return out, nil
		},
	}

	var buf bytes.Buffer
	reembedder, err := NewReembedder(repo, checkpoints, embedder, testModel, testConfig(), &buf)
	require.NoError(t, err)

	result, err := reembedder.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, []string{"passage 6", "passage 7", "passage 8", "passage 9"}, seen)
	assert.Contains(t, buf.String(), "Resuming reembedding at chunk 6 of 10")

	first, err := repo.GetChunk(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, first.Vector, "chunks before the checkpoint are skipped")

	last, err := repo.GetChunk(ctx, 9)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, last.Vector[1], 0.001)

	cp, err := checkpoints.LoadCheckpoint(ctx, CheckpointType)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestReembedder_IgnoresCheckpointForOtherModel(t *testing.T) {
	repo, checkpoints := setupTestDB(t)
	ctx := context.Background()
	seedChunks(t, repo, 5)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType:  CheckpointType,
		LastPosition:   3,
		EmbeddingModel: "some-other-model",
	}))

	reembedder, err := NewReembedder(repo, checkpoints, &mockEmbedder{}, testModel, testConfig(), nil)
	require.NoError(t, err)

	result, err := reembedder.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Resumed)
	assert.Equal(t, 5, result.Processed)
}

func TestReembedder_WithoutCheckpoints(t *testing.T) {
	repo, _ := setupTestDB(t)
	seedChunks(t, repo, 4)

	reembedder, err := NewReembedder(repo, nil, &mockEmbedder{}, testModel, nil, nil)
	require.NoError(t, err)

	result, err := reembedder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Processed)
}

func TestReembedder_EmbeddingErrorKeepsCheckpoint(t *testing.T) {
	repo, checkpoints := setupTestDB(t)
	ctx := context.Background()
	seedChunks(t, repo, 9)

	embedder := &mockEmbedder{}
	embedder.embedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if texts[0] == "passage 3" {
			return nil, errors.New("model unavailable")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 2, 2}
		}
		return out, nil
	}

	cfg := testConfig()
	cfg.MaxRetries = 2
	reembedder, err := NewReembedder(repo, checkpoints, embedder, testModel, cfg, nil)
	require.NoError(t, err)

	_, err = reembedder.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")

	cp, err := checkpoints.LoadCheckpoint(ctx, CheckpointType)
	require.NoError(t, err)
	require.NotNil(t, cp, "progress up to the failure is kept")
	assert.Equal(t, 2, cp.LastPosition)
	assert.Equal(t, testModel, cp.EmbeddingModel)

	// a second run picks up where the first stopped
	embedder.embedTextsFunc = nil
	result, err := reembedder.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, 6, result.Processed)
}

func TestReembedder_ContextCancellation(t *testing.T) {
	repo, checkpoints := setupTestDB(t)
	seedChunks(t, repo, 9)

	ctx, cancel := context.WithCancel(context.Background())
	embedder := &mockEmbedder{}
	embedder.embedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		cancel()
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 2, 2}
		}
		return out, nil
	}

	reembedder, err := NewReembedder(repo, checkpoints, embedder, testModel, testConfig(), nil)
	require.NoError(t, err)

	_, err = reembedder.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), embedder.calls.Load(), "no batches after cancellation")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultBatchSize, config.BatchSize)
	assert.Equal(t, 50, config.ReportInterval)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1*time.Second, config.RetryDelay)
}
