package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "05.08.25", "store")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
	assert.DirExists(t, dir)
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0o644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestFindSimilar_NoChunks(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	results, err := backend.FindSimilar(context.Background(), []float32{0.1, 0.2, 0.3}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_InvalidLimit(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.FindSimilar(context.Background(), []float32{1}, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFindSimilar_WithChunks(t *testing.T) {
	chunkRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	chunks := []*core.Chunk{
		{Position: 0, Content: "First passage", Vector: []float32{1.0, 0.0, 0.0}},
		{Position: 1, Content: "Second passage", Vector: []float32{0.9, 0.1, 0.0}},
		{Position: 2, Content: "Third passage", Vector: []float32{0.0, 0.0, 1.0}},
		{Position: 3, Content: "Passage without vector"},
	}

	added, err := chunkRepo.AddChunks(ctx, chunks...)
	require.NoError(t, err)
	require.Len(t, added, 4)

	results, err := backend.FindSimilar(ctx, []float32{1.0, 0.0, 0.0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i := 0; i < len(results)-1; i++ {
		assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
	}

	assert.Equal(t, "First passage", results[0].Chunk.Content)
	assert.Greater(t, results[0].Score, float32(0.8))
}

func TestFindSimilar_RankedOrder(t *testing.T) {
	chunkRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	// Stored in article order C, A, B; ranked order must be A, B, C
	_, err = chunkRepo.AddChunks(ctx,
		&core.Chunk{Position: 0, Content: "C", Vector: core.NormalizeVector([]float32{0.1, 1})},
		&core.Chunk{Position: 1, Content: "A", Vector: []float32{1, 0}},
		&core.Chunk{Position: 2, Content: "B", Vector: core.NormalizeVector([]float32{1, 0.5})},
	)
	require.NoError(t, err)

	results, err := chunkRepo.FindSimilar(ctx, []float32{1, 0}, -1, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].Chunk.Content)
	assert.Equal(t, "B", results[1].Chunk.Content)
	assert.Equal(t, "C", results[2].Chunk.Content)
}

func TestFindSimilar_TiesKeepArticleOrder(t *testing.T) {
	chunkRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := chunkRepo.AddChunks(ctx, &core.Chunk{
			Position: i,
			Content:  fmt.Sprintf("passage %d", i),
			Vector:   []float32{1, 0},
		})
		require.NoError(t, err)
	}

	results, err := backend.FindSimilar(ctx, []float32{1, 0}, 0, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r.Chunk.Position)
	}
}

func TestFindSimilar_ThresholdFiltering(t *testing.T) {
	chunkRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	_, err = chunkRepo.AddChunks(ctx,
		&core.Chunk{Position: 0, Content: "High similarity", Vector: []float32{1.0, 0.0, 0.0}},
		&core.Chunk{Position: 1, Content: "Medium similarity", Vector: []float32{0.7, 0.3, 0.0}},
		&core.Chunk{Position: 2, Content: "Low similarity", Vector: []float32{0.3, 0.7, 0.0}},
	)
	require.NoError(t, err)

	queryVector := []float32{1.0, 0.0, 0.0}

	t.Run("high threshold", func(t *testing.T) {
		results, err := backend.FindSimilar(ctx, queryVector, 0.95, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("medium threshold", func(t *testing.T) {
		results, err := backend.FindSimilar(ctx, queryVector, 0.6, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("low threshold", func(t *testing.T) {
		results, err := backend.FindSimilar(ctx, queryVector, 0.2, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})
}

func TestFindSimilar_LimitResults(t *testing.T) {
	chunkRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	chunks := make([]*core.Chunk, 10)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			Position: i,
			Content:  "Passage",
			Vector:   []float32{0.9, 0.1, 0.0},
		}
	}
	_, err = chunkRepo.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	queryVector := []float32{1.0, 0.0, 0.0}

	t.Run("limit to 2", func(t *testing.T) {
		results, err := backend.FindSimilar(ctx, queryVector, 0.5, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("limit higher than results", func(t *testing.T) {
		results, err := backend.FindSimilar(ctx, queryVector, 0.5, 100)
		require.NoError(t, err)
		assert.Len(t, results, 10)
	})
}

func TestFindSimilar_CancelledContext(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.AddChunks(context.Background(), &core.Chunk{Position: 0, Content: "x", Vector: []float32{1}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.FindSimilar(ctx, []float32{1}, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTransaction(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("successful transaction", func(t *testing.T) {
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed transaction", func(t *testing.T) {
		testErr := assert.AnError
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return testErr
		})
		assert.Equal(t, testErr, err)
	})
}
