package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:11434: connection refused")

	tests := []struct {
		name         string
		failures     int
		maxAttempts  int
		wantAttempts int
		wantErr      error
	}{
		{"embedding server up", 0, 3, 1, nil},
		{"server restarting", 2, 3, 3, nil},
		{"server down", 10, 3, 3, refused},
		{"single attempt", 10, 1, 1, refused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := RetryWithBackoff(context.Background(), func() error {
				attempts++
				if attempts <= tt.failures {
					return refused
				}
				return nil
			}, tt.maxAttempts, time.Millisecond)

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, maxAttempts := range []int{0, -1} {
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			return nil
		}, maxAttempts, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Zero(t, attempts, "maxAttempts=%d", maxAttempts)
	}
}

func TestRetryWithBackoff_ContextErrorsAreFinal(t *testing.T) {
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(cause.Error(), func(t *testing.T) {
			attempts := 0
			err := RetryWithBackoff(context.Background(), func() error {
				attempts++
				return fmt.Errorf("embedding 16 chunks: %w", cause)
			}, 5, time.Millisecond)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetryWithBackoff_CanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	start := time.Now()
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		cancel()
		return errors.New("model loading")
	}, 3, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Minute, "the wait is abandoned on cancel")
}

func TestRetryWithBackoff_DelayDoubles(t *testing.T) {
	const base = 20 * time.Millisecond
	attempts := 0

	start := time.Now()
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 4 {
			return errors.New("model loading")
		}
		return nil
	}, 4, base)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	// waits of base, 2*base and 4*base
	assert.GreaterOrEqual(t, elapsed, 7*base)
}

func TestBatchProcessor_DeadlineIsNotRetried(t *testing.T) {
	repo, _ := setupTestDB(t)
	added := seedChunks(t, repo, 3)

	embedder := &mockEmbedder{
		embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("POST /v1/embeddings: %w", context.DeadlineExceeded)
		},
	}

	processor := NewBatchProcessor(repo, embedder, 5, time.Millisecond)
	err := processor.Process(context.Background(), added)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "chunks 0-2")
	assert.Equal(t, int32(1), embedder.calls.Load())

	for _, c := range added {
		stored, err := repo.GetChunk(context.Background(), c.Position)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, stored.Vector)
	}
}

func TestBatchProcessor_RecoveredBatchIsStoredOnce(t *testing.T) {
	repo, _ := setupTestDB(t)
	added := seedChunks(t, repo, 2)
	before, err := repo.GetChunk(context.Background(), 1)
	require.NoError(t, err)

	embedder := &mockEmbedder{}
	embedder.embedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if embedder.calls.Load() == 1 {
			return nil, errors.New("connection reset by peer")
		}
		assert.Equal(t, []string{"passage 0", "passage 1"}, texts, "the same batch is resent")
		return [][]float32{{0, 3, 4}, {0, 0, 2}}, nil
	}

	processor := NewBatchProcessor(repo, embedder, 3, time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), added))
	assert.Equal(t, int32(2), embedder.calls.Load())

	count, err := repo.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	after, err := repo.GetChunk(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, after.Vector)
	assert.Equal(t, before.Id, after.Id)
	assert.Equal(t, before.Content, after.Content)
}
