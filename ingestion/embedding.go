package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/core"
)

// batchEmbedder embeds chunk texts in fixed-size batches on a worker pool.
type batchEmbedder struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

// embed returns one unit vector per text, in the order of texts.
// The first failing batch cancels the remaining ones.
func (be *batchEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(texts); start += be.batchSize {
		end := min(start+be.batchSize, len(texts))

		wg.Add(1)
		submitErr := be.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}

			be.logger.Debug("embedding batch", "first", start, "last", end-1)
			batch, err := be.embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err))
				return
			}
			if len(batch) != end-start {
				fail(fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, end-start, len(batch)))
				return
			}
			for i, vec := range batch {
				if len(vec) == 0 {
					fail(fmt.Errorf("%w: chunk %d", ErrEmptyEmbedding, start+i))
					return
				}
				vectors[start+i] = core.NormalizeVector(vec)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}
