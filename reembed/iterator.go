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

	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/storage"
)

const (
	// DefaultBatchSize is the default number of chunks fetched per page
	DefaultBatchSize = 32
)

// ChunkIterator pages through stored chunks in article order.
type ChunkIterator struct {
	repo      storage.ChunkRepository
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per page; values <= 0 use DefaultBatchSize
func NewChunkIterator(repo storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each page of chunks whose position is at least
// start. Iteration stops on the first error from fn. Context cancellation
// is checked before every page.
func (it *ChunkIterator) ForEach(ctx context.Context, start int, fn func([]*core.Chunk) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.repo.GetChunks(ctx, start, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}

		if len(page) < it.batchSize {
			return nil
		}
		start = page[len(page)-1].Position + 1
	}
}
