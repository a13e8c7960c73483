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

// Package storage provides the storage abstraction layer for dailyrag.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Each day's index lives in its own store; the cache
// package decides where that store is on disk.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	repo, err := badger.NewRepository(path)  // returns storage.ChunkRepository
//
// Constructors that share a Backend between repositories (NewChunkRepository,
// NewCheckpointRepository) return concrete types.
//
// # Architecture
//
//   - Repository: similarity search, transactions and lifecycle
//   - ChunkRepository: operations for article chunks
//   - CheckpointRepository: progress markers for resumable jobs
//
// # Usage
//
//	repo, err := badger.NewRepository("/path/to/db/05.08.25/store")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
