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

package search

import "errors"

var (
	// ErrRepositoryRequired is returned when a chunk repository is not provided.
	ErrRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidMaxHits is returned when fewer than one hit is requested.
	ErrInvalidMaxHits = errors.New("max hits must be at least 1")

	// ErrInvalidThreshold is returned for a similarity threshold above 1.
	ErrInvalidThreshold = errors.New("similarity threshold above 1")

	// ErrEmptyEmbedding is returned when the query embeds to an empty vector.
	ErrEmptyEmbedding = errors.New("empty query embedding")
)
