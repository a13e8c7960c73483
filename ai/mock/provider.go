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

package mock

import (
	"sync/atomic"

	"github.com/poiesic/dailyrag/ai"
)

// MockProvider is a test double for ai.AIProvider that hands out a
// MockEmbedder and a MockCompleter and counts Close calls.
type MockProvider struct {
	embedder  *MockEmbedder
	completer *MockCompleter
	closed    atomic.Int32
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider returns a provider with default mock services: hash-based
// embeddings and an echoing completer. Assert the result to *MockProvider
// to reach the concrete services.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockCompleter())
}

// NewMockProviderWithServices returns a provider around the given services.
// A nil service is replaced by the default mock.
func NewMockProviderWithServices(embedder *MockEmbedder, completer *MockCompleter) ai.AIProvider {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	if completer == nil {
		completer = NewMockCompleter()
	}
	return &MockProvider{
		embedder:  embedder,
		completer: completer,
	}
}

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) Completer() ai.Completer {
	return p.completer
}

// Close records the call.
func (p *MockProvider) Close() error {
	p.closed.Add(1)
	return nil
}

// CloseCount reports how many times Close was called.
func (p *MockProvider) CloseCount() int {
	return int(p.closed.Load())
}

// GetMockEmbedder returns the embedder for call-count assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockCompleter returns the completer for prompt assertions.
func (p *MockProvider) GetMockCompleter() *MockCompleter {
	return p.completer
}
