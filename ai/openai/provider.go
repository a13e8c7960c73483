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

package openai

import (
	"log/slog"
	"sync"

	"github.com/poiesic/dailyrag/ai"
)

// Provider bundles the embedding and chat clients for one Ollama (or other
// OpenAI-compatible) deployment. The two services may live on different
// hosts.
type Provider struct {
	embedder  *Embedder
	completer *Completer
	logger    *slog.Logger
	closeOnce sync.Once
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates and normalizes config, then creates both clients.
// No request is made until the first embedding or completion.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("AI services configured",
		"embedding_host", config.EmbeddingHost, "embedding_model", config.EmbeddingModel,
		"chat_host", config.ChatHost, "chat_model", config.ChatModel)

	return &Provider{
		embedder:  embedder,
		completer: completer,
		logger:    logger,
	}, nil
}

// Embedder returns the embedding client.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the chat client.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// Close is idempotent. The HTTP clients hold no resources of their own.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Debug("closing AI provider")
	})
	return nil
}
