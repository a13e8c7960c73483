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

// Package ai provides abstractions for the model services dailyrag talks to.
//
// Two services are needed:
//
//   - Embedder: turns article chunks and questions into vectors
//   - Completer: answers a prompt with a chat model
//
// AIProvider bundles both so they share one configuration.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (Ollama by default) via langchaingo
//   - ai/mock: test doubles that need no running model server
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and count calls.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost(os.Getenv("OLLAMA_HOST")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "What is the topic?")
//	reply, err := provider.Completer().Complete(ctx, prompt)
package ai
