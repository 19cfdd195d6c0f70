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

// Package ai provides the embedding model abstraction used by docseek.
//
// The search engine never talks to a model directly. It depends on the
// Embedder interface, which maps text to fixed-dimension vectors, and on
// AIProvider, which owns the embedder's lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible HTTP APIs through langchaingo, with
//     rate limiting and a circuit breaker
//   - ai/mock: a deterministic, dependency-free embedder for tests and
//     offline runs
//
// # Constructor Return Type Pattern
//
// Public production constructors return INTERFACE types:
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors return CONCRETE types so tests can inject
// behaviour and read call counts:
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.EmbedTextFunc = ...
//	count := mockEmbed.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("all-minilm"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "machine learning")
package ai
