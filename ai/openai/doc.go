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

// Package openai provides an ai.AIProvider backed by OpenAI-compatible APIs.
//
// The langchaingo client does the HTTP work; it talks to OpenAI or any
// compatible server (Ollama, LocalAI, vLLM). Each request first waits on a
// token-bucket limiter and then runs inside a circuit breaker, so a dead
// server fails fast with ErrCircuitOpen instead of stalling every document.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),  // /v1 added automatically
//	    ai.WithEmbeddingModel("all-minilm"),
//	    ai.WithEmbeddingDimension(384),
//	    ai.WithRateLimit(20, 4),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "sample text")
package openai
