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

package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for embedding service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "all-minilm", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimension is the length of every vector the model returns.
	// Vectors of any other length are rejected.
	// Default: 384
	EmbeddingDimension int

	// APIToken is sent as the bearer token. Local servers ignore it.
	// Default: "none"
	APIToken string

	// RequestsPerSecond caps outgoing embedding requests. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above RequestsPerSecond.
	Burst int

	// BreakerMinRequests is the number of requests in a window before the
	// circuit breaker may trip.
	BreakerMinRequests uint32

	// BreakerFailureRatio trips the breaker once this share of requests fails.
	BreakerFailureRatio float64

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimension sets the expected vector length.
func WithEmbeddingDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimension = dim
	}
}

// WithAPIToken sets the bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithRateLimit caps outgoing requests per second with the given burst.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// WithBreaker configures the circuit breaker around embedding calls.
func WithBreaker(minRequests uint32, failureRatio float64, timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.BreakerMinRequests = minRequests
		c.BreakerFailureRatio = failureRatio
		c.BreakerTimeout = timeout
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible embedding server.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:       "http://localhost:11434/v1",
		EmbeddingModel:      "all-minilm",
		EmbeddingDimension:  384,
		APIToken:            "none",
		RequestsPerSecond:   0,
		Burst:               1,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerTimeout:      30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("http://localhost:11434"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	    WithEmbeddingDimension(1536),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.APIToken == "" {
		c.APIToken = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingDimension <= 0 {
		return errors.New("ai config: EmbeddingDimension must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond must not be negative")
	}
	if c.RequestsPerSecond > 0 && c.Burst < 1 {
		return errors.New("ai config: Burst must be at least 1 when rate limiting")
	}
	if c.BreakerFailureRatio < 0 || c.BreakerFailureRatio > 1 {
		return errors.New("ai config: BreakerFailureRatio must be between 0 and 1")
	}
	return nil
}
