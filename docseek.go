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

// Package docseek wires an embedding cache, an embedding provider and a
// search engine together.
package docseek

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docseek/ai"
	"github.com/poiesic/docseek/ai/mock"
	"github.com/poiesic/docseek/ai/openai"
	"github.com/poiesic/docseek/config"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/index"
	_ "github.com/poiesic/docseek/index/flat"
	"github.com/poiesic/docseek/search"
	"github.com/poiesic/docseek/storage"
	"github.com/poiesic/docseek/storage/badger"
	"github.com/poiesic/docseek/storage/sqlite"
)

// Library owns the embedding cache and provider shared by the engines it creates.
type Library struct {
	backend  *badger.Backend
	cache    storage.EmbeddingCache
	provider ai.AIProvider
	base     *slog.Logger
	logger   *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	aiConfig *ai.Config
	backend  string
	inMemory bool
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithAIConfig sets the configuration for the default OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) LibraryOption {
	return func(o *libraryOptions) {
		o.aiConfig = cfg
	}
}

// WithBackend selects the cache backend: config.BackendBadger (default) or config.BackendSQLite.
func WithBackend(name string) LibraryOption {
	return func(o *libraryOptions) {
		o.backend = name
	}
}

// WithInMemory keeps the cache in memory. The path passed to Open is ignored.
func WithInMemory() LibraryOption {
	return func(o *libraryOptions) {
		o.inMemory = true
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Library takes ownership and closes it.
func WithProvider(provider ai.AIProvider) LibraryOption {
	return func(o *libraryOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(o *libraryOptions) {
		o.logger = logger
	}
}

// Open opens the embedding cache at path and creates the embedding provider.
func Open(ctx context.Context, path string, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{
		aiConfig: ai.DefaultConfig(),
		backend:  config.BackendBadger,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	lib := &Library{base: options.logger, logger: options.logger.With("component", "docseek")}

	switch options.backend {
	case config.BackendBadger:
		backend, err := badger.OpenBackend(path, options.inMemory)
		if err != nil {
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		cache, err := badger.NewCache(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		lib.backend = backend
		lib.cache = cache
	case config.BackendSQLite:
		dsn := path
		if options.inMemory {
			dsn = ":memory:"
		} else if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		cache, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		lib.cache = cache
	default:
		return nil, fmt.Errorf("unknown cache backend %q", options.backend)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			lib.closeStorage()
			return nil, err
		}
	}
	lib.provider = provider

	lib.logger.Debug("library opened", "backend", options.backend, "in_memory", options.inMemory)
	return lib, nil
}

// OpenConfig opens a Library described by cfg. The mock provider embeds
// with feature hashing and needs no server.
func OpenConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Library, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []LibraryOption{
		WithBackend(cfg.Storage.Backend),
		WithAIConfig(cfg.AIConfig()),
		WithLogger(logger),
	}
	if cfg.Storage.InMemory {
		opts = append(opts, WithInMemory())
	}
	if cfg.Embedder.Provider == config.ProviderMock {
		opts = append(opts, WithProvider(mock.NewMockProviderWithEmbedder(
			mock.NewMockEmbedderWithDimension(cfg.Embedder.Dimension))))
	}
	return Open(ctx, cfg.Storage.ResolvedPath(), opts...)
}

// EngineOptions translates cfg into search engine options.
func EngineOptions(cfg *config.Config) []search.Option {
	genOpts := []embedding.Option{embedding.WithConfig(cfg.GeneratorConfig())}
	if cfg.Generation.Workers > 0 {
		genOpts = append(genOpts, embedding.WithPoolSize(cfg.Generation.Workers))
	}
	return []search.Option{
		search.WithIndexStrategy(cfg.Index.Strategy),
		search.WithIndexOptions(index.WithWorkers(cfg.Index.Workers)),
		search.WithGeneratorOptions(genOpts...),
		search.WithMaxTopK(cfg.Search.MaxTopK),
	}
}

// Cache returns the embedding cache.
func (l *Library) Cache() storage.EmbeddingCache {
	return l.cache
}

// Provider returns the embedding provider.
func (l *Library) Provider() ai.AIProvider {
	return l.provider
}

// NewEngine creates a search engine over the library's cache and embedder.
// The engine must be closed before the library.
func (l *Library) NewEngine(opts ...search.Option) (*search.Engine, error) {
	opts = append([]search.Option{search.WithLogger(l.base)}, opts...)
	return search.NewEngine(l.cache, l.provider.Embedder(), opts...)
}

// Close releases the provider and the cache.
func (l *Library) Close() error {
	var errs []error
	if err := l.provider.Close(); err != nil {
		l.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := l.closeStorage(); err != nil {
		l.logger.Error("error closing embedding cache", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (l *Library) closeStorage() error {
	if err := l.cache.Close(); err != nil {
		return err
	}
	if l.backend != nil {
		return l.backend.Close()
	}
	return nil
}
