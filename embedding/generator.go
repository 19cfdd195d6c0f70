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

package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docseek/ai"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/storage"
)

// Config holds tuning for embedding generation.
type Config struct {
	// BatchSize is the number of cache misses sent per EmbedTexts call.
	BatchSize int

	// ReportInterval is how often to report progress (number of documents).
	ReportInterval int

	// MaxAttempts is the number of tries per embed call.
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// EmbedTimeout bounds each embed call. Zero disables the bound.
	EmbedTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      32,
		ReportInterval: 10,
		MaxAttempts:    2,
		RetryDelay:     250 * time.Millisecond,
		EmbedTimeout:   30 * time.Second,
	}
}

// Failure records why one document could not be embedded.
type Failure struct {
	DocID string
	Err   error
}

// Report summarizes a generation run.
type Report struct {
	// Vectors is index-aligned with the input documents. Entries for failed
	// documents are nil.
	Vectors  [][]float32
	Hits     int
	Misses   int
	Failures []Failure
	Elapsed  time.Duration
}

// Failed reports whether any document could not be embedded.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Generator produces one embedding per document, reusing cached vectors
// whose content hash and dimension still match.
type Generator struct {
	cache    storage.EmbeddingCache
	embedder ai.Embedder
	config   *Config
	pool     *ants.Pool
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithConfig replaces the tuning parameters. Zero fields keep their defaults.
func WithConfig(cfg *Config) Option {
	return func(g *Generator) error {
		if cfg == nil {
			return nil
		}
		def := DefaultConfig()
		merged := *cfg
		if merged.BatchSize < 1 {
			merged.BatchSize = def.BatchSize
		}
		if merged.ReportInterval < 1 {
			merged.ReportInterval = def.ReportInterval
		}
		if merged.MaxAttempts < 1 {
			merged.MaxAttempts = def.MaxAttempts
		}
		if merged.RetryDelay < 0 {
			merged.RetryDelay = def.RetryDelay
		}
		if merged.EmbedTimeout < 0 {
			merged.EmbedTimeout = 0
		}
		g.config = &merged
		return nil
	}
}

// WithPoolSize sets the number of concurrent embedding workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(g *Generator) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if g.pool != nil {
			g.pool.Release()
		}
		g.pool = pool
		return nil
	}
}

// WithProgress writes progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(g *Generator) error {
		g.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGenerator creates a generator. Call Release when done to stop the pool.
func NewGenerator(cache storage.EmbeddingCache, embedder ai.Embedder, opts ...Option) (*Generator, error) {
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		cache:    cache,
		embedder: embedder,
		config:   DefaultConfig(),
		pool:     pool,
		logger:   slog.Default().With("component", "embedding"),
	}
	for _, opt := range opts {
		if optErr := opt(g); optErr != nil {
			g.Release()
			return nil, optErr
		}
	}
	return g, nil
}

// Release stops the worker pool.
func (g *Generator) Release() {
	if g.pool != nil {
		g.pool.Release()
	}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return *g.config
}

// Generate returns one vector per document. Unless force is set, cached
// vectors are reused; everything else is embedded from the lowercased
// content and written back to the cache as soon as it is available.
//
// A per-document embed failure does not stop the run. If any document
// failed, the report lists it and the returned error has kind
// EmbeddingFailure. A storage error or cancellation stops the run early;
// vectors written before that point stay cached.
func (g *Generator) Generate(ctx context.Context, docs []core.Document, force bool) (*Report, error) {
	start := time.Now()
	dim := g.embedder.Dimension()
	report := &Report{Vectors: make([][]float32, len(docs))}

	var misses []int
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("generate embeddings: %w", err)
		}
		if !force {
			vec, ok, err := g.cache.Get(ctx, docs[i].ID, docs[i].Content, dim)
			if err != nil {
				return report, err
			}
			if ok {
				report.Vectors[i] = vec
				report.Hits++
				continue
			}
		}
		misses = append(misses, i)
	}
	report.Misses = len(misses)
	g.logger.Info("embedding cache lookup complete", "count", len(docs), "hits", report.Hits, "misses", report.Misses)

	if len(misses) > 0 {
		if err := g.embedMisses(ctx, docs, misses, dim, report); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}
	}
	report.Elapsed = time.Since(start)

	if report.Failed() {
		first := report.Failures[0]
		return report, core.EmbeddingFailure("generate embeddings", first.DocID,
			fmt.Errorf("%d of %d documents failed: %w", len(report.Failures), len(docs), first.Err))
	}
	g.logger.Info("embeddings ready", "count", len(docs), "hits", report.Hits, "misses", report.Misses,
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// embedMisses fans the missing documents out to the pool in batches.
func (g *Generator) embedMisses(ctx context.Context, docs []core.Document, misses []int, dim int, report *Report) error {
	tracker := NewProgressTracker(g.progress, len(misses), g.config.ReportInterval)
	tracker.Start()
	defer tracker.Finish()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)
	recordFailure := func(docID string, err error) {
		mu.Lock()
		report.Failures = append(report.Failures, Failure{DocID: docID, Err: err})
		mu.Unlock()
	}

	for start := 0; start < len(misses); start += g.config.BatchSize {
		if ctx.Err() != nil {
			break
		}
		mu.Lock()
		stop := fatalErr != nil
		mu.Unlock()
		if stop {
			break
		}

		batch := misses[start:min(start+g.config.BatchSize, len(misses))]
		task := func() {
			defer wg.Done()
			vectors, errs := g.embedBatch(ctx, docs, batch, dim)
			for j, i := range batch {
				doc := &docs[i]
				if errs[j] != nil {
					if ctx.Err() == nil {
						g.logger.Warn("failed to embed document", "doc_id", doc.ID, "err", errs[j])
					}
					recordFailure(doc.ID, errs[j])
					continue
				}
				if err := g.cache.Put(ctx, doc.ID, doc.Content, vectors[j]); err != nil {
					mu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					mu.Unlock()
					return
				}
				mu.Lock()
				report.Vectors[i] = vectors[j]
				mu.Unlock()
				tracker.Increment(1)
			}
		}

		wg.Add(1)
		if err := g.pool.Submit(task); err != nil {
			g.logger.Debug("pool unavailable, embedding inline", "err", err)
			task()
		}
	}
	wg.Wait()

	if fatalErr != nil {
		return fatalErr
	}
	if err := ctx.Err(); err != nil {
		g.logger.Info("embedding generation cancelled", "completed", tracker.Current(), "pending", len(misses)-tracker.Current())
		return fmt.Errorf("generate embeddings: %w", err)
	}
	return nil
}

// embedBatch embeds the documents at positions batch. It tries one batched
// call first and falls back to per-document calls if that fails, so one bad
// document cannot fail its neighbours. The returned slices are aligned with batch.
func (g *Generator) embedBatch(ctx context.Context, docs []core.Document, batch []int, dim int) ([][]float32, []error) {
	vectors := make([][]float32, len(batch))
	errs := make([]error, len(batch))

	if len(batch) > 1 {
		texts := make([]string, len(batch))
		for j, i := range batch {
			texts[j] = strings.ToLower(docs[i].Content)
		}

		var out [][]float32
		err := RetryWithBackoff(ctx, func() error {
			callCtx, cancel := g.callContext(ctx)
			defer cancel()
			var err error
			out, err = g.embedder.EmbedTexts(callCtx, texts)
			if err == nil && len(out) != len(texts) {
				err = fmt.Errorf("%w: expected %d, received %d", ErrCountMismatch, len(texts), len(out))
			}
			return retryable(err)
		}, g.config.MaxAttempts, g.config.RetryDelay)
		if err == nil {
			for j, i := range batch {
				vectors[j], errs[j] = checkVector(docs[i].ID, out[j], dim)
			}
			return vectors, errs
		}
		if ctx.Err() != nil {
			for j, i := range batch {
				errs[j] = core.EmbeddingFailure("embed", docs[i].ID, ctx.Err())
			}
			return vectors, errs
		}
		if errors.Is(err, ai.ErrUnavailable) {
			for j, i := range batch {
				errs[j] = core.EmbeddingFailure("embed", docs[i].ID, err)
			}
			return vectors, errs
		}
		g.logger.Warn("batch embedding failed, retrying documents individually", "count", len(batch), "err", err)
	}

	for j, i := range batch {
		vectors[j], errs[j] = g.embedOne(ctx, &docs[i], dim)
	}
	return vectors, errs
}

func (g *Generator) embedOne(ctx context.Context, doc *core.Document, dim int) ([]float32, error) {
	text := strings.ToLower(doc.Content)
	var vec []float32
	err := RetryWithBackoff(ctx, func() error {
		callCtx, cancel := g.callContext(ctx)
		defer cancel()
		var err error
		vec, err = g.embedder.EmbedText(callCtx, text)
		return retryable(err)
	}, g.config.MaxAttempts, g.config.RetryDelay)
	if err != nil {
		return nil, core.EmbeddingFailure("embed", doc.ID, err)
	}
	return checkVector(doc.ID, vec, dim)
}

func (g *Generator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.EmbedTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.config.EmbedTimeout)
}

func checkVector(docID string, vec []float32, dim int) ([]float32, error) {
	if err := core.ValidateVector(vec, dim); err != nil {
		return nil, &core.Error{Kind: core.KindValidation, Op: "embed", DocID: docID, Err: err}
	}
	return vec, nil
}

// IsTimeout reports whether a failure was caused by the per-call timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
