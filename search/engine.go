package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docseek/ai"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/index"
	"github.com/poiesic/docseek/keyword"
	"github.com/poiesic/docseek/source"
	"github.com/poiesic/docseek/storage"
)

// DefaultMaxTopK is the largest top_k a query may ask for.
const DefaultMaxTopK = 50

// State is the engine lifecycle stage.
type State int

const (
	StateEmpty State = iota
	StateDocumentsLoaded
	StateEmbeddingsReady
	StateIndexBuilt
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDocumentsLoaded:
		return "documents_loaded"
	case StateEmbeddingsReady:
		return "embeddings_ready"
	case StateIndexBuilt:
		return "index_built"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EngineStats describes the engine at a point in time.
type EngineStats struct {
	DocumentCount   int
	EmbeddingsReady bool
	Dimension       int
	IndexStrategy   string
	IndexFallback   bool
	IndexedCount    int
	State           State
	Cache           core.CacheStats
}

// snapshot is the immutable pairing of documents and the index built from
// them. Searches hold one for their whole duration.
type snapshot struct {
	docs     []core.Document
	keywords []keyword.Set
	index    index.Index
}

// Engine loads documents, keeps their embeddings in sync with the cache,
// builds an exact vector index and answers ranked queries.
//
// Build operations (LoadDocuments, GenerateEmbeddings, BuildIndex,
// Initialize) are serialized. Searches run concurrently with each other and
// with builds; they always see the last index that was fully built.
type Engine struct {
	cache     storage.EmbeddingCache
	embedder  ai.Embedder
	generator *embedding.Generator
	genOpts   []embedding.Option
	strategy  string
	indexOpts []index.Option
	maxTopK   int
	monitor   Monitor
	logger    *slog.Logger

	buildMu sync.Mutex

	mu        sync.RWMutex
	state     State
	docs      []core.Document
	byID      map[string]int
	matrix    [][]float32
	snap      *snapshot
	selection index.Selection
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithIndexStrategy selects the index strategy by registered name.
// Default is index.StrategyFlat when registered, with brute force as fallback.
func WithIndexStrategy(name string) Option {
	return func(e *Engine) error {
		e.strategy = name
		return nil
	}
}

// WithIndexOptions passes options to the index strategy.
func WithIndexOptions(opts ...index.Option) Option {
	return func(e *Engine) error {
		e.indexOpts = append(e.indexOpts, opts...)
		return nil
	}
}

// WithGeneratorOptions passes options to the embedding generator.
func WithGeneratorOptions(opts ...embedding.Option) Option {
	return func(e *Engine) error {
		e.genOpts = append(e.genOpts, opts...)
		return nil
	}
}

// WithMaxTopK sets the largest accepted top_k.
func WithMaxTopK(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("max top_k must be positive: %d", n)
		}
		e.maxTopK = n
		return nil
	}
}

// WithMonitor attaches a monitor that observes every build and search.
func WithMonitor(m Monitor) Option {
	return func(e *Engine) error {
		if m == nil {
			m = &noopMonitor{}
		}
		e.monitor = m
		return nil
	}
}

// NewEngine creates an engine in StateEmpty. The cache is owned by the caller.
func NewEngine(cache storage.EmbeddingCache, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		cache:    cache,
		embedder: embedder,
		strategy: index.StrategyFlat,
		maxTopK:  DefaultMaxTopK,
		monitor:  &noopMonitor{},
		logger:   slog.Default(),
		state:    StateEmpty,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "search")

	genOpts := append([]embedding.Option{embedding.WithLogger(e.logger)}, e.genOpts...)
	gen, err := embedding.NewGenerator(cache, embedder, genOpts...)
	if err != nil {
		return nil, err
	}
	e.generator = gen
	return e, nil
}

// State returns the current lifecycle stage.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Selection reports which index strategy the last build used.
func (e *Engine) Selection() index.Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selection
}

// LoadDocuments validates and installs a document set, discarding any
// embeddings computed for the previous set. A previously built index keeps
// serving searches until the next BuildIndex.
func (e *Engine) LoadDocuments(docs []core.Document) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	return e.loadDocuments(docs)
}

func (e *Engine) loadDocuments(docs []core.Document) error {
	if err := core.ValidateDocuments(docs); err != nil {
		return core.Validation("load documents", err)
	}

	owned := make([]core.Document, len(docs))
	copy(owned, docs)
	byID := make(map[string]int, len(owned))
	for i := range owned {
		byID[owned[i].ID] = i
	}

	e.mu.Lock()
	e.docs = owned
	e.byID = byID
	e.matrix = nil
	e.state = StateDocumentsLoaded
	e.mu.Unlock()

	e.logger.Info("documents loaded", "count", len(owned))
	return nil
}

// GenerateEmbeddings computes one embedding per loaded document, reusing
// valid cache entries unless forceRegenerate is set. On failure the state
// and the current matrix are left unchanged; vectors already written to the
// cache are kept for the next attempt.
func (e *Engine) GenerateEmbeddings(ctx context.Context, forceRegenerate bool) (*embedding.Report, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	return e.generateEmbeddings(ctx, forceRegenerate)
}

func (e *Engine) generateEmbeddings(ctx context.Context, force bool) (*embedding.Report, error) {
	e.mu.RLock()
	state, docs := e.state, e.docs
	e.mu.RUnlock()

	if state < StateDocumentsLoaded {
		return nil, core.NotReady("generate embeddings", "no documents loaded")
	}

	report, err := e.generator.Generate(ctx, docs, force)
	e.monitor.GenerationFinished(report, err)
	if err != nil {
		return report, err
	}

	e.mu.Lock()
	e.matrix = report.Vectors
	e.state = StateEmbeddingsReady
	e.mu.Unlock()
	return report, nil
}

// BuildIndex builds a fresh index from the embedding matrix and publishes it
// atomically. In-flight searches finish on the index they started with.
func (e *Engine) BuildIndex() error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	return e.buildIndex()
}

func (e *Engine) buildIndex() error {
	e.mu.RLock()
	state, docs, matrix := e.state, e.docs, e.matrix
	e.mu.RUnlock()

	if state < StateEmbeddingsReady {
		return core.NotReady("build index", "embeddings not generated")
	}

	start := time.Now()
	idx, sel := index.New(e.strategy, e.logger, e.indexOpts...)
	if err := idx.Build(matrix); err != nil {
		idx.Close()
		return fmt.Errorf("build index: %w", err)
	}
	keywords := make([]keyword.Set, len(docs))
	for i := range docs {
		keywords[i] = keyword.Extract(docs[i].Content)
	}
	next := &snapshot{docs: docs, keywords: keywords, index: idx}

	e.mu.Lock()
	prev := e.snap
	e.snap = next
	e.selection = sel
	e.state = StateIndexBuilt
	e.mu.Unlock()

	if prev != nil {
		// Searches still holding prev keep working: brute force has nothing
		// to release and flat scans inline once its pool is gone.
		prev.index.Close()
	}

	elapsed := time.Since(start)
	e.monitor.IndexBuilt(sel, idx.Len(), elapsed)
	e.logger.Info("index built", "strategy", sel.Active, "fallback", sel.Fallback,
		"count", idx.Len(), "dimension", idx.Dimension(), "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

// Initialize loads docs, generates embeddings and builds the index as one
// exclusive operation.
func (e *Engine) Initialize(ctx context.Context, docs []core.Document, forceRegenerate bool) (*embedding.Report, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if err := e.loadDocuments(docs); err != nil {
		return nil, err
	}
	report, err := e.generateEmbeddings(ctx, forceRegenerate)
	if err != nil {
		return report, err
	}
	return report, e.buildIndex()
}

// Search returns up to topK documents ranked by similarity to query.
// Search answers from the last built index. After LoadDocuments installs a
// new set, results still come from the previous set until BuildIndex runs.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]core.SearchResult, error) {
	return e.SearchWithMonitor(ctx, query, topK, nil)
}

// SearchWithMonitor is Search with an extra monitor for this call only.
// The engine's own monitor is still notified.
func (e *Engine) SearchWithMonitor(ctx context.Context, query string, topK int, monitor Monitor) (results []core.SearchResult, err error) {
	m := Monitors(e.monitor, monitor)
	start := time.Now()
	m.Start(query)
	defer func() {
		m.Finish(results, err, time.Since(start))
	}()

	if err := core.ValidateQuery(query); err != nil {
		return nil, core.Validation("search", err)
	}
	if err := core.ValidateTopK(topK, e.maxTopK); err != nil {
		return nil, core.Validation("search", err)
	}

	e.mu.RLock()
	snap := e.snap
	e.mu.RUnlock()
	if snap == nil {
		return nil, core.NotReady("search", "index not built")
	}

	queryVec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	m.AfterQueryEmbedding(time.Since(start))

	searchStart := time.Now()
	matches, err := snap.index.Search(index.Normalize(queryVec), topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	m.AfterIndexSearch(len(matches), time.Since(searchStart))

	queryKeywords := keyword.Extract(query)
	results = make([]core.SearchResult, len(matches))
	for rank, match := range matches {
		doc := &snap.docs[match.Index]
		overlap := keyword.Compare(queryKeywords, snap.keywords[match.Index])
		results[rank] = core.SearchResult{
			Rank:            rank + 1,
			DocID:           doc.ID,
			Filename:        doc.Filename,
			Score:           match.Score,
			Preview:         source.Preview(doc.Content, source.PreviewLength),
			DocLength:       doc.Length,
			OverlapKeywords: overlap.Keywords,
			OverlapCount:    overlap.Count,
			OverlapRatio:    overlap.Ratio,
			Explanation:     Explain(match.Score, overlap, doc.Length),
		}
	}
	return results, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout := e.generator.Config().EmbedTimeout; timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	vec, err := e.embedder.EmbedText(callCtx, strings.ToLower(query))
	if err != nil {
		return nil, core.EmbeddingFailure("embed query", "", err)
	}
	if err := core.ValidateVector(vec, e.embedder.Dimension()); err != nil {
		return nil, core.EmbeddingFailure("embed query", "", err)
	}
	return vec, nil
}

// Stats summarizes documents, embeddings, the active index and the cache.
func (e *Engine) Stats(ctx context.Context) (EngineStats, error) {
	e.mu.RLock()
	stats := EngineStats{
		DocumentCount:   len(e.docs),
		EmbeddingsReady: e.state >= StateEmbeddingsReady,
		Dimension:       e.embedder.Dimension(),
		IndexStrategy:   e.selection.Active,
		IndexFallback:   e.selection.Fallback,
		State:           e.state,
	}
	if e.snap != nil {
		stats.IndexedCount = e.snap.index.Len()
	}
	e.mu.RUnlock()

	cacheStats, err := e.cache.Stats(ctx)
	if err != nil {
		return stats, err
	}
	stats.Cache = cacheStats
	return stats, nil
}

// Documents returns a copy of the loaded documents in load order.
func (e *Engine) Documents() []core.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]core.Document, len(e.docs))
	copy(out, e.docs)
	return out
}

// Document looks up a loaded document by ID.
func (e *Engine) Document(id string) (core.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.byID[id]
	if !ok {
		return core.Document{}, false
	}
	return e.docs[i], true
}

// Close releases the index and the worker pool. The cache is not closed.
func (e *Engine) Close() error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.mu.Lock()
	snap := e.snap
	e.snap = nil
	e.mu.Unlock()

	e.generator.Release()
	if snap != nil {
		return snap.index.Close()
	}
	return nil
}
