package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docseek/ai"
	"github.com/poiesic/docseek/ai/mock"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/storage"
	"github.com/poiesic/docseek/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs(n int) []core.Document {
	docs := make([]core.Document, n)
	for i := range docs {
		id := fmt.Sprintf("doc_%03d", i)
		docs[i] = core.Document{ID: id, Content: fmt.Sprintf("Document %d talks about topic%d", i, i)}
	}
	return docs
}

func newTestCache(t *testing.T) storage.EmbeddingCache {
	t.Helper()
	cache, backend, err := badger.NewMemoryCache()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return cache
}

func newTestGenerator(t *testing.T, cache storage.EmbeddingCache, embedder *mock.MockEmbedder, cfg *Config, opts ...Option) *Generator {
	t.Helper()
	if cfg == nil {
		cfg = &Config{RetryDelay: time.Millisecond}
	}
	opts = append([]Option{WithConfig(cfg)}, opts...)
	gen, err := NewGenerator(cache, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(gen.Release)
	return gen
}

func TestNewGenerator_RequiresDependencies(t *testing.T) {
	_, err := NewGenerator(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrCacheRequired)

	_, err = NewGenerator(newTestCache(t), nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestWithConfig_FillsDefaults(t *testing.T) {
	gen := newTestGenerator(t, newTestCache(t), mock.NewMockEmbedder(), &Config{BatchSize: 4, EmbedTimeout: -1})
	cfg := gen.Config()
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, 10, cfg.ReportInterval)
	assert.Zero(t, cfg.EmbedTimeout)
}

func TestGenerate_CachesAndReuses(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	embedder := mock.NewMockEmbedderWithDimension(32)
	gen := newTestGenerator(t, cache, embedder, &Config{BatchSize: 3, RetryDelay: time.Millisecond})
	docs := testDocs(7)

	first, err := gen.Generate(ctx, docs, false)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Hits)
	assert.Equal(t, 7, first.Misses)
	assert.Equal(t, 7, embedder.TextCount())
	require.Len(t, first.Vectors, 7)
	for i, v := range first.Vectors {
		assert.Len(t, v, 32, "vector %d", i)
	}

	embedder.Reset()
	second, err := gen.Generate(ctx, docs, false)
	require.NoError(t, err)
	assert.Equal(t, 7, second.Hits)
	assert.Equal(t, 0, second.Misses)
	assert.Zero(t, embedder.CallCount())
	assert.Equal(t, first.Vectors, second.Vectors)
}

func TestGenerate_EmbedsLowercasedContent(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimension(2)
	var seen []string
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		seen = append(seen, text)
		return []float32{1, 0}, nil
	}
	gen := newTestGenerator(t, newTestCache(t), embedder, nil)

	_, err := gen.Generate(context.Background(), []core.Document{{ID: "a", Content: "Hello World"}}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, seen)
}

func TestGenerate_ContentChangeIsMiss(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	gen := newTestGenerator(t, cache, mock.NewMockEmbedderWithDimension(16), nil)
	docs := testDocs(3)

	_, err := gen.Generate(ctx, docs, false)
	require.NoError(t, err)

	docs[1].Content = "something else entirely"
	report, err := gen.Generate(ctx, docs, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Hits)
	assert.Equal(t, 1, report.Misses)
}

func TestGenerate_Force(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedderWithDimension(16)
	gen := newTestGenerator(t, newTestCache(t), embedder, nil)
	docs := testDocs(4)

	_, err := gen.Generate(ctx, docs, false)
	require.NoError(t, err)

	embedder.Reset()
	report, err := gen.Generate(ctx, docs, true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Hits)
	assert.Equal(t, 4, report.Misses)
	assert.Equal(t, 4, embedder.TextCount())
}

func TestGenerate_PerDocumentFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	embedder := mock.NewMockEmbedderWithDimension(8)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("batch rejected")
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "document 2 talks about topic2" {
			return nil, errors.New("model refused")
		}
		return mock.Vector(text, 8), nil
	}
	gen := newTestGenerator(t, cache, embedder, nil)
	docs := testDocs(5)

	report, err := gen.Generate(ctx, docs, false)
	require.Error(t, err)
	assert.Equal(t, core.KindEmbeddingFailure, core.KindOf(err))
	assert.Contains(t, err.Error(), "doc_002")

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "doc_002", report.Failures[0].DocID)
	assert.Nil(t, report.Vectors[2])

	for _, i := range []int{0, 1, 3, 4} {
		_, ok, err := cache.Get(ctx, docs[i].ID, docs[i].Content, 8)
		require.NoError(t, err)
		assert.True(t, ok, "doc %d should be cached", i)
	}
}

func TestGenerate_DimensionMismatchIsRecorded(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimension(4)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 0, 0, 0}
		}
		out[1] = []float32{1, 0}
		return out, nil
	}
	gen := newTestGenerator(t, newTestCache(t), embedder, nil)

	report, err := gen.Generate(context.Background(), testDocs(3), false)
	require.Error(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "doc_001", report.Failures[0].DocID)
	assert.ErrorIs(t, report.Failures[0].Err, core.ErrDimensionMismatch)
	assert.Equal(t, core.KindValidation, core.KindOf(report.Failures[0].Err))
}

func TestGenerate_PerCallTimeout(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimension(4)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	gen := newTestGenerator(t, newTestCache(t), embedder,
		&Config{EmbedTimeout: 20 * time.Millisecond, MaxAttempts: 1, RetryDelay: time.Millisecond})

	report, err := gen.Generate(context.Background(), testDocs(1), false)
	require.Error(t, err)
	require.Len(t, report.Failures, 1)
	assert.True(t, IsTimeout(report.Failures[0].Err))
}

func TestGenerate_UnavailableEmbedderIsNotRetried(t *testing.T) {
	unavailable := fmt.Errorf("breaker open: %w", ai.ErrUnavailable)

	t.Run("single", func(t *testing.T) {
		embedder := mock.NewMockEmbedderWithDimension(4)
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, unavailable
		}
		gen := newTestGenerator(t, newTestCache(t), embedder,
			&Config{BatchSize: 1, MaxAttempts: 4, RetryDelay: time.Millisecond})

		report, err := gen.Generate(context.Background(), testDocs(4), false)
		require.Error(t, err)
		assert.Equal(t, 4, embedder.CallCount())
		require.Len(t, report.Failures, 4)
		for _, f := range report.Failures {
			assert.ErrorIs(t, f.Err, ai.ErrUnavailable)
		}
	})

	t.Run("batch", func(t *testing.T) {
		embedder := mock.NewMockEmbedderWithDimension(4)
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, unavailable
		}
		gen := newTestGenerator(t, newTestCache(t), embedder,
			&Config{BatchSize: 4, MaxAttempts: 4, RetryDelay: time.Millisecond})

		report, err := gen.Generate(context.Background(), testDocs(4), false)
		require.Error(t, err)
		assert.Equal(t, 1, embedder.CallCount())
		assert.Len(t, report.Failures, 4)
	})
}

func TestGenerate_CancellationKeepsProgress(t *testing.T) {
	cache := newTestCache(t)
	embedder := mock.NewMockEmbedderWithDimension(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	embedder.EmbedTextFunc = func(callCtx context.Context, text string) ([]float32, error) {
		if text == "document 3 talks about topic3" {
			cancel()
			return nil, callCtx.Err()
		}
		return mock.Vector(text, 8), nil
	}
	gen := newTestGenerator(t, cache, embedder,
		&Config{BatchSize: 1, RetryDelay: time.Millisecond}, WithPoolSize(1))
	docs := testDocs(8)

	_, err := gen.Generate(ctx, docs, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	embedder.Reset()
	report, err := gen.Generate(context.Background(), docs, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Hits, 3)
	assert.Equal(t, len(docs), report.Hits+report.Misses)
}

type failingPutCache struct {
	storage.EmbeddingCache
}

func (f failingPutCache) Put(ctx context.Context, docID, content string, vector []float32) error {
	return core.StorageFailure("cache put", docID, errors.New("disk full"))
}

func TestGenerate_StorageFailureIsFatal(t *testing.T) {
	gen := newTestGenerator(t, failingPutCache{newTestCache(t)}, mock.NewMockEmbedderWithDimension(4), nil)

	_, err := gen.Generate(context.Background(), testDocs(3), false)
	require.Error(t, err)
	assert.Equal(t, core.KindStorageFailure, core.KindOf(err))
}

func TestGenerate_ProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	gen := newTestGenerator(t, newTestCache(t), mock.NewMockEmbedderWithDimension(4),
		&Config{ReportInterval: 1, RetryDelay: time.Millisecond}, WithProgress(&buf))

	_, err := gen.Generate(context.Background(), testDocs(3), false)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Embedding: 3/3")
}

func TestGenerate_Empty(t *testing.T) {
	gen := newTestGenerator(t, newTestCache(t), mock.NewMockEmbedder(), nil)
	report, err := gen.Generate(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, report.Vectors)
	assert.False(t, report.Failed())
}
