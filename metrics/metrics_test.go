package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docseek/ai/mock"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/index"
	"github.com/poiesic/docseek/search"
	"github.com/poiesic/docseek/storage/badger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "client_error", Status(core.Validation("search", core.ErrEmptyQuery)))
	assert.Equal(t, "client_error", Status(core.NotReady("search", "index not built")))
	assert.Equal(t, "server_error", Status(core.EmbeddingFailure("embed", "d", errors.New("x"))))
	assert.Equal(t, "error", Status(context.Canceled))
}

func TestCollector_SearchHooks(t *testing.T) {
	c := NewCollector()

	c.Start("q")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchInFlight))
	c.AfterQueryEmbedding(5 * time.Millisecond)
	c.AfterIndexSearch(3, time.Millisecond)
	c.Finish(make([]core.SearchResult, 3), nil, 10*time.Millisecond)

	c.Start("")
	c.Finish(nil, core.Validation("search", core.ErrEmptyQuery), time.Microsecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.searchInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchTotal.WithLabelValues("client_error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.resultCount))
}

func TestCollector_GenerationAndBuild(t *testing.T) {
	c := NewCollector()

	c.GenerationFinished(&embedding.Report{Hits: 4, Misses: 2, Failures: []embedding.Failure{{DocID: "a"}}}, errors.New("boom"))
	c.GenerationFinished(nil, core.NotReady("generate embeddings", "no documents loaded"))
	c.IndexBuilt(index.Selection{Requested: "hnsw", Active: index.StrategyBruteForce, Fallback: true}, 6, time.Millisecond)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.embedFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationTotal.WithLabelValues("client_error")))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.indexedDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.indexFallback))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.indexBuilds.WithLabelValues(index.StrategyBruteForce)))
}

func TestCollector_AttachedToEngine(t *testing.T) {
	cache, backend, err := badger.NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()

	c := NewCollector()
	engine, err := search.NewEngine(cache, mock.NewMockEmbedder(),
		search.WithIndexStrategy(index.StrategyBruteForce), search.WithMonitor(c))
	require.NoError(t, err)
	defer engine.Close()

	docs := []core.Document{
		{ID: "a", Content: "vector search with embeddings"},
		{ID: "b", Content: "baking sourdough bread"},
	}
	_, err = engine.Initialize(context.Background(), docs, false)
	require.NoError(t, err)
	_, err = engine.Search(context.Background(), "vector search", 2)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.indexedDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchTotal.WithLabelValues("ok")))
}

func TestCollector_WriteToTextfile(t *testing.T) {
	c := NewCollector()
	c.IndexBuilt(index.Selection{Active: "flat"}, 20, time.Millisecond)

	path := filepath.Join(t.TempDir(), "docseek.prom")
	require.NoError(t, c.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "docseek_index_documents 20"), out)
	assert.Contains(t, out, `docseek_index_builds_total{strategy="flat"} 1`)
}
