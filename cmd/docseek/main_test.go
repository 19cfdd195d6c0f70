package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t     *testing.T
	dir   string
	docs  string
	cache string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"DOCSEEK_PROVIDER", "DOCSEEK_STORAGE_BACKEND", "DOCSEEK_STORAGE_PATH", "DOCSEEK_TOP_K"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return &harness{
		t:     t,
		dir:   dir,
		docs:  filepath.Join(dir, "docs"),
		cache: filepath.Join(dir, "cache"),
	}
}

// run executes the CLI with the mock provider and returns stdout and stderr.
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	full := append([]string{"docseek", "--log-level", "warn", "--provider", "mock", "--cache-path", h.cache}, args...)
	err := app.Run(full)
	return out.String(), errOut.String(), err
}

func (h *harness) writeSamples() {
	h.t.Helper()
	out, _, err := h.run("samples", "--out", h.docs)
	require.NoError(h.t, err)
	require.Contains(h.t, out, "Wrote 20 sample documents")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(core.Validation("search", core.ErrEmptyQuery)))
	assert.Equal(t, 2, exitCode(core.NotReady("search", "index not built")))
	assert.Equal(t, 1, exitCode(core.EmbeddingFailure("embed", "", errors.New("down"))))
	assert.Equal(t, 1, exitCode(core.StorageFailure("cache get", "", errors.New("io"))))
	assert.Equal(t, 1, exitCode(errors.New("other")))
}

func TestInvalidLogLevel(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("--log-level", "loud", "samples", "--out", h.docs)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestSamplesCommand(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run("samples", "--out", h.docs, "--count", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 sample documents")

	entries, err := os.ReadDir(h.docs)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "doc_001.txt", entries[0].Name())

	_, _, err = h.run("samples")
	assert.Error(t, err, "--out is required")
}

func TestIndexAndSearch(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()

	out, _, err := h.run("index", "--docs", h.docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 20 documents (0 cached, 20 embedded)")
	assert.Contains(t, out, "Index strategy: flat")

	out, _, err = h.run("index", "--docs", h.docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 20 documents (20 cached, 0 embedded)")

	out, _, err = h.run("index", "--docs", h.docs, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 cached, 20 embedded)")

	out, errOut, err := h.run("search", "--docs", h.docs, "-k", "3", "--verbose", "machine", "learning")
	require.NoError(t, err)
	assert.Contains(t, out, `Query: "machine learning" (3 results)`)
	assert.Contains(t, out, "1. doc_001 (doc_001.txt)")
	assert.Contains(t, out, "2 matching keywords (100.0%): learning, machine")
	assert.NotContains(t, out, "4. ")
	assert.Contains(t, errOut, "query embedded in")
	assert.Contains(t, errOut, "3 results in")
}

func TestSearchValidation(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()

	_, _, err := h.run("search", "--docs", h.docs)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
	assert.Equal(t, 2, exitCode(err))

	_, _, err = h.run("search", "--docs", h.docs, "-k", "51", "data")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTopKOutOfRange)
	assert.Equal(t, 2, exitCode(err))

	_, _, err = h.run("search", "--docs", filepath.Join(h.dir, "missing"), "data")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestStatsCommand(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()

	out, _, err := h.run("--strategy", "hnsw", "stats", "--docs", h.docs)
	require.NoError(t, err)
	assert.Contains(t, out, "State:            index_built")
	assert.Contains(t, out, "Documents:        20")
	assert.Contains(t, out, "Dimension:        384")
	assert.Contains(t, out, "Index strategy:   bruteforce (fallback: true)")
	assert.Contains(t, out, "Cache entries:    20")
}

func TestDocumentsCommand(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("samples", "--out", h.docs, "--count", "3")
	require.NoError(t, err)

	out, _, err := h.run("documents", "--docs", h.docs)
	require.NoError(t, err)
	assert.Contains(t, out, "3 documents")
	assert.Contains(t, out, "doc_001")
	assert.Contains(t, out, "doc_003.txt")

	out, _, err = h.run("documents", "--docs", h.docs, "doc_001")
	require.NoError(t, err)
	assert.Contains(t, out, "ID:       doc_001")
	assert.Contains(t, out, "File:     doc_001.txt")
	assert.Contains(t, out, "Machine learning is a subset of artificial intelligence")

	_, _, err = h.run("documents", "--docs", h.docs, "doc_999")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDocumentNotFound)
	assert.Equal(t, 2, exitCode(err))

	out, _, err = h.run("cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache is empty")
}

func TestCacheCommands(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()
	_, _, err := h.run("index", "--docs", h.docs)
	require.NoError(t, err)

	out, _, err := h.run("cache", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 20)
	assert.True(t, strings.HasPrefix(lines[0], "doc_001"), lines[0])
	assert.Contains(t, lines[0], "dim=384")

	out, _, err = h.run("cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache entries:    20")
	assert.Contains(t, out, "Cache backend:    badger")

	out, _, err = h.run("cache", "delete", "doc_001")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted doc_001")

	_, _, err = h.run("cache", "delete", "doc_001")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	_, _, err = h.run("cache", "delete")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	out, _, err = h.run("cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	out, _, err = h.run("cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache is empty")
}

func TestSQLiteBackend(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()
	h.cache = filepath.Join(h.dir, "cache.db")

	out, _, err := h.run("--backend", "sqlite", "index", "--docs", h.docs)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 cached, 20 embedded)")

	out, _, err = h.run("--backend", "sqlite", "index", "--docs", h.docs)
	require.NoError(t, err)
	assert.Contains(t, out, "(20 cached, 0 embedded)")
	assert.FileExists(t, h.cache)
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()
	path := filepath.Join(h.dir, "docseek.prom")

	_, _, err := h.run("--metrics-file", path, "search", "--docs", h.docs, "neural networks")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `docseek_search_queries_total{status="ok"} 1`)
	assert.Contains(t, string(data), `docseek_embedding_cache_lookups_total{result="miss"} 20`)
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	h.writeSamples()
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "custom.yaml"),
		[]byte("search:\n  top_k: 2\nindex:\n  strategy: bruteforce\n"), 0o644))

	out, _, err := h.run("--config", "custom.yaml", "search", "--docs", h.docs, "data")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 results)")

	_, _, err = h.run("--config", "absent.yaml", "stats")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}
