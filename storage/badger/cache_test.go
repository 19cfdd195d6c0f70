package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/storage"
	"github.com/poiesic/docseek/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheContract(t *testing.T) {
	storagetest.RunCacheContract(t, func(t *testing.T) storage.EmbeddingCache {
		cache, backend, err := NewMemoryCache()
		require.NoError(t, err)
		t.Cleanup(func() { backend.Close() })
		return cache
	})
}

func TestNewCache_RequiresBackend(t *testing.T) {
	cache, err := NewCache(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
	assert.Nil(t, cache)
}

func TestCache_PersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	cache, err := NewCache(backend)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, "doc1", "text", []float32{0.5, 0.25}))
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	cache, err = NewCache(backend)
	require.NoError(t, err)

	got, ok, err := cache.Get(ctx, "doc1", "text", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 0.25}, got)
}

func TestCache_CorruptRecordIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, backend, err := NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCacheKey("bad"), []byte{0xff}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, "bad", "anything", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ClosedBackendIsStorageFailure(t *testing.T) {
	ctx := context.Background()
	cache, backend, err := NewMemoryCache()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	err = cache.Put(ctx, "doc1", "text", []float32{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageFailure)
	assert.Equal(t, core.KindStorageFailure, core.KindOf(err))
	assert.Contains(t, err.Error(), "doc1")
}

func TestCacheKeys(t *testing.T) {
	key := makeCacheKey("doc_001")
	assert.Equal(t, "embcache:doc_001", string(key))
	assert.Equal(t, "doc_001", docIDFromCacheKey(key))
	assert.Equal(t, "a:b", docIDFromCacheKey(makeCacheKey("a:b")))
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	backend, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
	assert.Nil(t, backend)
}
