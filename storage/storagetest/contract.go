// Package storagetest provides a behavioural test suite shared by every
// storage.EmbeddingCache backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty cache. Cleanup is registered on t.
type Factory func(t *testing.T) storage.EmbeddingCache

// RunCacheContract exercises the EmbeddingCache contract against a backend.
func RunCacheContract(t *testing.T, newCache Factory) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		cache := newCache(t)
		vec := []float32{0.125, -0.5, 0.75, 1e-7}
		require.NoError(t, cache.Put(ctx, "doc1", "some text", vec))

		got, ok, err := cache.Get(ctx, "doc1", "some text", len(vec))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, vec, got)
	})

	t.Run("missing record is a miss", func(t *testing.T) {
		cache := newCache(t)
		got, ok, err := cache.Get(ctx, "nope", "text", 3)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("content change invalidates", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Put(ctx, "doc1", "text one", []float32{1, 2}))

		_, ok, err := cache.Get(ctx, "doc1", "text two", 2)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("dimension change invalidates", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Put(ctx, "doc1", "text", []float32{1, 2}))

		_, ok, err := cache.Get(ctx, "doc1", "text", 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put overwrites", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Put(ctx, "doc1", "old", []float32{1, 1}))
		require.NoError(t, cache.Put(ctx, "doc1", "new", []float32{2, 2, 2}))

		_, ok, err := cache.Get(ctx, "doc1", "old", 2)
		require.NoError(t, err)
		assert.False(t, ok)

		got, ok, err := cache.Get(ctx, "doc1", "new", 3)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []float32{2, 2, 2}, got)

		stats, err := cache.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.EntryCount)
	})

	t.Run("delete", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Put(ctx, "doc1", "text", []float32{1}))
		require.NoError(t, cache.Delete(ctx, "doc1"))

		_, ok, err := cache.Get(ctx, "doc1", "text", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		err = cache.Delete(ctx, "doc1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("clear and stats", func(t *testing.T) {
		cache := newCache(t)
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("doc%d", i)
			require.NoError(t, cache.Put(ctx, id, "text "+id, []float32{float32(i), 1, 2, 3}))
		}

		stats, err := cache.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.EntryCount)
		assert.Positive(t, stats.StorageBytes)

		require.NoError(t, cache.Clear(ctx))
		stats, err = cache.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.EntryCount)

		entries, err := cache.Entries(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("entries", func(t *testing.T) {
		cache := newCache(t)
		before := time.Now().UTC().Add(-time.Second)
		require.NoError(t, cache.Put(ctx, "b", "beta", []float32{1, 2, 3}))
		require.NoError(t, cache.Put(ctx, "a", "alpha", []float32{1, 2}))

		entries, err := cache.Entries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "a", entries[0].DocID)
		assert.Equal(t, core.ContentHash("alpha"), entries[0].ContentHash)
		assert.Equal(t, 2, entries[0].Dimension)
		assert.Equal(t, "b", entries[1].DocID)
		assert.Equal(t, 3, entries[1].Dimension)
		for _, e := range entries {
			assert.True(t, e.UpdatedAt.After(before))
		}
	})

	t.Run("concurrent writes", func(t *testing.T) {
		cache := newCache(t)
		const writers = 8
		const dim = 16

		var wg sync.WaitGroup
		errs := make(chan error, writers*2)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				vec := make([]float32, dim)
				for i := range vec {
					vec[i] = float32(w)
				}
				// Same doc ID across writers, plus one private doc each.
				errs <- cache.Put(ctx, "shared", "shared text", vec)
				errs <- cache.Put(ctx, fmt.Sprintf("own%d", w), "own text", vec)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, ok, err := cache.Get(ctx, "shared", "shared text", dim)
		require.NoError(t, err)
		require.True(t, ok)
		// The surviving record is one writer's vector, never a mix.
		for _, v := range got {
			assert.Equal(t, got[0], v)
		}

		stats, err := cache.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, writers+1, stats.EntryCount)
	})
}
