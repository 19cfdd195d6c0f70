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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/storage"
)

// Cache implements storage.EmbeddingCache on a Badger backend.
// Keys are "embcache:<doc_id>"; values are mus-encoded records.
type Cache struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.EmbeddingCache = (*Cache)(nil)

// NewCache creates a Cache over an open backend. The backend is owned by the
// caller and is not closed by Cache.Close.
func NewCache(backend *Backend) (*Cache, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &Cache{
		backend: backend,
		logger:  slog.Default().With("component", "badger-cache"),
	}, nil
}

// Get returns the cached vector when the hash and dimension still match.
func (c *Cache) Get(ctx context.Context, docID, content string, dim int) ([]float32, bool, error) {
	var entry *core.CacheEntry
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(docID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := storage.UnmarshalCacheEntry(docID, val)
			if err != nil {
				c.logger.Warn("ignoring undecodable cache record", "doc_id", docID, "err", err)
				return nil
			}
			entry = decoded
			return nil
		})
	}, false)
	if err != nil {
		return nil, false, core.StorageFailure("cache get", docID, err)
	}

	if entry == nil || !entry.Matches(content, dim) {
		return nil, false, nil
	}
	return entry.Vector, true, nil
}

// Put replaces the record for docID in a single transaction.
func (c *Cache) Put(ctx context.Context, docID, content string, vector []float32) error {
	entry := &core.CacheEntry{
		DocID:       docID,
		ContentHash: core.ContentHash(content),
		Vector:      vector,
		UpdatedAt:   time.Now().UTC(),
	}
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCacheKey(docID), storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return core.StorageFailure("cache put", docID, err)
	}
	return nil
}

// Delete removes the record for docID.
func (c *Cache) Delete(ctx context.Context, docID string) error {
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(docID)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("cache delete %s: %w", docID, err)
	}
	if err != nil {
		return core.StorageFailure("cache delete", docID, err)
	}
	return nil
}

// Clear removes every cache record.
func (c *Cache) Clear(ctx context.Context) error {
	n, err := c.backend.DeletePrefix(makeCachePrefix())
	if err != nil {
		return core.StorageFailure("cache clear", "", err)
	}
	c.logger.Info("cleared embedding cache", "count", n)
	return nil
}

// Stats counts records and reports the database size. In-memory databases
// and freshly written ones report the summed record sizes instead.
func (c *Cache) Stats(ctx context.Context) (core.CacheStats, error) {
	var stats core.CacheStats
	var logical int64
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeCachePrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			stats.EntryCount++
			logical += iter.Item().EstimatedSize()
		}
		return nil
	}, false)
	if err != nil {
		return core.CacheStats{}, core.StorageFailure("cache stats", "", err)
	}

	lsm, vlog := c.backend.Size()
	stats.StorageBytes = lsm + vlog
	if stats.StorageBytes == 0 {
		stats.StorageBytes = logical
	}
	return stats, nil
}

// Entries lists all records in key order.
func (c *Cache) Entries(ctx context.Context) ([]core.CacheInfo, error) {
	var infos []core.CacheInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCachePrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			docID := docIDFromCacheKey(item.Key())
			err := item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalCacheEntry(docID, val)
				if err != nil {
					c.logger.Warn("skipping undecodable cache record", "doc_id", docID, "err", err)
					return nil
				}
				infos = append(infos, core.CacheInfo{
					DocID:       docID,
					ContentHash: entry.ContentHash,
					Dimension:   len(entry.Vector),
					UpdatedAt:   entry.UpdatedAt,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, core.StorageFailure("cache entries", "", err)
	}
	return infos, nil
}

// Close is a no-op; the backend is closed by its owner.
func (c *Cache) Close() error {
	return nil
}
