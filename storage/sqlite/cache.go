// Package sqlite implements storage.EmbeddingCache on a single SQLite table.
//
// The table layout matches the embeddings_cache schema written by earlier
// releases, so an existing cache database can be opened in place:
//
//	embeddings_cache(doc_id TEXT PRIMARY KEY, embedding BLOB, hash TEXT, updated_at TEXT)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/storage"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS embeddings_cache (
	doc_id     TEXT PRIMARY KEY,
	embedding  BLOB NOT NULL,
	hash       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Cache is a SQLite-backed embedding cache.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.EmbeddingCache = (*Cache)(nil)

// Open opens (creating if needed) the database at dsn and ensures the schema.
// dsn is a file path or any DSN accepted by modernc.org/sqlite.
func Open(ctx context.Context, dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.StorageFailure("cache open", "", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	cache, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cache, nil
}

// New wraps an open database. The caller keeps ownership only when New fails;
// on success Cache.Close closes db.
func New(ctx context.Context, db *sql.DB) (*Cache, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite: db is nil")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, core.StorageFailure("cache schema", "", err)
	}
	return &Cache{
		db:     db,
		logger: slog.Default().With("component", "sqlite-cache"),
	}, nil
}

// Get returns the cached vector when the hash and dimension still match.
func (c *Cache) Get(ctx context.Context, docID, content string, dim int) ([]float32, bool, error) {
	var blob []byte
	var hash, updatedAt string
	err := c.db.QueryRowContext(ctx,
		`SELECT embedding, hash, updated_at FROM embeddings_cache WHERE doc_id = ?`, docID,
	).Scan(&blob, &hash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.StorageFailure("cache get", docID, err)
	}

	vector, err := storage.DecodeVector(blob)
	if err != nil {
		c.logger.Warn("ignoring undecodable cache record", "doc_id", docID, "err", err)
		return nil, false, nil
	}
	entry := core.CacheEntry{DocID: docID, ContentHash: hash, Vector: vector}
	if !entry.Matches(content, dim) {
		return nil, false, nil
	}
	return vector, true, nil
}

// Put upserts the record for docID.
func (c *Cache) Put(ctx context.Context, docID, content string, vector []float32) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return core.StorageFailure("cache put", docID, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings_cache(doc_id, embedding, hash, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			embedding = excluded.embedding,
			hash = excluded.hash,
			updated_at = excluded.updated_at`)
	if err != nil {
		return core.StorageFailure("cache put", docID, err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, docID, storage.EncodeVector(vector), core.ContentHash(content),
		storage.FormatTimestamp(time.Now()))
	if err != nil {
		return core.StorageFailure("cache put", docID, err)
	}
	if err := tx.Commit(); err != nil {
		return core.StorageFailure("cache put", docID, err)
	}
	return nil
}

// Delete removes the record for docID.
func (c *Cache) Delete(ctx context.Context, docID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM embeddings_cache WHERE doc_id = ?`, docID)
	if err != nil {
		return core.StorageFailure("cache delete", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.StorageFailure("cache delete", docID, err)
	}
	if n == 0 {
		return fmt.Errorf("cache delete %s: %w", docID, storage.ErrNotFound)
	}
	return nil
}

// Clear removes every record.
func (c *Cache) Clear(ctx context.Context) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM embeddings_cache`)
	if err != nil {
		return core.StorageFailure("cache clear", "", err)
	}
	n, _ := res.RowsAffected()
	c.logger.Info("cleared embedding cache", "count", n)
	return nil
}

// Stats reports the record count and the database file size in bytes.
func (c *Cache) Stats(ctx context.Context) (core.CacheStats, error) {
	var stats core.CacheStats
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings_cache`).Scan(&stats.EntryCount); err != nil {
		return core.CacheStats{}, core.StorageFailure("cache stats", "", err)
	}
	var pageCount, pageSize int64
	if err := c.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return core.CacheStats{}, core.StorageFailure("cache stats", "", err)
	}
	if err := c.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return core.CacheStats{}, core.StorageFailure("cache stats", "", err)
	}
	stats.StorageBytes = pageCount * pageSize
	return stats, nil
}

// Entries lists all records ordered by document ID.
func (c *Cache) Entries(ctx context.Context) ([]core.CacheInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT doc_id, hash, length(embedding), updated_at FROM embeddings_cache ORDER BY doc_id`)
	if err != nil {
		return nil, core.StorageFailure("cache entries", "", err)
	}
	defer rows.Close()

	var infos []core.CacheInfo
	for rows.Next() {
		var info core.CacheInfo
		var blobLen int
		var updatedAt string
		if err := rows.Scan(&info.DocID, &info.ContentHash, &blobLen, &updatedAt); err != nil {
			return nil, core.StorageFailure("cache entries", "", err)
		}
		info.Dimension = blobLen / 4
		if ts, err := storage.ParseTimestamp(updatedAt); err == nil {
			info.UpdatedAt = ts
		} else {
			c.logger.Warn("unparseable cache timestamp", "doc_id", info.DocID, "value", updatedAt)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageFailure("cache entries", "", err)
	}
	return infos, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
