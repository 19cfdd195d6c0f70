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

package storage

import (
	"context"

	"github.com/poiesic/docseek/core"
)

// EmbeddingCache is a persistent content-addressed store of document embeddings.
// Implementations must be thread-safe and support concurrent access.
// Every I/O failure is returned as a core.Error of kind KindStorageFailure.
type EmbeddingCache interface {
	// Get returns the cached vector for docID when the stored content hash equals
	// core.ContentHash(content) and the stored vector has dim components.
	// Any mismatch or missing record is reported as ok=false with a nil error.
	Get(ctx context.Context, docID, content string, dim int) (vector []float32, ok bool, err error)

	// Put atomically replaces any record for docID with a new hash, vector and timestamp.
	// Concurrent writes to the same docID resolve as last write wins.
	Put(ctx context.Context, docID, content string, vector []float32) error

	// Delete removes the record for docID.
	// Returns ErrNotFound if no record exists.
	Delete(ctx context.Context, docID string) error

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Stats reports the number of records and the storage footprint in bytes.
	Stats(ctx context.Context) (core.CacheStats, error)

	// Entries lists every record without its vector, ordered by DocID.
	Entries(ctx context.Context) ([]core.CacheInfo, error)

	// Close releases the underlying store.
	Close() error
}
