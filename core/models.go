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

package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHashSize is the digest size in bytes used for cache invalidation.
const ContentHashSize = 32

// ContentHash returns the hex encoded BLAKE2b-256 digest of content.
// Identical content always produces identical digests.
func ContentHash(content string) string {
	h, _ := blake2b.New(ContentHashSize, nil) // 32 bytes = 256 bits
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Document is a single searchable text loaded from a document source.
// Documents are immutable once loaded into an engine.
type Document struct {
	ID         string // Stable identity derived from the source, e.g. the file stem
	Filename   string
	Path       string
	RawContent string
	Content    string // Cleaned text used for embedding and keyword extraction
	Length     int    // Length of Content in characters
	RawLength  int    // Length of RawContent in characters
}

// CacheEntry is a persisted embedding keyed by document ID.
type CacheEntry struct {
	DocID       string
	ContentHash string
	Vector      []float32
	UpdatedAt   time.Time
}

// Matches reports whether the entry is valid for content at the given dimension.
func (e *CacheEntry) Matches(content string, dim int) bool {
	return e.ContentHash == ContentHash(content) && len(e.Vector) == dim
}

// CacheInfo describes a cache entry without its vector.
type CacheInfo struct {
	DocID       string
	ContentHash string
	Dimension   int
	UpdatedAt   time.Time
}

// CacheStats summarizes the embedding cache.
type CacheStats struct {
	EntryCount   int
	StorageBytes int64
}

// SearchResult is a single ranked hit produced by a query.
type SearchResult struct {
	Rank            int
	DocID           string
	Filename        string
	Score           float32
	Preview         string
	DocLength       int
	OverlapKeywords []string // Sorted alphabetically
	OverlapCount    int
	OverlapRatio    float64
	Explanation     string
}
