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

// Package storage defines the embedding cache abstraction for docseek.
//
// The EmbeddingCache interface decouples the search engine from the store that
// persists document embeddings between sessions. Two backends are provided:
//
//   - storage/badger: BadgerDB key-value store (default)
//   - storage/sqlite: a single SQLite table, compatible with existing
//     embeddings_cache databases
//
// # Constructor Return Type Pattern
//
// Backend constructors return their concrete cache type; consumers accept the
// storage.EmbeddingCache interface:
//
//	cache, err := badger.NewCache(backend)  // *badger.Cache
//	engine, err := search.NewEngine(cache, embedder)
//
// # Record Layout
//
// Every record holds the document ID, the embedding as a little-endian float32
// blob (dimension × 4 bytes), the 64 character hex content hash, and an
// RFC 3339 UTC timestamp of the last write. A record is only ever replaced as
// a whole, so a reader never observes a partial write.
//
// # Misses Are Not Errors
//
// Get reports a missing record, a content hash mismatch, a dimension mismatch
// and an undecodable record the same way: ok=false, err=nil. Callers recompute
// the embedding. Errors are reserved for I/O failures and carry the operation
// and document ID.
//
// # Thread Safety
//
// All implementations are safe for concurrent use. Writes to the same document
// ID are serialized by the backend and resolve as last write wins.
package storage
