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

// Package search provides ranked semantic retrieval over a document set.
//
// An Engine moves through four states:
//
//	StateEmpty -> StateDocumentsLoaded -> StateEmbeddingsReady -> StateIndexBuilt
//
// LoadDocuments installs documents, GenerateEmbeddings fills the embedding
// matrix through the cache, and BuildIndex publishes a new vector index.
// Calling an operation before its prerequisite returns a core.KindNotReady
// error. Initialize runs all three in one step.
//
// Each result carries its similarity score and the keywords it shares with
// the query. It also carries a short explanation such as:
//
//	High semantic similarity (score: 0.812) | 2 matching keywords (66.7%): learning, machine | short document
//
// Searches never block on a rebuild. They read an immutable snapshot of the
// documents and index, so the old index keeps answering until the new one is
// ready.
package search
