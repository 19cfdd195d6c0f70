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
	"fmt"
	"strings"
)

// ValidateQuery rejects blank queries.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ValidateTopK checks that topK is within 1..maxTopK.
func ValidateTopK(topK, maxTopK int) error {
	if topK < 1 || topK > maxTopK {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrTopKOutOfRange, topK, maxTopK)
	}
	return nil
}

// ValidateDocuments validates a document set according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - IDs must be unique within the set
//
// Empty content is allowed; it still produces an embedding.
func ValidateDocuments(docs []Document) error {
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		id := docs[i].ID
		if id == "" {
			return fmt.Errorf("%w: position %d", ErrEmptyDocumentID, i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDocumentID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ValidateVector checks that v has exactly dim components.
func ValidateVector(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}
