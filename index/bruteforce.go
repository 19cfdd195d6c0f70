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

package index

import (
	"fmt"
	"slices"
)

// BruteForce scores every stored vector against the query and sorts the result.
type BruteForce struct {
	vectors [][]float32
	dim     int
}

var _ Index = (*BruteForce)(nil)

// NewBruteForce returns an empty brute-force index.
func NewBruteForce() *BruteForce {
	return &BruteForce{}
}

func (b *BruteForce) Name() string { return StrategyBruteForce }

// Build replaces the index contents with normalized copies of vectors.
func (b *BruteForce) Build(vectors [][]float32) error {
	normalized, dim, err := NormalizeAll(vectors)
	if err != nil {
		return err
	}
	b.vectors = normalized
	b.dim = dim
	return nil
}

// Search computes all dot products and returns the k best.
func (b *BruteForce) Search(query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(b.vectors) == 0 {
		return []Match{}, nil
	}
	if len(query) != b.dim {
		return nil, fmt.Errorf("%w: query has %d components, want %d", ErrDimensionMismatch, len(query), b.dim)
	}

	scores := make([]Match, len(b.vectors))
	for i, v := range b.vectors {
		scores[i] = Match{Index: i, Score: Dot(query, v)}
	}
	slices.SortFunc(scores, Compare)

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func (b *BruteForce) Len() int { return len(b.vectors) }

func (b *BruteForce) Dimension() int { return b.dim }

func (b *BruteForce) Close() error { return nil }
