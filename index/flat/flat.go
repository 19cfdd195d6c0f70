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

// Package flat provides an exact inner product index over a contiguous
// row-major matrix. Large matrices are split into shards that are scored in
// parallel on a worker pool, each shard keeping a bounded heap of its best
// matches before a final merge.
//
// Importing the package registers the "flat" strategy with the index package:
//
//	import _ "github.com/poiesic/docseek/index/flat"
package flat

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docseek/index"
)

const defaultShardSize = 2048

func init() {
	index.Register(index.StrategyFlat, func(o index.Options) (index.Index, error) {
		return New(o.Workers)
	})
}

// Index is the flat exact-search strategy.
type Index struct {
	data      []float32 // n rows of dim components
	n         int
	dim       int
	shardSize int
	pool      *ants.Pool
}

var _ index.Index = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithShardSize sets the number of rows scored per pool task.
func WithShardSize(rows int) Option {
	return func(x *Index) {
		if rows > 0 {
			x.shardSize = rows
		}
	}
}

// New creates a flat index backed by a pool of workers goroutines.
// workers <= 0 uses runtime.NumCPU().
func New(workers int, opts ...Option) (*Index, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("flat: create worker pool: %w", err)
	}
	x := &Index{
		shardSize: defaultShardSize,
		pool:      pool,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

func (x *Index) Name() string { return index.StrategyFlat }

// Build copies normalized vectors into one contiguous block.
func (x *Index) Build(vectors [][]float32) error {
	normalized, dim, err := index.NormalizeAll(vectors)
	if err != nil {
		return err
	}
	data := make([]float32, 0, len(normalized)*dim)
	for _, v := range normalized {
		data = append(data, v...)
	}
	x.data = data
	x.n = len(normalized)
	x.dim = dim
	return nil
}

// Search scores all rows and returns the k best.
func (x *Index) Search(query []float32, k int) ([]index.Match, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if x.n == 0 {
		return []index.Match{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d components, want %d", index.ErrDimensionMismatch, len(query), x.dim)
	}
	if k > x.n {
		k = x.n
	}

	shards := (x.n + x.shardSize - 1) / x.shardSize
	if shards == 1 {
		return x.scan(query, k, 0, x.n), nil
	}

	parts := make([][]index.Match, shards)
	var wg sync.WaitGroup
	for s := 0; s < shards; s++ {
		lo := s * x.shardSize
		hi := min(lo+x.shardSize, x.n)
		wg.Add(1)
		task := func() {
			defer wg.Done()
			parts[s] = x.scan(query, k, lo, hi)
		}
		// A closed pool means the index was retired while a search was in flight.
		if err := x.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	return index.Merge(k, parts...), nil
}

func (x *Index) scan(query []float32, k, lo, hi int) []index.Match {
	c := index.NewCollector(k)
	for i := lo; i < hi; i++ {
		row := x.data[i*x.dim : (i+1)*x.dim]
		c.Offer(index.Match{Index: i, Score: index.Dot(query, row)})
	}
	return c.Results()
}

func (x *Index) Len() int { return x.n }

func (x *Index) Dimension() int { return x.dim }

// Close releases the worker pool.
func (x *Index) Close() error {
	x.pool.Release()
	return nil
}
