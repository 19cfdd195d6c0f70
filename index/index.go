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
	"log/slog"
	"slices"
	"sync"
)

// Strategy names.
const (
	StrategyFlat       = "flat"
	StrategyBruteForce = "bruteforce"
)

// Match is a single search hit: the position of the vector at build time and its score.
type Match struct {
	Index int
	Score float32
}

// Index answers exact top-k inner product queries over unit-normalized vectors.
// Implementations must be safe for concurrent Search calls once Build has returned.
type Index interface {
	// Name returns the strategy name.
	Name() string

	// Build loads vectors in order. The first vector fixes the dimension.
	// Vectors are copied and L2-normalized.
	Build(vectors [][]float32) error

	// Search returns up to k matches ordered by descending score,
	// ties broken by ascending index.
	Search(query []float32, k int) ([]Match, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the vector dimension, 0 before the first vector is built.
	Dimension() int

	// Close releases resources held by the index.
	Close() error
}

// Options configures strategies created through New.
type Options struct {
	// Workers bounds parallelism for strategies that scan concurrently.
	// 0 lets the strategy choose.
	Workers int
}

// Option configures Options.
type Option func(*Options)

// WithWorkers sets the worker count for parallel strategies.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// Factory constructs an Index for a registered strategy.
type Factory func(opts Options) (Index, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		StrategyBruteForce: func(Options) (Index, error) { return NewBruteForce(), nil },
	}
)

// Register makes a strategy available to New. It panics on a duplicate
// name or a nil factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("index: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("index: Register called twice for strategy " + name)
	}
	registry[name] = factory
}

// Strategies returns the registered strategy names, sorted.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Selection records which strategy New actually produced.
type Selection struct {
	Requested string
	Active    string
	Fallback  bool
	Reason    error
}

// New constructs the requested strategy. If it is not registered or its
// factory fails, New logs a warning and returns a brute-force index with
// Selection.Fallback set.
func New(name string, logger *slog.Logger, opts ...Option) (Index, Selection) {
	if logger == nil {
		logger = slog.Default()
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	sel := Selection{Requested: name}

	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	var reason error
	if !ok {
		reason = fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	} else {
		idx, err := factory(o)
		if err == nil {
			sel.Active = idx.Name()
			return idx, sel
		}
		reason = err
	}

	logger.Warn("index strategy unavailable, falling back",
		"requested", name, "fallback", StrategyBruteForce, "err", reason)
	sel.Active = StrategyBruteForce
	sel.Fallback = true
	sel.Reason = reason
	return NewBruteForce(), sel
}
