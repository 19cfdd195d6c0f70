package search

import (
	"time"

	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/index"
)

// Monitor provides hooks to observe the engine.
// Implement this interface to track intermediate steps and results.
// Hooks are called synchronously and may run from concurrent searches.
type Monitor interface {
	Start(query string)
	AfterQueryEmbedding(elapsed time.Duration)
	AfterIndexSearch(matches int, elapsed time.Duration)
	Finish(results []core.SearchResult, err error, elapsed time.Duration)
	GenerationFinished(report *embedding.Report, err error)
	IndexBuilt(selection index.Selection, size int, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                          {}
func (n *noopMonitor) AfterQueryEmbedding(_ time.Duration)                     {}
func (n *noopMonitor) AfterIndexSearch(_ int, _ time.Duration)                 {}
func (n *noopMonitor) Finish(_ []core.SearchResult, _ error, _ time.Duration) {}
func (n *noopMonitor) GenerationFinished(_ *embedding.Report, _ error)         {}
func (n *noopMonitor) IndexBuilt(_ index.Selection, _ int, _ time.Duration)    {}

// multiMonitor fans every hook out to several monitors in order.
type multiMonitor []Monitor

var _ Monitor = (multiMonitor)(nil)

// Monitors combines monitors into one. Nil entries are skipped.
func Monitors(ms ...Monitor) Monitor {
	var out multiMonitor
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	switch len(out) {
	case 0:
		return &noopMonitor{}
	case 1:
		return out[0]
	}
	return out
}

func (mm multiMonitor) Start(query string) {
	for _, m := range mm {
		m.Start(query)
	}
}

func (mm multiMonitor) AfterQueryEmbedding(elapsed time.Duration) {
	for _, m := range mm {
		m.AfterQueryEmbedding(elapsed)
	}
}

func (mm multiMonitor) AfterIndexSearch(matches int, elapsed time.Duration) {
	for _, m := range mm {
		m.AfterIndexSearch(matches, elapsed)
	}
}

func (mm multiMonitor) Finish(results []core.SearchResult, err error, elapsed time.Duration) {
	for _, m := range mm {
		m.Finish(results, err, elapsed)
	}
}

func (mm multiMonitor) GenerationFinished(report *embedding.Report, err error) {
	for _, m := range mm {
		m.GenerationFinished(report, err)
	}
}

func (mm multiMonitor) IndexBuilt(selection index.Selection, size int, elapsed time.Duration) {
	for _, m := range mm {
		m.IndexBuilt(selection, size, elapsed)
	}
}
