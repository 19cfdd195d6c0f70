package index

import (
	"container/heap"
	"slices"
)

// Before reports whether a ranks ahead of b: higher score first, then lower index.
func Before(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// Compare orders matches for slices.SortFunc using Before.
func Compare(a, b Match) int {
	switch {
	case Before(a, b):
		return -1
	case Before(b, a):
		return 1
	default:
		return 0
	}
}

// worstFirst is a heap whose root is the lowest-ranked match.
type worstFirst []Match

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Before(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(Match)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}

// Collector keeps the k best matches offered to it.
// It is not safe for concurrent use.
type Collector struct {
	k int
	h worstFirst
}

// NewCollector returns a collector bounded to k matches.
func NewCollector(k int) *Collector {
	return &Collector{k: k, h: make(worstFirst, 0, k)}
}

// Offer considers m for inclusion.
func (c *Collector) Offer(m Match) {
	if len(c.h) < c.k {
		heap.Push(&c.h, m)
		return
	}
	if Before(m, c.h[0]) {
		c.h[0] = m
		heap.Fix(&c.h, 0)
	}
}

// Results returns the collected matches in rank order.
func (c *Collector) Results() []Match {
	out := slices.Clone([]Match(c.h))
	slices.SortFunc(out, Compare)
	return out
}

// Merge combines per-shard results into the global top k.
func Merge(k int, parts ...[]Match) []Match {
	c := NewCollector(k)
	for _, part := range parts {
		for _, m := range part {
			c.Offer(m)
		}
	}
	return c.Results()
}
