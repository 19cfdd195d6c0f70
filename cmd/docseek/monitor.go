package main

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/index"
)

// printingMonitor writes per-stage search timings for --verbose.
type printingMonitor struct {
	w io.Writer
}

func (p *printingMonitor) Start(query string) {
	fmt.Fprintf(p.w, "search: %q\n", query)
}

func (p *printingMonitor) AfterQueryEmbedding(elapsed time.Duration) {
	fmt.Fprintf(p.w, "  query embedded in %s\n", elapsed.Round(time.Microsecond))
}

func (p *printingMonitor) AfterIndexSearch(matches int, elapsed time.Duration) {
	fmt.Fprintf(p.w, "  index returned %d matches in %s\n", matches, elapsed.Round(time.Microsecond))
}

func (p *printingMonitor) Finish(results []core.SearchResult, err error, elapsed time.Duration) {
	if err != nil {
		fmt.Fprintf(p.w, "  failed after %s: %v\n", elapsed.Round(time.Microsecond), err)
		return
	}
	fmt.Fprintf(p.w, "  %d results in %s\n", len(results), elapsed.Round(time.Microsecond))
}

func (p *printingMonitor) GenerationFinished(*embedding.Report, error) {}

func (p *printingMonitor) IndexBuilt(index.Selection, int, time.Duration) {}
