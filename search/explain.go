package search

import (
	"fmt"
	"strings"

	"github.com/poiesic/docseek/keyword"
)

// Explanation thresholds.
const (
	HighSimilarity     = 0.7
	ModerateSimilarity = 0.5

	ShortDocument = 100
	LongDocument  = 500

	// MaxExplainedKeywords caps the keywords listed in an explanation.
	MaxExplainedKeywords = 5
)

// Explain renders a one-line reason for a match, e.g.
//
//	High semantic similarity (score: 0.812) | 2 matching keywords (66.7%): learning, machine | short document
func Explain(score float32, overlap keyword.Overlap, docLength int) string {
	parts := make([]string, 0, 3)

	switch s := float64(score); {
	case s > HighSimilarity:
		parts = append(parts, fmt.Sprintf("High semantic similarity (score: %.3f)", s))
	case s > ModerateSimilarity:
		parts = append(parts, fmt.Sprintf("Moderate semantic similarity (score: %.3f)", s))
	default:
		parts = append(parts, fmt.Sprintf("Low semantic similarity (score: %.3f)", s))
	}

	if overlap.Count > 0 {
		shown := overlap.Keywords[:min(len(overlap.Keywords), MaxExplainedKeywords)]
		parts = append(parts, fmt.Sprintf("%d matching keywords (%.1f%%): %s",
			overlap.Count, overlap.Ratio*100, strings.Join(shown, ", ")))
	} else {
		parts = append(parts, "No exact keyword matches (semantic match only)")
	}

	switch {
	case docLength < ShortDocument:
		parts = append(parts, "short document")
	case docLength > LongDocument:
		parts = append(parts, "long document")
	}

	return strings.Join(parts, " | ")
}
