// Package keyword extracts keyword sets from text and scores their overlap.
package keyword

import (
	"regexp"
	"slices"
	"strings"
)

// MinLength is the shortest token kept as a keyword.
const MinLength = 3

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Set is an unordered set of keywords.
type Set map[string]struct{}

// Extract lowercases text and returns its alphanumeric runs of at least MinLength characters.
func Extract(text string) Set {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(Set, len(tokens))
	for _, tok := range tokens {
		if len(tok) >= MinLength {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Sorted returns the keywords in alphabetical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Overlap describes the keywords shared by a query and a document.
type Overlap struct {
	Keywords []string // Shared keywords, sorted alphabetically
	Count    int
	Ratio    float64 // Count divided by the number of query keywords, 0 when the query has none
}

// Compare computes the overlap between a query set and a document set.
func Compare(query, doc Set) Overlap {
	shared := make([]string, 0)
	for k := range query {
		if _, ok := doc[k]; ok {
			shared = append(shared, k)
		}
	}
	slices.Sort(shared)

	var ratio float64
	if len(query) > 0 {
		ratio = float64(len(shared)) / float64(len(query))
	}
	return Overlap{Keywords: shared, Count: len(shared), Ratio: ratio}
}

// CompareText extracts keywords from both texts and compares them.
func CompareText(query, doc string) Overlap {
	return Compare(Extract(query), Extract(doc))
}
