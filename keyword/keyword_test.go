package keyword

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases", "Machine LEARNING", []string{"learning", "machine"}},
		{"drops short tokens", "an ox is big", []string{"big"}},
		{"splits on punctuation", "neural-networks, deep.learning!", []string{"deep", "learning", "networks", "neural"}},
		{"keeps digits", "gpt4 and 2024 results", []string{"2024", "and", "gpt4", "results"}},
		{"deduplicates", "data data DATA", []string{"data"}},
		{"empty", "", []string{}},
		{"only short tokens", "a b cd", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).Sorted())
		})
	}
}

func TestCompareText(t *testing.T) {
	t.Run("partial overlap", func(t *testing.T) {
		o := CompareText("machine learning models", "Machine learning algorithms improve with data")
		assert.Equal(t, []string{"learning", "machine"}, o.Keywords)
		assert.Equal(t, 2, o.Count)
		assert.InDelta(t, 2.0/3.0, o.Ratio, 1e-9)
	})

	t.Run("full overlap", func(t *testing.T) {
		o := CompareText("machine learning", "learning about machine learning")
		assert.Equal(t, 2, o.Count)
		assert.Equal(t, 1.0, o.Ratio)
	})

	t.Run("no overlap", func(t *testing.T) {
		o := CompareText("quantum physics", "cooking recipes")
		assert.Empty(t, o.Keywords)
		assert.Equal(t, 0, o.Count)
		assert.Equal(t, 0.0, o.Ratio)
	})

	t.Run("empty query set yields zero ratio", func(t *testing.T) {
		o := CompareText("a an of", "anything at all")
		assert.Equal(t, 0, o.Count)
		assert.Equal(t, 0.0, o.Ratio)
	})
}

func TestCompare_RatioBounds(t *testing.T) {
	vocab := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota", "kappa"}
	rng := rand.New(rand.NewPCG(1, 2))

	pick := func() string {
		n := rng.IntN(len(vocab))
		words := make([]string, n)
		for i := range words {
			words[i] = vocab[rng.IntN(len(vocab))]
		}
		return strings.Join(words, " ")
	}

	for i := 0; i < 500; i++ {
		q, d := pick(), pick()
		o := CompareText(q, d)
		require.GreaterOrEqual(t, o.Ratio, 0.0)
		require.LessOrEqual(t, o.Ratio, 1.0)
		if len(Extract(q)) == 0 {
			require.Equal(t, 0.0, o.Ratio)
		}
		require.True(t, isSorted(o.Keywords))
	}
}

func isSorted(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
