package mock

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync/atomic"
)

// DefaultDimension is the vector length produced by NewMockEmbedder.
const DefaultDimension = 384

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
//
// The default behaviour hashes each token of the lowercased text into one of
// Dim buckets and L2-normalizes the counts, so texts that share words have a
// positive cosine similarity and identical texts have identical vectors.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dim is the reported and produced vector length.
	Dim int

	textCalls  atomic.Int64
	batchCalls atomic.Int64
	texts      atomic.Int64
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dim: DefaultDimension}
}

// NewMockEmbedderWithDimension creates a mock embedder producing dim-length vectors.
func NewMockEmbedderWithDimension(dim int) *MockEmbedder {
	return &MockEmbedder{Dim: dim}
}

// EmbedText generates a deterministic embedding for text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.textCalls.Add(1)
	m.texts.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Vector(text, m.Dimension()), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.texts.Add(int64(len(texts)))

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = Vector(text, m.Dimension())
	}
	return embeddings, nil
}

// Dimension returns Dim, or DefaultDimension when Dim is unset.
func (m *MockEmbedder) Dimension() int {
	if m.Dim <= 0 {
		return DefaultDimension
	}
	return m.Dim
}

// CallCount returns the number of times any embed method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.textCalls.Load() + m.batchCalls.Load())
}

// TextCount returns the total number of texts submitted for embedding.
func (m *MockEmbedder) TextCount() int {
	return int(m.texts.Load())
}

// Reset clears the counters and injected behaviour.
func (m *MockEmbedder) Reset() {
	m.textCalls.Store(0)
	m.batchCalls.Store(0)
	m.texts.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// Vector returns the feature-hashed embedding of text. Text with no tokens
// maps to the zero vector.
func Vector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	if dim == 0 {
		return vector
	}
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vector[h.Sum32()%uint32(dim)]++
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vector
	}
	norm := math.Sqrt(sumSquares)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}
