package index

import (
	"fmt"
	"math"
)

// Normalize returns a unit-length copy of v.
// A zero vector is returned as a zero vector.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	norm := Norm(v)
	if norm == 0 {
		return out
	}
	for i, val := range v {
		out[i] = float32(float64(val) / norm)
	}
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two equal-length vectors.
// Every strategy scores through Dot so that scores are bit-identical across them.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// NormalizeAll validates that all vectors share the first vector's dimension and
// returns unit-length copies along with that dimension.
func NormalizeAll(vectors [][]float32) ([][]float32, int, error) {
	if len(vectors) == 0 {
		return nil, 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, 0, ErrEmptyVector
	}
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, 0, fmt.Errorf("%w: vector %d has %d components, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		out[i] = Normalize(v)
	}
	return out, dim, nil
}

