package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCacheRequired is returned when a cache is not provided.
	ErrCacheRequired = errors.New("embedding cache required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCountMismatch is returned when a batch call returns the wrong number of vectors.
	ErrCountMismatch = errors.New("embedding count mismatch")
)
