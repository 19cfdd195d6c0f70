package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"valid query", "machine learning", nil},
		{"empty query", "", ErrEmptyQuery},
		{"whitespace only", "  \t\n", ErrEmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTopK(t *testing.T) {
	tests := []struct {
		name    string
		topK    int
		wantErr bool
	}{
		{"lower bound", 1, false},
		{"upper bound", 50, false},
		{"zero", 0, true},
		{"negative", -3, true},
		{"above max", 51, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopK(tt.topK, 50)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTopKOutOfRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDocuments(t *testing.T) {
	t.Run("valid set", func(t *testing.T) {
		docs := []Document{{ID: "a"}, {ID: "b", Content: ""}}
		assert.NoError(t, ValidateDocuments(docs))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.NoError(t, ValidateDocuments(nil))
	})

	t.Run("empty id", func(t *testing.T) {
		err := ValidateDocuments([]Document{{ID: "a"}, {ID: ""}})
		assert.True(t, errors.Is(err, ErrEmptyDocumentID))
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := ValidateDocuments([]Document{{ID: "a"}, {ID: "a"}})
		assert.ErrorIs(t, err, ErrDuplicateDocumentID)
	})
}

func TestValidateVector(t *testing.T) {
	assert.NoError(t, ValidateVector([]float32{1, 2}, 2))
	assert.ErrorIs(t, ValidateVector([]float32{1}, 2), ErrDimensionMismatch)
	assert.ErrorIs(t, ValidateVector(nil, 2), ErrDimensionMismatch)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk on fire")

	tests := []struct {
		name     string
		err      error
		kind     Kind
		sentinel error
		client   bool
		server   bool
	}{
		{"not ready", NotReady("search", "index not built"), KindNotReady, ErrNotReady, true, false},
		{"validation", Validation("search", ErrEmptyQuery), KindValidation, ErrValidation, true, false},
		{"embedding", EmbeddingFailure("embed", "doc1", cause), KindEmbeddingFailure, ErrEmbeddingFailure, false, true},
		{"storage", StorageFailure("put", "doc1", cause), KindStorageFailure, ErrStorageFailure, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.client, IsClientFault(tt.err))
			assert.Equal(t, tt.server, IsServerFault(tt.err))
		})
	}

	t.Run("kind survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("generate: %w", StorageFailure("get", "doc9", cause))
		assert.Equal(t, KindStorageFailure, KindOf(err))
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "doc_id=doc9")
	})

	t.Run("wrapped cause is reachable", func(t *testing.T) {
		err := Validation("search", ErrEmptyQuery)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.NotErrorIs(t, err, ErrNotReady)
	})

	t.Run("plain errors have no kind", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(cause))
		assert.False(t, IsClientFault(cause))
		assert.False(t, IsServerFault(cause))
	})
}
