// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the engine and its collaborators.
var (
	// ErrNotReady indicates an operation was invoked before the lifecycle state it requires.
	ErrNotReady = errors.New("not ready")

	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation failed")

	// ErrEmbeddingFailure indicates the embedding capability failed or timed out.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrStorageFailure indicates the persistent cache could not complete an I/O operation.
	ErrStorageFailure = errors.New("storage failure")
)

// Domain validation errors
var (
	// ErrEmptyQuery indicates a blank search query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrTopKOutOfRange indicates top_k outside the accepted range.
	ErrTopKOutOfRange = errors.New("top_k out of range")

	// ErrEmptyDocumentID indicates a document without an identity.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrDuplicateDocumentID indicates two documents share an identity.
	ErrDuplicateDocumentID = errors.New("duplicate document id")

	// ErrDocumentNotFound indicates a lookup of an ID that is not loaded.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDimensionMismatch indicates a vector whose length differs from the expected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Kind tags an Error with its failure class.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotReady
	KindValidation
	KindEmbeddingFailure
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not_ready"
	case KindValidation:
		return "validation"
	case KindEmbeddingFailure:
		return "embedding_failure"
	case KindStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotReady:
		return ErrNotReady
	case KindValidation:
		return ErrValidation
	case KindEmbeddingFailure:
		return ErrEmbeddingFailure
	case KindStorageFailure:
		return ErrStorageFailure
	default:
		return nil
	}
}

// Error carries a failure kind together with the operation and document it concerns.
type Error struct {
	Kind  Kind
	Op    string
	DocID string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("error")
	}
	if e.DocID != "" {
		fmt.Fprintf(&b, " (doc_id=%s)", e.DocID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrNotReady) works.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NotReady returns a KindNotReady error.
func NotReady(op, msg string) error {
	return &Error{Kind: KindNotReady, Op: op, Err: errors.New(msg)}
}

// Validation returns a KindValidation error wrapping err.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// EmbeddingFailure returns a KindEmbeddingFailure error wrapping err.
func EmbeddingFailure(op, docID string, err error) error {
	return &Error{Kind: KindEmbeddingFailure, Op: op, DocID: docID, Err: err}
}

// StorageFailure returns a KindStorageFailure error wrapping err.
func StorageFailure(op, docID string, err error) error {
	return &Error{Kind: KindStorageFailure, Op: op, DocID: docID, Err: err}
}

// KindOf returns the kind of the first Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsClientFault reports whether err was caused by the caller.
func IsClientFault(err error) bool {
	switch KindOf(err) {
	case KindNotReady, KindValidation:
		return true
	}
	return false
}

// IsServerFault reports whether err was caused by a failing dependency.
func IsServerFault(err error) bool {
	switch KindOf(err) {
	case KindEmbeddingFailure, KindStorageFailure:
		return true
	}
	return false
}
