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

package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/docseek/core"
)

// TimestampLayout is the persisted form of UpdatedAt.
const TimestampLayout = time.RFC3339Nano

// EncodeVector serializes v as consecutive little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserializes a blob written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob length %d is not a multiple of 4", ErrTruncatedData, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// FormatTimestamp renders t in the persisted UTC layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a persisted timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// cacheRecord is the persisted value of a cache entry. The document ID lives in the key.
type cacheRecord struct {
	Hash      string
	UpdatedAt string
	Embedding []byte
}

var cacheRecordMUS = cacheRecordSer{}

type cacheRecordSer struct{}

func (s cacheRecordSer) Marshal(v cacheRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.Hash, bs)
	n += ord.String.Marshal(v.UpdatedAt, bs[n:])
	return n + ord.ByteSlice.Marshal(v.Embedding, bs[n:])
}

func (s cacheRecordSer) Unmarshal(bs []byte) (v cacheRecord, n int, err error) {
	v.Hash, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.UpdatedAt, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	return
}

func (s cacheRecordSer) Size(v cacheRecord) (size int) {
	size = ord.String.Size(v.Hash)
	size += ord.String.Size(v.UpdatedAt)
	return size + ord.ByteSlice.Size(v.Embedding)
}

// MarshalCacheEntry serializes a CacheEntry to bytes. DocID is not included.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	rec := cacheRecord{
		Hash:      entry.ContentHash,
		UpdatedAt: FormatTimestamp(entry.UpdatedAt),
		Embedding: EncodeVector(entry.Vector),
	}
	buf := make([]byte, cacheRecordMUS.Size(rec))
	cacheRecordMUS.Marshal(rec, buf)
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry stored under docID.
func UnmarshalCacheEntry(docID string, data []byte) (*core.CacheEntry, error) {
	rec, _, err := cacheRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	vector, err := DecodeVector(rec.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	updatedAt, err := ParseTimestamp(rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &core.CacheEntry{
		DocID:       docID,
		ContentHash: rec.Hash,
		Vector:      vector,
		UpdatedAt:   updatedAt,
	}, nil
}
