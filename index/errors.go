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

package index

import "errors"

var (
	// ErrInvalidK is returned when k <= 0.
	ErrInvalidK = errors.New("index: k must be greater than 0")

	// ErrDimensionMismatch is returned when a vector or query does not match the index dimension.
	ErrDimensionMismatch = errors.New("index: dimension mismatch")

	// ErrEmptyVector is returned when Build receives a zero-length vector.
	ErrEmptyVector = errors.New("index: empty vector")

	// ErrUnknownStrategy is returned when no factory is registered for a strategy name.
	ErrUnknownStrategy = errors.New("index: unknown strategy")
)
