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

import "errors"

var (
	// ErrNotFound is returned when no chunk exists at a position.
	ErrNotFound = errors.New("chunk not found")

	// ErrDuplicateKey is returned when a position is already taken.
	// Indexes are written once; a rebuild starts from an empty store.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageClosed is returned by any call after the backend closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery reports a negative start, limit or similar argument.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed wraps JSON encoding and decoding errors.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData reports a stored key or ID shorter than expected.
	ErrTruncatedData = errors.New("truncated data")
)
