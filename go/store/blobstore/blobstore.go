// Copyright 2026 Dolthub, Inc.
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

// Package blobstore provides flat key/value stores of whole blobs. They are
// the persistence layer of the key/value storage backend.
package blobstore

import (
	"context"
	"io"
)

// Blobstore is an interface for storing and retrieving blobs of data by key
type Blobstore interface {
	io.Closer

	// Path returns this blobstore's path, or the empty string when it has none.
	Path() string
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the blob stored under |key|, or NotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes |key|. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns every key starting with |prefix| in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
