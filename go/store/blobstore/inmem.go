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

package blobstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/btree"
)

type blob struct {
	key  string
	data []byte
}

func blobLess(a, b blob) bool {
	return a.key < b.key
}

// InMemoryBlobstore provides an in memory implementation of the Blobstore interface
type InMemoryBlobstore struct {
	path  string
	mutex sync.RWMutex
	blobs *btree.BTreeG[blob]
}

var _ Blobstore = &InMemoryBlobstore{}

// NewInMemoryBlobstore creates an instance of an InMemoryBlobstore
func NewInMemoryBlobstore(path string) *InMemoryBlobstore {
	return &InMemoryBlobstore{
		path:  path,
		blobs: btree.NewG[blob](32, blobLess),
	}
}

func (bs *InMemoryBlobstore) Path() string {
	return bs.path
}

// Get returns a copy of the blob stored under |key|.
func (bs *InMemoryBlobstore) Get(ctx context.Context, key string) ([]byte, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if b, ok := bs.blobs.Get(blob{key: key}); ok {
		return append([]byte(nil), b.data...), nil
	}

	return nil, NotFound{key}
}

// Put sets the blob for a key
func (bs *InMemoryBlobstore) Put(ctx context.Context, key string, data []byte) error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()
	bs.blobs.ReplaceOrInsert(blob{key: key, data: append([]byte(nil), data...)})
	return nil
}

func (bs *InMemoryBlobstore) Delete(ctx context.Context, key string) error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()
	bs.blobs.Delete(blob{key: key})
	return nil
}

// Exists returns true if a blob exists for the given key, and false if it does not.
// For InMemoryBlobstore instances error should never be returned (though other
// implementations of this interface can)
func (bs *InMemoryBlobstore) Exists(ctx context.Context, key string) (bool, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	return bs.blobs.Has(blob{key: key}), nil
}

func (bs *InMemoryBlobstore) Keys(ctx context.Context, prefix string) ([]string, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	var keys []string
	bs.blobs.AscendGreaterOrEqual(blob{key: prefix}, func(b blob) bool {
		if !strings.HasPrefix(b.key, prefix) {
			return false
		}
		keys = append(keys, b.key)
		return true
	})
	return keys, nil
}

func (bs *InMemoryBlobstore) Close() error {
	return nil
}
