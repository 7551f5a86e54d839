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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlobstores(t *testing.T) map[string]Blobstore {
	ldb, err := NewLevelDBBlobstore(filepath.Join(t.TempDir(), "ldb"))
	require.NoError(t, err)
	memLdb, err := NewMemLevelDBBlobstore()
	require.NoError(t, err)
	bdb, err := NewBoltBlobstore(filepath.Join(t.TempDir(), "store.bolt"))
	require.NoError(t, err)
	return map[string]Blobstore{
		"inmem":       NewInMemoryBlobstore(""),
		"leveldb":     ldb,
		"mem leveldb": memLdb,
		"bolt":        bdb,
	}
}

func TestBlobstores(t *testing.T) {
	ctx := context.Background()
	for name, bs := range testBlobstores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { require.NoError(t, bs.Close()) }()

			_, err := bs.Get(ctx, "missing")
			assert.True(t, IsNotFoundError(err), "%v", err)
			ok, err := bs.Exists(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, bs.Put(ctx, "data/b", []byte("two")))
			require.NoError(t, bs.Put(ctx, "data/a", []byte("one")))
			require.NoError(t, bs.Put(ctx, "schema/a", []byte("s")))
			require.NoError(t, bs.Put(ctx, "data/a", []byte("uno")))

			data, err := bs.Get(ctx, "data/a")
			require.NoError(t, err)
			assert.Equal(t, []byte("uno"), data)
			ok, err = bs.Exists(ctx, "data/b")
			require.NoError(t, err)
			assert.True(t, ok)

			// returned blobs are copies
			data[0] = 'X'
			again, err := bs.Get(ctx, "data/a")
			require.NoError(t, err)
			assert.Equal(t, []byte("uno"), again)

			keys, err := bs.Keys(ctx, "data/")
			require.NoError(t, err)
			assert.Equal(t, []string{"data/a", "data/b"}, keys)
			keys, err = bs.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, keys, 3)

			require.NoError(t, bs.Delete(ctx, "data/a"))
			require.NoError(t, bs.Delete(ctx, "data/a"))
			_, err = bs.Get(ctx, "data/a")
			assert.True(t, IsNotFoundError(err))
			keys, err = bs.Keys(ctx, "data/")
			require.NoError(t, err)
			assert.Equal(t, []string{"data/b"}, keys)
		})
	}
}

func TestPersistentBlobstores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for name, open := range map[string]func() (Blobstore, error){
		"leveldb": func() (Blobstore, error) { return NewLevelDBBlobstore(filepath.Join(dir, "ldb")) },
		"bolt":    func() (Blobstore, error) { return NewBoltBlobstore(filepath.Join(dir, "store.bolt")) },
	} {
		t.Run(name, func(t *testing.T) {
			bs, err := open()
			require.NoError(t, err)
			require.NoError(t, bs.Put(ctx, "k", []byte("v")))
			require.NoError(t, bs.Close())

			bs, err = open()
			require.NoError(t, err)
			defer bs.Close()
			data, err := bs.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), data)
		})
	}
}
