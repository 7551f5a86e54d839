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
	"os"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBBlobstore keeps blobs in a LevelDB database.
type LevelDBBlobstore struct {
	path string
	db   *leveldb.DB
	sync bool
}

var _ Blobstore = &LevelDBBlobstore{}

func levelDBOptions() *opt.Options {
	return &opt.Options{
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10), // 10 bits/key
		WriteBuffer: 1 << 22,                   // 4MiB
	}
}

// NewLevelDBBlobstore opens the database in |dir|, creating it if needed.
// Writes are synced to disk before Put and Delete return.
func NewLevelDBBlobstore(dir string) (*LevelDBBlobstore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "error creating leveldb directory %s", dir)
	}
	db, err := leveldb.OpenFile(dir, levelDBOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "error opening leveldb at %s", dir)
	}
	return &LevelDBBlobstore{path: dir, db: db, sync: true}, nil
}

// NewMemLevelDBBlobstore opens a LevelDB database over memory storage.
func NewMemLevelDBBlobstore() (*LevelDBBlobstore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), levelDBOptions())
	if err != nil {
		return nil, err
	}
	return &LevelDBBlobstore{db: db}, nil
}

func (bs *LevelDBBlobstore) Path() string {
	return bs.path
}

func (bs *LevelDBBlobstore) Exists(ctx context.Context, key string) (bool, error) {
	return bs.db.Has([]byte(key), &opt.ReadOptions{DontFillCache: true})
}

func (bs *LevelDBBlobstore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := bs.db.Get([]byte(key), nil)
	if err == lerrors.ErrNotFound {
		return nil, NotFound{key}
	}
	return data, err
}

func (bs *LevelDBBlobstore) Put(ctx context.Context, key string, data []byte) error {
	return bs.db.Put([]byte(key), data, &opt.WriteOptions{Sync: bs.sync})
}

func (bs *LevelDBBlobstore) Delete(ctx context.Context, key string) error {
	return bs.db.Delete([]byte(key), &opt.WriteOptions{Sync: bs.sync})
}

func (bs *LevelDBBlobstore) Keys(ctx context.Context, prefix string) ([]string, error) {
	iter := bs.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

func (bs *LevelDBBlobstore) Close() error {
	return bs.db.Close()
}
