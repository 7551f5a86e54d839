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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	boltBucket      = "blobs"
	boltLockTimeout = 100 * time.Millisecond
)

// BoltBlobstore keeps blobs in a single bucket of a bbolt database file.
type BoltBlobstore struct {
	db *bolt.DB
}

var _ Blobstore = &BoltBlobstore{}

// NewBoltBlobstore opens the database file at |path|, creating it if needed.
// A file held by another process fails after a short wait.
func NewBoltBlobstore(path string) (*BoltBlobstore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrapf(err, "error creating directory for %s", path)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: boltLockTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "error opening bolt database %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltBlobstore{db: db}, nil
}

func (bs *BoltBlobstore) Path() string {
	return bs.db.Path()
}

func (bs *BoltBlobstore) Exists(ctx context.Context, key string) (ok bool, err error) {
	err = bs.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket([]byte(boltBucket)).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

func (bs *BoltBlobstore) Get(ctx context.Context, key string) (data []byte, err error) {
	err = bs.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if v == nil {
			return NotFound{key}
		}
		// values are only valid for the life of the transaction
		data = append([]byte{}, v...)
		return nil
	})
	return data, err
}

func (bs *BoltBlobstore) Put(ctx context.Context, key string, data []byte) error {
	return bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), data)
	})
}

func (bs *BoltBlobstore) Delete(ctx context.Context, key string) error {
	return bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Delete([]byte(key))
	})
}

func (bs *BoltBlobstore) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	err = bs.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(boltBucket)).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (bs *BoltBlobstore) Close() error {
	return bs.db.Close()
}
