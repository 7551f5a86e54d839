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

// Package pristinestore implements the storage contract on a pristine
// page file. Every table is a B+tree keyed by the row Key; the schema index
// maps table names to their schema and tree roots. Writes outside an
// explicit transaction commit one pristine transaction per call.
package pristinestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/btree"
	"github.com/pristinedb/pristine/go/store/pristine"
)

// DataFileName is the name of the page file inside a store directory.
const DataFileName = "pristine"

// Options configure a Store.
type Options struct {
	InitialSize   int64
	NodeCacheSize int
	NoSync        bool
	Logger        *logrus.Entry
	Metrics       *pristine.Metrics
}

func (o Options) envOptions() pristine.Options {
	return pristine.Options{
		InitialSize:   o.InitialSize,
		NodeCacheSize: o.NodeCacheSize,
		NoSync:        o.NoSync,
		Logger:        o.logger(),
		Metrics:       o.Metrics,
	}
}

func (o Options) logger() *logrus.Entry {
	if o.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return o.Logger
}

// Store is a storage.Database backed by a pristine Env.
type Store struct {
	env *pristine.Env
	log *logrus.Entry

	mu         sync.Mutex
	txn        *pristine.MutTxn
	autocommit bool
}

var _ storage.Database = (*Store)(nil)
var _ storage.Transaction = (*Store)(nil)
var _ storage.Index = (*Store)(nil)
var _ storage.IndexMut = (*Store)(nil)
var _ storage.AlterTable = (*Store)(nil)
var _ storage.Metadata = (*Store)(nil)

// Open opens the store in directory |dir|, creating it if needed.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, storage.Wrap(errors.Wrapf(err, "error creating store directory %s", dir))
	}
	env, err := pristine.Open(filepath.Join(dir, DataFileName), opts.envOptions())
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return newStore(env, opts.logger())
}

// OpenMemory opens a store whose pages live in anonymous memory.
func OpenMemory(opts Options) (*Store, error) {
	env, err := pristine.OpenMemory(opts.envOptions())
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return newStore(env, opts.logger())
}

// New opens a store over |env|. The store takes its own reference to the
// Env, so the caller keeps and must still close theirs.
func New(env *pristine.Env, log *logrus.Entry) (*Store, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return newStore(env.Share(), log)
}

func newStore(env *pristine.Env, log *logrus.Entry) (*Store, error) {
	s := &Store{env: env, log: log.WithField("store", env.Path())}
	if env.Stats().Fresh {
		// the first commit writes the version marker and the schema index
		if err := s.write(context.Background(), func(*writer) error { return nil }); err != nil {
			_ = env.Close()
			return nil, storage.Wrap(err)
		}
	}
	return s, nil
}

// Env returns the Env behind the store.
func (s *Store) Env() *pristine.Env {
	return s.env
}

// Close rolls back an open transaction and releases the Env.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn != nil {
		if err := s.txn.Abort(); err != nil {
			s.log.WithError(err).Warn("error aborting transaction on close")
		}
		s.txn = nil
	}
	return storage.Wrap(s.env.Close())
}

// Begin starts an explicit transaction. Only one transaction may be open
// on a store; requesting a non-autocommit transaction while one is open
// fails with ErrNestedTransaction.
func (s *Store) Begin(ctx context.Context, autocommit bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn != nil {
		if autocommit {
			return s.autocommit, nil
		}
		return false, storage.Wrap(storage.ErrNestedTransaction.New())
	}
	txn, err := s.env.BeginMut()
	if err != nil {
		return false, storage.Wrap(err)
	}
	s.txn, s.autocommit = txn, autocommit
	s.log.Trace("began transaction")
	return autocommit, nil
}

func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return nil
	}
	err := s.txn.Commit()
	s.txn = nil
	return storage.Wrap(err)
}

func (s *Store) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return nil
	}
	err := s.txn.Abort()
	s.txn = nil
	s.log.Trace("rolled back transaction")
	return storage.Wrap(err)
}

// snapshot is the read view shared by Txn and MutTxn.
type snapshot interface {
	Root(r pristine.Root) (uint64, bool)
	Tree(root uint64) *btree.Tree
}

// read runs |fn| against the open transaction, or a fresh read snapshot if
// there is none.
func (s *Store) read(ctx context.Context, fn func(snap snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.txn != nil {
		defer s.mu.Unlock()
		return fn(s.txn)
	}
	s.mu.Unlock()

	txn, err := s.env.Begin()
	if err != nil {
		return err
	}
	defer txn.Close()
	return fn(txn)
}

// write runs |fn| in the open transaction, or in a write transaction of its
// own that is committed when |fn| succeeds. A failed |fn| has no effect on
// either.
func (s *Store) write(ctx context.Context, fn func(w *writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn != nil {
		// a failed call leaves the transaction as it was before the call
		sp := s.txn.Savepoint()
		err := s.apply(s.txn, fn)
		if err != nil {
			if rbErr := s.txn.RollbackTo(sp); rbErr != nil {
				s.log.WithError(rbErr).Warn("error rolling back failed write")
			}
		}
		return err
	}

	txn, err := s.env.BeginMut()
	if err != nil {
		return err
	}
	if err = s.apply(txn, fn); err != nil {
		if abortErr := txn.Abort(); abortErr != nil {
			s.log.WithError(abortErr).Warn("error aborting write")
		}
		return err
	}
	return txn.Commit()
}

func (s *Store) apply(txn *pristine.MutTxn, fn func(w *writer) error) error {
	w := &writer{txn: txn, log: s.log}
	if root, ok := txn.Root(pristine.RootSchemas); ok {
		w.schemas = txn.MutableTree(root)
	} else {
		t, err := txn.CreateTree()
		if err != nil {
			return err
		}
		w.schemas = t
	}
	if err := fn(w); err != nil {
		return err
	}
	txn.SetRoot(pristine.RootSchemas, w.schemas.Root())
	return nil
}

func schemaIndex(snap snapshot) (*btree.Tree, error) {
	root, ok := snap.Root(pristine.RootSchemas)
	if !ok {
		return nil, pristine.ErrPristineCorrupted.New("schemas root is missing")
	}
	return snap.Tree(root), nil
}

func getEntry(snap snapshot, table string) (tableEntry, bool, error) {
	schemas, err := schemaIndex(snap)
	if err != nil {
		return tableEntry{}, false, err
	}
	b, ok, err := schemas.Get([]byte(table))
	if err != nil || !ok {
		return tableEntry{}, false, err
	}
	e, err := decodeTableEntry(table, b)
	if err != nil {
		return tableEntry{}, false, err
	}
	return e, true, nil
}

// writer edits the schema index of a write transaction.
type writer struct {
	txn     *pristine.MutTxn
	schemas *btree.MutableTree
	log     *logrus.Entry
}

func (w *writer) entry(table string) (tableEntry, bool, error) {
	b, ok, err := w.schemas.Get([]byte(table))
	if err != nil || !ok {
		return tableEntry{}, false, err
	}
	e, err := decodeTableEntry(table, b)
	if err != nil {
		return tableEntry{}, false, err
	}
	return e, true, nil
}

func (w *writer) mustEntry(table string) (tableEntry, error) {
	e, ok, err := w.entry(table)
	if err != nil {
		return tableEntry{}, err
	}
	if !ok {
		return tableEntry{}, storage.ErrTableNotFound.New(table)
	}
	return e, nil
}

func (w *writer) putEntry(e tableEntry) error {
	b, err := e.encode()
	if err != nil {
		return err
	}
	_, err = w.schemas.Put([]byte(e.schema.TableName), b)
	return err
}
