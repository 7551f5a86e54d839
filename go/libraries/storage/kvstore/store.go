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

// Package kvstore implements the storage contract over a flat blob store.
// Every table is one blob holding all of its rows, so each write rewrites
// the table. It suits small databases and stores without page files.
package kvstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/blobstore"
)

// Store is a storage.Database over a blobstore.Blobstore.
type Store struct {
	bs  blobstore.Blobstore
	log *logrus.Entry
	mu  sync.RWMutex
}

var _ storage.Database = (*Store)(nil)
var _ storage.Metadata = (*Store)(nil)
var _ storage.CustomFunction = (*Store)(nil)
var _ storage.CustomFunctionMut = (*Store)(nil)

// New returns a Store over |bs|. The Store owns |bs| and closes it.
func New(bs blobstore.Blobstore, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{bs: bs, log: log.WithField("store", bs.Path())}
}

// NewMemory returns a Store over an in-memory blobstore.
func NewMemory() *Store {
	return New(blobstore.NewInMemoryBlobstore(""), nil)
}

func (s *Store) Close() error {
	return storage.Wrap(s.bs.Close())
}

func (s *Store) names(ctx context.Context) ([]string, error) {
	b, err := s.bs.Get(ctx, schemaNamesKey)
	if blobstore.IsNotFoundError(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return decodeNames(b)
}

func (s *Store) putNames(ctx context.Context, names []string) error {
	sort.Strings(names)
	b, err := encodeNames(names)
	if err != nil {
		return err
	}
	return s.bs.Put(ctx, schemaNamesKey, b)
}

func (s *Store) schema(ctx context.Context, table string) (*storage.Schema, error) {
	b, err := s.bs.Get(ctx, schemaPrefix+table)
	if blobstore.IsNotFoundError(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return storage.UnmarshalSchema(b)
}

func (s *Store) mustSchema(ctx context.Context, table string) (*storage.Schema, error) {
	sch, err := s.schema(ctx, table)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, storage.ErrTableNotFound.New(table)
	}
	return sch, nil
}

func (s *Store) rows(ctx context.Context, table string) ([]storage.KeyedRow, error) {
	b, err := s.bs.Get(ctx, dataPrefix+table)
	if blobstore.IsNotFoundError(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return decodeRows(table, b)
}

func (s *Store) putRows(ctx context.Context, table string, rows []storage.KeyedRow) error {
	b, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.bs.Put(ctx, dataPrefix+table, b)
}

func (s *Store) FetchAllSchemas(ctx context.Context) ([]*storage.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names, err := s.names(ctx)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	var schemas []*storage.Schema
	for _, name := range names {
		sch, err := s.mustSchema(ctx, name)
		if err != nil {
			return nil, storage.Wrap(err)
		}
		schemas = append(schemas, sch)
	}
	return schemas, nil
}

func (s *Store) FetchSchema(ctx context.Context, table string) (*storage.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch, err := s.schema(ctx, table)
	return sch, storage.Wrap(err)
}

func (s *Store) FetchData(ctx context.Context, table string, key storage.Key) (*storage.DataRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.rows(ctx, table)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	for _, r := range rows {
		if r.Key == key {
			return &r.Row, nil
		}
	}
	return nil, nil
}

// ScanData returns the rows of |table| in key order when it has a primary
// key and in insertion order otherwise.
func (s *Store) ScanData(ctx context.Context, table string) (storage.RowIter, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch, err := s.schema(ctx, table)
	if err != nil || sch == nil {
		return storage.RowsToRowIter(), storage.Wrap(err)
	}
	rows, err := s.rows(ctx, table)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	if _, ok := sch.PrimaryKey(); ok {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key.Less(rows[j].Key) })
	}
	return storage.RowsToRowIter(rows...), nil
}

// InsertSchema creates a table. Unlike a blind put, an existing table is an
// error.
func (s *Store) InsertSchema(ctx context.Context, schema *storage.Schema) error {
	if err := schema.Validate(); err != nil {
		return storage.Wrap(err)
	}
	return storage.Wrap(s.update(ctx, func() error {
		names, err := s.names(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			if name == schema.TableName {
				return storage.ErrTableAlreadyExists.New(name)
			}
		}
		b, err := storage.MarshalSchema(schema)
		if err != nil {
			return err
		}
		if err = s.bs.Put(ctx, schemaPrefix+schema.TableName, b); err != nil {
			return err
		}
		if err = s.putRows(ctx, schema.TableName, nil); err != nil {
			return err
		}
		s.log.WithField("table", schema.TableName).Debug("created table")
		return s.putNames(ctx, append(names, schema.TableName))
	}))
}

func (s *Store) DeleteSchema(ctx context.Context, table string) error {
	return storage.Wrap(s.update(ctx, func() error {
		names, err := s.names(ctx)
		if err != nil {
			return err
		}
		kept := names[:0]
		for _, name := range names {
			if name != table {
				kept = append(kept, name)
			}
		}
		if len(kept) == len(names) {
			return nil
		}
		// the name list goes first so a partial delete leaves no visible table
		if err = s.putNames(ctx, kept); err != nil {
			return err
		}
		if err = s.bs.Delete(ctx, dataPrefix+table); err != nil {
			return err
		}
		s.log.WithField("table", table).Debug("dropped table")
		return s.bs.Delete(ctx, schemaPrefix+table)
	}))
}

func (s *Store) AppendData(ctx context.Context, table string, rows []storage.DataRow) error {
	return storage.Wrap(s.updateRows(ctx, table, func(sch *storage.Schema, stored []storage.KeyedRow) ([]storage.KeyedRow, error) {
		present := make(map[storage.Key]bool, len(stored))
		for _, r := range stored {
			present[r.Key] = true
		}
		for _, row := range rows {
			if err := sch.CheckShape(row); err != nil {
				return nil, err
			}
			key, ok, err := sch.RowKey(row)
			if err != nil {
				return nil, err
			}
			if !ok {
				key = storage.UUIDKey(uuid.New())
			} else if present[key] {
				return nil, storage.ErrDuplicateKey.New(key, table)
			}
			present[key] = true
			stored = append(stored, storage.KeyedRow{Key: key, Row: row})
		}
		return stored, nil
	}))
}

func (s *Store) InsertData(ctx context.Context, table string, rows []storage.KeyedRow) error {
	return storage.Wrap(s.updateRows(ctx, table, func(sch *storage.Schema, stored []storage.KeyedRow) ([]storage.KeyedRow, error) {
		pos := make(map[storage.Key]int, len(stored))
		for i, r := range stored {
			pos[r.Key] = i
		}
		for _, r := range rows {
			if err := sch.CheckShape(r.Row); err != nil {
				return nil, err
			}
			if i, ok := pos[r.Key]; ok {
				stored[i].Row = r.Row
				continue
			}
			pos[r.Key] = len(stored)
			stored = append(stored, r)
		}
		return stored, nil
	}))
}

func (s *Store) DeleteData(ctx context.Context, table string, keys []storage.Key) error {
	return storage.Wrap(s.updateRows(ctx, table, func(_ *storage.Schema, stored []storage.KeyedRow) ([]storage.KeyedRow, error) {
		gone := make(map[storage.Key]bool, len(keys))
		for _, k := range keys {
			gone[k] = true
		}
		kept := stored[:0]
		for _, r := range stored {
			if !gone[r.Key] {
				kept = append(kept, r)
			}
		}
		return kept, nil
	}))
}

func (s *Store) update(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// updateRows rewrites the rows of an existing table with |fn|.
func (s *Store) updateRows(ctx context.Context, table string, fn func(*storage.Schema, []storage.KeyedRow) ([]storage.KeyedRow, error)) error {
	return s.update(ctx, func() error {
		sch, err := s.mustSchema(ctx, table)
		if err != nil {
			return err
		}
		rows, err := s.rows(ctx, table)
		if err != nil {
			return err
		}
		rows, err = fn(sch, rows)
		if err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{"table": table, "rows": len(rows)}).Trace("rewrote table")
		return s.putRows(ctx, table, rows)
	})
}

func (s *Store) ScanTableMeta(ctx context.Context) ([]storage.TableMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names, err := s.names(ctx)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	metas := make([]storage.TableMeta, 0, len(names))
	for _, name := range names {
		rows, err := s.rows(ctx, name)
		if err != nil {
			return nil, storage.Wrap(err)
		}
		metas = append(metas, storage.TableMeta{Name: name, Rows: uint64(len(rows))})
	}
	return metas, nil
}

func (s *Store) FetchFunction(ctx context.Context, name string) (*storage.Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.bs.Get(ctx, functionPrefix+name)
	if blobstore.IsNotFoundError(err) {
		return nil, nil
	} else if err != nil {
		return nil, storage.Wrap(err)
	}
	f, err := storage.UnmarshalFunction(b)
	return f, storage.Wrap(err)
}

func (s *Store) FetchAllFunctions(ctx context.Context) ([]*storage.Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, err := s.bs.Keys(ctx, functionPrefix)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	var fns []*storage.Function
	for _, k := range keys {
		b, err := s.bs.Get(ctx, k)
		if err != nil {
			return nil, storage.Wrap(err)
		}
		f, err := storage.UnmarshalFunction(b)
		if err != nil {
			return nil, storage.Wrap(err)
		}
		fns = append(fns, f)
	}
	return fns, nil
}

func (s *Store) InsertFunction(ctx context.Context, f *storage.Function) error {
	return storage.Wrap(s.update(ctx, func() error {
		ok, err := s.bs.Exists(ctx, functionPrefix+f.Name)
		if err != nil {
			return err
		}
		if ok {
			return storage.ErrFunctionExists.New(f.Name)
		}
		b, err := storage.MarshalFunction(f)
		if err != nil {
			return err
		}
		return s.bs.Put(ctx, functionPrefix+f.Name, b)
	}))
}

func (s *Store) DeleteFunction(ctx context.Context, name string) error {
	return storage.Wrap(s.update(ctx, func() error {
		ok, err := s.bs.Exists(ctx, functionPrefix+name)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrFunctionNotFound.New(name)
		}
		return s.bs.Delete(ctx, functionPrefix+name)
	}))
}
