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

package pristinestore

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/btree"
	"github.com/pristinedb/pristine/go/store/pristine"
)

func (s *Store) FetchAllSchemas(ctx context.Context) ([]*storage.Schema, error) {
	var schemas []*storage.Schema
	err := s.read(ctx, func(snap snapshot) error {
		idx, err := schemaIndex(snap)
		if err != nil {
			return err
		}
		c := idx.Cursor()
		for c.First(); c.Valid(); c.Next() {
			b, err := c.Value()
			if err != nil {
				return err
			}
			e, err := decodeTableEntry(string(c.Key()), b)
			if err != nil {
				return err
			}
			schemas = append(schemas, e.schema)
		}
		return c.Err()
	})
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return schemas, nil
}

func (s *Store) FetchSchema(ctx context.Context, table string) (*storage.Schema, error) {
	var schema *storage.Schema
	err := s.read(ctx, func(snap snapshot) error {
		e, ok, err := getEntry(snap, table)
		if ok {
			schema = e.schema
		}
		return err
	})
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return schema, nil
}

func (s *Store) FetchData(ctx context.Context, table string, key storage.Key) (*storage.DataRow, error) {
	var row *storage.DataRow
	err := s.read(ctx, func(snap snapshot) error {
		e, ok, err := getEntry(snap, table)
		if err != nil || !ok {
			return err
		}
		b, ok, err := snap.Tree(e.data).Get(key.Bytes())
		if err != nil || !ok {
			return err
		}
		r, err := storage.DecodeRow(b)
		if err != nil {
			return err
		}
		row = &r
		return nil
	})
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return row, nil
}

// ScanData streams the rows of |table| in key order. Outside a transaction
// the iterator holds a read snapshot until it is closed; inside one, the
// rows are collected up front.
func (s *Store) ScanData(ctx context.Context, table string) (storage.RowIter, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(err)
	}

	s.mu.Lock()
	if s.txn != nil {
		defer s.mu.Unlock()
		var rows []storage.KeyedRow
		e, ok, err := getEntry(s.txn, table)
		if err == nil && ok {
			rows, err = collectRows(ctx, s.txn.Tree(e.data))
		}
		if err != nil {
			return nil, storage.Wrap(err)
		}
		return storage.RowsToRowIter(rows...), nil
	}
	s.mu.Unlock()

	txn, err := s.env.Begin()
	if err != nil {
		return nil, storage.Wrap(err)
	}
	e, ok, err := getEntry(txn, table)
	if err != nil || !ok {
		_ = txn.Close()
		return storage.RowsToRowIter(), storage.Wrap(err)
	}
	return newRowIter(txn, txn.Tree(e.data)), nil
}

func (s *Store) InsertSchema(ctx context.Context, schema *storage.Schema) error {
	if err := schema.Validate(); err != nil {
		return storage.Wrap(err)
	}
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		if _, ok, err := w.entry(schema.TableName); err != nil {
			return err
		} else if ok {
			return storage.ErrTableAlreadyExists.New(schema.TableName)
		}

		data, err := w.txn.CreateTree()
		if err != nil {
			return err
		}
		e := tableEntry{schema: schema.Clone(), data: data.Root(), indexes: make(map[string]uint64)}
		for _, idx := range e.schema.Indexes {
			t, err := w.txn.CreateTree()
			if err != nil {
				return err
			}
			e.indexes[idx.Name] = t.Root()
		}
		w.log.WithField("table", schema.TableName).Debug("created table")
		return w.putEntry(e)
	}))
}

func (s *Store) DeleteSchema(ctx context.Context, table string) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, ok, err := w.entry(table)
		if err != nil || !ok {
			return err
		}
		if err = w.txn.MutableTree(e.data).Drop(); err != nil {
			return err
		}
		for _, root := range e.indexes {
			if err = w.txn.MutableTree(root).Drop(); err != nil {
				return err
			}
		}
		if _, err = w.schemas.Delete([]byte(table)); err != nil {
			return err
		}
		w.log.WithField("table", table).Debug("dropped table")
		return nil
	}))
}

// AppendData stores |rows| under their primary key, or under a generated
// time-ordered UUID when the table has none.
func (s *Store) AppendData(ctx context.Context, table string, rows []storage.DataRow) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry(table)
		if err != nil {
			return err
		}
		data := w.txn.MutableTree(e.data)
		idx := w.openIndexes(e)
		for _, row := range rows {
			if err = e.schema.CheckShape(row); err != nil {
				return err
			}
			enc, err := storage.EncodeRow(row)
			if err != nil {
				return err
			}
			key, ok, err := e.schema.RowKey(row)
			if err != nil {
				return err
			}
			if ok {
				err = data.Insert(key.Bytes(), enc)
				if btree.ErrKeyExists.Is(err) {
					return storage.ErrDuplicateKey.New(key, table)
				}
			} else {
				key, err = appendSurrogate(data, enc)
			}
			if err != nil {
				return err
			}
			if err = idx.insert(key, row); err != nil {
				return err
			}
			e.rows++
		}
		e.data = data.Root()
		idx.store(&e)
		w.log.WithFields(logrus.Fields{"table": table, "rows": len(rows)}).Trace("appended rows")
		return w.putEntry(e)
	}))
}

func appendSurrogate(data *btree.MutableTree, enc []byte) (storage.Key, error) {
	for {
		id, err := uuid.NewV7()
		if err != nil {
			return storage.Key{}, err
		}
		key := storage.UUIDKey(id)
		err = data.Insert(key.Bytes(), enc)
		if btree.ErrKeyExists.Is(err) {
			continue
		}
		return key, err
	}
}

// InsertData upserts |rows|, keeping the indexes of replaced rows in step.
func (s *Store) InsertData(ctx context.Context, table string, rows []storage.KeyedRow) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry(table)
		if err != nil {
			return err
		}
		data := w.txn.MutableTree(e.data)
		idx := w.openIndexes(e)
		for _, kr := range rows {
			if err = e.schema.CheckShape(kr.Row); err != nil {
				return err
			}
			if err = replaceIndexed(data, idx, kr.Key); err != nil {
				return err
			}
			enc, err := storage.EncodeRow(kr.Row)
			if err != nil {
				return err
			}
			replaced, err := data.Put(kr.Key.Bytes(), enc)
			if err != nil {
				return err
			}
			if !replaced {
				e.rows++
			}
			if err = idx.insert(kr.Key, kr.Row); err != nil {
				return err
			}
		}
		e.data = data.Root()
		idx.store(&e)
		w.log.WithFields(logrus.Fields{"table": table, "rows": len(rows)}).Trace("inserted rows")
		return w.putEntry(e)
	}))
}

func (s *Store) DeleteData(ctx context.Context, table string, keys []storage.Key) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry(table)
		if err != nil {
			return err
		}
		data := w.txn.MutableTree(e.data)
		idx := w.openIndexes(e)
		for _, key := range keys {
			if err = replaceIndexed(data, idx, key); err != nil {
				return err
			}
			found, err := data.Delete(key.Bytes())
			if err != nil {
				return err
			}
			if found {
				e.rows--
			}
		}
		e.data = data.Root()
		idx.store(&e)
		w.log.WithFields(logrus.Fields{"table": table, "keys": len(keys)}).Trace("deleted rows")
		return w.putEntry(e)
	}))
}

// replaceIndexed removes the index entries of the row stored under |key|.
func replaceIndexed(data *btree.MutableTree, idx *indexSet, key storage.Key) error {
	if idx.empty() {
		return nil
	}
	b, ok, err := data.Get(key.Bytes())
	if err != nil || !ok {
		return err
	}
	old, err := storage.DecodeRow(b)
	if err != nil {
		return err
	}
	return idx.remove(key, old)
}

func collectRows(ctx context.Context, tree *btree.Tree) ([]storage.KeyedRow, error) {
	var rows []storage.KeyedRow
	c := tree.Cursor()
	for c.First(); c.Valid(); c.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kr, err := readRow(c)
		if err != nil {
			return nil, err
		}
		rows = append(rows, kr)
	}
	return rows, c.Err()
}

func readRow(c *btree.Cursor) (storage.KeyedRow, error) {
	key, err := storage.DecodeKey(c.Key())
	if err != nil {
		return storage.KeyedRow{}, err
	}
	b, err := c.Value()
	if err != nil {
		return storage.KeyedRow{}, err
	}
	row, err := storage.DecodeRow(b)
	if err != nil {
		return storage.KeyedRow{}, err
	}
	return storage.KeyedRow{Key: key, Row: row}, nil
}

// rowIter walks a table tree inside its own read snapshot.
type rowIter struct {
	txn     *pristine.Txn
	cur     *btree.Cursor
	started bool
}

func newRowIter(txn *pristine.Txn, tree *btree.Tree) *rowIter {
	return &rowIter{txn: txn, cur: tree.Cursor()}
}

func (it *rowIter) Next(ctx context.Context) (storage.KeyedRow, error) {
	if err := ctx.Err(); err != nil {
		return storage.KeyedRow{}, err
	}
	if it.cur == nil {
		return storage.KeyedRow{}, io.EOF
	}
	if !it.started {
		it.cur.First()
		it.started = true
	} else {
		it.cur.Next()
	}
	if !it.cur.Valid() {
		if err := it.cur.Err(); err != nil {
			return storage.KeyedRow{}, storage.Wrap(err)
		}
		return storage.KeyedRow{}, io.EOF
	}
	kr, err := readRow(it.cur)
	return kr, storage.Wrap(err)
}

func (it *rowIter) Close(context.Context) error {
	if it.txn == nil {
		return nil
	}
	err := it.txn.Close()
	it.txn, it.cur = nil, nil
	return storage.Wrap(err)
}
