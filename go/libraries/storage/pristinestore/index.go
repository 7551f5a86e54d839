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
	"bytes"
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/btree"
)

// An index is a tree of entries with empty values. Each row has exactly one
// entry: the Key of its indexed column value followed by the row Key, so an
// index walk visits rows by value and then by row key.
func indexEntry(schema *storage.Schema, column string, key storage.Key, row storage.DataRow) ([]byte, error) {
	vk, err := storage.NewKey(columnValue(schema, column, row))
	if err != nil {
		return nil, err
	}
	return append(vk.Bytes(), key.Bytes()...), nil
}

// columnValue returns the value of |column| in |row|, or Null when the row
// does not carry it.
func columnValue(schema *storage.Schema, column string, row storage.DataRow) storage.Value {
	if row.IsMap() {
		if v, ok := row.Map[column]; ok {
			return v
		}
		return storage.Null{}
	}
	i := schema.ColumnIndex(column)
	if i < 0 || i >= len(row.Values) {
		return storage.Null{}
	}
	return row.Values[i]
}

// indexSet maintains the indexes of one table during a write.
type indexSet struct {
	schema *storage.Schema
	trees  map[string]*btree.MutableTree
}

func (w *writer) openIndexes(e tableEntry) *indexSet {
	is := &indexSet{schema: e.schema, trees: make(map[string]*btree.MutableTree, len(e.indexes))}
	for name, root := range e.indexes {
		is.trees[name] = w.txn.MutableTree(root)
	}
	return is
}

func (is *indexSet) empty() bool {
	return len(is.trees) == 0
}

func (is *indexSet) insert(key storage.Key, row storage.DataRow) error {
	for _, idx := range is.schema.Indexes {
		ent, err := indexEntry(is.schema, idx.Column, key, row)
		if err != nil {
			return err
		}
		if _, err = is.trees[idx.Name].Put(ent, []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func (is *indexSet) remove(key storage.Key, row storage.DataRow) error {
	for _, idx := range is.schema.Indexes {
		ent, err := indexEntry(is.schema, idx.Column, key, row)
		if err != nil {
			return err
		}
		if _, err = is.trees[idx.Name].Delete(ent); err != nil {
			return err
		}
	}
	return nil
}

// store records the current index roots in |e|.
func (is *indexSet) store(e *tableEntry) {
	for name, t := range is.trees {
		e.indexes[name] = t.Root()
	}
}

func (s *Store) CreateIndex(ctx context.Context, table, index, column string) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry(table)
		if err != nil {
			return err
		}
		if _, ok := e.indexes[index]; ok {
			return storage.ErrIndexAlreadyExists.New(index, table)
		}
		if !e.schema.IsSchemaless() && e.schema.ColumnIndex(column) < 0 {
			return storage.ErrColumnNotFound.New(column, table)
		}

		tree, err := w.txn.CreateTree()
		if err != nil {
			return err
		}
		c := w.txn.Tree(e.data).Cursor()
		for c.First(); c.Valid(); c.Next() {
			kr, err := readRow(c)
			if err != nil {
				return err
			}
			ent, err := indexEntry(e.schema, column, kr.Key, kr.Row)
			if err != nil {
				return err
			}
			if _, err = tree.Put(ent, []byte{}); err != nil {
				return err
			}
		}
		if err = c.Err(); err != nil {
			return err
		}

		e.indexes[index] = tree.Root()
		e.schema.Indexes = append(e.schema.Indexes, storage.SchemaIndex{
			Name:      index,
			Column:    column,
			Order:     storage.IndexBoth,
			CreatedAt: time.Now().UTC(),
		})
		w.log.WithFields(logrus.Fields{"table": table, "index": index, "column": column}).Debug("created index")
		return w.putEntry(e)
	}))
}

func (s *Store) DropIndex(ctx context.Context, table, index string) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry(table)
		if err != nil {
			return err
		}
		if err = w.dropIndex(&e, index); err != nil {
			return err
		}
		w.log.WithFields(logrus.Fields{"table": table, "index": index}).Debug("dropped index")
		return w.putEntry(e)
	}))
}

func (w *writer) dropIndex(e *tableEntry, index string) error {
	root, ok := e.indexes[index]
	if !ok {
		return storage.ErrIndexNotFound.New(index, e.schema.TableName)
	}
	if err := w.txn.MutableTree(root).Drop(); err != nil {
		return err
	}
	delete(e.indexes, index)
	kept := e.schema.Indexes[:0]
	for _, idx := range e.schema.Indexes {
		if idx.Name != index {
			kept = append(kept, idx)
		}
	}
	e.schema.Indexes = kept
	return nil
}

// ScanIndexedData returns the rows of |table| ordered by the indexed column.
// Null values sort first and never satisfy a bound. DESC reverses the whole
// scan, including the key order of equal values.
func (s *Store) ScanIndexedData(ctx context.Context, table, index string, order storage.IndexOrder, bound *storage.IndexBound) (storage.RowIter, error) {
	var rows []storage.KeyedRow
	err := s.read(ctx, func(snap snapshot) error {
		e, ok, err := getEntry(snap, table)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrTableNotFound.New(table)
		}
		root, ok := e.indexes[index]
		if !ok {
			return storage.ErrIndexNotFound.New(index, table)
		}

		keys, err := scanIndex(snap.Tree(root), bound)
		if err != nil {
			return err
		}
		if order == storage.IndexDesc {
			for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}

		data := snap.Tree(e.data)
		rows = make([]storage.KeyedRow, 0, len(keys))
		for _, key := range keys {
			b, ok, err := data.Get(key.Bytes())
			if err != nil {
				return err
			}
			if !ok {
				return storage.ErrMalformedRecord.New("index " + index + " references missing row " + key.String())
			}
			row, err := storage.DecodeRow(b)
			if err != nil {
				return err
			}
			rows = append(rows, storage.KeyedRow{Key: key, Row: row})
		}
		return nil
	})
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return storage.RowsToRowIter(rows...), nil
}

// scanIndex returns the row keys of the entries of |tree| within |bound|,
// in ascending entry order.
func scanIndex(tree *btree.Tree, bound *storage.IndexBound) ([]storage.Key, error) {
	var target []byte
	c := tree.Cursor()
	if bound == nil {
		c.First()
	} else {
		vk, err := storage.NewKey(bound.Value)
		if err != nil {
			return nil, err
		}
		target = vk.Bytes()
		switch bound.Op {
		case storage.OpEq, storage.OpGt, storage.OpGtEq:
			c.Seek(target)
		default:
			c.First()
		}
	}

	var keys []storage.Key
scan:
	for ; c.Valid(); c.Next() {
		vk, rest, err := storage.SplitKey(c.Key())
		if err != nil {
			return nil, err
		}
		if bound != nil {
			if vk.IsNull() {
				continue
			}
			cmp := bytes.Compare(vk.Bytes(), target)
			switch bound.Op {
			case storage.OpEq:
				if cmp != 0 {
					break scan
				}
			case storage.OpGt:
				if cmp == 0 {
					continue
				}
			case storage.OpLt:
				if cmp >= 0 {
					break scan
				}
			case storage.OpLtEq:
				if cmp > 0 {
					break scan
				}
			}
		}
		key, err := storage.DecodeKey(rest)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, c.Err()
}
