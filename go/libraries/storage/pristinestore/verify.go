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
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/btree"
	"github.com/pristinedb/pristine/go/store/pristine"
)

// VerifyReport is the result of Verify. A store is consistent when Problems
// is empty.
type VerifyReport struct {
	Txn      uint64
	Tables   int
	Rows     uint64
	Pages    uint64
	Problems []string
}

func (r *VerifyReport) problem(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks one committed snapshot: every tree decodes with ascending
// keys, every row decodes and sits under its primary key, and row counts
// and index entries agree with the data. Errors reading pages are returned;
// inconsistencies are reported.
func (s *Store) Verify(ctx context.Context) (*VerifyReport, error) {
	txn, err := s.env.Begin()
	if err != nil {
		return nil, storage.Wrap(err)
	}
	defer txn.Close()

	rep := &VerifyReport{Txn: txn.ID()}
	schemas, err := schemaIndex(txn)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	pages, err := countPages(schemas)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	rep.Pages += pages

	var entries []tableEntry
	c := schemas.Cursor()
	for c.First(); c.Valid(); c.Next() {
		b, err := c.Value()
		if err != nil {
			return nil, storage.Wrap(err)
		}
		e, err := decodeTableEntry(string(c.Key()), b)
		if err != nil {
			rep.problem("%s", err)
			continue
		}
		if e.schema.TableName != string(c.Key()) {
			rep.problem("table %q is stored under %q", e.schema.TableName, c.Key())
		}
		entries = append(entries, e)
	}
	if err = c.Err(); err != nil {
		return nil, storage.Wrap(err)
	}
	rep.Tables = len(entries)

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		eg.Go(func() error {
			tr, err := verifyTable(ctx, txn, e)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			rep.Rows += tr.Rows
			rep.Pages += tr.Pages
			rep.Problems = append(rep.Problems, tr.Problems...)
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, storage.Wrap(err)
	}
	return rep, nil
}

func verifyTable(ctx context.Context, txn *pristine.Txn, e tableEntry) (*VerifyReport, error) {
	table := e.schema.TableName
	rep := &VerifyReport{}
	data := txn.Tree(e.data)
	pages, err := countPages(data)
	if err != nil {
		return nil, err
	}
	rep.Pages += pages

	var prev []byte
	c := data.Cursor()
	for c.First(); c.Valid(); c.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if prev != nil && bytes.Compare(prev, c.Key()) >= 0 {
			rep.problem("table %s: keys out of order at %x", table, c.Key())
		}
		prev = append(prev[:0], c.Key()...)
		rep.Rows++

		kr, err := readRow(c)
		if err != nil {
			rep.problem("table %s: %s", table, err)
			continue
		}
		if pk, ok, err := e.schema.RowKey(kr.Row); err != nil {
			rep.problem("table %s: row %s: %s", table, kr.Key, err)
		} else if ok && pk != kr.Key {
			rep.problem("table %s: row with primary key %s stored under %s", table, pk, kr.Key)
		}
	}
	if err = c.Err(); err != nil {
		return nil, err
	}
	if rep.Rows != e.rows {
		rep.problem("table %s: %d rows recorded, %d found", table, e.rows, rep.Rows)
	}

	for _, name := range e.indexNames() {
		idx := txn.Tree(e.indexes[name])
		pages, err := countPages(idx)
		if err != nil {
			return nil, err
		}
		rep.Pages += pages

		var n uint64
		ic := idx.Cursor()
		for ic.First(); ic.Valid(); ic.Next() {
			n++
			_, rest, err := storage.SplitKey(ic.Key())
			if err == nil {
				_, err = storage.DecodeKey(rest)
			}
			if err != nil {
				rep.problem("table %s: index %s: %s", table, name, err)
				continue
			}
			if ok, err := data.Has(rest); err != nil {
				return nil, err
			} else if !ok {
				rep.problem("table %s: index %s references missing row %x", table, name, rest)
			}
		}
		if err = ic.Err(); err != nil {
			return nil, err
		}
		if n != rep.Rows {
			rep.problem("table %s: index %s has %d entries for %d rows", table, name, n, rep.Rows)
		}
	}
	return rep, nil
}

// countPages counts the node and overflow pages of |t|.
func countPages(t *btree.Tree) (uint64, error) {
	var n uint64
	err := t.Walk(func(node *btree.Node, _ int) error {
		n++
		if !node.Leaf {
			return nil
		}
		for _, v := range node.Vals {
			ids, err := t.OverflowPages(v)
			if err != nil {
				return err
			}
			n += uint64(len(ids))
		}
		return nil
	})
	return n, err
}
