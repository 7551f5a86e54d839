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

package storagetest

import (
	"github.com/pristinedb/pristine/go/libraries/storage"
)

func (s *Suite) TestTransaction() {
	tx, ok := s.store.(storage.Transaction)
	if !ok {
		s.T().Skip("backend has no transactions")
	}
	s.createItems(Item(1, "a", 10))

	autocommit, err := tx.Begin(s.ctx, false)
	s.Require().NoError(err)
	s.False(autocommit)
	s.Require().NoError(s.store.AppendData(s.ctx, "items", []storage.DataRow{Item(2, "b", 20)}))
	s.Require().NoError(s.store.DeleteData(s.ctx, "items", []storage.Key{storage.IntKey(1)}))
	s.Equal([]int64{2}, ids(s.scan("items")))

	_, err = tx.Begin(s.ctx, false)
	s.True(storage.ErrNestedTransaction.Is(err), "%v", err)
	autocommit, err = tx.Begin(s.ctx, true)
	s.NoError(err)
	s.False(autocommit)

	s.Require().NoError(tx.Rollback(s.ctx))
	s.Equal([]int64{1}, ids(s.scan("items")))

	_, err = tx.Begin(s.ctx, false)
	s.Require().NoError(err)
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{TableName: "logs"}))
	s.Require().NoError(s.store.AppendData(s.ctx, "items", []storage.DataRow{Item(3, "c", 30)}))
	s.Require().NoError(tx.Commit(s.ctx))
	s.Equal([]int64{1, 3}, ids(s.scan("items")))
	sch, err := s.store.FetchSchema(s.ctx, "logs")
	s.NoError(err)
	s.NotNil(sch)

	// ending a transaction that is not open is a no-op
	s.NoError(tx.Commit(s.ctx))
	s.NoError(tx.Rollback(s.ctx))
}

func (s *Suite) createIndexed() storage.Index {
	idx, ok := s.store.(storage.Index)
	mut, mutOK := s.store.(storage.IndexMut)
	if !ok || !mutOK {
		s.T().Skip("backend has no indexes")
	}
	s.createItems(Item(1, "a", 30), Item(2, "b", 10), Item(3, "c", 20), Item(4, "d", 20))
	s.Require().NoError(s.store.AppendData(s.ctx, "items", []storage.DataRow{
		storage.NewRow(storage.Int(5), storage.String("e"), storage.Null{}),
	}))
	s.Require().NoError(mut.CreateIndex(s.ctx, "items", "by_price", "price"))
	return idx
}

func (s *Suite) scanIndex(idx storage.Index, order storage.IndexOrder, bound *storage.IndexBound) []int64 {
	iter, err := idx.ScanIndexedData(s.ctx, "items", "by_price", order, bound)
	s.Require().NoError(err)
	rows, err := storage.RowIterToRows(s.ctx, iter)
	s.Require().NoError(err)
	return ids(rows)
}

func (s *Suite) TestIndexScan() {
	idx := s.createIndexed()

	s.Equal([]int64{5, 2, 3, 4, 1}, s.scanIndex(idx, storage.IndexAsc, nil))
	s.Equal([]int64{1, 4, 3, 2, 5}, s.scanIndex(idx, storage.IndexDesc, nil))

	price := storage.Int(20)
	for _, tt := range []struct {
		op   storage.IndexOperator
		want []int64
	}{
		{storage.OpEq, []int64{3, 4}},
		{storage.OpLt, []int64{2}},
		{storage.OpLtEq, []int64{2, 3, 4}},
		{storage.OpGt, []int64{1}},
		{storage.OpGtEq, []int64{3, 4, 1}},
	} {
		got := s.scanIndex(idx, storage.IndexAsc, &storage.IndexBound{Op: tt.op, Value: price})
		s.Equal(tt.want, got, "price %s 20", tt.op)
	}

	_, err := idx.ScanIndexedData(s.ctx, "items", "missing", storage.IndexAsc, nil)
	s.True(storage.ErrIndexNotFound.Is(err), "%v", err)
}

func (s *Suite) TestIndexFollowsWrites() {
	idx := s.createIndexed()
	s.Require().NoError(s.store.InsertData(s.ctx, "items", []storage.KeyedRow{
		{Key: storage.IntKey(2), Row: Item(2, "b", 40)},
		{Key: storage.IntKey(6), Row: Item(6, "f", 5)},
	}))
	s.Require().NoError(s.store.DeleteData(s.ctx, "items", []storage.Key{storage.IntKey(3)}))
	s.Require().NoError(s.store.AppendData(s.ctx, "items", []storage.DataRow{Item(7, "g", 20)}))

	s.Equal([]int64{5, 6, 4, 7, 1, 2}, s.scanIndex(idx, storage.IndexAsc, nil))
	s.Equal([]int64{4, 7}, s.scanIndex(idx, storage.IndexAsc, &storage.IndexBound{Op: storage.OpEq, Value: storage.Int(20)}))
}

func (s *Suite) TestIndexLifecycle() {
	s.createIndexed()
	mut := s.store.(storage.IndexMut)

	err := mut.CreateIndex(s.ctx, "items", "by_price", "price")
	s.True(storage.ErrIndexAlreadyExists.Is(err), "%v", err)
	err = mut.CreateIndex(s.ctx, "items", "by_color", "color")
	s.True(storage.ErrColumnNotFound.Is(err), "%v", err)
	err = mut.CreateIndex(s.ctx, "missing", "by_price", "price")
	s.True(storage.ErrTableNotFound.Is(err), "%v", err)

	sch, err := s.store.FetchSchema(s.ctx, "items")
	s.Require().NoError(err)
	s.Require().Len(sch.Indexes, 1)
	s.Equal("price", sch.Indexes[0].Column)
	s.False(sch.Indexes[0].CreatedAt.IsZero())

	s.Require().NoError(mut.DropIndex(s.ctx, "items", "by_price"))
	err = mut.DropIndex(s.ctx, "items", "by_price")
	s.True(storage.ErrIndexNotFound.Is(err), "%v", err)
	sch, err = s.store.FetchSchema(s.ctx, "items")
	s.Require().NoError(err)
	s.Empty(sch.Indexes)
}

func (s *Suite) TestAlterTable() {
	alter, ok := s.store.(storage.AlterTable)
	if !ok {
		s.T().Skip("backend cannot alter tables")
	}
	s.createItems(Item(1, "a", 10), Item(2, "b", 20))

	s.Require().NoError(alter.RenameSchema(s.ctx, "items", "goods"))
	sch, err := s.store.FetchSchema(s.ctx, "items")
	s.NoError(err)
	s.Nil(sch)
	s.Equal([]int64{1, 2}, ids(s.scan("goods")))
	s.Require().NoError(s.store.InsertSchema(s.ctx, Items()))
	err = alter.RenameSchema(s.ctx, "goods", "items")
	s.True(storage.ErrTableAlreadyExists.Is(err), "%v", err)

	s.Require().NoError(alter.RenameColumn(s.ctx, "goods", "name", "title"))
	err = alter.RenameColumn(s.ctx, "goods", "title", "price")
	s.True(storage.ErrColumnAlreadyExists.Is(err), "%v", err)
	err = alter.RenameColumn(s.ctx, "goods", "nope", "other")
	s.True(storage.ErrColumnNotFound.Is(err), "%v", err)

	s.Require().NoError(alter.AddColumn(s.ctx, "goods", storage.ColumnDef{Name: "stock", DataType: storage.TypeInt}, storage.Int(0)))
	err = alter.AddColumn(s.ctx, "goods", storage.ColumnDef{Name: "required", DataType: storage.TypeInt}, nil)
	s.True(storage.ErrInvalidSchema.Is(err), "%v", err)
	err = alter.AddColumn(s.ctx, "goods", storage.ColumnDef{Name: "STOCK", DataType: storage.TypeInt, Nullable: true}, nil)
	s.True(storage.ErrColumnAlreadyExists.Is(err), "%v", err)

	rows := s.scan("goods")
	s.Require().Len(rows, 2)
	s.True(storage.NewRow(storage.Int(1), storage.String("a"), storage.Int(10), storage.Int(0)).Equals(rows[0].Row), "%s", rows[0].Row)

	s.Require().NoError(alter.DropColumn(s.ctx, "goods", "price", false))
	s.NoError(alter.DropColumn(s.ctx, "goods", "price", true))
	err = alter.DropColumn(s.ctx, "goods", "price", false)
	s.True(storage.ErrColumnNotFound.Is(err), "%v", err)
	err = alter.DropColumn(s.ctx, "goods", "id", false)
	s.True(storage.ErrInvalidSchema.Is(err), "%v", err)

	sch, err = s.store.FetchSchema(s.ctx, "goods")
	s.Require().NoError(err)
	var names []string
	for _, c := range sch.ColumnDefs {
		names = append(names, c.Name)
	}
	s.Equal([]string{"id", "title", "stock"}, names)
	rows = s.scan("goods")
	s.True(storage.NewRow(storage.Int(2), storage.String("b"), storage.Int(0)).Equals(rows[1].Row), "%s", rows[1].Row)
}

func (s *Suite) TestMetadata() {
	meta, ok := s.store.(storage.Metadata)
	if !ok {
		s.T().Skip("backend has no metadata")
	}
	s.createItems(Item(1, "a", 10), Item(2, "b", 20))
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{TableName: "empty"}))
	s.Require().NoError(s.store.DeleteData(s.ctx, "items", []storage.Key{storage.IntKey(1)}))

	metas, err := meta.ScanTableMeta(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(metas, 2)
	s.Equal("empty", metas[0].Name)
	s.Zero(metas[0].Rows)
	s.Equal("items", metas[1].Name)
	s.Equal(uint64(1), metas[1].Rows)
}

func (s *Suite) TestCustomFunctions() {
	fetch, ok := s.store.(storage.CustomFunction)
	mut, mutOK := s.store.(storage.CustomFunctionMut)
	if !ok || !mutOK {
		s.T().Skip("backend has no custom functions")
	}
	f := &storage.Function{Name: "add_one", Args: []storage.FunctionArg{{Name: "x", DataType: storage.TypeInt}}, Body: "x + 1"}
	s.Require().NoError(mut.InsertFunction(s.ctx, f))
	err := mut.InsertFunction(s.ctx, f)
	s.True(storage.ErrFunctionExists.Is(err), "%v", err)

	got, err := fetch.FetchFunction(s.ctx, "add_one")
	s.Require().NoError(err)
	s.Equal(f, got)
	missing, err := fetch.FetchFunction(s.ctx, "nope")
	s.NoError(err)
	s.Nil(missing)

	all, err := fetch.FetchAllFunctions(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	s.Require().NoError(mut.DeleteFunction(s.ctx, "add_one"))
	err = mut.DeleteFunction(s.ctx, "add_one")
	s.True(storage.ErrFunctionNotFound.Is(err), "%v", err)
}
