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

// Package storagetest holds the behavior every storage backend must share.
// A backend runs it from its own tests:
//
//	suite.Run(t, &storagetest.Suite{NewStore: func(t *testing.T) storage.Database { ... }})
//
// Tests of optional capabilities skip themselves when the backend does not
// implement them.
package storagetest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pristinedb/pristine/go/libraries/storage"
)

type Suite struct {
	suite.Suite
	// NewStore opens an empty store. It is called before every test and the
	// store is closed after it.
	NewStore func(t *testing.T) storage.Database

	ctx   context.Context
	store storage.Database
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

func (s *Suite) TearDownTest() {
	s.NoError(s.store.Close())
}

// Items is a table with an integer primary key.
func Items() *storage.Schema {
	return &storage.Schema{
		TableName: "items",
		ColumnDefs: []storage.ColumnDef{
			{Name: "id", DataType: storage.TypeInt, Unique: &storage.ColumnUniqueOption{IsPrimary: true}},
			{Name: "name", DataType: storage.TypeText, Nullable: true},
			{Name: "price", DataType: storage.TypeInt, Nullable: true},
		},
	}
}

// Item is a row of Items.
func Item(id int64, name string, price int64) storage.DataRow {
	return storage.NewRow(storage.Int(id), storage.String(name), storage.Int(price))
}

func (s *Suite) createItems(rows ...storage.DataRow) {
	s.Require().NoError(s.store.InsertSchema(s.ctx, Items()))
	if len(rows) > 0 {
		s.Require().NoError(s.store.AppendData(s.ctx, "items", rows))
	}
}

func (s *Suite) scan(table string) []storage.KeyedRow {
	iter, err := s.store.ScanData(s.ctx, table)
	s.Require().NoError(err)
	rows, err := storage.RowIterToRows(s.ctx, iter)
	s.Require().NoError(err)
	return rows
}

// ids returns the first column of each row as an int.
func ids(rows []storage.KeyedRow) []int64 {
	res := make([]int64, 0, len(rows))
	for _, r := range rows {
		res = append(res, int64(r.Row.Values[0].(storage.Int)))
	}
	return res
}

func (s *Suite) TestSchemaLifecycle() {
	sch, err := s.store.FetchSchema(s.ctx, "items")
	s.NoError(err)
	s.Nil(sch)

	s.createItems()
	sch, err = s.store.FetchSchema(s.ctx, "items")
	s.Require().NoError(err)
	s.Require().NotNil(sch)
	s.Equal(Items().ColumnDefs, sch.ColumnDefs)

	err = s.store.InsertSchema(s.ctx, Items())
	s.True(storage.ErrStorageMsg.Is(err))
	s.True(storage.ErrTableAlreadyExists.Is(err), "%v", err)

	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{TableName: "b_logs"}))
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{TableName: "a_events", ColumnDefs: []storage.ColumnDef{}}))
	all, err := s.store.FetchAllSchemas(s.ctx)
	s.Require().NoError(err)
	var names []string
	for _, sch := range all {
		names = append(names, sch.TableName)
	}
	s.Equal([]string{"a_events", "b_logs", "items"}, names)
	s.True(all[1].IsSchemaless())
	s.False(all[0].IsSchemaless())

	s.NoError(s.store.DeleteSchema(s.ctx, "items"))
	s.NoError(s.store.DeleteSchema(s.ctx, "items"))
	sch, err = s.store.FetchSchema(s.ctx, "items")
	s.NoError(err)
	s.Nil(sch)
}

func (s *Suite) TestInvalidSchema() {
	err := s.store.InsertSchema(s.ctx, &storage.Schema{})
	s.True(storage.ErrInvalidTableName.Is(err), "%v", err)

	sch := Items()
	sch.ColumnDefs = append(sch.ColumnDefs, storage.ColumnDef{Name: "ID", DataType: storage.TypeInt})
	err = s.store.InsertSchema(s.ctx, sch)
	s.True(storage.ErrInvalidSchema.Is(err), "%v", err)
}

func (s *Suite) TestAppendScansInKeyOrder() {
	s.createItems(Item(3, "c", 30), Item(1, "a", 10))
	s.Require().NoError(s.store.AppendData(s.ctx, "items", []storage.DataRow{Item(2, "b", 20)}))

	rows := s.scan("items")
	s.Equal([]int64{1, 2, 3}, ids(rows))
	for _, r := range rows {
		s.Equal(storage.IntKey(int64(r.Row.Values[0].(storage.Int))), r.Key)
	}

	row, err := s.store.FetchData(s.ctx, "items", storage.IntKey(2))
	s.Require().NoError(err)
	s.Require().NotNil(row)
	s.True(Item(2, "b", 20).Equals(*row), "%s", row)

	row, err = s.store.FetchData(s.ctx, "items", storage.IntKey(9))
	s.NoError(err)
	s.Nil(row)
	row, err = s.store.FetchData(s.ctx, "missing", storage.IntKey(1))
	s.NoError(err)
	s.Nil(row)
}

func (s *Suite) TestAppendDuplicateKey() {
	s.createItems(Item(1, "a", 10))
	err := s.store.AppendData(s.ctx, "items", []storage.DataRow{Item(1, "again", 0)})
	s.True(storage.ErrDuplicateKey.Is(err), "%v", err)

	row, err := s.store.FetchData(s.ctx, "items", storage.IntKey(1))
	s.Require().NoError(err)
	s.True(Item(1, "a", 10).Equals(*row))
}

func (s *Suite) TestAppendGeneratesKeys() {
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{TableName: "logs"}))
	var appended []storage.DataRow
	for i := 0; i < 50; i++ {
		appended = append(appended, storage.NewMapRow(map[string]storage.Value{"n": storage.Int(i)}))
	}
	s.Require().NoError(s.store.AppendData(s.ctx, "logs", appended[:25]))
	s.Require().NoError(s.store.AppendData(s.ctx, "logs", appended[25:]))

	rows := s.scan("logs")
	s.Require().Len(rows, 50)
	seen := map[storage.Key]bool{}
	var ns []int
	for _, r := range rows {
		s.False(seen[r.Key], "key %s reused", r.Key)
		seen[r.Key] = true
		s.Require().True(r.Row.IsMap())
		ns = append(ns, int(r.Row.Map["n"].(storage.Int)))

		row, err := s.store.FetchData(s.ctx, "logs", r.Key)
		s.Require().NoError(err)
		s.True(r.Row.Equals(*row))
	}
	sort.Ints(ns)
	for i, n := range ns {
		s.Equal(i, n)
	}
}

func (s *Suite) TestInsertDataUpserts() {
	s.createItems(Item(1, "a", 10), Item(2, "b", 20))
	s.Require().NoError(s.store.InsertData(s.ctx, "items", []storage.KeyedRow{
		{Key: storage.IntKey(2), Row: Item(2, "B", 21)},
		{Key: storage.IntKey(4), Row: Item(4, "d", 40)},
	}))

	rows := s.scan("items")
	s.Equal([]int64{1, 2, 4}, ids(rows))
	s.True(Item(2, "B", 21).Equals(rows[1].Row))
}

func (s *Suite) TestDeleteData() {
	s.createItems(Item(1, "a", 10), Item(2, "b", 20), Item(3, "c", 30))
	s.Require().NoError(s.store.DeleteData(s.ctx, "items", []storage.Key{storage.IntKey(2), storage.IntKey(7)}))
	s.Equal([]int64{1, 3}, ids(s.scan("items")))

	s.Require().NoError(s.store.DeleteData(s.ctx, "items", nil))
	s.Equal([]int64{1, 3}, ids(s.scan("items")))
}

func (s *Suite) TestInsertThenDelete() {
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{
		TableName: "t",
		ColumnDefs: []storage.ColumnDef{
			{Name: "id", DataType: storage.TypeInt, Unique: &storage.ColumnUniqueOption{IsPrimary: true}},
			{Name: "v", DataType: storage.TypeText},
		},
	}))
	a := storage.KeyedRow{Key: storage.IntKey(1), Row: storage.NewRow(storage.Int(1), storage.String("a"))}
	b := storage.KeyedRow{Key: storage.IntKey(2), Row: storage.NewRow(storage.Int(2), storage.String("b"))}
	s.Require().NoError(s.store.InsertData(s.ctx, "t", []storage.KeyedRow{a, b}))

	rows := s.scan("t")
	s.Require().Len(rows, 2)
	s.Equal(a.Key, rows[0].Key)
	s.True(a.Row.Equals(rows[0].Row))
	s.Equal(b.Key, rows[1].Key)

	s.Require().NoError(s.store.DeleteData(s.ctx, "t", []storage.Key{storage.IntKey(1)}))
	rows = s.scan("t")
	s.Require().Len(rows, 1)
	s.Equal(b.Key, rows[0].Key)
	s.True(b.Row.Equals(rows[0].Row))
}

func (s *Suite) TestRowShape() {
	s.createItems()
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{TableName: "logs"}))
	mapRow := storage.NewMapRow(map[string]storage.Value{"id": storage.Int(1)})

	err := s.store.AppendData(s.ctx, "items", []storage.DataRow{mapRow})
	s.True(storage.ErrMalformedRecord.Is(err), "%v", err)
	err = s.store.InsertData(s.ctx, "items", []storage.KeyedRow{{Key: storage.IntKey(1), Row: mapRow}})
	s.True(storage.ErrMalformedRecord.Is(err), "%v", err)
	err = s.store.AppendData(s.ctx, "logs", []storage.DataRow{storage.NewRow(storage.Int(1))})
	s.True(storage.ErrMalformedRecord.Is(err), "%v", err)
	err = s.store.InsertData(s.ctx, "logs", []storage.KeyedRow{{Key: storage.IntKey(1), Row: storage.NewRow(storage.Int(1))}})
	s.True(storage.ErrMalformedRecord.Is(err), "%v", err)
	s.Empty(s.scan("items"))
	s.Empty(s.scan("logs"))

	s.Require().NoError(s.store.AppendData(s.ctx, "logs", []storage.DataRow{mapRow}))
	s.Len(s.scan("logs"), 1)
}

func (s *Suite) TestWritesToMissingTable() {
	err := s.store.AppendData(s.ctx, "missing", []storage.DataRow{Item(1, "a", 1)})
	s.True(storage.ErrTableNotFound.Is(err), "%v", err)
	err = s.store.InsertData(s.ctx, "missing", []storage.KeyedRow{{Key: storage.IntKey(1), Row: Item(1, "a", 1)}})
	s.True(storage.ErrTableNotFound.Is(err), "%v", err)
	err = s.store.DeleteData(s.ctx, "missing", []storage.Key{storage.IntKey(1)})
	s.True(storage.ErrTableNotFound.Is(err), "%v", err)

	s.Empty(s.scan("missing"))
}

func (s *Suite) TestRowsDroppedWithTable() {
	s.createItems(Item(1, "a", 10))
	s.Require().NoError(s.store.DeleteSchema(s.ctx, "items"))
	s.createItems()
	s.Empty(s.scan("items"))
}

func (s *Suite) TestValueRoundTrip() {
	s.Require().NoError(s.store.InsertSchema(s.ctx, &storage.Schema{
		TableName: "kinds",
		ColumnDefs: []storage.ColumnDef{
			{Name: "id", DataType: storage.TypeText, Unique: &storage.ColumnUniqueOption{IsPrimary: true}},
			{Name: "v", DataType: storage.TypeList, Nullable: true},
		},
	}))
	dec, err := storage.NewDecimal("-3.250")
	s.Require().NoError(err)
	row := storage.NewRow(storage.String("k"), storage.List{
		storage.Null{}, storage.Bool(true), storage.Uint(7), storage.Float(1.5), dec,
		storage.Bytes("raw"), storage.NewDate(2024, 2, 29), storage.Map{"x": storage.Int(-1)},
	})
	s.Require().NoError(s.store.AppendData(s.ctx, "kinds", []storage.DataRow{row}))

	got, err := s.store.FetchData(s.ctx, "kinds", storage.StringKey("k"))
	s.Require().NoError(err)
	s.True(row.Equals(*got), "%s != %s", row, got)
}

func (s *Suite) TestCancelledContext() {
	s.createItems()
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.store.AppendData(ctx, "items", []storage.DataRow{Item(1, "a", 1)})
	s.Error(err)
	s.Empty(s.scan("items"))
}
