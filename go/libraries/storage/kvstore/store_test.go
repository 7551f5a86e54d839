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

package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/libraries/storage/storagetest"
	"github.com/pristinedb/pristine/go/store/blobstore"
)

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{NewStore: func(t *testing.T) storage.Database {
		return NewMemory()
	}})
}

func TestLevelDBStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{NewStore: func(t *testing.T) storage.Database {
		bs, err := blobstore.NewMemLevelDBBlobstore()
		require.NoError(t, err)
		return New(bs, nil)
	}})
}

func TestBoltStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{NewStore: func(t *testing.T) storage.Database {
		bs, err := blobstore.NewBoltBlobstore(filepath.Join(t.TempDir(), "store.bolt"))
		require.NoError(t, err)
		return New(bs, nil)
	}})
}

func TestLayout(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewInMemoryBlobstore("")
	s := New(bs, nil)
	defer s.Close()

	require.NoError(t, s.InsertSchema(ctx, &storage.Schema{TableName: "b"}))
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 1)}))

	names, err := bs.Get(ctx, schemaNamesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["b","items"]`, string(names))

	keys, err := bs.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/b", "data/items", "schema-names", "schema/b", "schema/items"}, keys)

	require.NoError(t, s.DeleteSchema(ctx, "items"))
	keys, err = bs.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/b", "schema-names", "schema/b"}, keys)
}

func TestInsertionOrderWithoutKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, &storage.Schema{
		TableName:  "nokey",
		ColumnDefs: []storage.ColumnDef{{Name: "n", DataType: storage.TypeInt}},
	}))
	for _, n := range []int64{5, 3, 9, 1} {
		require.NoError(t, s.AppendData(ctx, "nokey", []storage.DataRow{storage.NewRow(storage.Int(n))}))
	}
	iter, err := s.ScanData(ctx, "nokey")
	require.NoError(t, err)
	rows, err := storage.RowIterToRows(ctx, iter)
	require.NoError(t, err)
	var got []int64
	for _, r := range rows {
		got = append(got, int64(r.Row.Values[0].(storage.Int)))
	}
	assert.Equal(t, []int64{5, 3, 9, 1}, got)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ldb")
	bs, err := blobstore.NewLevelDBBlobstore(path)
	require.NoError(t, err)
	s := New(bs, nil)
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 1), storagetest.Item(2, "b", 2)}))
	require.NoError(t, s.Close())

	bs, err = blobstore.NewLevelDBBlobstore(path)
	require.NoError(t, err)
	s = New(bs, nil)
	defer s.Close()
	metas, err := s.ScanTableMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.TableMeta{{Name: "items", Rows: 2}}, metas)
}

func TestCorruptTable(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewInMemoryBlobstore("")
	s := New(bs, nil)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, bs.Put(ctx, dataPrefix+"items", []byte{0xFF, 0, 0, 0, 1}))

	_, err := s.ScanData(ctx, "items")
	assert.True(t, storage.ErrStorageMsg.Is(err))
	assert.True(t, storage.ErrMalformedRecord.Is(err), "%v", err)

	err = s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 1)})
	assert.True(t, storage.ErrMalformedRecord.Is(err), "%v", err)
}

func TestRowCodec(t *testing.T) {
	rows := []storage.KeyedRow{
		{Key: storage.IntKey(1), Row: storagetest.Item(1, "a", 1)},
		{Key: storage.StringKey("x"), Row: storage.NewMapRow(map[string]storage.Value{"m": storage.Null{}})},
	}
	b, err := encodeRows(rows)
	require.NoError(t, err)
	got, err := decodeRows("t", b)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range rows {
		assert.Equal(t, rows[i].Key, got[i].Key)
		assert.True(t, rows[i].Row.Equals(got[i].Row))
	}

	_, err = decodeRows("t", b[:len(b)-1])
	assert.True(t, storage.ErrMalformedRecord.Is(err))
	empty, err := encodeRows(nil)
	require.NoError(t, err)
	got, err = decodeRows("t", empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}
