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
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/libraries/storage/storagetest"
	"github.com/pristinedb/pristine/go/store/pristine"
)

func openMem(t *testing.T) *Store {
	s, err := OpenMemory(Options{InitialSize: 16 * 4096, NoSync: true})
	require.NoError(t, err)
	return s
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{NewStore: func(t *testing.T) storage.Database {
		return openMem(t)
	}})
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{NewStore: func(t *testing.T) storage.Database {
		s, err := Open(t.TempDir(), Options{})
		require.NoError(t, err)
		return s
	}})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 10)}))
	require.NoError(t, s.Close())

	s, err = Open(dir, Options{})
	require.NoError(t, err)
	defer s.Close()
	row, err := s.FetchData(ctx, "items", storage.IntKey(1))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, storagetest.Item(1, "a", 10).Equals(*row))

	_, err = Open(dir, Options{})
	assert.True(t, storage.ErrStorageMsg.Is(err))
	assert.True(t, pristine.ErrPristineLocked.Is(err), "%v", err)
}

func TestScanHoldsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 10), storagetest.Item(2, "b", 20)}))

	iter, err := s.ScanData(ctx, "items")
	require.NoError(t, err)
	first, err := iter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.IntKey(1), first.Key)

	require.NoError(t, s.DeleteData(ctx, "items", []storage.Key{storage.IntKey(2)}))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(3, "c", 30)}))
	assert.Equal(t, 1, s.Env().Stats().Readers)

	second, err := iter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.IntKey(2), second.Key)
	_, err = iter.Next(ctx)
	assert.Equal(t, io.EOF, err)
	_, err = iter.Next(ctx)
	assert.Equal(t, io.EOF, err)

	require.NoError(t, iter.Close(ctx))
	require.NoError(t, iter.Close(ctx))
	assert.Equal(t, 0, s.Env().Stats().Readers)
}

func TestTransactionBlocksOtherWriters(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))

	other, err := New(s.Env(), nil)
	require.NoError(t, err)
	defer other.Close()

	_, err = s.Begin(ctx, false)
	require.NoError(t, err)
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 10)}))

	err = other.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(2, "b", 20)})
	assert.True(t, pristine.ErrPristineLocked.Is(err), "%v", err)

	// readers on the shared env see the last commit
	row, err := other.FetchData(ctx, "items", storage.IntKey(1))
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, s.Commit(ctx))
	row, err = other.FetchData(ctx, "items", storage.IntKey(1))
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestFailedAutocommitWriteIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	before := s.Env().Stats().Txn

	err := s.AppendData(ctx, "items", []storage.DataRow{
		storagetest.Item(1, "a", 10),
		storagetest.Item(1, "dup", 10),
	})
	assert.True(t, storage.ErrDuplicateKey.Is(err), "%v", err)
	assert.Equal(t, before, s.Env().Stats().Txn)

	iter, err := s.ScanData(ctx, "items")
	require.NoError(t, err)
	rows, err := storage.RowIterToRows(ctx, iter)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func scanIDs(t *testing.T, s *Store, table string) []int64 {
	ctx := context.Background()
	iter, err := s.ScanData(ctx, table)
	require.NoError(t, err)
	rows, err := storage.RowIterToRows(ctx, iter)
	require.NoError(t, err)
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, int64(r.Row.Values[0].(storage.Int)))
	}
	return ids
}

func TestFailedWriteInTransaction(t *testing.T) {
	for _, finish := range []string{"commit", "rollback"} {
		t.Run(finish, func(t *testing.T) {
			ctx := context.Background()
			s := openMem(t)
			defer s.Close()
			require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
			require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(1, "a", 10)}))

			_, err := s.Begin(ctx, false)
			require.NoError(t, err)
			require.NoError(t, s.InsertData(ctx, "items", []storage.KeyedRow{{Key: storage.IntKey(5), Row: storagetest.Item(5, "e", 50)}}))
			err = s.AppendData(ctx, "items", []storage.DataRow{storagetest.Item(2, "b", 20), storagetest.Item(1, "dup", 10)})
			require.True(t, storage.ErrDuplicateKey.Is(err), "%v", err)
			assert.Equal(t, []int64{1, 5}, scanIDs(t, s, "items"))

			want := []int64{1, 5}
			if finish == "commit" {
				require.NoError(t, s.Commit(ctx))
			} else {
				require.NoError(t, s.Rollback(ctx))
				want = []int64{1}
			}
			assert.Equal(t, want, scanIDs(t, s, "items"))

			// reclaimed pages are reused by later commits
			require.NoError(t, s.InsertSchema(ctx, &storage.Schema{
				TableName:  "other",
				ColumnDefs: storagetest.Items().ColumnDefs,
			}))
			for i := int64(0); i < 10; i++ {
				require.NoError(t, s.AppendData(ctx, "other", []storage.DataRow{storagetest.Item(100+i, "o", i)}))
			}

			assert.Equal(t, want, scanIDs(t, s, "items"))
			row, err := s.FetchData(ctx, "items", storage.IntKey(1))
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.True(t, storagetest.Item(1, "a", 10).Equals(*row))
			assert.Len(t, scanIDs(t, s, "other"), 10)

			rep, err := s.Verify(ctx)
			require.NoError(t, err)
			assert.Empty(t, rep.Problems)
			assert.Equal(t, uint64(len(want)+10), rep.Rows)
		})
	}
}

func TestLargeRows(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))

	var rows []storage.DataRow
	for i := 0; i < 20; i++ {
		// random letters do not compress, so every row needs overflow pages
		rnd := rand.New(rand.NewSource(int64(i)))
		var sb strings.Builder
		for j := 0; j < 6000; j++ {
			sb.WriteByte(byte('a' + rnd.Intn(26)))
		}
		rows = append(rows, storagetest.Item(int64(i), sb.String(), int64(i)))
	}
	require.NoError(t, s.AppendData(ctx, "items", rows))

	row, err := s.FetchData(ctx, "items", storage.IntKey(13))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, rows[13].Equals(*row))

	rep, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Problems)
	assert.Equal(t, uint64(20), rep.Rows)

	require.NoError(t, s.DeleteSchema(ctx, "items"))
	rep, err = s.Verify(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Rows)
	assert.Equal(t, uint64(1), rep.Pages)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, s.InsertSchema(ctx, &storage.Schema{TableName: "logs"}))
	var rows []storage.DataRow
	for i := 0; i < 500; i++ {
		rows = append(rows, storagetest.Item(int64(i), "item", int64(i%17)))
	}
	require.NoError(t, s.AppendData(ctx, "items", rows))
	require.NoError(t, s.CreateIndex(ctx, "items", "by_price", "price"))
	require.NoError(t, s.AppendData(ctx, "logs", []storage.DataRow{storage.NewMapRow(map[string]storage.Value{"m": storage.String("x")})}))

	rep, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Problems)
	assert.Equal(t, 2, rep.Tables)
	assert.Equal(t, uint64(501), rep.Rows)
	assert.Equal(t, s.Env().Stats().Txn, rep.Txn)

	// a row under the wrong key and a stale count are both reported
	require.NoError(t, s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry("items")
		require.NoError(t, err)
		enc, err := storage.EncodeRow(storagetest.Item(1, "moved", 1))
		require.NoError(t, err)
		data := w.txn.MutableTree(e.data)
		_, err = data.Put(storage.IntKey(1000).Bytes(), enc)
		require.NoError(t, err)
		e.data = data.Root()
		return w.putEntry(e)
	}))
	rep, err = s.Verify(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Problems, 3, "%v", rep.Problems)
}

func TestAlterKeepsIndexes(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	defer s.Close()
	require.NoError(t, s.InsertSchema(ctx, storagetest.Items()))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{
		storagetest.Item(1, "b", 10), storagetest.Item(2, "a", 20),
	}))
	require.NoError(t, s.CreateIndex(ctx, "items", "by_name", "name"))
	require.NoError(t, s.CreateIndex(ctx, "items", "by_price", "price"))

	require.NoError(t, s.RenameColumn(ctx, "items", "name", "title"))
	require.NoError(t, s.AddColumn(ctx, "items", storage.ColumnDef{Name: "note", DataType: storage.TypeText, Nullable: true}, nil))
	require.NoError(t, s.AppendData(ctx, "items", []storage.DataRow{
		storage.NewRow(storage.Int(3), storage.String("c"), storage.Int(5), storage.String("new")),
	}))

	iter, err := s.ScanIndexedData(ctx, "items", "by_name", storage.IndexAsc, nil)
	require.NoError(t, err)
	rows, err := storage.RowIterToRows(ctx, iter)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []storage.Key{storage.IntKey(2), storage.IntKey(1), storage.IntKey(3)},
		[]storage.Key{rows[0].Key, rows[1].Key, rows[2].Key})

	require.NoError(t, s.DropColumn(ctx, "items", "price", false))
	sch, err := s.FetchSchema(ctx, "items")
	require.NoError(t, err)
	require.Len(t, sch.Indexes, 1)
	assert.Equal(t, "by_name", sch.Indexes[0].Name)
	assert.Equal(t, "title", sch.Indexes[0].Column)

	metas, err := s.ScanTableMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.TableMeta{{Name: "items", Rows: 3, Indexes: []string{"by_name"}}}, metas)

	rep, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Problems)

	_, err = s.ScanIndexedData(ctx, "items", "by_price", storage.IndexAsc, nil)
	assert.True(t, storage.ErrIndexNotFound.Is(err), "%v", err)
}
