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

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/libraries/storage/pristinestore"
)

func pristine(t *testing.T, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func seed(t *testing.T, dir string) {
	ctx := context.Background()
	db, err := pristinestore.Open(dir, pristinestore.Options{NoSync: true})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.InsertSchema(ctx, &storage.Schema{
		TableName: "items",
		ColumnDefs: []storage.ColumnDef{
			{Name: "id", DataType: storage.TypeInt, Unique: &storage.ColumnUniqueOption{IsPrimary: true}},
			{Name: "name", DataType: storage.TypeText},
		},
	}))
	require.NoError(t, db.AppendData(ctx, "items", []storage.DataRow{
		storage.NewRow(storage.Int(2), storage.String("bolt")),
		storage.NewRow(storage.Int(1), storage.String("anvil")),
	}))
	require.NoError(t, db.CreateIndex(ctx, "items", "by_name", "name"))
}

func TestCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	url := "file://" + dir
	seed(t, dir)

	code, out, stderr := pristine(t, "-u", url, "--set", "storage.nosync=true", "tables")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "items\t2 rows\tindexes: by_name\n", out)

	code, out, stderr = pristine(t, "-u", url, "scan", "items")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "1\t[1, \"anvil\"]\n2\t[2, \"bolt\"]\n", out)

	code, out, _ = pristine(t, "-u", url, "scan", "items", "--limit", "1")
	require.Equal(t, 0, code)
	assert.Equal(t, "1\t[1, \"anvil\"]\n", out)

	code, out, stderr = pristine(t, "-u", url, "schema", "items")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"table_name": "items"`)

	code, out, stderr = pristine(t, "-u", url, "verify")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "1 tables, 2 rows")
	assert.Contains(t, out, "ok")

	code, out, stderr = pristine(t, "-u", url, "info")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "capabilities: transaction, index")
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	code, out, stderr := pristine(t, "-u", "file://"+dir, "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "initialized")
	assert.FileExists(t, filepath.Join(dir, pristinestore.DataFileName))

	code, out, _ = pristine(t, "-u", "file://"+dir, "tables")
	require.Equal(t, 0, code)
	assert.Empty(t, out)
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := pristine(t, "-u", "file://"+dir, "schema", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "table not found: missing")

	code, _, stderr = pristine(t, "-u", "mem://", "verify")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not a pristine database")

	code, _, stderr = pristine(t, "--set", "log.level=loud", "tables")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr)

	code, _, _ = pristine(t, "frobnicate")
	assert.Equal(t, 2, code)
}
