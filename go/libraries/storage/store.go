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

// Package storage defines the contract between the SQL execution layer and
// the backends that persist schemas and rows. Every backend implements Store
// and StoreMut. Optional capabilities are separate interfaces discovered by
// type assertion; a backend that lacks one simply does not implement it.
package storage

import (
	"context"
	"io"
)

// Store is the read half of the contract. Lookups of missing tables or keys
// return nil rather than an error.
type Store interface {
	// FetchAllSchemas returns every schema ordered by table name.
	FetchAllSchemas(ctx context.Context) ([]*Schema, error)
	FetchSchema(ctx context.Context, table string) (*Schema, error)
	FetchData(ctx context.Context, table string, key Key) (*DataRow, error)
	// ScanData returns the rows of |table|. Tables with a primary key are
	// scanned in key order.
	ScanData(ctx context.Context, table string) (RowIter, error)
}

// StoreMut is the write half of the contract.
type StoreMut interface {
	// InsertSchema creates a table. An existing name is ErrTableAlreadyExists.
	InsertSchema(ctx context.Context, schema *Schema) error
	// DeleteSchema drops a table and its rows. Missing tables are ignored.
	DeleteSchema(ctx context.Context, table string) error
	// AppendData adds |rows| under new keys.
	AppendData(ctx context.Context, table string, rows []DataRow) error
	// InsertData upserts |rows| under their keys.
	InsertData(ctx context.Context, table string, rows []KeyedRow) error
	// DeleteData removes |keys|. Missing keys are ignored.
	DeleteData(ctx context.Context, table string, keys []Key) error
}

// Database is a backend opened by a factory.
type Database interface {
	Store
	StoreMut
	io.Closer
}

// Transaction groups writes. Begin with autocommit true inside an explicit
// transaction is a no-op that reports true.
type Transaction interface {
	Begin(ctx context.Context, autocommit bool) (bool, error)
	Rollback(ctx context.Context) error
	Commit(ctx context.Context) error
}

type IndexOperator uint8

const (
	OpEq IndexOperator = iota
	OpLt
	OpLtEq
	OpGt
	OpGtEq
)

func (op IndexOperator) String() string {
	switch op {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	}
	return "?"
}

// IndexBound restricts an index scan to values satisfying |Op| |Value|.
type IndexBound struct {
	Op    IndexOperator
	Value Value
}

// Index scans a table through one of its indexes. A nil bound scans every
// row. Rows with equal indexed values are returned in key order.
type Index interface {
	ScanIndexedData(ctx context.Context, table, index string, order IndexOrder, bound *IndexBound) (RowIter, error)
}

type IndexMut interface {
	CreateIndex(ctx context.Context, table, index, column string) error
	DropIndex(ctx context.Context, table, index string) error
}

type AlterTable interface {
	RenameSchema(ctx context.Context, table, newName string) error
	RenameColumn(ctx context.Context, table, column, newName string) error
	// AddColumn appends |col| and fills existing rows with its default.
	AddColumn(ctx context.Context, table string, col ColumnDef, def Value) error
	DropColumn(ctx context.Context, table, column string, ifExists bool) error
}

// TableMeta summarizes a table.
type TableMeta struct {
	Name    string
	Rows    uint64
	Indexes []string
}

type Metadata interface {
	ScanTableMeta(ctx context.Context) ([]TableMeta, error)
}

type CustomFunction interface {
	FetchFunction(ctx context.Context, name string) (*Function, error)
	FetchAllFunctions(ctx context.Context) ([]*Function, error)
}

type CustomFunctionMut interface {
	InsertFunction(ctx context.Context, f *Function) error
	DeleteFunction(ctx context.Context, name string) error
}

// Capabilities reports which optional interfaces |s| implements.
func Capabilities(s Store) []string {
	var caps []string
	if _, ok := s.(Transaction); ok {
		caps = append(caps, "transaction")
	}
	if _, ok := s.(Index); ok {
		caps = append(caps, "index")
	}
	if _, ok := s.(IndexMut); ok {
		caps = append(caps, "index-mut")
	}
	if _, ok := s.(AlterTable); ok {
		caps = append(caps, "alter-table")
	}
	if _, ok := s.(Metadata); ok {
		caps = append(caps, "metadata")
	}
	if _, ok := s.(CustomFunction); ok {
		caps = append(caps, "custom-function")
	}
	if _, ok := s.(CustomFunctionMut); ok {
		caps = append(caps, "custom-function-mut")
	}
	return caps
}
