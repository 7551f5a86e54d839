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
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/storage"
)

func (s *Store) RenameSchema(ctx context.Context, table, newName string) error {
	if err := storage.ValidateTableName(newName); err != nil {
		return storage.Wrap(err)
	}
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.mustEntry(table)
		if err != nil {
			return err
		}
		if table == newName {
			return nil
		}
		if _, ok, err := w.entry(newName); err != nil {
			return err
		} else if ok {
			return storage.ErrTableAlreadyExists.New(newName)
		}
		if _, err = w.schemas.Delete([]byte(table)); err != nil {
			return err
		}
		e.schema.TableName = newName
		w.log.WithFields(logrus.Fields{"table": table, "name": newName}).Debug("renamed table")
		return w.putEntry(e)
	}))
}

func (s *Store) RenameColumn(ctx context.Context, table, column, newName string) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.columnsEntry(table)
		if err != nil {
			return err
		}
		i := e.schema.ColumnIndex(column)
		if i < 0 {
			return storage.ErrColumnNotFound.New(column, table)
		}
		if j := e.schema.ColumnIndex(newName); j >= 0 && j != i {
			return storage.ErrColumnAlreadyExists.New(newName, table)
		}
		e.schema.ColumnDefs[i].Name = newName
		for k := range e.schema.Indexes {
			if strings.EqualFold(e.schema.Indexes[k].Column, column) {
				e.schema.Indexes[k].Column = newName
			}
		}
		if err = e.schema.Validate(); err != nil {
			return err
		}
		w.log.WithFields(logrus.Fields{"table": table, "column": column, "name": newName}).Debug("renamed column")
		return w.putEntry(e)
	}))
}

// AddColumn appends |col| to the table and sets it to |def| in every row.
// A nil default is Null, which a non-nullable column does not accept.
func (s *Store) AddColumn(ctx context.Context, table string, col storage.ColumnDef, def storage.Value) error {
	if def == nil {
		def = storage.Null{}
	}
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.columnsEntry(table)
		if err != nil {
			return err
		}
		if e.schema.ColumnIndex(col.Name) >= 0 {
			return storage.ErrColumnAlreadyExists.New(col.Name, table)
		}
		if col.IsPrimary() {
			return storage.ErrInvalidSchema.New(table, "cannot add primary key column "+col.Name)
		}
		if def.Kind() == storage.NullKind && !col.Nullable {
			return storage.ErrInvalidSchema.New(table, "column "+col.Name+" is not nullable and has no default")
		}
		e.schema.ColumnDefs = append(e.schema.ColumnDefs, col)
		if err = e.schema.Validate(); err != nil {
			return err
		}

		n := len(e.schema.ColumnDefs)
		err = w.rewriteRows(&e, func(row storage.DataRow) storage.DataRow {
			for len(row.Values) < n-1 {
				row.Values = append(row.Values, storage.Null{})
			}
			row.Values = append(row.Values[:n-1:n-1], def)
			return row
		})
		if err != nil {
			return err
		}
		w.log.WithFields(logrus.Fields{"table": table, "column": col.Name}).Debug("added column")
		return w.putEntry(e)
	}))
}

// DropColumn removes |column| from the table, its rows and any index on it.
// The primary key column cannot be dropped.
func (s *Store) DropColumn(ctx context.Context, table, column string, ifExists bool) error {
	return storage.Wrap(s.write(ctx, func(w *writer) error {
		e, err := w.columnsEntry(table)
		if err != nil {
			return err
		}
		i := e.schema.ColumnIndex(column)
		if i < 0 {
			if ifExists {
				return nil
			}
			return storage.ErrColumnNotFound.New(column, table)
		}
		if e.schema.ColumnDefs[i].IsPrimary() {
			return storage.ErrInvalidSchema.New(table, "cannot drop primary key column "+column)
		}

		var dropped []string
		for _, idx := range e.schema.Indexes {
			if strings.EqualFold(idx.Column, column) {
				dropped = append(dropped, idx.Name)
			}
		}
		for _, name := range dropped {
			if err = w.dropIndex(&e, name); err != nil {
				return err
			}
		}

		e.schema.ColumnDefs = append(e.schema.ColumnDefs[:i:i], e.schema.ColumnDefs[i+1:]...)
		err = w.rewriteRows(&e, func(row storage.DataRow) storage.DataRow {
			if i < len(row.Values) {
				row.Values = append(row.Values[:i:i], row.Values[i+1:]...)
			}
			return row
		})
		if err != nil {
			return err
		}
		w.log.WithFields(logrus.Fields{"table": table, "column": column, "indexes": dropped}).Debug("dropped column")
		return w.putEntry(e)
	}))
}

// columnsEntry returns the entry of a table that has columns. Schemaless
// tables cannot be altered column-wise.
func (w *writer) columnsEntry(table string) (tableEntry, error) {
	e, err := w.mustEntry(table)
	if err != nil {
		return tableEntry{}, err
	}
	if e.schema.IsSchemaless() {
		return tableEntry{}, storage.ErrInvalidSchema.New(table, "schemaless tables have no columns")
	}
	return e, nil
}

// rewriteRows replaces every row of |e| with |fn| applied to it. |fn| must
// not change indexed values.
func (w *writer) rewriteRows(e *tableEntry, fn func(storage.DataRow) storage.DataRow) error {
	rows, err := collectRows(context.Background(), w.txn.Tree(e.data))
	if err != nil {
		return err
	}
	data := w.txn.MutableTree(e.data)
	for _, kr := range rows {
		enc, err := storage.EncodeRow(fn(kr.Row))
		if err != nil {
			return err
		}
		if _, err = data.Put(kr.Key.Bytes(), enc); err != nil {
			return err
		}
	}
	e.data = data.Root()
	return nil
}
