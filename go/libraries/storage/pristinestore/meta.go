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

	"github.com/pristinedb/pristine/go/libraries/storage"
)

// ScanTableMeta reports every table with its row count and index names,
// ordered by table name.
func (s *Store) ScanTableMeta(ctx context.Context) ([]storage.TableMeta, error) {
	var metas []storage.TableMeta
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
			metas = append(metas, storage.TableMeta{
				Name:    e.schema.TableName,
				Rows:    e.rows,
				Indexes: e.indexNames(),
			})
		}
		return c.Err()
	})
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return metas, nil
}
