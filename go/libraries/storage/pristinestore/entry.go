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
	"sort"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/val"
)

// tableEntry is the Schema Index value of one table.
//
//	tuple(data root u64 | row count u64 | schema json | (index name | index root u64)*)
type tableEntry struct {
	schema  *storage.Schema
	data    uint64
	rows    uint64
	indexes map[string]uint64
}

func (e tableEntry) encode() ([]byte, error) {
	sch, err := storage.MarshalSchema(e.schema)
	if err != nil {
		return nil, err
	}
	fields := [][]byte{u64(e.data), u64(e.rows), sch}
	for _, name := range e.indexNames() {
		fields = append(fields, []byte(name), u64(e.indexes[name]))
	}
	return val.NewTuple(fields...), nil
}

func (e tableEntry) indexNames() []string {
	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func u64(v uint64) []byte {
	return val.AppendUint64(make([]byte, 0, 8), v)
}

func decodeTableEntry(table string, b []byte) (tableEntry, error) {
	tup, err := val.ReadTuple(b)
	if err != nil {
		return tableEntry{}, storage.ErrMalformedRecord.Wrap(err, "table entry "+table)
	}
	n := tup.Count()
	if n < 3 || (n-3)%2 != 0 {
		return tableEntry{}, storage.ErrMalformedRecord.New("table entry " + table + " has a bad field count")
	}
	fixed := func(i int) (uint64, bool) {
		f := tup.GetField(i)
		if len(f) != 8 {
			return 0, false
		}
		return val.ReadUint64(f), true
	}

	var e tableEntry
	var ok bool
	if e.data, ok = fixed(0); !ok || e.data == 0 {
		return tableEntry{}, storage.ErrMalformedRecord.New("table entry " + table + " has no data root")
	}
	if e.rows, ok = fixed(1); !ok {
		return tableEntry{}, storage.ErrMalformedRecord.New("table entry " + table + " has no row count")
	}
	if e.schema, err = storage.UnmarshalSchema(tup.GetField(2)); err != nil {
		return tableEntry{}, err
	}
	e.indexes = make(map[string]uint64, (n-3)/2)
	for i := 3; i < n; i += 2 {
		root, ok := fixed(i + 1)
		name := tup.GetField(i)
		if !ok || root == 0 || name == nil {
			return tableEntry{}, storage.ErrMalformedRecord.New("table entry " + table + " has a bad index")
		}
		e.indexes[string(name)] = root
	}
	return e, nil
}
