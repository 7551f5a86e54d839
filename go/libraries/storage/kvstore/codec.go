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
	"github.com/goccy/go-json"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/val"
)

const (
	schemaNamesKey = "schema-names"
	schemaPrefix   = "schema/"
	dataPrefix     = "data/"
	functionPrefix = "function/"
)

// encodeRows writes a table blob as a sequence of records:
//
//	length u32 | tuple(key | row)
func encodeRows(rows []storage.KeyedRow) ([]byte, error) {
	var buf []byte
	for _, r := range rows {
		enc, err := storage.EncodeRow(r.Row)
		if err != nil {
			return nil, err
		}
		tup := val.NewTuple(r.Key.Bytes(), enc)
		buf = val.AppendUint32(buf, uint32(len(tup)))
		buf = append(buf, tup...)
	}
	return buf, nil
}

func decodeRows(table string, b []byte) ([]storage.KeyedRow, error) {
	var rows []storage.KeyedRow
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, storage.ErrMalformedRecord.New("truncated record in table " + table)
		}
		n := int(val.ReadUint32(b[:4]))
		if n > len(b)-4 {
			return nil, storage.ErrMalformedRecord.New("truncated record in table " + table)
		}
		tup, err := val.ReadTuple(b[4 : 4+n])
		if err != nil {
			return nil, storage.ErrMalformedRecord.Wrap(err, "table "+table)
		}
		if tup.Count() != 2 {
			return nil, storage.ErrMalformedRecord.New("bad record in table " + table)
		}
		key, err := storage.DecodeKey(tup.GetField(0))
		if err != nil {
			return nil, err
		}
		row, err := storage.DecodeRow(tup.GetField(1))
		if err != nil {
			return nil, err
		}
		rows = append(rows, storage.KeyedRow{Key: key, Row: row})
		b = b[4+n:]
	}
	return rows, nil
}

func encodeNames(names []string) ([]byte, error) {
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func decodeNames(b []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return nil, storage.ErrMalformedRecord.Wrap(err, schemaNamesKey)
	}
	return names, nil
}
