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

package storage

import (
	"context"
	"io"

	"github.com/golang/snappy"

	"github.com/pristinedb/pristine/go/store/val"
)

// DataRow is either a positional row of a table with column definitions
// or, for schemaless tables, a map of named values.
type DataRow struct {
	Values []Value
	Map    map[string]Value
}

func NewRow(vals ...Value) DataRow {
	return DataRow{Values: vals}
}

func NewMapRow(m map[string]Value) DataRow {
	return DataRow{Map: m}
}

func (r DataRow) IsMap() bool {
	return r.Map != nil
}

// Equals compares the serialized forms of two rows.
func (r DataRow) Equals(other DataRow) bool {
	if r.IsMap() != other.IsMap() {
		return false
	}
	if r.IsMap() {
		return ValuesEqual(Map(r.Map), Map(other.Map))
	}
	return ValuesEqual(List(r.Values), List(other.Values))
}

func (r DataRow) String() string {
	if r.IsMap() {
		return FormatValue(Map(r.Map))
	}
	return FormatValue(List(r.Values))
}

// KeyedRow pairs a DataRow with its Key.
type KeyedRow struct {
	Key Key
	Row DataRow
}

const (
	rowFlagMap    byte = 1 << 0
	rowFlagSnappy byte = 1 << 1

	// CompressThreshold is the encoded row size above which row payloads are
	// snappy compressed.
	CompressThreshold = 512
)

// EncodeRow serializes |r| as a flags byte followed by a val.Tuple of encoded
// values, compressed when large.
//
//	flags u8 | tuple
func EncodeRow(r DataRow) ([]byte, error) {
	var flags byte
	var fields [][]byte
	var err error
	if r.IsMap() {
		flags |= rowFlagMap
		if fields, err = encodeMap(r.Map); err != nil {
			return nil, err
		}
	} else {
		fields = make([][]byte, len(r.Values))
		for i, v := range r.Values {
			if fields[i], err = EncodeValue(v); err != nil {
				return nil, err
			}
		}
	}
	if len(fields) > val.MaxTupleFields {
		return nil, malformed("row with %d fields", len(fields))
	}

	body := []byte(val.NewTuple(fields...))
	if len(body) > CompressThreshold {
		flags |= rowFlagSnappy
		body = snappy.Encode(nil, body)
	}
	return append([]byte{flags}, body...), nil
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(b []byte) (DataRow, error) {
	if len(b) == 0 {
		return DataRow{}, malformed("empty row")
	}
	flags, body := b[0], b[1:]
	if flags&^(rowFlagMap|rowFlagSnappy) != 0 {
		return DataRow{}, malformed("unknown row flags %#x", flags)
	}
	if flags&rowFlagSnappy != 0 {
		var err error
		if body, err = snappy.Decode(nil, body); err != nil {
			return DataRow{}, ErrMalformedRecord.Wrap(err, "row")
		}
	}

	if flags&rowFlagMap != 0 {
		m, err := decodeMap(body)
		if err != nil {
			return DataRow{}, err
		}
		return DataRow{Map: m}, nil
	}

	tup, err := readTuple(body)
	if err != nil {
		return DataRow{}, err
	}
	vals := make([]Value, tup.Count())
	for i := range vals {
		if vals[i], err = decodeField(tup, i); err != nil {
			return DataRow{}, err
		}
	}
	return DataRow{Values: vals}, nil
}

// RowIter is a lazy sequence of rows. Next returns io.EOF after the last
// row. Callers must Close the iterator.
type RowIter interface {
	Next(ctx context.Context) (KeyedRow, error)
	Close(ctx context.Context) error
}

type sliceRowIter struct {
	rows []KeyedRow
	pos  int
}

// RowsToRowIter returns a RowIter over |rows|.
func RowsToRowIter(rows ...KeyedRow) RowIter {
	return &sliceRowIter{rows: rows}
}

func (it *sliceRowIter) Next(ctx context.Context) (KeyedRow, error) {
	if err := ctx.Err(); err != nil {
		return KeyedRow{}, err
	}
	if it.pos >= len(it.rows) {
		return KeyedRow{}, io.EOF
	}
	r := it.rows[it.pos]
	it.pos++
	return r, nil
}

func (it *sliceRowIter) Close(context.Context) error {
	it.rows = nil
	return nil
}

// RowIterToRows drains and closes |iter|.
func RowIterToRows(ctx context.Context, iter RowIter) ([]KeyedRow, error) {
	var rows []KeyedRow
	for {
		r, err := iter.Next(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			_ = iter.Close(ctx)
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, iter.Close(ctx)
}
