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
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowRoundTrip(t *testing.T) {
	row := NewRow(
		Int(1), String("a"), Null{}, Bool(false), Uint(7), Float(-0.5),
		mustDecimal(t, "12.500"), Bytes{}, NewDate(2023, 8, 24),
		NewTimestamp(time.Date(2023, 8, 24, 1, 2, 3, 4, time.UTC)), UUID(uuid.New()),
		List{Int(1), List{String("nested")}, Null{}},
		Map{"b": Int(2), "a": Map{"x": Bool(true)}},
	)
	enc, err := EncodeRow(row)
	require.NoError(t, err)
	assert.Zero(t, enc[0]&rowFlagSnappy)

	decoded, err := DecodeRow(enc)
	require.NoError(t, err)
	require.Len(t, decoded.Values, len(row.Values))
	assert.True(t, row.Equals(decoded), "%s != %s", row, decoded)
	assert.Equal(t, "12.5", decoded.Values[6].(Decimal).String())
	assert.Equal(t, Null{}, decoded.Values[2])

	again, err := EncodeRow(decoded)
	require.NoError(t, err)
	assert.Equal(t, enc, again)
}

func TestMapRow(t *testing.T) {
	row := NewMapRow(map[string]Value{"id": Int(3), "name": String("c")})
	enc, err := EncodeRow(row)
	require.NoError(t, err)
	decoded, err := DecodeRow(enc)
	require.NoError(t, err)
	assert.True(t, decoded.IsMap())
	assert.True(t, row.Equals(decoded))
	assert.False(t, row.Equals(NewRow(Int(3), String("c"))))

	empty, err := EncodeRow(NewMapRow(map[string]Value{}))
	require.NoError(t, err)
	decoded, err = DecodeRow(empty)
	require.NoError(t, err)
	assert.True(t, decoded.IsMap())
}

func TestLargeRowsAreCompressed(t *testing.T) {
	row := NewRow(Int(1), String(strings.Repeat("pristine ", 500)))
	enc, err := EncodeRow(row)
	require.NoError(t, err)
	assert.NotZero(t, enc[0]&rowFlagSnappy)
	assert.Less(t, len(enc), 1000)

	decoded, err := DecodeRow(enc)
	require.NoError(t, err)
	assert.True(t, row.Equals(decoded))
}

func TestDecodeRowRejectsGarbage(t *testing.T) {
	enc, err := EncodeRow(NewRow(Int(1), String("abc")))
	require.NoError(t, err)

	for name, b := range map[string][]byte{
		"empty":      nil,
		"flags":      append([]byte{0x80}, enc[1:]...),
		"truncated":  enc[:3],
		"not snappy": append([]byte{rowFlagSnappy}, 0xFF, 0xFF, 0xFF),
		"bad value":  {0, 0xEE, 1, 0, 1, 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRow(b)
			assert.True(t, ErrMalformedRecord.Is(err), "%v", err)
		})
	}
}

func TestRowIter(t *testing.T) {
	ctx := context.Background()
	rows := []KeyedRow{
		{Key: IntKey(1), Row: NewRow(Int(1))},
		{Key: IntKey(2), Row: NewRow(Int(2))},
	}
	got, err := RowIterToRows(ctx, RowsToRowIter(rows...))
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	iter := RowsToRowIter()
	_, err = iter.Next(ctx)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, iter.Close(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = RowIterToRows(cancelled, RowsToRowIter(rows...))
	assert.Equal(t, context.Canceled, err)
}

func TestWrapAndCause(t *testing.T) {
	assert.NoError(t, Wrap(nil))

	err := ErrTableNotFound.New("t")
	wrapped := Wrap(err)
	assert.True(t, ErrStorageMsg.Is(wrapped))
	assert.True(t, ErrTableNotFound.Is(wrapped))
	assert.Equal(t, "storage error: table not found: t", wrapped.Error())
	assert.Equal(t, err, Cause(wrapped))
	assert.Equal(t, wrapped, Wrap(wrapped))

	plain := io.ErrUnexpectedEOF
	assert.Equal(t, plain, Cause(Wrap(plain)))
	assert.Equal(t, plain, Cause(plain))
}
