// Copyright 2021 Dolthub, Inc.
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

package val

import (
	"encoding/binary"
	"math"
	"time"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrMalformed is returned by every decoder in this package when its input
// is truncated or internally inconsistent.
var ErrMalformed = errors.NewKind("malformed %s: %s")

type ByteSize uint32

const (
	uint8Size   ByteSize = 1
	int16Size   ByteSize = 2
	uint16Size  ByteSize = 2
	uint32Size  ByteSize = 4
	int64Size   ByteSize = 8
	uint64Size  ByteSize = 8
	float64Size ByteSize = 8
	uuidSize    ByteSize = 16

	timestampSize ByteSize = 8
)

type Encoding uint8

// Constant Size Encodings
const (
	NullEnc    Encoding = 0
	BoolEnc    Encoding = 1
	Int64Enc   Encoding = 9
	Uint64Enc  Encoding = 10
	Float64Enc Encoding = 12

	TimestampEnc Encoding = 14
	DateEnc      Encoding = 15
	UuidEnc      Encoding = 18

	sentinel Encoding = 127
)

// Variable Size Encodings
const (
	StringEnc  Encoding = 128
	BytesEnc   Encoding = 129
	DecimalEnc Encoding = 130
	ListEnc    Encoding = 134
	MapEnc     Encoding = 135
)

// FixedSize returns the encoded width of |enc|, or false when
// |enc| is variable length.
func FixedSize(enc Encoding) (ByteSize, bool) {
	switch enc {
	case NullEnc:
		return 0, true
	case BoolEnc:
		return uint8Size, true
	case Int64Enc:
		return int64Size, true
	case Uint64Enc:
		return uint64Size, true
	case Float64Enc:
		return float64Size, true
	case DateEnc, TimestampEnc:
		return timestampSize, true
	case UuidEnc:
		return uuidSize, true
	default:
		return 0, false
	}
}

// Valid reports whether |enc| is a known encoding.
func (enc Encoding) Valid() bool {
	if _, ok := FixedSize(enc); ok {
		return true
	}
	switch enc {
	case StringEnc, BytesEnc, DecimalEnc, ListEnc, MapEnc:
		return true
	}
	return false
}

func ReadBool(val []byte) bool {
	expectSize(val, uint8Size)
	return val[0] == 1
}

func WriteBool(buf []byte, val bool) {
	expectSize(buf, uint8Size)
	if val {
		buf[0] = byte(1)
	} else {
		buf[0] = byte(0)
	}
}

func ReadUint8(val []byte) uint8 {
	expectSize(val, uint8Size)
	return val[0]
}

func WriteUint8(buf []byte, val uint8) {
	expectSize(buf, uint8Size)
	buf[0] = val
}

func ReadInt16(val []byte) int16 {
	expectSize(val, int16Size)
	return int16(binary.LittleEndian.Uint16(val))
}

func WriteInt16(buf []byte, val int16) {
	expectSize(buf, int16Size)
	binary.LittleEndian.PutUint16(buf, uint16(val))
}

func ReadUint16(val []byte) uint16 {
	expectSize(val, uint16Size)
	return binary.LittleEndian.Uint16(val)
}

func WriteUint16(buf []byte, val uint16) {
	expectSize(buf, uint16Size)
	binary.LittleEndian.PutUint16(buf, val)
}

func ReadUint32(val []byte) uint32 {
	expectSize(val, uint32Size)
	return binary.LittleEndian.Uint32(val)
}

func WriteUint32(buf []byte, val uint32) {
	expectSize(buf, uint32Size)
	binary.LittleEndian.PutUint32(buf, val)
}

func ReadInt64(val []byte) int64 {
	expectSize(val, int64Size)
	return int64(binary.LittleEndian.Uint64(val))
}

func WriteInt64(buf []byte, val int64) {
	expectSize(buf, int64Size)
	binary.LittleEndian.PutUint64(buf, uint64(val))
}

func ReadUint64(val []byte) uint64 {
	expectSize(val, uint64Size)
	return binary.LittleEndian.Uint64(val)
}

func WriteUint64(buf []byte, val uint64) {
	expectSize(buf, uint64Size)
	binary.LittleEndian.PutUint64(buf, val)
}

func ReadFloat64(val []byte) float64 {
	expectSize(val, float64Size)
	return math.Float64frombits(ReadUint64(val))
}

func WriteFloat64(buf []byte, val float64) {
	expectSize(buf, float64Size)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
}

// ReadTimestamp decodes nanoseconds since the Unix epoch, in UTC.
func ReadTimestamp(buf []byte) (t time.Time) {
	expectSize(buf, timestampSize)
	t = time.Unix(0, ReadInt64(buf)).UTC()
	return
}

func WriteTimestamp(buf []byte, val time.Time) {
	expectSize(buf, timestampSize)
	WriteInt64(buf, val.UnixNano())
}

// ReadDate decodes a day count relative to the Unix epoch.
func ReadDate(buf []byte) time.Time {
	expectSize(buf, timestampSize)
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(ReadInt64(buf)))
}

func WriteDate(buf []byte, val time.Time) {
	expectSize(buf, timestampSize)
	WriteInt64(buf, DaysSinceEpoch(val))
}

// DaysSinceEpoch truncates |t| to a whole number of days since 1970-01-01.
func DaysSinceEpoch(t time.Time) int64 {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	secs := day.Unix()
	if secs >= 0 {
		return secs / 86400
	}
	return -((-secs + 86399) / 86400)
}

// AppendUint16 appends |v| in little-endian order.
func AppendUint16(buf []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, v)
}

// AppendUint32 appends |v| in little-endian order.
func AppendUint32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// AppendUint64 appends |v| in little-endian order.
func AppendUint64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func expectSize(buf []byte, sz ByteSize) {
	if ByteSize(len(buf)) != sz {
		panic("byte slice is not of expected size")
	}
}
