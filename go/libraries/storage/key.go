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
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pristinedb/pristine/go/store/val"
)

// Key identifies a row within a table. It holds the order-preserving
// encoding of a single scalar Value, so comparing Keys compares their
// encodings byte-wise and Keys may be used as map keys.
type Key struct {
	enc string
}

// key tags, in the order keys of different kinds sort
const (
	keyNull byte = 0x10 + iota
	keyBool
	keyInt
	keyUint
	keyFloat
	keyDecimal
	keyString
	keyBytes
	keyDate
	keyTimestamp
	keyUUID
)

// decimal sign markers
const (
	decNeg  byte = 0x00
	decZero byte = 0x01
	decPos  byte = 0x02
)

// NewKey returns the Key for |v|. Lists and maps cannot be keys.
func NewKey(v Value) (Key, error) {
	var buf []byte
	switch v := v.(type) {
	case nil, Null:
		buf = []byte{keyNull}
	case Bool:
		b := byte(0)
		if v {
			b = 1
		}
		buf = []byte{keyBool, b}
	case Int:
		buf = val.AppendOrderedInt64([]byte{keyInt}, int64(v))
	case Uint:
		buf = val.AppendOrderedUint64([]byte{keyUint}, uint64(v))
	case Float:
		buf = val.AppendOrderedFloat64([]byte{keyFloat}, float64(v))
	case Decimal:
		buf = appendOrderedDecimal([]byte{keyDecimal}, v.Decimal)
	case String:
		buf = val.AppendOrderedBytes([]byte{keyString}, []byte(v))
	case Bytes:
		buf = val.AppendOrderedBytes([]byte{keyBytes}, v)
	case Date:
		buf = val.AppendOrderedInt64([]byte{keyDate}, val.DaysSinceEpoch(v.Time))
	case Timestamp:
		buf = val.AppendOrderedInt64([]byte{keyTimestamp}, v.UnixNano())
	case UUID:
		buf = append([]byte{keyUUID}, v[:]...)
	default:
		return Key{}, ErrInvalidKey.New(v.Kind())
	}
	return Key{enc: string(buf)}, nil
}

// MustKey is NewKey for values known to be valid keys.
func MustKey(v Value) Key {
	k, err := NewKey(v)
	if err != nil {
		panic(err)
	}
	return k
}

func IntKey(i int64) Key {
	return MustKey(Int(i))
}

func StringKey(s string) Key {
	return MustKey(String(s))
}

func UUIDKey(u uuid.UUID) Key {
	return MustKey(UUID(u))
}

// DecodeKey validates |b| as a Key encoding.
func DecodeKey(b []byte) (Key, error) {
	_, rest, err := decodeKeyValue(b)
	if err != nil {
		return Key{}, err
	}
	if len(rest) != 0 {
		return Key{}, malformed("%d trailing bytes after key", len(rest))
	}
	return Key{enc: string(b)}, nil
}

// SplitKey decodes the Key at the start of |b| and returns the remaining
// bytes. Key encodings are self-delimiting, so concatenated keys sort by
// their first key and then by the rest.
func SplitKey(b []byte) (Key, []byte, error) {
	_, rest, err := decodeKeyValue(b)
	if err != nil {
		return Key{}, nil, err
	}
	return Key{enc: string(b[:len(b)-len(rest)])}, rest, nil
}

// IsNull reports whether |k| is the key of a Null value.
func (k Key) IsNull() bool {
	return len(k.enc) == 1 && k.enc[0] == keyNull
}

// Bytes returns the order-preserving encoding of |k|.
func (k Key) Bytes() []byte {
	return []byte(k.enc)
}

func (k Key) IsZero() bool {
	return k.enc == ""
}

// Value decodes |k|. The zero Key decodes as Null.
func (k Key) Value() Value {
	if k.IsZero() {
		return Null{}
	}
	v, _, err := decodeKeyValue([]byte(k.enc))
	if err != nil {
		// keys are validated on construction
		panic(err)
	}
	return v
}

func (k Key) Compare(other Key) int {
	return strings.Compare(k.enc, other.enc)
}

func (k Key) Less(other Key) bool {
	return k.enc < other.enc
}

func (k Key) String() string {
	return FormatValue(k.Value())
}

func decodeKeyValue(b []byte) (Value, []byte, error) {
	if len(b) == 0 {
		return nil, nil, malformed("empty key")
	}
	tag, rest := b[0], b[1:]
	switch tag {
	case keyNull:
		return Null{}, rest, nil
	case keyBool:
		if len(rest) < 1 || rest[0] > 1 {
			return nil, nil, malformed("bad bool key")
		}
		return Bool(rest[0] == 1), rest[1:], nil
	case keyInt, keyDate, keyTimestamp:
		i, rest, err := val.ReadOrderedInt64(rest)
		if err != nil {
			return nil, nil, ErrMalformedRecord.Wrap(err, "key")
		}
		switch tag {
		case keyDate:
			return Date{time.Unix(0, 0).UTC().AddDate(0, 0, int(i))}, rest, nil
		case keyTimestamp:
			return Timestamp{time.Unix(0, i).UTC()}, rest, nil
		}
		return Int(i), rest, nil
	case keyUint:
		u, rest, err := val.ReadOrderedUint64(rest)
		if err != nil {
			return nil, nil, ErrMalformedRecord.Wrap(err, "key")
		}
		return Uint(u), rest, nil
	case keyFloat:
		f, rest, err := val.ReadOrderedFloat64(rest)
		if err != nil {
			return nil, nil, ErrMalformedRecord.Wrap(err, "key")
		}
		return Float(f), rest, nil
	case keyDecimal:
		d, rest, err := readOrderedDecimal(rest)
		if err != nil {
			return nil, nil, err
		}
		return Decimal{d}, rest, nil
	case keyString, keyBytes:
		s, rest, err := val.ReadOrderedBytes(rest)
		if err != nil {
			return nil, nil, ErrMalformedRecord.Wrap(err, "key")
		}
		if tag == keyString {
			return String(s), rest, nil
		}
		return Bytes(s), rest, nil
	case keyUUID:
		if len(rest) < 16 {
			return nil, nil, malformed("truncated uuid key")
		}
		u, _ := uuid.FromBytes(rest[:16])
		return UUID(u), rest[16:], nil
	default:
		return nil, nil, malformed("unknown key tag %#x", tag)
	}
}

// Decimals are written as sign, adjusted exponent and significant digits
// so that 0.12 < 0.123 < 1.2. Negative values invert everything after the
// sign byte.
//
//	sign u8 | exponent (ordered i64) | digits | 0x00
func appendOrderedDecimal(buf []byte, d decimal.Decimal) []byte {
	if d.Sign() == 0 {
		return append(buf, decZero)
	}
	digits := new(big.Int).Abs(d.Coefficient()).String()
	exp := int64(d.Exponent())
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		exp++
	}
	adjusted := int64(len(digits)) + exp

	body := val.AppendOrderedInt64(nil, adjusted)
	body = append(body, digits...)
	body = append(body, 0x00)
	if d.Sign() > 0 {
		return append(append(buf, decPos), body...)
	}
	for i := range body {
		body[i] = ^body[i]
	}
	return append(append(buf, decNeg), body...)
}

func readOrderedDecimal(b []byte) (decimal.Decimal, []byte, error) {
	if len(b) == 0 {
		return decimal.Decimal{}, nil, malformed("truncated decimal key")
	}
	sign, rest := b[0], b[1:]
	switch sign {
	case decZero:
		return decimal.Zero, rest, nil
	case decPos, decNeg:
	default:
		return decimal.Decimal{}, nil, malformed("bad decimal sign %#x", sign)
	}

	end := -1
	for i := 8; i < len(rest); i++ {
		if (sign == decPos && rest[i] == 0x00) || (sign == decNeg && rest[i] == 0xFF) {
			end = i
			break
		}
	}
	if end < 0 {
		return decimal.Decimal{}, nil, malformed("unterminated decimal key")
	}
	body := append([]byte(nil), rest[:end]...)
	if sign == decNeg {
		for i := range body {
			body[i] = ^body[i]
		}
	}
	adjusted, digits, err := val.ReadOrderedInt64(body)
	if err != nil {
		return decimal.Decimal{}, nil, ErrMalformedRecord.Wrap(err, "key")
	}
	coef, ok := new(big.Int).SetString(string(digits), 10)
	if !ok || len(digits) == 0 {
		return decimal.Decimal{}, nil, malformed("bad decimal digits")
	}
	if sign == decNeg {
		coef.Neg(coef)
	}
	return decimal.NewFromBigInt(coef, int32(adjusted-int64(len(digits)))), rest[end+1:], nil
}
