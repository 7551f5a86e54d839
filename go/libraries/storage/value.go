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
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueKind identifies the concrete type of a Value.
type ValueKind uint8

// The ordering of these kinds is the ordering of keys of different kinds.
const (
	NullKind ValueKind = iota
	BoolKind
	IntKind
	UintKind
	FloatKind
	DecimalKind
	StringKind
	BytesKind
	DateKind
	TimestampKind
	UUIDKind
	ListKind
	MapKind
)

var KindToString = map[ValueKind]string{
	NullKind:      "Null",
	BoolKind:      "Bool",
	IntKind:       "Int",
	UintKind:      "Uint",
	FloatKind:     "Float",
	DecimalKind:   "Decimal",
	StringKind:    "String",
	BytesKind:     "Bytes",
	DateKind:      "Date",
	TimestampKind: "Timestamp",
	UUIDKind:      "UUID",
	ListKind:      "List",
	MapKind:       "Map",
}

func (k ValueKind) String() string {
	if s, ok := KindToString[k]; ok {
		return s
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Value is a single cell of a DataRow. The storage layer never interprets
// values beyond comparing and serializing them.
type Value interface {
	Kind() ValueKind
}

type Null struct{}

type Bool bool

type Int int64

type Uint uint64

type Float float64

type Decimal struct {
	decimal.Decimal
}

type String string

type Bytes []byte

// Date is a calendar day. Only the year, month and day of the wrapped time
// are stored.
type Date struct {
	time.Time
}

// Timestamp is stored with nanosecond precision in UTC.
type Timestamp struct {
	time.Time
}

type UUID uuid.UUID

type List []Value

type Map map[string]Value

func (Null) Kind() ValueKind      { return NullKind }
func (Bool) Kind() ValueKind      { return BoolKind }
func (Int) Kind() ValueKind       { return IntKind }
func (Uint) Kind() ValueKind      { return UintKind }
func (Float) Kind() ValueKind     { return FloatKind }
func (Decimal) Kind() ValueKind   { return DecimalKind }
func (String) Kind() ValueKind    { return StringKind }
func (Bytes) Kind() ValueKind     { return BytesKind }
func (Date) Kind() ValueKind      { return DateKind }
func (Timestamp) Kind() ValueKind { return TimestampKind }
func (UUID) Kind() ValueKind      { return UUIDKind }
func (List) Kind() ValueKind      { return ListKind }
func (Map) Kind() ValueKind       { return MapKind }

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{d}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (t Timestamp) String() string {
	return t.Format(time.RFC3339Nano)
}

func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// ValuesEqual compares the serialized forms of |a| and |b|.
func ValuesEqual(a, b Value) bool {
	ea, err := EncodeValue(a)
	if err != nil {
		return false
	}
	eb, err := EncodeValue(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// FormatValue renders |v| for humans.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil, Null:
		return "NULL"
	case String:
		return fmt.Sprintf("%q", string(v))
	case Bytes:
		return fmt.Sprintf("X'%x'", []byte(v))
	case Decimal:
		return v.Decimal.String()
	case List:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(FormatValue(e))
		}
		buf.WriteByte(']')
		return buf.String()
	case Map:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range sortedMapKeys(v) {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%q: %s", k, FormatValue(v[k]))
		}
		buf.WriteByte('}')
		return buf.String()
	default:
		return fmt.Sprint(v)
	}
}
