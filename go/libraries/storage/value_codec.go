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
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pristinedb/pristine/go/store/val"
)

// Values are serialized as one encoding byte followed by a little-endian
// payload. Lists and maps box their elements in a val.Tuple.
//
//	enc u8 | payload
func EncodeValue(v Value) ([]byte, error) {
	return appendValue(nil, v)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case nil, Null:
		return append(buf, byte(val.NullEnc)), nil
	case Bool:
		b := byte(0)
		if v {
			b = 1
		}
		return append(buf, byte(val.BoolEnc), b), nil
	case Int:
		return val.AppendUint64(append(buf, byte(val.Int64Enc)), uint64(v)), nil
	case Uint:
		return val.AppendUint64(append(buf, byte(val.Uint64Enc)), uint64(v)), nil
	case Float:
		fixed := make([]byte, 8)
		val.WriteFloat64(fixed, float64(v))
		return append(append(buf, byte(val.Float64Enc)), fixed...), nil
	case Timestamp:
		fixed := make([]byte, 8)
		val.WriteTimestamp(fixed, v.Time)
		return append(append(buf, byte(val.TimestampEnc)), fixed...), nil
	case Date:
		fixed := make([]byte, 8)
		val.WriteDate(fixed, v.Time)
		return append(append(buf, byte(val.DateEnc)), fixed...), nil
	case UUID:
		return append(append(buf, byte(val.UuidEnc)), v[:]...), nil
	case String:
		return append(append(buf, byte(val.StringEnc)), v...), nil
	case Bytes:
		return append(append(buf, byte(val.BytesEnc)), v...), nil
	case Decimal:
		b, err := v.Decimal.MarshalBinary()
		if err != nil {
			return nil, err
		}
		return append(append(buf, byte(val.DecimalEnc)), b...), nil
	case List:
		fields := make([][]byte, len(v))
		for i, e := range v {
			f, err := EncodeValue(e)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return append(append(buf, byte(val.ListEnc)), val.NewTuple(fields...)...), nil
	case Map:
		fields, err := encodeMap(v)
		if err != nil {
			return nil, err
		}
		return append(append(buf, byte(val.MapEnc)), val.NewTuple(fields...)...), nil
	default:
		return nil, malformed("unsupported value type %T", v)
	}
}

// encodeMap returns alternating name and value fields, ordered by name.
func encodeMap(m map[string]Value) ([][]byte, error) {
	fields := make([][]byte, 0, 2*len(m))
	for _, k := range sortedMapKeys(m) {
		f, err := EncodeValue(m[k])
		if err != nil {
			return nil, err
		}
		fields = append(fields, []byte(k), f)
	}
	return fields, nil
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeValue is the inverse of EncodeValue. Malformed input returns
// ErrMalformedRecord.
func DecodeValue(b []byte) (Value, error) {
	if len(b) == 0 {
		return nil, malformed("empty value")
	}
	enc, payload := val.Encoding(b[0]), b[1:]
	if sz, ok := val.FixedSize(enc); ok && len(payload) != int(sz) {
		return nil, malformed("value of encoding %d has %d bytes", enc, len(payload))
	}

	switch enc {
	case val.NullEnc:
		return Null{}, nil
	case val.BoolEnc:
		if payload[0] > 1 {
			return nil, malformed("bool byte %d", payload[0])
		}
		return Bool(payload[0] == 1), nil
	case val.Int64Enc:
		return Int(val.ReadInt64(payload)), nil
	case val.Uint64Enc:
		return Uint(val.ReadUint64(payload)), nil
	case val.Float64Enc:
		return Float(val.ReadFloat64(payload)), nil
	case val.TimestampEnc:
		return Timestamp{val.ReadTimestamp(payload)}, nil
	case val.DateEnc:
		return Date{val.ReadDate(payload)}, nil
	case val.UuidEnc:
		u, err := uuid.FromBytes(payload)
		if err != nil {
			return nil, ErrMalformedRecord.Wrap(err, "uuid")
		}
		return UUID(u), nil
	case val.StringEnc:
		return String(payload), nil
	case val.BytesEnc:
		return Bytes(append([]byte{}, payload...)), nil
	case val.DecimalEnc:
		var d decimal.Decimal
		if err := d.UnmarshalBinary(payload); err != nil {
			return nil, ErrMalformedRecord.Wrap(err, "decimal")
		}
		return Decimal{d}, nil
	case val.ListEnc:
		tup, err := readTuple(payload)
		if err != nil {
			return nil, err
		}
		l := make(List, tup.Count())
		for i := range l {
			if l[i], err = decodeField(tup, i); err != nil {
				return nil, err
			}
		}
		return l, nil
	case val.MapEnc:
		return decodeMap(payload)
	default:
		return nil, malformed("unknown value encoding %d", enc)
	}
}

func readTuple(b []byte) (val.Tuple, error) {
	tup, err := val.ReadTuple(b)
	if err != nil {
		return nil, ErrMalformedRecord.Wrap(err, "tuple")
	}
	return tup, nil
}

func decodeField(tup val.Tuple, i int) (Value, error) {
	f := tup.GetField(i)
	if f == nil {
		return nil, malformed("field %d is absent", i)
	}
	return DecodeValue(f)
}

func decodeMap(b []byte) (Map, error) {
	tup, err := readTuple(b)
	if err != nil {
		return nil, err
	}
	if tup.Count()%2 != 0 {
		return nil, malformed("map with %d fields", tup.Count())
	}
	m := make(Map, tup.Count()/2)
	for i := 0; i < tup.Count(); i += 2 {
		name := tup.GetField(i)
		if name == nil {
			return nil, malformed("field %d is absent", i)
		}
		if m[string(name)], err = decodeField(tup, i+1); err != nil {
			return nil, err
		}
	}
	return m, nil
}
