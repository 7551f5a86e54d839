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

package val

import (
	"encoding/binary"
	"math"
)

// The helpers below produce byte strings whose lexicographic order matches
// the natural order of the encoded values. They are used for B-tree keys,
// never for row payloads.

const (
	escapeByte     byte = 0x00
	escapedZero    byte = 0xFF
	terminatorByte byte = 0x01
)

// AppendOrderedInt64 appends |v| big-endian with the sign bit flipped.
func AppendOrderedInt64(buf []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v)^(1<<63))
}

// ReadOrderedInt64 decodes the value written by AppendOrderedInt64.
func ReadOrderedInt64(buf []byte) (int64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, ErrMalformed.New("ordered int", "truncated")
	}
	return int64(binary.BigEndian.Uint64(buf) ^ (1 << 63)), buf[8:], nil
}

func AppendOrderedUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

func ReadOrderedUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, ErrMalformed.New("ordered uint", "truncated")
	}
	return binary.BigEndian.Uint64(buf), buf[8:], nil
}

// AppendOrderedFloat64 appends |v| so that negative values sort before
// positive ones. NaN sorts after +Inf.
func AppendOrderedFloat64(buf []byte, v float64) []byte {
	b := math.Float64bits(v)
	if b&(1<<63) != 0 {
		b = ^b
	} else {
		b |= 1 << 63
	}
	return binary.BigEndian.AppendUint64(buf, b)
}

func ReadOrderedFloat64(buf []byte) (float64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, ErrMalformed.New("ordered float", "truncated")
	}
	b := binary.BigEndian.Uint64(buf)
	if b&(1<<63) != 0 {
		b &^= 1 << 63
	} else {
		b = ^b
	}
	return math.Float64frombits(b), buf[8:], nil
}

// AppendOrderedBytes appends |v| with every 0x00 escaped as 0x00 0xFF and
// a 0x00 0x01 terminator, so a prefix always sorts before its extensions.
func AppendOrderedBytes(buf []byte, v []byte) []byte {
	for _, c := range v {
		if c == escapeByte {
			buf = append(buf, escapeByte, escapedZero)
		} else {
			buf = append(buf, c)
		}
	}
	return append(buf, escapeByte, terminatorByte)
}

// ReadOrderedBytes decodes the value written by AppendOrderedBytes and
// returns the remaining input.
func ReadOrderedBytes(buf []byte) ([]byte, []byte, error) {
	out := make([]byte, 0, len(buf))
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if c != escapeByte {
			out = append(out, c)
			continue
		}
		if i+1 >= len(buf) {
			return nil, nil, ErrMalformed.New("ordered bytes", "dangling escape")
		}
		switch buf[i+1] {
		case escapedZero:
			out = append(out, escapeByte)
			i++
		case terminatorByte:
			return out, buf[i+2:], nil
		default:
			return nil, nil, ErrMalformed.New("ordered bytes", "invalid escape")
		}
	}
	return nil, nil, ErrMalformed.New("ordered bytes", "missing terminator")
}
