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

const (
	numFieldsSize ByteSize = 2

	// MaxTupleFields is the largest field count a Tuple can record.
	MaxTupleFields = 1<<16 - 1
)

// Tuple is a boxed sequence of variable-length fields. A nil field is
// recorded as absent in the presence mask and takes no data bytes.
//
//	data | offsets (u32 LE, one per present field after the first) | mask | numFields (u16 LE)
type Tuple []byte

// NewTuple packs |fields| into a Tuple. Nil fields are absent; a non-nil
// empty field is present with zero length.
func NewTuple(fields ...[]byte) Tuple {
	if len(fields) > MaxTupleFields {
		panic("too many tuple fields")
	}

	count := 0
	pos := ByteSize(0)
	for _, f := range fields {
		if f == nil {
			continue
		}
		count++
		pos += ByteSize(len(f))
	}

	offSz := OffsetsSize(count)
	maskSz := maskSize(len(fields))
	tup := make(Tuple, pos+offSz+maskSz+numFieldsSize)

	offs := Offsets(tup[pos : pos+offSz])
	mask := nullMask(tup[pos+offSz : pos+offSz+maskSz])
	WriteUint16(tup[len(tup)-int(numFieldsSize):], uint16(len(fields)))

	count = 0
	pos = 0
	for i, f := range fields {
		if f == nil {
			continue
		}
		mask.set(i)
		offs.Put(count, pos)
		count++
		copy(tup[pos:], f)
		pos += ByteSize(len(f))
	}

	return tup
}

// ReadTuple validates |buf| as a Tuple. The returned Tuple aliases |buf|.
func ReadTuple(buf []byte) (Tuple, error) {
	if len(buf) < int(numFieldsSize) {
		return nil, ErrMalformed.New("tuple", "truncated field count")
	}
	tup := Tuple(buf)
	n := tup.Count()
	maskSz := maskSize(n)
	if ByteSize(len(buf)) < numFieldsSize+maskSz {
		return nil, ErrMalformed.New("tuple", "truncated presence mask")
	}
	mask := tup.mask()
	present := mask.count()
	offSz := OffsetsSize(present)
	if ByteSize(len(buf)) < numFieldsSize+maskSz+offSz {
		return nil, ErrMalformed.New("tuple", "truncated offsets")
	}
	dataEnd := ByteSize(len(buf)) - numFieldsSize - maskSz - offSz
	offs := Offsets(buf[dataEnd : dataEnd+offSz])
	prev := ByteSize(0)
	for i := 1; i < present; i++ {
		off := offs.getOffset(i)
		if off < prev || off > dataEnd {
			return nil, ErrMalformed.New("tuple", "offsets out of order")
		}
		prev = off
	}
	// bits past |n| in the final mask byte must be clear
	if n%8 != 0 && maskSz > 0 && mask[maskSz-1]>>(n%8) != 0 {
		return nil, ErrMalformed.New("tuple", "presence mask overflow")
	}
	return tup, nil
}

// Count returns the number of fields in |tup|, present or not.
func (tup Tuple) Count() int {
	return int(ReadUint16(tup[len(tup)-int(numFieldsSize):]))
}

// GetField returns the |i|th field, or nil when it is absent.
func (tup Tuple) GetField(i int) []byte {
	if i < 0 || i >= tup.Count() {
		return nil
	}
	mask := tup.mask()
	if !mask.present(i) {
		return nil
	}

	offs, dataEnd := tup.offsets(mask)
	start, stop := offs.GetBounds(mask.countPrefix(i)-1, dataEnd)
	return tup[start:stop:stop]
}

func (tup Tuple) mask() nullMask {
	end := ByteSize(len(tup)) - numFieldsSize
	start := end - maskSize(tup.Count())
	return nullMask(tup[start:end])
}

func (tup Tuple) offsets(mask nullMask) (Offsets, ByteSize) {
	end := ByteSize(len(tup)) - numFieldsSize - mask.size()
	start := end - OffsetsSize(mask.count())
	return Offsets(tup[start:end]), start
}
