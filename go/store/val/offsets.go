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

const offsetWidth = 4

// Offsets holds the start positions of every element after the first.
// The first element always begins at zero.
type Offsets []byte

// OffsetsSize returns the number of bytes needed to
// store |count| offsets.
func OffsetsSize(count int) ByteSize {
	if count == 0 {
		return 0
	}
	return ByteSize((count - 1) * offsetWidth)
}

// Count returns the number of offsets stored in |os|.
func (os Offsets) Count() int {
	return (len(os) / offsetWidth) + 1
}

// GetBounds returns the ith offset. |last| is the byte position
// of the _end_ of the last element.
func (os Offsets) GetBounds(i int, last ByteSize) (start, stop ByteSize) {
	start = os.getOffset(i)
	if os.isLastIndex(i) {
		stop = last
	} else {
		stop = os.getOffset(i + 1)
	}
	return
}

// getOffset gets the byte position of the _start_ of element |i|.
func (os Offsets) getOffset(i int) ByteSize {
	if i == 0 {
		return 0
	}
	start := (i - 1) * offsetWidth
	return ByteSize(ReadUint32(os[start : start+offsetWidth]))
}

// Put writes offset |off| at index |i|.
func (os Offsets) Put(i int, off ByteSize) {
	if i == 0 {
		return
	}
	start := (i - 1) * offsetWidth
	WriteUint32(os[start:start+offsetWidth], uint32(off))
}

// isLastIndex returns true if |i| is the last index in |os|.
func (os Offsets) isLastIndex(i int) bool {
	return len(os) == i*offsetWidth
}
