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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLittleEndian(t *testing.T) {
	buf := make([]byte, 8)
	WriteUint64(buf, 0x0102030405060708)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, buf)
	assert.Equal(t, uint64(0x0102030405060708), ReadUint64(buf))

	WriteInt64(buf, -2)
	assert.Equal(t, int64(-2), ReadInt64(buf))

	WriteFloat64(buf, 3.5)
	assert.Equal(t, 3.5, ReadFloat64(buf))

	assert.Equal(t, []byte{1, 0, 0, 0}, AppendUint32(nil, 1))
	assert.Equal(t, []byte{0xff, 0}, AppendUint16(nil, 255))

	assert.Panics(t, func() { ReadUint64(buf[:4]) })
}

func TestTimeEncodings(t *testing.T) {
	buf := make([]byte, 8)
	ts := time.Date(2021, 3, 4, 5, 6, 7, 8, time.UTC)
	WriteTimestamp(buf, ts)
	assert.True(t, ts.Equal(ReadTimestamp(buf)))

	WriteDate(buf, ts)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), ReadDate(buf))

	before := time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(-1), DaysSinceEpoch(before))
}

func TestEncodingValid(t *testing.T) {
	for _, enc := range []Encoding{NullEnc, BoolEnc, Int64Enc, Uint64Enc, Float64Enc, DateEnc, TimestampEnc, UuidEnc, StringEnc, BytesEnc, DecimalEnc, ListEnc, MapEnc} {
		assert.True(t, enc.Valid(), "%d", enc)
	}
	assert.False(t, sentinel.Valid())
	assert.False(t, Encoding(200).Valid())

	sz, ok := FixedSize(UuidEnc)
	assert.True(t, ok)
	assert.Equal(t, ByteSize(16), sz)
	_, ok = FixedSize(StringEnc)
	assert.False(t, ok)
}
