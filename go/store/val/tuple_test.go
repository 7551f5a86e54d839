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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTuple(t *testing.T) {
	t.Run("test tuple round trip", func(t *testing.T) {
		testRoundTrip(t)
	})
	t.Run("empty tuple", func(t *testing.T) {
		tup := NewTuple()
		assert.Equal(t, 0, tup.Count())
		assert.Nil(t, tup.GetField(0))
		_, err := ReadTuple(tup)
		assert.NoError(t, err)
	})
	t.Run("empty field is present", func(t *testing.T) {
		tup := NewTuple([]byte{}, nil, []byte("x"))
		assert.NotNil(t, tup.GetField(0))
		assert.Len(t, tup.GetField(0), 0)
		assert.Nil(t, tup.GetField(1))
		assert.Equal(t, []byte("x"), tup.GetField(2))
	})
}

func testRoundTrip(t *testing.T) {
	for n := 0; n < 100; n++ {
		vals := randomValues(t)
		tup := NewTuple(vals...)
		read, err := ReadTuple(tup)
		require.NoError(t, err)
		assert.Equal(t, len(vals), read.Count())
		for i, v := range vals {
			assert.Equal(t, v, read.GetField(i))
		}
	}
}

func TestReadTupleMalformed(t *testing.T) {
	tup := NewTuple([]byte("abc"), []byte("defg"), []byte("h"))

	_, err := ReadTuple(tup[:1])
	assert.True(t, ErrMalformed.Is(err))

	// claim more fields than the buffer can hold
	bad := append(Tuple{}, tup...)
	WriteUint16(bad[len(bad)-2:], 4000)
	_, err = ReadTuple(bad)
	assert.True(t, ErrMalformed.Is(err))

	// point an offset past the data region
	bad = append(Tuple{}, tup...)
	WriteUint32(bad[8:12], 200)
	_, err = ReadTuple(bad)
	assert.True(t, ErrMalformed.Is(err))
}

func randomValues(t *testing.T) (vals [][]byte) {
	vals = make([][]byte, (rand.Uint32()%19)+1)
	assert.True(t, len(vals) > 0)

	for i := range vals {
		if rand.Uint32()%4 == 0 {
			// 25% NULL
			continue
		}
		vals[i] = make([]byte, rand.Uint32()%20)
		rand.Read(vals[i])
	}
	return
}
