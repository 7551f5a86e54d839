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
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) Decimal {
	d, err := NewDecimal(s)
	require.NoError(t, err)
	return d
}

// assertKeyOrder checks that |vals|, given in ascending order, produce keys
// in the same order regardless of the order they are created in.
func assertKeyOrder(t *testing.T, vals []Value) {
	keys := make([]Key, len(vals))
	for i, v := range vals {
		k, err := NewKey(v)
		require.NoError(t, err)
		keys[i] = k
	}
	shuffled := append([]Key(nil), keys...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].Less(shuffled[j]) })
	for i := range keys {
		assert.Equal(t, keys[i], shuffled[i], "position %d: %s", i, keys[i])
		assert.Equal(t, 0, keys[i].Compare(shuffled[i]))
	}
}

func TestKeyOrder(t *testing.T) {
	t.Run("ints", func(t *testing.T) {
		assertKeyOrder(t, []Value{Int(math.MinInt64), Int(-1000), Int(-1), Int(0), Int(1), Int(255), Int(256), Int(math.MaxInt64)})
	})
	t.Run("floats", func(t *testing.T) {
		assertKeyOrder(t, []Value{Float(math.Inf(-1)), Float(-2.5), Float(-0.001), Float(0), Float(1e-9), Float(3.25), Float(math.Inf(1))})
	})
	t.Run("strings", func(t *testing.T) {
		assertKeyOrder(t, []Value{String(""), String("\x00"), String("\x00\x00"), String("\x00a"), String("a"), String("a\x00"), String("ab"), String("b")})
	})
	t.Run("decimals", func(t *testing.T) {
		assertKeyOrder(t, []Value{
			mustDecimal(t, "-1000"), mustDecimal(t, "-12.5"), mustDecimal(t, "-1.2"),
			mustDecimal(t, "-0.123"), mustDecimal(t, "-0.12"), mustDecimal(t, "0"),
			mustDecimal(t, "0.0001"), mustDecimal(t, "0.12"), mustDecimal(t, "0.123"),
			mustDecimal(t, "1.2"), mustDecimal(t, "9.99"), mustDecimal(t, "10"), mustDecimal(t, "1000.5"),
		})
	})
	t.Run("times", func(t *testing.T) {
		base := time.Date(2023, 8, 21, 10, 0, 0, 0, time.UTC)
		assertKeyOrder(t, []Value{NewDate(1960, 1, 1), NewDate(1970, 1, 1), NewDate(2023, 8, 21)})
		assertKeyOrder(t, []Value{NewTimestamp(base.Add(-time.Hour)), NewTimestamp(base), NewTimestamp(base.Add(time.Nanosecond))})
	})
	t.Run("kinds", func(t *testing.T) {
		assertKeyOrder(t, []Value{Null{}, Bool(false), Bool(true), Int(math.MaxInt64), Uint(0), Float(-1), String("z"), Bytes{0}})
	})
}

func TestKeyRoundTrip(t *testing.T) {
	u := uuid.New()
	for _, v := range []Value{
		Null{}, Bool(true), Int(-42), Uint(42), Float(1.5), mustDecimal(t, "-3.14159"),
		String("héllo\x00"), Bytes{0, 0xFF, 1}, NewDate(2001, 2, 3),
		NewTimestamp(time.Unix(1692612000, 123)), UUID(u),
	} {
		k, err := NewKey(v)
		require.NoError(t, err)
		decoded, err := DecodeKey(k.Bytes())
		require.NoError(t, err)
		assert.Equal(t, k, decoded)
		assert.True(t, ValuesEqual(v, k.Value()), "%s != %s", FormatValue(v), k)
	}

	assert.Equal(t, UUIDKey(u), MustKey(UUID(u)))
	assert.Equal(t, MustKey(mustDecimal(t, "1.50")), MustKey(mustDecimal(t, "1.5")))
}

func TestInvalidKeys(t *testing.T) {
	_, err := NewKey(List{Int(1)})
	assert.True(t, ErrInvalidKey.Is(err))
	_, err = NewKey(Map{})
	assert.True(t, ErrInvalidKey.Is(err))

	for _, b := range [][]byte{
		nil,
		{0x01},
		{keyInt, 1, 2},
		{keyBool, 7},
		{keyUUID, 1, 2, 3},
		{keyString, 'a'},
		{keyDecimal, decPos, 0x80, 0, 0, 0, 0, 0, 0, 1, '1'},
		append(IntKey(1).Bytes(), 0),
	} {
		_, err := DecodeKey(b)
		assert.True(t, ErrMalformedRecord.Is(err), "%v: %v", b, err)
	}
}
