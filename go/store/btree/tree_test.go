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

package btree

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPages keeps committed pages as encoded bytes so every commit goes
// through the node codec.
type memPages struct {
	committed map[uint64][]byte
	staged    map[uint64]*Node
	overflow  map[uint64][]byte
	freed     map[uint64]bool
	next      uint64
}

func newMemPages() *memPages {
	return &memPages{
		committed: map[uint64][]byte{},
		staged:    map[uint64]*Node{},
		overflow:  map[uint64][]byte{},
		freed:     map[uint64]bool{},
		next:      1,
	}
}

func (p *memPages) Node(id uint64) (*Node, error) {
	if n, ok := p.staged[id]; ok {
		return n, nil
	}
	page, ok := p.committed[id]
	if !ok {
		return nil, fmt.Errorf("no page %d", id)
	}
	return DecodeNode(id, page)
}

func (p *memPages) Overflow(id uint64) ([]byte, error) {
	if page, ok := p.overflow[id]; ok {
		return page, nil
	}
	page, ok := p.committed[id]
	if !ok {
		return nil, fmt.Errorf("no page %d", id)
	}
	return page, nil
}

func (p *memPages) Allocate() (uint64, error) {
	id := p.next
	p.next++
	return id, nil
}

func (p *memPages) Free(id uint64) {
	if p.IsStaged(id) {
		delete(p.staged, id)
		delete(p.overflow, id)
		return
	}
	p.freed[id] = true
}

func (p *memPages) Stage(n *Node) {
	p.staged[n.ID] = n
}

func (p *memPages) StageOverflow(id uint64, page []byte) {
	p.overflow[id] = page
}

func (p *memPages) IsStaged(id uint64) bool {
	_, n := p.staged[id]
	_, o := p.overflow[id]
	return n || o
}

// commit writes staged pages and returns the ids freed since the last commit.
func (p *memPages) commit() []uint64 {
	for id, n := range p.staged {
		p.committed[id] = n.Encode(1)
	}
	for id, page := range p.overflow {
		p.committed[id] = page
	}
	var freed []uint64
	for id := range p.freed {
		freed = append(freed, id)
	}
	p.staged = map[uint64]*Node{}
	p.overflow = map[uint64][]byte{}
	p.freed = map[uint64]bool{}
	return freed
}

func (p *memPages) release(ids []uint64) {
	for _, id := range ids {
		delete(p.committed, id)
	}
}

func key(i int) []byte {
	return []byte(fmt.Sprintf("key-%08d", i))
}

func value(i int) []byte {
	return []byte(fmt.Sprintf("value-%d-%s", i, bytes.Repeat([]byte{'x'}, i%50)))
}

func collect(t *testing.T, tree *Tree) (keys [][]byte) {
	c := tree.Cursor()
	for c.First(); c.Valid(); c.Next() {
		keys = append(keys, append([]byte(nil), c.Key()...))
	}
	require.NoError(t, c.Err())
	return keys
}

func TestPutGetDelete(t *testing.T) {
	pages := newMemPages()
	tree, err := CreateTree(pages)
	require.NoError(t, err)

	const count = 5000
	perm := rand.Perm(count)
	for _, i := range perm {
		replaced, err := tree.Put(key(i), value(i))
		require.NoError(t, err)
		assert.False(t, replaced)
	}
	pages.release(pages.commit())

	n, err := tree.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(count), n)

	for i := 0; i < count; i++ {
		v, ok, err := tree.Get(key(i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, value(i), v)
	}
	_, ok, err := tree.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	keys := collect(t, &tree.Tree)
	require.Len(t, keys, count)
	assert.True(t, sort.SliceIsSorted(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	}))

	for _, i := range rand.Perm(count) {
		found, err := tree.Delete(key(i))
		require.NoError(t, err)
		require.True(t, found)
	}
	found, err := tree.Delete(key(1))
	require.NoError(t, err)
	assert.False(t, found)
	pages.release(pages.commit())

	n, err = tree.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
	assert.Empty(t, collect(t, &tree.Tree))
}

func TestUpsertAndInsertOnly(t *testing.T) {
	pages := newMemPages()
	tree, err := CreateTree(pages)
	require.NoError(t, err)

	require.NoError(t, tree.Insert([]byte("a"), []byte("1")))
	err = tree.Insert([]byte("a"), []byte("2"))
	assert.True(t, ErrKeyExists.Is(err))

	v, _, err := tree.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	replaced, err := tree.Put([]byte("a"), []byte("3"))
	require.NoError(t, err)
	assert.True(t, replaced)
	v, _, err = tree.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	_, err = tree.Put(make([]byte, MaxKeySize+1), nil)
	assert.True(t, ErrKeyTooLarge.Is(err))
}

func TestCopyOnWriteSnapshots(t *testing.T) {
	pages := newMemPages()
	tree, err := CreateTree(pages)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		_, err = tree.Put(key(i), value(i))
		require.NoError(t, err)
	}
	pages.commit()
	snapshot := NewTree(pages, tree.Root())

	for i := 0; i < 1000; i += 2 {
		_, err = tree.Delete(key(i))
		require.NoError(t, err)
	}
	_, err = tree.Put(key(5000), value(5000))
	require.NoError(t, err)
	freed := pages.commit()
	assert.NotEmpty(t, freed)

	// freed pages are still readable until released
	n, err := snapshot.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), n)
	n, err = tree.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(501), n)

	for _, id := range freed {
		assert.NotEqual(t, tree.Root(), id)
	}
	pages.release(freed)
	assert.Len(t, collect(t, &tree.Tree), 501)
}

func TestOverflowValues(t *testing.T) {
	pages := newMemPages()
	tree, err := CreateTree(pages)
	require.NoError(t, err)

	big := make([]byte, 3*overflowCapacity+17)
	rand.Read(big)
	_, err = tree.Put([]byte("big"), big)
	require.NoError(t, err)
	_, err = tree.Put([]byte("small"), []byte("s"))
	require.NoError(t, err)
	pages.commit()

	v, ok, err := tree.Get([]byte("big"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, big, v)

	root, err := pages.Node(tree.Root())
	require.NoError(t, err)
	i, _ := root.search([]byte("big"))
	ids, err := tree.OverflowPages(root.Vals[i])
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	_, err = tree.Put([]byte("big"), []byte("tiny"))
	require.NoError(t, err)
	freed := pages.commit()
	for _, id := range ids {
		assert.Contains(t, freed, id)
	}
	pages.release(freed)

	require.NoError(t, tree.Drop())
	freed = pages.commit()
	pages.release(freed)
	assert.Empty(t, pages.committed)
}

func TestCursorSeekAndReverse(t *testing.T) {
	pages := newMemPages()
	tree, err := CreateTree(pages)
	require.NoError(t, err)
	for i := 0; i < 2000; i += 2 {
		_, err = tree.Put(key(i), value(i))
		require.NoError(t, err)
	}

	c := tree.Cursor()
	c.Seek(key(101))
	require.True(t, c.Valid())
	assert.Equal(t, key(102), c.Key())
	c.Prev()
	require.True(t, c.Valid())
	assert.Equal(t, key(100), c.Key())

	c.Seek(key(1998))
	require.True(t, c.Valid())
	c.Next()
	assert.False(t, c.Valid())

	c.Seek([]byte("zzz"))
	assert.False(t, c.Valid())

	var reversed int
	prev := []byte{0xFF}
	for c.Last(); c.Valid(); c.Prev() {
		assert.Equal(t, -1, bytes.Compare(c.Key(), prev))
		prev = append(prev[:0], c.Key()...)
		reversed++
	}
	require.NoError(t, c.Err())
	assert.Equal(t, 1000, reversed)
}

func TestDecodeNodeRejectsGarbage(t *testing.T) {
	_, err := DecodeNode(7, make([]byte, 4))
	assert.True(t, ErrCorruptPage.Is(err))

	_, err = DecodeNode(7, make([]byte, 4096))
	assert.True(t, ErrCorruptPage.Is(err))

	n := &Node{ID: 7, Leaf: true, Keys: [][]byte{[]byte("a"), []byte("b")}, Vals: []Cell{{Inline: []byte("1")}, {Inline: []byte("2")}}}
	page := n.Encode(3)
	decoded, err := DecodeNode(7, page)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), decoded.Txn)
	assert.Equal(t, n.Keys, decoded.Keys)

	// claim a huge inline value
	bad := append([]byte(nil), page...)
	bad[headerSize+2+1+1] = 0xFF
	bad[headerSize+2+1+2] = 0xFF
	_, err = DecodeNode(7, bad)
	assert.True(t, ErrCorruptPage.Is(err))

	// swap key order
	bad = append([]byte(nil), page...)
	bad[headerSize+2] = 'c'
	_, err = DecodeNode(7, bad)
	assert.True(t, ErrCorruptPage.Is(err))

	br := &Node{ID: 8, Keys: [][]byte{[]byte("m")}, Children: []uint64{3, 0}}
	_, err = DecodeNode(8, br.Encode(1))
	assert.True(t, ErrCorruptPage.Is(err))
}
