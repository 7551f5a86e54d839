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

// Package btree implements a copy-on-write B+tree over fixed-size pages.
// Committed pages are never modified: a write clones every node on the
// path from the root to the changed leaf into freshly allocated pages.
package btree

import (
	"math"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/pristinedb/pristine/go/store/pager"
	"github.com/pristinedb/pristine/go/store/val"
)

var (
	ErrKeyTooLarge   = errors.NewKind("key of %d bytes exceeds the maximum of %d")
	ErrValueTooLarge = errors.NewKind("value of %d bytes is too large")
	ErrKeyExists     = errors.NewKind("key already exists")
	ErrCorruptPage   = errors.NewKind("corrupt page %d: %s")
)

// Pages resolves page ids within one snapshot. Returned nodes are shared and
// must not be modified.
type Pages interface {
	Node(id uint64) (*Node, error)
	Overflow(id uint64) ([]byte, error)
}

// MutablePages is the page space of a write transaction. Staged pages were
// allocated by the transaction and may be modified in place.
type MutablePages interface {
	Pages
	Allocate() (uint64, error)
	Free(id uint64)
	Stage(n *Node)
	StageOverflow(id uint64, page []byte)
	IsStaged(id uint64) bool
}

// Tree is a read-only view of the tree rooted at Root.
type Tree struct {
	pages Pages
	root  uint64
}

func NewTree(pages Pages, root uint64) *Tree {
	return &Tree{pages: pages, root: root}
}

// Root returns the page id of the root node.
func (t *Tree) Root() uint64 {
	return t.root
}

// Get returns the value stored under |key|.
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	id := t.root
	for {
		n, err := t.pages.Node(id)
		if err != nil {
			return nil, false, err
		}
		if !n.Leaf {
			id = n.Children[n.childIndex(key)]
			continue
		}
		i, ok := n.search(key)
		if !ok {
			return nil, false, nil
		}
		v, err := t.load(n.Vals[i])
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

// Has returns true if |key| is present.
func (t *Tree) Has(key []byte) (bool, error) {
	id := t.root
	for {
		n, err := t.pages.Node(id)
		if err != nil {
			return false, err
		}
		if n.Leaf {
			_, ok := n.search(key)
			return ok, nil
		}
		id = n.Children[n.childIndex(key)]
	}
}

// Count returns the number of keys in the tree.
func (t *Tree) Count() (uint64, error) {
	var count uint64
	err := t.Walk(func(n *Node, _ int) error {
		if n.Leaf {
			count += uint64(n.Count())
		}
		return nil
	})
	return count, err
}

// Walk visits every node of the tree depth first, parents before children.
func (t *Tree) Walk(cb func(n *Node, depth int) error) error {
	return t.walk(t.root, 0, cb)
}

func (t *Tree) walk(id uint64, depth int, cb func(n *Node, depth int) error) error {
	n, err := t.pages.Node(id)
	if err != nil {
		return err
	}
	if err = cb(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err = t.walk(c, depth+1, cb); err != nil {
			return err
		}
	}
	return nil
}

// OverflowPages returns the ids of the overflow chain behind |c|.
func (t *Tree) OverflowPages(c Cell) ([]uint64, error) {
	var ids []uint64
	err := t.eachOverflow(c, func(id uint64, _ []byte) error {
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func (t *Tree) load(c Cell) ([]byte, error) {
	if !c.Boxed() {
		return c.Inline, nil
	}
	out := make([]byte, 0, c.Length)
	err := t.eachOverflow(c, func(_ uint64, data []byte) error {
		out = append(out, data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachOverflow walks the chain behind |c|, never visiting more pages than
// the recorded length requires.
func (t *Tree) eachOverflow(c Cell, cb func(id uint64, data []byte) error) error {
	if !c.Boxed() {
		return nil
	}
	remaining := int(c.Length)
	id := c.Overflow
	for remaining > 0 {
		if id == 0 {
			return ErrCorruptPage.New(c.Overflow, "overflow chain ends early")
		}
		page, err := t.pages.Overflow(id)
		if err != nil {
			return err
		}
		next, data, err := decodeOverflow(id, page)
		if err != nil {
			return err
		}
		if len(data) > remaining {
			return ErrCorruptPage.New(id, "overflow chain longer than value")
		}
		if err = cb(id, data); err != nil {
			return err
		}
		remaining -= len(data)
		if remaining > 0 && len(data) == 0 {
			return ErrCorruptPage.New(id, "empty overflow page")
		}
		id = next
	}
	return nil
}

// overflow page: type u8 | pad | used u32 | next u64 | data
func encodeOverflow(next uint64, data []byte) []byte {
	page := make([]byte, pager.PageSize)
	page[0] = PageOverflow
	val.WriteUint32(page[4:8], uint32(len(data)))
	val.WriteUint64(page[8:16], next)
	copy(page[headerSize:], data)
	return page
}

func decodeOverflow(id uint64, page []byte) (next uint64, data []byte, err error) {
	if len(page) < headerSize || page[0] != PageOverflow {
		return 0, nil, ErrCorruptPage.New(id, "not an overflow page")
	}
	used := int(val.ReadUint32(page[4:8]))
	if used > len(page)-headerSize {
		return 0, nil, ErrCorruptPage.New(id, "overflow length out of bounds")
	}
	return val.ReadUint64(page[8:16]), page[headerSize : headerSize+used], nil
}

// MutableTree is a Tree inside a write transaction.
type MutableTree struct {
	Tree
	mut MutablePages
}

// CreateTree allocates an empty tree.
func CreateTree(pages MutablePages) (*MutableTree, error) {
	id, err := pages.Allocate()
	if err != nil {
		return nil, err
	}
	pages.Stage(&Node{ID: id, Leaf: true})
	return NewMutableTree(pages, id), nil
}

func NewMutableTree(pages MutablePages, root uint64) *MutableTree {
	return &MutableTree{Tree: Tree{pages: pages, root: root}, mut: pages}
}

type putMode int

const (
	upsert putMode = iota
	insertOnly
)

type split struct {
	key   []byte
	right uint64
}

// Put stores |value| under |key|, replacing any existing value.
func (t *MutableTree) Put(key, value []byte) (replaced bool, err error) {
	return t.put(key, value, upsert)
}

// Insert stores |value| under |key| and fails with ErrKeyExists if the key
// is already present. A failed Insert leaves the tree unchanged.
func (t *MutableTree) Insert(key, value []byte) error {
	_, err := t.put(key, value, insertOnly)
	return err
}

func (t *MutableTree) put(key, value []byte, mode putMode) (bool, error) {
	if len(key) > MaxKeySize {
		return false, ErrKeyTooLarge.New(len(key), MaxKeySize)
	}
	if uint64(len(value)) > math.MaxUint32 {
		return false, ErrValueTooLarge.New(len(value))
	}

	n, sp, replaced, err := t.insert(t.root, key, value, mode)
	if err != nil {
		return false, err
	}
	if sp != nil {
		id, err := t.mut.Allocate()
		if err != nil {
			return false, err
		}
		t.mut.Stage(&Node{
			ID:       id,
			Keys:     [][]byte{sp.key},
			Children: []uint64{n.ID, sp.right},
		})
		t.root = id
	} else {
		t.root = n.ID
	}
	return replaced, nil
}

func (t *MutableTree) insert(id uint64, key, value []byte, mode putMode) (*Node, *split, bool, error) {
	n, err := t.mut.Node(id)
	if err != nil {
		return nil, nil, false, err
	}

	var replaced bool
	if n.Leaf {
		i, found := n.search(key)
		if found && mode == insertOnly {
			return nil, nil, false, ErrKeyExists.New()
		}
		cell, err := t.makeCell(value)
		if err != nil {
			return nil, nil, false, err
		}
		if n, err = t.writable(n); err != nil {
			return nil, nil, false, err
		}
		if found {
			if err = t.freeCell(n.Vals[i]); err != nil {
				return nil, nil, false, err
			}
			n.Vals[i] = cell
			replaced = true
		} else {
			n.Keys = insertAt(n.Keys, i, append([]byte(nil), key...))
			n.Vals = insertAt(n.Vals, i, cell)
		}
	} else {
		ci := n.childIndex(key)
		child, sp, r, err := t.insert(n.Children[ci], key, value, mode)
		if err != nil {
			return nil, nil, false, err
		}
		replaced = r
		if n, err = t.writable(n); err != nil {
			return nil, nil, false, err
		}
		n.Children[ci] = child.ID
		if sp != nil {
			n.Keys = insertAt(n.Keys, ci, sp.key)
			n.Children = insertAt(n.Children, ci+1, sp.right)
		}
	}

	if n.size() <= pager.PageSize {
		return n, nil, replaced, nil
	}
	sp, err := t.split(n)
	if err != nil {
		return nil, nil, false, err
	}
	return n, sp, replaced, nil
}

// split moves the upper part of |n| into a new right sibling, choosing the
// split point that best balances the encoded sizes.
func (t *MutableTree) split(n *Node) (*split, error) {
	id, err := t.mut.Allocate()
	if err != nil {
		return nil, err
	}
	right := &Node{ID: id, Leaf: n.Leaf}

	if n.Leaf {
		m := balancePoint(n)
		right.Keys = append(right.Keys, n.Keys[m:]...)
		right.Vals = append(right.Vals, n.Vals[m:]...)
		n.Keys = n.Keys[:m:m]
		n.Vals = n.Vals[:m:m]
		t.mut.Stage(right)
		return &split{key: right.Keys[0], right: id}, nil
	}

	// the separator at |m| moves up and belongs to neither half
	m := balancePoint(n)
	sep := n.Keys[m]
	right.Keys = append(right.Keys, n.Keys[m+1:]...)
	right.Children = append(right.Children, n.Children[m+1:]...)
	n.Keys = n.Keys[:m:m]
	n.Children = n.Children[: m+1 : m+1]
	t.mut.Stage(right)
	return &split{key: sep, right: id}, nil
}

// balancePoint returns the split index minimizing the larger of the two
// halves' encoded sizes. Leaves keep at least one key on each side.
func balancePoint(n *Node) int {
	sizes := make([]int, len(n.Keys))
	total := 0
	for i, k := range n.Keys {
		if n.Leaf {
			sizes[i] = 2 + len(k) + n.Vals[i].encodedSize()
		} else {
			sizes[i] = 2 + len(k) + childSize
		}
		total += sizes[i]
	}

	lo, hi := 1, len(n.Keys)-1
	if !n.Leaf {
		lo = 0
	}
	best, bestSize := lo, math.MaxInt
	left := 0
	for i := 0; i <= hi; i++ {
		if i >= lo {
			right := total - left
			if !n.Leaf {
				right -= sizes[i]
			}
			if mx := max(left, right); mx < bestSize {
				best, bestSize = i, mx
			}
		}
		left += sizes[i]
	}
	return best
}

// Delete removes |key|, returning false if it was not present.
func (t *MutableTree) Delete(key []byte) (bool, error) {
	n, found, err := t.remove(t.root, key)
	if err != nil || !found {
		return false, err
	}
	// collapse branch roots left with a single child
	for !n.Leaf && len(n.Keys) == 0 {
		child, err := t.mut.Node(n.Children[0])
		if err != nil {
			return false, err
		}
		t.mut.Free(n.ID)
		n = child
	}
	t.root = n.ID
	return true, nil
}

func (t *MutableTree) remove(id uint64, key []byte) (*Node, bool, error) {
	n, err := t.mut.Node(id)
	if err != nil {
		return nil, false, err
	}

	if n.Leaf {
		i, found := n.search(key)
		if !found {
			return n, false, nil
		}
		if n, err = t.writable(n); err != nil {
			return nil, false, err
		}
		if err = t.freeCell(n.Vals[i]); err != nil {
			return nil, false, err
		}
		n.Keys = removeAt(n.Keys, i)
		n.Vals = removeAt(n.Vals, i)
		return n, true, nil
	}

	ci := n.childIndex(key)
	child, found, err := t.remove(n.Children[ci], key)
	if err != nil || !found {
		return n, found, err
	}
	if n, err = t.writable(n); err != nil {
		return nil, false, err
	}
	n.Children[ci] = child.ID

	if child.size() < pager.PageSize/4 && len(n.Children) > 1 {
		if err = t.merge(n, ci, child); err != nil {
			return nil, false, err
		}
	}
	return n, true, nil
}

// merge folds the underfull child at |ci| together with a neighbour when
// the combined node fits in a page.
func (t *MutableTree) merge(parent *Node, ci int, child *Node) error {
	li, ri := ci, ci+1
	if ci == len(parent.Children)-1 {
		li, ri = ci-1, ci
	}

	var left, right *Node
	var err error
	if li == ci {
		left = child
		if right, err = t.mut.Node(parent.Children[ri]); err != nil {
			return err
		}
	} else {
		right = child
		if left, err = t.mut.Node(parent.Children[li]); err != nil {
			return err
		}
	}

	sep := parent.Keys[li]
	combined := left.size() + right.size() - headerSize
	if !left.Leaf {
		combined += 2 + len(sep)
	}
	if combined > pager.PageSize {
		return nil
	}

	if left, err = t.writable(left); err != nil {
		return err
	}
	if left.Leaf {
		left.Keys = append(left.Keys, right.Keys...)
		left.Vals = append(left.Vals, right.Vals...)
	} else {
		left.Keys = append(append(left.Keys, sep), right.Keys...)
		left.Children = append(left.Children, right.Children...)
	}
	t.mut.Free(right.ID)

	parent.Children[li] = left.ID
	parent.Keys = removeAt(parent.Keys, li)
	parent.Children = removeAt(parent.Children, ri)
	return nil
}

// Drop frees every page of the tree, overflow chains included.
func (t *MutableTree) Drop() error {
	var ids []uint64
	err := t.Walk(func(n *Node, _ int) error {
		ids = append(ids, n.ID)
		if !n.Leaf {
			return nil
		}
		for _, c := range n.Vals {
			ov, err := t.OverflowPages(c)
			if err != nil {
				return err
			}
			ids = append(ids, ov...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		t.mut.Free(id)
	}
	t.root = 0
	return nil
}

// writable returns |n| if this transaction already owns its page, otherwise
// a copy of |n| on a freshly allocated page. The original page is freed.
func (t *MutableTree) writable(n *Node) (*Node, error) {
	if t.mut.IsStaged(n.ID) {
		return n, nil
	}
	id, err := t.mut.Allocate()
	if err != nil {
		return nil, err
	}
	c := n.clone(id)
	t.mut.Free(n.ID)
	t.mut.Stage(c)
	return c, nil
}

func (t *MutableTree) makeCell(value []byte) (Cell, error) {
	if len(value) <= MaxInlineValue {
		return Cell{Inline: append([]byte{}, value...)}, nil
	}

	chunks := (len(value) + overflowCapacity - 1) / overflowCapacity
	ids := make([]uint64, chunks)
	for i := range ids {
		id, err := t.mut.Allocate()
		if err != nil {
			return Cell{}, err
		}
		ids[i] = id
	}
	for i, id := range ids {
		var next uint64
		if i+1 < len(ids) {
			next = ids[i+1]
		}
		end := min((i+1)*overflowCapacity, len(value))
		t.mut.StageOverflow(id, encodeOverflow(next, value[i*overflowCapacity:end]))
	}
	return Cell{Overflow: ids[0], Length: uint32(len(value))}, nil
}

func (t *MutableTree) freeCell(c Cell) error {
	ids, err := t.OverflowPages(c)
	if err != nil {
		return err
	}
	for _, id := range ids {
		t.mut.Free(id)
	}
	return nil
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}
