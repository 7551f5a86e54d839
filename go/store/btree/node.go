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
	"sort"

	"github.com/pristinedb/pristine/go/store/pager"
	"github.com/pristinedb/pristine/go/store/val"
)

// Page type tags stored in the first byte of every tree page.
const (
	PageLeaf     byte = 1
	PageBranch   byte = 2
	PageOverflow byte = 3
)

const (
	headerSize = 16

	// MaxKeySize is the largest key a tree accepts.
	MaxKeySize = 512
	// MaxInlineValue is the largest value stored inside a leaf page. Larger
	// values are boxed into a chain of overflow pages.
	MaxInlineValue = 1024

	cellInline   byte = 0
	cellOverflow byte = 1

	childSize        = 8
	overflowCapacity = pager.PageSize - headerSize
)

// Cell is a leaf value, either inline or boxed in overflow pages.
type Cell struct {
	Inline   []byte
	Overflow uint64
	Length   uint32
}

// Boxed returns true if the value lives in overflow pages.
func (c Cell) Boxed() bool {
	return c.Overflow != 0
}

func (c Cell) encodedSize() int {
	if c.Boxed() {
		return 1 + 8 + 4
	}
	return 1 + 4 + len(c.Inline)
}

// Node is the decoded form of a leaf or branch page. Branch nodes carry
// len(Keys)+1 children; child i holds keys less than Keys[i] and child i+1
// holds keys greater than or equal to it.
type Node struct {
	ID       uint64
	Leaf     bool
	Txn      uint64
	Keys     [][]byte
	Vals     []Cell
	Children []uint64
}

// Count returns the number of keys in |n|.
func (n *Node) Count() int {
	return len(n.Keys)
}

func (n *Node) size() int {
	sz := headerSize
	if n.Leaf {
		for i, k := range n.Keys {
			sz += 2 + len(k) + n.Vals[i].encodedSize()
		}
		return sz
	}
	sz += childSize
	for _, k := range n.Keys {
		sz += 2 + len(k) + childSize
	}
	return sz
}

func (n *Node) clone(id uint64) *Node {
	c := &Node{ID: id, Leaf: n.Leaf, Txn: n.Txn}
	c.Keys = append(make([][]byte, 0, len(n.Keys)+1), n.Keys...)
	if n.Leaf {
		c.Vals = append(make([]Cell, 0, len(n.Vals)+1), n.Vals...)
	} else {
		c.Children = append(make([]uint64, 0, len(n.Children)+1), n.Children...)
	}
	return c
}

// Copy returns a copy of |n| for the same page that shares no slices with it.
func (n *Node) Copy() *Node {
	return n.clone(n.ID)
}

// search returns the index of the first key >= |key| and whether it matches.
func (n *Node) search(key []byte) (int, bool) {
	i := sort.Search(len(n.Keys), func(i int) bool {
		return bytes.Compare(n.Keys[i], key) >= 0
	})
	return i, i < len(n.Keys) && bytes.Equal(n.Keys[i], key)
}

// childIndex returns the child of a branch that may contain |key|.
func (n *Node) childIndex(key []byte) int {
	return sort.Search(len(n.Keys), func(i int) bool {
		return bytes.Compare(n.Keys[i], key) > 0
	})
}

// Encode serializes |n| into a page stamped with writer txn |txn|.
//
//	header: type u8 | flags u8 | count u16 | reserved u32 | txn u64
//	leaf:   (keyLen u16 | key | kind u8 | len u32 + bytes  or  page u64 + len u32)*
//	branch: child0 u64 | (keyLen u16 | key | child u64)*
func (n *Node) Encode(txn uint64) []byte {
	page := make([]byte, pager.PageSize)
	if n.Leaf {
		page[0] = PageLeaf
	} else {
		page[0] = PageBranch
	}
	val.WriteUint16(page[2:4], uint16(len(n.Keys)))
	val.WriteUint64(page[8:16], txn)

	buf := page[:headerSize]
	if n.Leaf {
		for i, k := range n.Keys {
			buf = val.AppendUint16(buf, uint16(len(k)))
			buf = append(buf, k...)
			c := n.Vals[i]
			if c.Boxed() {
				buf = append(buf, cellOverflow)
				buf = val.AppendUint64(buf, c.Overflow)
				buf = val.AppendUint32(buf, c.Length)
			} else {
				buf = append(buf, cellInline)
				buf = val.AppendUint32(buf, uint32(len(c.Inline)))
				buf = append(buf, c.Inline...)
			}
		}
	} else {
		buf = val.AppendUint64(buf, n.Children[0])
		for i, k := range n.Keys {
			buf = val.AppendUint16(buf, uint16(len(k)))
			buf = append(buf, k...)
			buf = val.AppendUint64(buf, n.Children[i+1])
		}
	}
	if len(buf) > pager.PageSize {
		panic("node exceeds page size")
	}
	return page
}

// DecodeNode parses page |id|. Malformed pages produce ErrCorruptPage.
func DecodeNode(id uint64, page []byte) (*Node, error) {
	if len(page) < headerSize {
		return nil, ErrCorruptPage.New(id, "truncated header")
	}
	n := &Node{ID: id, Txn: val.ReadUint64(page[8:16])}
	switch page[0] {
	case PageLeaf:
		n.Leaf = true
	case PageBranch:
	default:
		return nil, ErrCorruptPage.New(id, "not a tree page")
	}

	count := int(val.ReadUint16(page[2:4]))
	r := reader{buf: page[headerSize:]}
	n.Keys = make([][]byte, count)
	if n.Leaf {
		n.Vals = make([]Cell, count)
		for i := 0; i < count; i++ {
			n.Keys[i] = r.take(int(r.u16()))
			switch r.u8() {
			case cellInline:
				n.Vals[i] = Cell{Inline: r.take(int(r.u32()))}
			case cellOverflow:
				n.Vals[i] = Cell{Overflow: r.u64(), Length: r.u32()}
				if n.Vals[i].Overflow == 0 && !r.failed {
					return nil, ErrCorruptPage.New(id, "null overflow reference")
				}
			default:
				r.failed = true
			}
			if r.failed {
				break
			}
		}
	} else {
		n.Children = make([]uint64, count+1)
		n.Children[0] = r.u64()
		for i := 0; i < count && !r.failed; i++ {
			n.Keys[i] = r.take(int(r.u16()))
			n.Children[i+1] = r.u64()
		}
	}
	if r.failed {
		return nil, ErrCorruptPage.New(id, "cell out of bounds")
	}
	for _, c := range n.Children {
		if c == 0 {
			return nil, ErrCorruptPage.New(id, "null child reference")
		}
	}
	for i := 1; i < count; i++ {
		if bytes.Compare(n.Keys[i-1], n.Keys[i]) >= 0 {
			return nil, ErrCorruptPage.New(id, "keys out of order")
		}
	}
	return n, nil
}

// reader is a bounds-checked cursor over a page body. Once a read runs past
// the end every later read returns zero values and |failed| stays set.
type reader struct {
	buf    []byte
	pos    int
	failed bool
}

func (r *reader) take(n int) []byte {
	if r.failed || n < 0 || r.pos+n > len(r.buf) {
		r.failed = true
		return nil
	}
	b := r.buf[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0xFF
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return val.ReadUint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return val.ReadUint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return val.ReadUint64(b)
	}
	return 0
}
