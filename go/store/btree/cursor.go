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

type frame struct {
	node *Node
	// key index for leaves, child index for branches
	idx int
}

// Cursor iterates the keys of a Tree in order. A Cursor must not be used
// while the tree it reads is being modified.
type Cursor struct {
	tree  *Tree
	stack []frame
	err   error
}

// Cursor returns an unpositioned cursor over |t|.
func (t *Tree) Cursor() *Cursor {
	return &Cursor{tree: t}
}

// First positions the cursor at the smallest key.
func (c *Cursor) First() {
	c.reset()
	c.pushLeftmost(c.tree.root)
	c.skipForward()
}

// Last positions the cursor at the largest key.
func (c *Cursor) Last() {
	c.reset()
	c.pushRightmost(c.tree.root)
	c.skipBackward()
}

// Seek positions the cursor at the first key greater than or equal to |key|.
func (c *Cursor) Seek(key []byte) {
	c.reset()
	id := c.tree.root
	for {
		n, err := c.tree.pages.Node(id)
		if err != nil {
			c.err = err
			return
		}
		if n.Leaf {
			i, _ := n.search(key)
			c.stack = append(c.stack, frame{node: n, idx: i})
			break
		}
		ci := n.childIndex(key)
		c.stack = append(c.stack, frame{node: n, idx: ci})
		id = n.Children[ci]
	}
	c.skipForward()
}

// Valid returns true while the cursor is positioned at a key.
func (c *Cursor) Valid() bool {
	if c.err != nil || len(c.stack) == 0 {
		return false
	}
	top := c.stack[len(c.stack)-1]
	return top.node.Leaf && top.idx >= 0 && top.idx < len(top.node.Keys)
}

// Next advances to the following key.
func (c *Cursor) Next() {
	if !c.Valid() {
		return
	}
	c.stack[len(c.stack)-1].idx++
	c.skipForward()
}

// Prev moves to the preceding key.
func (c *Cursor) Prev() {
	if !c.Valid() {
		return
	}
	c.stack[len(c.stack)-1].idx--
	c.skipBackward()
}

// Key returns the current key. The slice must not be modified.
func (c *Cursor) Key() []byte {
	top := c.stack[len(c.stack)-1]
	return top.node.Keys[top.idx]
}

// Value returns the current value, reading overflow pages if needed.
func (c *Cursor) Value() ([]byte, error) {
	top := c.stack[len(c.stack)-1]
	return c.tree.load(top.node.Vals[top.idx])
}

// Err returns the first error the cursor encountered.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) reset() {
	c.stack = c.stack[:0]
	c.err = nil
}

func (c *Cursor) pushLeftmost(id uint64) {
	for {
		n, err := c.tree.pages.Node(id)
		if err != nil {
			c.err = err
			return
		}
		c.stack = append(c.stack, frame{node: n})
		if n.Leaf {
			return
		}
		id = n.Children[0]
	}
}

func (c *Cursor) pushRightmost(id uint64) {
	for {
		n, err := c.tree.pages.Node(id)
		if err != nil {
			c.err = err
			return
		}
		if n.Leaf {
			c.stack = append(c.stack, frame{node: n, idx: len(n.Keys) - 1})
			return
		}
		last := len(n.Children) - 1
		c.stack = append(c.stack, frame{node: n, idx: last})
		id = n.Children[last]
	}
}

// skipForward climbs out of exhausted leaves until it finds a key or runs
// off the end of the tree.
func (c *Cursor) skipForward() {
	for c.err == nil && len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		if top.idx < len(top.node.Keys) {
			return
		}
		c.stack = c.stack[:len(c.stack)-1]
		for len(c.stack) > 0 {
			p := &c.stack[len(c.stack)-1]
			p.idx++
			if p.idx < len(p.node.Children) {
				c.pushLeftmost(p.node.Children[p.idx])
				break
			}
			c.stack = c.stack[:len(c.stack)-1]
		}
	}
}

func (c *Cursor) skipBackward() {
	for c.err == nil && len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		if top.idx >= 0 {
			return
		}
		c.stack = c.stack[:len(c.stack)-1]
		for len(c.stack) > 0 {
			p := &c.stack[len(c.stack)-1]
			p.idx--
			if p.idx >= 0 {
				c.pushRightmost(p.node.Children[p.idx])
				break
			}
			c.stack = c.stack[:len(c.stack)-1]
		}
	}
}
