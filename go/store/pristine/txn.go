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

package pristine

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/store/btree"
)

type TxnState uint8

const (
	TxnCreated TxnState = iota
	TxnActive
	TxnCommitted
	TxnAborted
)

func (s TxnState) String() string {
	switch s {
	case TxnCreated:
		return "created"
	case TxnActive:
		return "active"
	case TxnCommitted:
		return "committed"
	case TxnAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Root names a slot of the root page directory.
type Root uint8

const (
	// RootVersion holds the format version marker.
	RootVersion Root = iota
	// RootSchemas holds the page id of the schema index.
	RootSchemas
)

// Txn is a read snapshot. It sees exactly the state committed before it
// began, regardless of later commits.
type Txn struct {
	env   *Env
	dir   directory
	state TxnState
}

var _ btree.Pages = (*Txn)(nil)

// ID returns the commit sequence number of the snapshot.
func (txn *Txn) ID() uint64 {
	return txn.dir.txn
}

func (txn *Txn) State() TxnState {
	return txn.state
}

// Root returns the value of slot |r| in the snapshot, or false if unset.
func (txn *Txn) Root(r Root) (uint64, bool) {
	switch r {
	case RootVersion:
		if txn.dir.txn == 0 {
			return 0, false
		}
		return CurrentVersion, true
	case RootSchemas:
		return txn.dir.schemas, txn.dir.schemas != 0
	}
	return 0, false
}

// Tree opens the tree rooted at page |root| for reading.
func (txn *Txn) Tree(root uint64) *btree.Tree {
	return btree.NewTree(txn, root)
}

func (txn *Txn) Node(id uint64) (*btree.Node, error) {
	if txn.state != TxnActive {
		return nil, ErrTxnDone.New(txn.state)
	}
	return txn.env.readNode(id, txn.dir.pageCount)
}

func (txn *Txn) Overflow(id uint64) ([]byte, error) {
	if txn.state != TxnActive {
		return nil, ErrTxnDone.New(txn.state)
	}
	return txn.env.readOverflow(id, txn.dir.pageCount)
}

// Close ends the snapshot. Closing twice is a no-op.
func (txn *Txn) Close() error {
	if txn.state != TxnActive {
		return nil
	}
	txn.state = TxnAborted
	return txn.env.endRead(txn.dir.txn)
}

// MutTxn is the single write transaction of an Env. Its changes are staged
// in memory and published atomically by Commit.
type MutTxn struct {
	Txn

	free           []uint64
	freed          []uint64
	pageCount      uint64
	staged         map[uint64]*btree.Node
	stagedOverflow map[uint64][]byte
}

var _ btree.MutablePages = (*MutTxn)(nil)

// SetRoot updates slot |r|. The version slot is managed by Commit and
// cannot be set.
func (txn *MutTxn) SetRoot(r Root, id uint64) {
	if r == RootSchemas {
		txn.dir.schemas = id
	}
}

// Root returns the value of slot |r| as seen by this transaction.
func (txn *MutTxn) Root(r Root) (uint64, bool) {
	if r == RootVersion {
		if txn.env.fresh && txn.dir.txn == 0 {
			return 0, false
		}
		return CurrentVersion, true
	}
	return txn.Txn.Root(r)
}

// Tree opens the tree rooted at page |root| for reading, including staged
// changes.
func (txn *MutTxn) Tree(root uint64) *btree.Tree {
	return btree.NewTree(txn, root)
}

// MutableTree opens the tree rooted at page |root| for writing.
func (txn *MutTxn) MutableTree(root uint64) *btree.MutableTree {
	return btree.NewMutableTree(txn, root)
}

// CreateTree allocates a new empty tree.
func (txn *MutTxn) CreateTree() (*btree.MutableTree, error) {
	return btree.CreateTree(txn)
}

func (txn *MutTxn) Node(id uint64) (*btree.Node, error) {
	if txn.state != TxnActive {
		return nil, ErrTxnDone.New(txn.state)
	}
	if n, ok := txn.staged[id]; ok {
		return n, nil
	}
	return txn.env.readNode(id, txn.Txn.dir.pageCount)
}

func (txn *MutTxn) Overflow(id uint64) ([]byte, error) {
	if txn.state != TxnActive {
		return nil, ErrTxnDone.New(txn.state)
	}
	if page, ok := txn.stagedOverflow[id]; ok {
		return page, nil
	}
	return txn.env.readOverflow(id, txn.Txn.dir.pageCount)
}

// Allocate returns a page id owned by this transaction, preferring the
// lowest free page.
func (txn *MutTxn) Allocate() (uint64, error) {
	if txn.state != TxnActive {
		return 0, ErrTxnDone.New(txn.state)
	}
	if n := len(txn.free); n > 0 {
		id := txn.free[n-1]
		txn.free = txn.free[:n-1]
		return id, nil
	}
	id := txn.pageCount
	txn.pageCount++
	return id, nil
}

// Free releases page |id|. Pages staged by this transaction are reusable
// at once; committed pages become reusable after no snapshot can see them.
func (txn *MutTxn) Free(id uint64) {
	if txn.IsStaged(id) {
		delete(txn.staged, id)
		delete(txn.stagedOverflow, id)
		txn.free = append(txn.free, id)
		return
	}
	txn.freed = append(txn.freed, id)
}

func (txn *MutTxn) Stage(n *btree.Node) {
	txn.staged[n.ID] = n
}

func (txn *MutTxn) StageOverflow(id uint64, page []byte) {
	txn.stagedOverflow[id] = page
}

func (txn *MutTxn) IsStaged(id uint64) bool {
	if _, ok := txn.staged[id]; ok {
		return true
	}
	_, ok := txn.stagedOverflow[id]
	return ok
}

// Savepoint is the staged state of a MutTxn at one point in time.
type Savepoint struct {
	dir            directory
	pageCount      uint64
	free           []uint64
	freed          []uint64
	staged         map[uint64]*btree.Node
	stagedOverflow map[uint64][]byte
}

// Savepoint records the staged state of the transaction. Staged nodes are
// edited in place, so they are copied.
func (txn *MutTxn) Savepoint() *Savepoint {
	sp := &Savepoint{
		dir:            txn.Txn.dir,
		pageCount:      txn.pageCount,
		free:           append([]uint64(nil), txn.free...),
		freed:          append([]uint64(nil), txn.freed...),
		staged:         make(map[uint64]*btree.Node, len(txn.staged)),
		stagedOverflow: make(map[uint64][]byte, len(txn.stagedOverflow)),
	}
	for id, n := range txn.staged {
		sp.staged[id] = n.Copy()
	}
	for id, page := range txn.stagedOverflow {
		sp.stagedOverflow[id] = page
	}
	return sp
}

// RollbackTo discards every change staged after |sp| was taken. |sp| may be
// restored more than once.
func (txn *MutTxn) RollbackTo(sp *Savepoint) error {
	if txn.state != TxnActive {
		return ErrTxnDone.New(txn.state)
	}
	txn.Txn.dir = sp.dir
	txn.pageCount = sp.pageCount
	txn.free = append([]uint64(nil), sp.free...)
	txn.freed = append([]uint64(nil), sp.freed...)
	txn.staged = make(map[uint64]*btree.Node, len(sp.staged))
	for id, n := range sp.staged {
		txn.staged[id] = n.Copy()
	}
	txn.stagedOverflow = make(map[uint64][]byte, len(sp.stagedOverflow))
	for id, page := range sp.stagedOverflow {
		txn.stagedOverflow[id] = page
	}
	txn.env.log.WithField("txn", txn.Txn.dir.txn+1).Trace("rolled back to savepoint")
	return nil
}

// Abort discards every staged change. Aborting a finished transaction is a
// no-op.
func (txn *MutTxn) Abort() error {
	if txn.state != TxnActive {
		return nil
	}
	txn.discard()
	txn.env.metrics.abort()
	txn.env.log.WithField("txn", txn.Txn.dir.txn+1).Trace("aborted write transaction")
	return txn.env.endWrite()
}

func (txn *MutTxn) discard() {
	txn.state = TxnAborted
	txn.staged = nil
	txn.stagedOverflow = nil
	txn.free = nil
	txn.freed = nil
}

// Commit publishes the transaction. Pages are written and flushed before
// the new directory copy is written to the slot not holding the current
// one, so a crash at any point leaves either the old or the new state.
// A failed Commit leaves the committed state untouched.
func (txn *MutTxn) Commit() error {
	if txn.state != TxnActive {
		return ErrTxnDone.New(txn.state)
	}
	if err := txn.commit(time.Now()); err != nil {
		txn.discard()
		txn.env.metrics.abort()
		txn.env.log.WithError(err).Warn("commit failed")
		if endErr := txn.env.endWrite(); endErr != nil {
			txn.env.log.WithError(endErr).Warn("error releasing pristine")
		}
		return err
	}
	txn.state = TxnCommitted
	return txn.env.endWrite()
}

func (txn *MutTxn) commit(start time.Time) error {
	env := txn.env
	next := txn.Txn.dir.txn + 1

	env.mu.Lock()
	pending := env.pending
	oldFreeList := env.freeList
	env.mu.Unlock()

	released := append(append([]uint64(nil), txn.freed...), oldFreeList...)
	other := len(released)
	for _, p := range pending {
		other += len(p.pages)
	}

	// the list pages themselves are taken from the free pages, which
	// shrinks the list they have to hold
	var flIDs []uint64
	for len(flIDs) < (len(txn.free)+other+freeEntriesPerPg-1)/freeEntriesPerPg {
		id, err := txn.Allocate()
		if err != nil {
			return err
		}
		flIDs = append(flIDs, id)
	}

	entries := make([]freeEntry, 0, len(txn.free)+other)
	for _, id := range txn.free {
		entries = append(entries, freeEntry{page: id})
	}
	for _, p := range pending {
		for _, id := range p.pages {
			entries = append(entries, freeEntry{page: id, freedAt: p.freedAt})
		}
	}
	for _, id := range released {
		entries = append(entries, freeEntry{page: id, freedAt: next})
	}

	if err := env.file.Grow(txn.pageCount); err != nil {
		return err
	}
	for id, n := range txn.staged {
		env.cache.Remove(id)
		if err := env.file.WritePage(id, n.Encode(next)); err != nil {
			return err
		}
	}
	for id, page := range txn.stagedOverflow {
		env.cache.Remove(id)
		if err := env.file.WritePage(id, page); err != nil {
			return err
		}
	}
	for i, id := range flIDs {
		var link uint64
		if i+1 < len(flIDs) {
			link = flIDs[i+1]
		}
		chunk := entries[min(i*freeEntriesPerPg, len(entries)):min((i+1)*freeEntriesPerPg, len(entries))]
		env.cache.Remove(id)
		if err := env.file.WritePage(id, encodeFreeListPage(link, chunk)); err != nil {
			return err
		}
	}
	if !env.noSync {
		if err := env.file.Sync(); err != nil {
			return err
		}
	}

	dir := directory{
		txn:       next,
		schemas:   txn.Txn.dir.schemas,
		pageCount: txn.pageCount,
		freeCount: uint64(len(entries)),
	}
	if len(flIDs) > 0 {
		dir.freeHead = flIDs[0]
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	slot := 1 - env.slot
	if env.fresh {
		slot = 0
		if err := writeHeader(env.file, CurrentVersion, dir); err != nil {
			return err
		}
	} else if err := writeDirectory(env.file, slot, dir); err != nil {
		return err
	}
	if !env.noSync {
		if err := env.file.Sync(); err != nil {
			return err
		}
	}

	env.dir, env.slot, env.fresh = dir, slot, false
	env.freeList = flIDs
	env.free = txn.free
	sort.Slice(env.free, func(i, j int) bool { return env.free[i] > env.free[j] })
	if len(released) > 0 {
		env.pending = append(env.pending, pendingFree{freedAt: next, pages: released})
	}

	env.metrics.commit(start, dir.pageCount, uint64(len(env.free)))
	env.log.WithFields(logrus.Fields{
		"txn":    next,
		"staged": len(txn.staged) + len(txn.stagedOverflow),
		"freed":  len(released),
		"pages":  dir.pageCount,
	}).Debug("committed write transaction")
	return nil
}
