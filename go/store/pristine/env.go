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

// Package pristine is a transactional page store. An Env owns one page file
// and hands out read snapshots (Txn) and a single writer (MutTxn) whose
// copy-on-write changes become visible atomically at commit.
package pristine

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/pristinedb/pristine/go/store/btree"
	"github.com/pristinedb/pristine/go/store/pager"
)

// CurrentVersion is the on-disk format marker stored in the version slot.
// Files carrying any other marker are refused.
const CurrentVersion uint64 = 0x0000_0001_7072_7374

const (
	DefaultInitialSize   = 1 << 20
	DefaultNodeCacheSize = 1024
)

var (
	ErrPristineLocked    = errors.NewKind("pristine is locked")
	ErrPristineCorrupted = errors.NewKind("pristine is corrupted: %s")
	ErrVersionMismatch   = errors.NewKind("Pristine version mismatch. Cloning over the network can fix this.")
	ErrTxnDone           = errors.NewKind("transaction is already %s")
	ErrEnvClosed         = errors.NewKind("pristine environment is closed")
)

func corrupted(format string, args ...interface{}) error {
	return ErrPristineCorrupted.New(fmt.Sprintf(format, args...))
}

// Options configure an Env.
type Options struct {
	// InitialSize is the minimum size of the page file in bytes.
	InitialSize int64
	// NodeCacheSize bounds the number of decoded nodes kept in memory.
	NodeCacheSize int
	// NoSync skips flushing the mapping at commit.
	NoSync bool
	Logger *logrus.Entry
	// Metrics, when set, receive commit and reader statistics.
	Metrics *Metrics
}

func (o Options) withDefaults() Options {
	if o.InitialSize <= 0 {
		o.InitialSize = DefaultInitialSize
	}
	if o.NodeCacheSize <= 0 {
		o.NodeCacheSize = DefaultNodeCacheSize
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

type pendingFree struct {
	freedAt uint64
	pages   []uint64
}

// Env owns a page file and coordinates the transactions that read and
// write it. An Env is shared by reference counting: every Share must be
// matched by a Close, and the file is released once the last holder and
// the last transaction are gone.
type Env struct {
	mu      sync.Mutex
	writer  sync.Mutex
	file    *pager.File
	log     *logrus.Entry
	metrics *Metrics
	noSync  bool
	cache   *lru.Cache[uint64, *btree.Node]

	dir      directory
	slot     int
	fresh    bool
	freeList []uint64 // pages holding the persisted free list of |dir|

	readers map[uint64]int
	free    []uint64
	pending []pendingFree

	refs   int
	live   int
	closed bool
}

// Open opens the page file at |path|, creating it when missing. If another
// Env holds the file, Open fails immediately with ErrPristineLocked.
func Open(path string, opts Options) (*Env, error) {
	opts = opts.withDefaults()
	f, err := pager.Open(path, opts.InitialSize, opts.Logger)
	if err == pager.ErrWouldBlock {
		return nil, ErrPristineLocked.New()
	} else if err != nil {
		return nil, err
	}
	return newEnv(f, opts)
}

// OpenMemory creates an Env over anonymous memory.
func OpenMemory(opts Options) (*Env, error) {
	opts = opts.withDefaults()
	f, err := pager.OpenAnonymous(opts.InitialSize, opts.Logger)
	if err != nil {
		return nil, err
	}
	return newEnv(f, opts)
}

func newEnv(f *pager.File, opts Options) (*Env, error) {
	cache, err := lru.New[uint64, *btree.Node](opts.NodeCacheSize)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	env := &Env{
		file:    f,
		log:     opts.Logger,
		metrics: opts.Metrics,
		noSync:  opts.NoSync,
		cache:   cache,
		readers: make(map[uint64]int),
		refs:    1,
	}
	if err = env.load(); err != nil {
		_ = f.Close()
		return nil, err
	}

	env.log.WithFields(logrus.Fields{
		"txn":   env.dir.txn,
		"pages": env.dir.pageCount,
		"free":  len(env.free),
		"fresh": env.fresh,
	}).Debug("opened pristine")
	return env, nil
}

// load validates page 0 and reads the committed free list.
func (env *Env) load() error {
	h, err := readHeader(env.file)
	if err != nil {
		return err
	}

	switch {
	case h.version == 0 && !h.hasDir:
		env.fresh = true
		env.dir = directory{pageCount: 1}
		return nil
	case h.version != CurrentVersion:
		return ErrVersionMismatch.New()
	case !h.hasDir:
		return corrupted("no valid root page directory")
	case h.pageSize != pager.PageSize:
		return corrupted("page size %d", h.pageSize)
	case h.dir.pageCount > env.file.NumPages() || h.dir.pageCount < 2:
		return corrupted("page count %d out of range", h.dir.pageCount)
	}

	env.dir, env.slot = h.dir, h.slot

	// nothing is reading at open, so every persisted entry is reusable
	id := h.dir.freeHead
	for id != 0 {
		if id >= h.dir.pageCount || len(env.freeList) > int(h.dir.pageCount) {
			return corrupted("free list page %d out of range", id)
		}
		page, err := env.file.ReadPage(id)
		if err != nil {
			return err
		}
		next, entries, err := decodeFreeListPage(id, page)
		if err != nil {
			return err
		}
		env.freeList = append(env.freeList, id)
		for _, e := range entries {
			if e.page == 0 || e.page >= h.dir.pageCount {
				return corrupted("free page %d out of range", e.page)
			}
			env.free = append(env.free, e.page)
		}
		id = next
	}
	if uint64(len(env.free)) != h.dir.freeCount {
		return corrupted("free list holds %d pages, expected %d", len(env.free), h.dir.freeCount)
	}
	return nil
}

// Share adds a holder to |env|.
func (env *Env) Share() *Env {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.refs++
	return env
}

// Close releases one holder. The page file is unmapped and unlocked when
// no holders and no transactions remain.
func (env *Env) Close() error {
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.refs == 0 {
		return nil
	}
	env.refs--
	return env.maybeTeardown()
}

func (env *Env) maybeTeardown() error {
	if env.refs > 0 || env.live > 0 || env.closed {
		return nil
	}
	env.closed = true
	env.cache.Purge()
	env.log.Debug("closing pristine")
	return env.file.Close()
}

// Path returns the path of the page file.
func (env *Env) Path() string {
	return env.file.Path()
}

// Stats describes the committed state of an Env.
type Stats struct {
	Txn       uint64
	Pages     uint64
	FreePages uint64
	Pending   uint64
	Readers   int
	Fresh     bool
}

func (env *Env) Stats() Stats {
	env.mu.Lock()
	defer env.mu.Unlock()
	st := Stats{
		Txn:       env.dir.txn,
		Pages:     env.dir.pageCount,
		FreePages: uint64(len(env.free)),
		Fresh:     env.fresh,
	}
	for _, p := range env.pending {
		st.Pending += uint64(len(p.pages))
	}
	for _, n := range env.readers {
		st.Readers += n
	}
	return st
}

// Begin opens a read snapshot of the last committed state.
func (env *Env) Begin() (*Txn, error) {
	env.mu.Lock()
	defer env.mu.Unlock()
	if err := env.checkOpen(false); err != nil {
		return nil, err
	}
	if env.dir.schemas == 0 {
		return nil, corrupted("schemas root is missing")
	}

	env.readers[env.dir.txn]++
	env.live++
	env.metrics.readerOpened()
	return &Txn{env: env, dir: env.dir, state: TxnActive}, nil
}

// BeginMut opens the write transaction. Only one may be live at a time; a
// second concurrent BeginMut fails immediately with ErrPristineLocked.
func (env *Env) BeginMut() (*MutTxn, error) {
	if !env.writer.TryLock() {
		env.log.Warn("write transaction already in progress")
		return nil, ErrPristineLocked.New()
	}

	env.mu.Lock()
	defer env.mu.Unlock()
	if err := env.checkOpen(true); err != nil {
		env.writer.Unlock()
		return nil, err
	}
	env.reclaim()

	env.live++
	txn := &MutTxn{
		Txn:            Txn{env: env, dir: env.dir, state: TxnActive},
		free:           append([]uint64(nil), env.free...),
		pageCount:      env.dir.pageCount,
		staged:         make(map[uint64]*btree.Node),
		stagedOverflow: make(map[uint64][]byte),
	}
	return txn, nil
}

// checkOpen compares the version slot with CurrentVersion. An unset slot is
// only acceptable on a fresh file and only for a writer, which sets it.
func (env *Env) checkOpen(mut bool) error {
	if env.closed || env.refs == 0 {
		return ErrEnvClosed.New()
	}
	v, err := readVersion(env.file)
	if err != nil {
		return err
	}
	switch {
	case v == 0 && env.fresh:
		if !mut {
			return corrupted("pristine has never been initialized")
		}
		return nil
	case v != CurrentVersion:
		return ErrVersionMismatch.New()
	}
	return nil
}

// reclaim moves pending pages that no open snapshot can reach onto the
// free list. Pages freed by commit N are reachable from snapshots older
// than N only.
func (env *Env) reclaim() {
	oldest := uint64(0)
	for snap := range env.readers {
		if oldest == 0 || snap < oldest {
			oldest = snap
		}
	}

	kept := env.pending[:0]
	for _, p := range env.pending {
		if oldest == 0 || p.freedAt <= oldest {
			env.free = append(env.free, p.pages...)
			env.log.WithFields(logrus.Fields{"freedAt": p.freedAt, "pages": len(p.pages)}).Trace("reclaimed pages")
		} else {
			kept = append(kept, p)
		}
	}
	env.pending = kept
	sort.Slice(env.free, func(i, j int) bool { return env.free[i] > env.free[j] })
}

func (env *Env) endRead(snap uint64) error {
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.readers[snap]--; env.readers[snap] <= 0 {
		delete(env.readers, snap)
	}
	env.live--
	env.metrics.readerClosed()
	return env.maybeTeardown()
}

func (env *Env) endWrite() error {
	env.mu.Lock()
	env.live--
	err := env.maybeTeardown()
	env.mu.Unlock()
	env.writer.Unlock()
	return err
}

func (env *Env) readNode(id uint64, limit uint64) (*btree.Node, error) {
	if id == 0 || id >= limit {
		return nil, corrupted("page %d out of range", id)
	}
	if n, ok := env.cache.Get(id); ok {
		return n, nil
	}
	page, err := env.file.ReadPage(id)
	if err != nil {
		return nil, err
	}
	n, err := btree.DecodeNode(id, page)
	if err != nil {
		return nil, ErrPristineCorrupted.Wrap(err, "undecodable node")
	}
	env.cache.Add(id, n)
	return n, nil
}

func (env *Env) readOverflow(id uint64, limit uint64) ([]byte, error) {
	if id == 0 || id >= limit {
		return nil, corrupted("page %d out of range", id)
	}
	return env.file.ReadPage(id)
}
