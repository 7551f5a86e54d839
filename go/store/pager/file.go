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

// Package pager exposes a growable file of fixed-size pages through a
// shared memory mapping.
package pager

import (
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/utils/filesys"
)

// PageSize is the size of every page in a page file.
const PageSize = 4096

// ErrWouldBlock is returned by Open when another holder owns the file lock.
var ErrWouldBlock = errors.New("page file is locked by another process")

var errClosed = errors.New("page file is closed")

// File is a memory-mapped page file. Reads copy out of the mapping under a
// shared lock; Grow remaps under the exclusive lock. Callers are responsible
// for never writing a page that a concurrent reader may be reading.
type File struct {
	mu   sync.RWMutex
	path string
	f    *os.File
	lck  filesys.FilesysLock
	mem  mmap.MMap
	log  *logrus.Entry
}

// Open locks and maps the page file at |path|, creating it when missing.
// The file is extended to at least |initialSize| bytes, rounded up to a
// whole number of pages.
func Open(path string, initialSize int64, log *logrus.Entry) (*File, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("path", path)

	lck := filesys.CreateFilesysLock(path)
	ok, err := lck.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("page file is locked")
		return nil, ErrWouldBlock
	}

	pf, err := openLocked(path, initialSize, lck, log)
	if err != nil {
		_ = lck.Unlock()
		return nil, err
	}
	return pf, nil
}

func openLocked(path string, initialSize int64, lck filesys.FilesysLock, log *logrus.Entry) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "error reading size of %s", path)
	}

	size := roundToPages(st.Size())
	if min := roundToPages(initialSize); size < min {
		size = min
	}
	if size != st.Size() {
		if err = f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "error resizing %s", path)
		}
	}

	mem, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "error mapping %s", path)
	}

	log.WithField("size", size).Debug("opened page file")
	return &File{path: path, f: f, lck: lck, mem: mem, log: log}, nil
}

// OpenAnonymous maps |initialSize| bytes of memory not backed by any file.
// The contents are discarded on Close.
func OpenAnonymous(initialSize int64, log *logrus.Entry) (*File, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	lck := filesys.CreateFilesysLock("")
	if _, err := lck.TryLock(); err != nil {
		return nil, err
	}
	mem, err := mmap.MapRegion(nil, int(roundToPages(initialSize)), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, errors.Wrap(err, "error mapping anonymous memory")
	}
	return &File{lck: lck, mem: mem, log: log.WithField("path", ":memory:")}, nil
}

// Path returns the backing file path, or the empty string for anonymous files.
func (pf *File) Path() string {
	return pf.path
}

// NumPages returns the number of pages currently mapped.
func (pf *File) NumPages() uint64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return uint64(len(pf.mem)) / PageSize
}

// ReadPage returns a copy of page |id|.
func (pf *File) ReadPage(id uint64) ([]byte, error) {
	buf := make([]byte, PageSize)
	if err := pf.ReadAt(buf, int64(id)*PageSize); err != nil {
		return nil, err
	}
	return buf, nil
}

// WritePage overwrites page |id| with |data|, zero filling the remainder.
func (pf *File) WritePage(id uint64, data []byte) error {
	if len(data) > PageSize {
		return errors.Errorf("page %d: %d bytes exceed the page size", id, len(data))
	}
	buf := data
	if len(buf) < PageSize {
		buf = make([]byte, PageSize)
		copy(buf, data)
	}
	return pf.WriteAt(buf, int64(id)*PageSize)
}

// ReadAt fills |p| from byte offset |off|.
func (pf *File) ReadAt(p []byte, off int64) error {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	if pf.mem == nil {
		return errClosed
	}
	if off < 0 || off+int64(len(p)) > int64(len(pf.mem)) {
		return errors.Errorf("read of %d bytes at %d is out of bounds", len(p), off)
	}
	copy(p, pf.mem[off:])
	return nil
}

// WriteAt copies |p| into the mapping at byte offset |off|.
func (pf *File) WriteAt(p []byte, off int64) error {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	if pf.mem == nil {
		return errClosed
	}
	if off < 0 || off+int64(len(p)) > int64(len(pf.mem)) {
		return errors.Errorf("write of %d bytes at %d is out of bounds", len(p), off)
	}
	copy(pf.mem[off:], p)
	return nil
}

// Grow ensures at least |minPages| pages are mapped, doubling the mapping
// until it is large enough.
func (pf *File) Grow(minPages uint64) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.mem == nil {
		return errClosed
	}

	cur := int64(len(pf.mem))
	want := int64(minPages) * PageSize
	if want <= cur {
		return nil
	}
	size := cur
	if size == 0 {
		size = PageSize
	}
	for size < want {
		size *= 2
	}

	if pf.f == nil {
		mem, err := mmap.MapRegion(nil, int(size), mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			return errors.Wrap(err, "error growing anonymous mapping")
		}
		copy(mem, pf.mem)
		_ = pf.mem.Unmap()
		pf.mem = mem
		pf.log.WithField("size", size).Debug("grew page file")
		return nil
	}

	if err := pf.mem.Flush(); err != nil {
		return errors.Wrapf(err, "error flushing %s", pf.path)
	}
	if err := pf.mem.Unmap(); err != nil {
		return errors.Wrapf(err, "error unmapping %s", pf.path)
	}
	pf.mem = nil
	if err := pf.f.Truncate(size); err != nil {
		return errors.Wrapf(err, "error resizing %s", pf.path)
	}
	mem, err := mmap.Map(pf.f, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "error remapping %s", pf.path)
	}
	pf.mem = mem
	pf.log.WithField("size", size).Debug("grew page file")
	return nil
}

// Sync flushes dirty pages to the backing file.
func (pf *File) Sync() error {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	if pf.mem == nil {
		return errClosed
	}
	if pf.f == nil {
		return nil
	}
	if err := pf.mem.Flush(); err != nil {
		return errors.Wrapf(err, "error syncing %s", pf.path)
	}
	return nil
}

// Close unmaps the file and releases its lock.
func (pf *File) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.mem == nil && pf.f == nil {
		return nil
	}

	var firstErr error
	if pf.mem != nil {
		if pf.f != nil {
			if err := pf.mem.Flush(); err != nil {
				firstErr = errors.Wrapf(err, "error flushing %s", pf.path)
			}
		}
		if err := pf.mem.Unmap(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "error unmapping page file")
		}
		pf.mem = nil
	}
	if pf.f != nil {
		if err := pf.f.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "error closing %s", pf.path)
		}
		pf.f = nil
	}
	if err := pf.lck.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	pf.log.Debug("closed page file")
	return firstErr
}

func roundToPages(n int64) int64 {
	if n <= 0 {
		return PageSize
	}
	return (n + PageSize - 1) / PageSize * PageSize
}
