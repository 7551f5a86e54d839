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
	"github.com/cespare/xxhash/v2"

	"github.com/pristinedb/pristine/go/store/pager"
	"github.com/pristinedb/pristine/go/store/val"
)

// Page 0 layout. The version marker and page size are written once; the two
// directory copies alternate between commits and the newest copy with a
// valid checksum is the committed state.
//
//	[0:8]     version marker u64
//	[8:12]    page size u32
//	[64:128]  directory copy 0
//	[128:192] directory copy 1
const (
	versionOffset  = 0
	pageSizeOffset = 8
	headerEnd      = 16

	directorySize = 64
	checksumAt    = directorySize - 8
)

var directoryOffsets = [2]int64{64, 128}

// directory is one copy of the root page directory.
//
//	txn u64 | schemas root u64 | page count u64 | free list head u64 | free count u64 | ... | xxhash64 u64
type directory struct {
	txn       uint64
	schemas   uint64
	pageCount uint64
	freeHead  uint64
	freeCount uint64
}

func (d directory) encode() []byte {
	buf := make([]byte, directorySize)
	val.WriteUint64(buf[0:8], d.txn)
	val.WriteUint64(buf[8:16], d.schemas)
	val.WriteUint64(buf[16:24], d.pageCount)
	val.WriteUint64(buf[24:32], d.freeHead)
	val.WriteUint64(buf[32:40], d.freeCount)
	val.WriteUint64(buf[checksumAt:], xxhash.Sum64(buf[:checksumAt]))
	return buf
}

func decodeDirectory(buf []byte) (directory, bool) {
	if len(buf) != directorySize {
		return directory{}, false
	}
	if xxhash.Sum64(buf[:checksumAt]) != val.ReadUint64(buf[checksumAt:]) {
		return directory{}, false
	}
	d := directory{
		txn:       val.ReadUint64(buf[0:8]),
		schemas:   val.ReadUint64(buf[8:16]),
		pageCount: val.ReadUint64(buf[16:24]),
		freeHead:  val.ReadUint64(buf[24:32]),
		freeCount: val.ReadUint64(buf[32:40]),
	}
	if d.txn == 0 {
		return directory{}, false
	}
	return d, true
}

// header is the decoded form of page 0.
type header struct {
	version  uint64
	pageSize uint32
	dir      directory
	slot     int
	hasDir   bool
}

func readHeader(f *pager.File) (header, error) {
	buf := make([]byte, 192)
	if err := f.ReadAt(buf, 0); err != nil {
		return header{}, err
	}
	h := header{
		version:  val.ReadUint64(buf[versionOffset : versionOffset+8]),
		pageSize: val.ReadUint32(buf[pageSizeOffset : pageSizeOffset+4]),
	}
	for slot, off := range directoryOffsets {
		d, ok := decodeDirectory(buf[off : off+directorySize])
		if !ok {
			continue
		}
		if !h.hasDir || d.txn > h.dir.txn {
			h.dir, h.slot, h.hasDir = d, slot, true
		}
	}
	return h, nil
}

func readVersion(f *pager.File) (uint64, error) {
	buf := make([]byte, 8)
	if err := f.ReadAt(buf, versionOffset); err != nil {
		return 0, err
	}
	return val.ReadUint64(buf), nil
}

// writeHeader writes the version marker, page size and directory copy 0 of
// a fresh file in one write, so page 0 never holds a version without a
// directory.
func writeHeader(f *pager.File, version uint64, d directory) error {
	buf := make([]byte, directoryOffsets[0]+directorySize)
	val.WriteUint64(buf[versionOffset:versionOffset+8], version)
	val.WriteUint32(buf[pageSizeOffset:pageSizeOffset+4], pager.PageSize)
	copy(buf[directoryOffsets[0]:], d.encode())
	return f.WriteAt(buf, 0)
}

func writeDirectory(f *pager.File, slot int, d directory) error {
	return f.WriteAt(d.encode(), directoryOffsets[slot])
}

// Free list pages form a chain of (page, freedAt) entries.
//
//	type u8 | pad | count u32 | next u64 | (page u64 | freedAt u64)*
const (
	pageFreeList     byte = 4
	freeEntrySize         = 16
	freeEntriesPerPg      = (pager.PageSize - headerEnd) / freeEntrySize
)

type freeEntry struct {
	page    uint64
	freedAt uint64
}

func encodeFreeListPage(next uint64, entries []freeEntry) []byte {
	page := make([]byte, pager.PageSize)
	page[0] = pageFreeList
	val.WriteUint32(page[4:8], uint32(len(entries)))
	val.WriteUint64(page[8:16], next)
	buf := page[:headerEnd]
	for _, e := range entries {
		buf = val.AppendUint64(buf, e.page)
		buf = val.AppendUint64(buf, e.freedAt)
	}
	return page
}

func decodeFreeListPage(id uint64, page []byte) (next uint64, entries []freeEntry, err error) {
	if len(page) != pager.PageSize || page[0] != pageFreeList {
		return 0, nil, corrupted("page %d is not a free list page", id)
	}
	count := int(val.ReadUint32(page[4:8]))
	if count > freeEntriesPerPg {
		return 0, nil, corrupted("free list page %d overflows", id)
	}
	entries = make([]freeEntry, count)
	for i := range entries {
		off := headerEnd + i*freeEntrySize
		entries[i] = freeEntry{
			page:    val.ReadUint64(page[off : off+8]),
			freedAt: val.ReadUint64(page[off+8 : off+16]),
		}
	}
	return val.ReadUint64(page[8:16]), entries, nil
}
