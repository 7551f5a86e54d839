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

package pager

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRoundsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages")
	pf, err := Open(path, PageSize*3+1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), pf.NumPages())

	page := bytes.Repeat([]byte{0xAB}, 100)
	require.NoError(t, pf.WritePage(2, page))
	require.NoError(t, pf.Sync())
	require.NoError(t, pf.Close())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4*PageSize), st.Size())

	pf, err = Open(path, PageSize, nil)
	require.NoError(t, err)
	defer pf.Close()
	got, err := pf.ReadPage(2)
	require.NoError(t, err)
	assert.Equal(t, page, got[:100])
	assert.Equal(t, make([]byte, PageSize-100), got[100:])
}

func TestOpenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages")
	pf, err := Open(path, PageSize, nil)
	require.NoError(t, err)

	_, err = Open(path, PageSize, nil)
	assert.Equal(t, ErrWouldBlock, err)

	require.NoError(t, pf.Close())
	pf, err = Open(path, PageSize, nil)
	require.NoError(t, err)
	require.NoError(t, pf.Close())
}

func TestGrowKeepsContents(t *testing.T) {
	for name, open := range map[string]func(t *testing.T) *File{
		"file": func(t *testing.T) *File {
			pf, err := Open(filepath.Join(t.TempDir(), "pages"), PageSize, nil)
			require.NoError(t, err)
			return pf
		},
		"anonymous": func(t *testing.T) *File {
			pf, err := OpenAnonymous(PageSize, nil)
			require.NoError(t, err)
			return pf
		},
	} {
		t.Run(name, func(t *testing.T) {
			pf := open(t)
			defer pf.Close()

			require.NoError(t, pf.WritePage(0, []byte("header")))
			require.NoError(t, pf.Grow(5))
			assert.Equal(t, uint64(8), pf.NumPages())
			require.NoError(t, pf.WritePage(7, []byte("tail")))

			got, err := pf.ReadPage(0)
			require.NoError(t, err)
			assert.Equal(t, []byte("header"), got[:6])
			got, err = pf.ReadPage(7)
			require.NoError(t, err)
			assert.Equal(t, []byte("tail"), got[:4])

			require.NoError(t, pf.Grow(3))
			assert.Equal(t, uint64(8), pf.NumPages())
		})
	}
}

func TestBounds(t *testing.T) {
	pf, err := OpenAnonymous(PageSize, nil)
	require.NoError(t, err)

	_, err = pf.ReadPage(1)
	assert.Error(t, err)
	assert.Error(t, pf.WritePage(0, make([]byte, PageSize+1)))
	assert.Error(t, pf.WriteAt([]byte{1}, -1))

	require.NoError(t, pf.Close())
	require.NoError(t, pf.Close())
	_, err = pf.ReadPage(0)
	assert.Error(t, err)
}
