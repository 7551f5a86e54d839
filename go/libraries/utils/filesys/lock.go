// Copyright 2019 Dolthub, Inc.
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

package filesys

import (
	"sync/atomic"

	"github.com/juju/fslock"
	"github.com/pkg/errors"
)

const unlockedStateValue int32 = 0
const lockedStateValue int32 = 1

// errLockUnlock occurs if there is an error unlocking the lock
var errLockUnlock = errors.New("unable to unlock the lock")

// FilesysLock is an interface for locking and unlocking files. TryLock never
// blocks: it reports false when another holder owns the lock.
type FilesysLock interface {
	TryLock() (bool, error)
	Unlock() error
}

// CreateFilesysLock returns an advisory lock on |filename|, or an in-process
// lock when |filename| is empty.
func CreateFilesysLock(filename string) FilesysLock {
	if filename == "" {
		return NewInMemFileLock()
	}
	return NewLocalFileLock(filename)
}

// InMemFileLock is a lock that only excludes holders within this process.
type InMemFileLock struct {
	state int32
}

// NewInMemFileLock creates a new InMemFileLock
func NewInMemFileLock() *InMemFileLock {
	return &InMemFileLock{unlockedStateValue}
}

// TryLock attempts to lock the lock or fails if it is already locked
func (memLock *InMemFileLock) TryLock() (bool, error) {
	if atomic.CompareAndSwapInt32(&memLock.state, unlockedStateValue, lockedStateValue) {
		return true, nil
	}
	return false, nil
}

// Unlock unlocks the lock
func (memLock *InMemFileLock) Unlock() error {
	if atomic.LoadInt32(&memLock.state) == unlockedStateValue {
		return nil
	}

	if !atomic.CompareAndSwapInt32(&memLock.state, lockedStateValue, unlockedStateValue) {
		return errLockUnlock
	}

	return nil
}

// LocalFileLock is an advisory lock on a file of the local filesystem. Two
// LocalFileLocks on the same path exclude each other even inside a single
// process.
type LocalFileLock struct {
	path string
	lck  *fslock.Lock
}

// NewLocalFileLock creates a new LocalFileLock
func NewLocalFileLock(filename string) *LocalFileLock {
	lck := fslock.New(filename)

	return &LocalFileLock{path: filename, lck: lck}
}

// TryLock attempts to lock the lock or fails if it is already locked
func (locLock *LocalFileLock) TryLock() (bool, error) {
	err := locLock.lck.TryLock()
	if err == fslock.ErrLocked {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "error locking %s", locLock.path)
	}
	return true, nil
}

// Unlock unlocks the lock
func (locLock *LocalFileLock) Unlock() error {
	err := locLock.lck.Unlock()
	if err != nil {
		return errors.Wrapf(err, "error unlocking %s", locLock.path)
	}
	return nil
}
