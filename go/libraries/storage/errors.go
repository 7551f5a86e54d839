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

package storage

import (
	"fmt"

	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrStorageMsg is the single condition the execution layer sees for any
	// backend failure. The backend's own error is its cause.
	ErrStorageMsg = errors.NewKind("storage error")

	ErrTableAlreadyExists = errors.NewKind("table with name %s already exists")
	ErrTableNotFound      = errors.NewKind("table not found: %s")
	ErrInvalidTableName   = errors.NewKind("invalid table name: %s")
	ErrDuplicateKey       = errors.NewKind("duplicate key %s in table %s")
	ErrInvalidKey         = errors.NewKind("value of kind %s cannot be used as a key")
	ErrMalformedRecord    = errors.NewKind("malformed record: %s")
	ErrInvalidSchema      = errors.NewKind("invalid schema for table %s: %s")

	ErrColumnNotFound      = errors.NewKind("column %s not found in table %s")
	ErrColumnAlreadyExists = errors.NewKind("column %s already exists in table %s")
	ErrIndexNotFound       = errors.NewKind("index %s not found on table %s")
	ErrIndexAlreadyExists  = errors.NewKind("index %s already exists on table %s")
	ErrFunctionNotFound    = errors.NewKind("function not found: %s")
	ErrFunctionExists      = errors.NewKind("function %s already exists")

	ErrNestedTransaction = errors.NewKind("nested transaction is not supported")
)

func malformed(format string, args ...interface{}) error {
	return ErrMalformedRecord.New(fmt.Sprintf(format, args...))
}

// Wrap translates a backend error into ErrStorageMsg. Errors that already
// carry ErrStorageMsg are returned unchanged.
func Wrap(err error) error {
	if err == nil || ErrStorageMsg.Is(err) {
		return err
	}
	return ErrStorageMsg.Wrap(err)
}

// Cause returns the backend error behind an ErrStorageMsg, or |err| itself.
func Cause(err error) error {
	if e, ok := err.(*errors.Error); ok && ErrStorageMsg.Is(e) && e.Cause() != nil {
		return e.Cause()
	}
	return err
}
