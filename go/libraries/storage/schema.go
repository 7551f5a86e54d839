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
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// MaxTableNameLength is the longest table name any backend accepts.
const MaxTableNameLength = 255

type DataType string

const (
	TypeBoolean   DataType = "BOOLEAN"
	TypeInt       DataType = "INT"
	TypeUint      DataType = "UINT"
	TypeFloat     DataType = "FLOAT"
	TypeDecimal   DataType = "DECIMAL"
	TypeText      DataType = "TEXT"
	TypeBytea     DataType = "BYTEA"
	TypeDate      DataType = "DATE"
	TypeTimestamp DataType = "TIMESTAMP"
	TypeUUID      DataType = "UUID"
	TypeList      DataType = "LIST"
	TypeMap       DataType = "MAP"
)

var dataTypeKinds = map[DataType]ValueKind{
	TypeBoolean:   BoolKind,
	TypeInt:       IntKind,
	TypeUint:      UintKind,
	TypeFloat:     FloatKind,
	TypeDecimal:   DecimalKind,
	TypeText:      StringKind,
	TypeBytea:     BytesKind,
	TypeDate:      DateKind,
	TypeTimestamp: TimestampKind,
	TypeUUID:      UUIDKind,
	TypeList:      ListKind,
	TypeMap:       MapKind,
}

// Kind returns the kind of value stored in a column of type |t|.
func (t DataType) Kind() (ValueKind, bool) {
	k, ok := dataTypeKinds[t]
	return k, ok
}

type ColumnUniqueOption struct {
	IsPrimary bool `json:"is_primary"`
}

type ColumnDef struct {
	Name     string              `json:"name"`
	DataType DataType            `json:"data_type"`
	Nullable bool                `json:"nullable"`
	Default  string              `json:"default,omitempty"`
	Unique   *ColumnUniqueOption `json:"unique,omitempty"`
	Comment  string              `json:"comment,omitempty"`
}

func (c ColumnDef) IsPrimary() bool {
	return c.Unique != nil && c.Unique.IsPrimary
}

type IndexOrder string

const (
	IndexAsc  IndexOrder = "ASC"
	IndexDesc IndexOrder = "DESC"
	IndexBoth IndexOrder = "BOTH"
)

// SchemaIndex is a single column secondary index.
type SchemaIndex struct {
	Name      string     `json:"name"`
	Column    string     `json:"column"`
	Order     IndexOrder `json:"order"`
	CreatedAt time.Time  `json:"created_at"`
}

// Schema describes a table. A nil ColumnDefs marks a schemaless table whose
// rows are maps.
type Schema struct {
	TableName  string        `json:"table_name"`
	ColumnDefs []ColumnDef   `json:"column_defs"`
	Indexes    []SchemaIndex `json:"indexes,omitempty"`
	Engine     string        `json:"engine,omitempty"`
	Comment    string        `json:"comment,omitempty"`
}

func (s *Schema) IsSchemaless() bool {
	return s.ColumnDefs == nil
}

// ColumnIndex returns the position of column |name|, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.ColumnDefs {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// PrimaryKey returns the position of the primary key column, if any.
func (s *Schema) PrimaryKey() (int, bool) {
	for i, c := range s.ColumnDefs {
		if c.IsPrimary() {
			return i, true
		}
	}
	return -1, false
}

func (s *Schema) Index(name string) (SchemaIndex, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return SchemaIndex{}, false
}

// Validate checks the invariants every backend relies on.
func (s *Schema) Validate() error {
	if err := ValidateTableName(s.TableName); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.ColumnDefs))
	primaries := 0
	for _, c := range s.ColumnDefs {
		name := strings.ToLower(c.Name)
		if name == "" {
			return ErrInvalidSchema.New(s.TableName, "empty column name")
		}
		if seen[name] {
			return ErrInvalidSchema.New(s.TableName, "duplicate column "+c.Name)
		}
		seen[name] = true
		if _, ok := c.DataType.Kind(); !ok {
			return ErrInvalidSchema.New(s.TableName, "unknown type "+string(c.DataType)+" for column "+c.Name)
		}
		if c.IsPrimary() {
			primaries++
		}
	}
	if primaries > 1 {
		return ErrInvalidSchema.New(s.TableName, "more than one primary key")
	}
	return nil
}

func ValidateTableName(name string) error {
	if name == "" || len(name) > MaxTableNameLength || strings.ContainsRune(name, 0) {
		return ErrInvalidTableName.New(name)
	}
	return nil
}

// RowKey returns the primary key of |r| under |s|, or false when |s| has no
// primary key.
func (s *Schema) RowKey(r DataRow) (Key, bool, error) {
	pk, ok := s.PrimaryKey()
	if !ok || r.IsMap() {
		return Key{}, false, nil
	}
	if pk >= len(r.Values) {
		return Key{}, false, malformed("row has %d values, primary key is column %d", len(r.Values), pk)
	}
	k, err := NewKey(r.Values[pk])
	if err != nil {
		return Key{}, false, err
	}
	return k, true, nil
}

// CheckShape rejects rows whose form does not match the table: schemaless
// tables hold map rows and tables with columns hold positional rows.
func (s *Schema) CheckShape(r DataRow) error {
	if s.IsSchemaless() != r.IsMap() {
		if r.IsMap() {
			return ErrMalformedRecord.New("map row in table " + s.TableName + " with columns")
		}
		return ErrMalformedRecord.New("positional row in schemaless table " + s.TableName)
	}
	return nil
}

func (s *Schema) Clone() *Schema {
	c := *s
	if s.ColumnDefs != nil {
		c.ColumnDefs = make([]ColumnDef, len(s.ColumnDefs))
		copy(c.ColumnDefs, s.ColumnDefs)
	}
	c.Indexes = append([]SchemaIndex(nil), s.Indexes...)
	return &c
}

func MarshalSchema(s *Schema) ([]byte, error) {
	return json.Marshal(s)
}

func UnmarshalSchema(b []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, ErrMalformedRecord.Wrap(err, "schema")
	}
	if s.TableName == "" {
		return nil, malformed("schema without table name")
	}
	return &s, nil
}

// FunctionArg is a parameter of a user defined function.
type FunctionArg struct {
	Name     string   `json:"name"`
	DataType DataType `json:"data_type"`
	Default  string   `json:"default,omitempty"`
}

// Function is a user defined function. The body is opaque to storage.
type Function struct {
	Name string        `json:"name"`
	Args []FunctionArg `json:"args"`
	Body string        `json:"body"`
}

func MarshalFunction(f *Function) ([]byte, error) {
	return json.Marshal(f)
}

func UnmarshalFunction(b []byte) (*Function, error) {
	var f Function
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, ErrMalformedRecord.Wrap(err, "function")
	}
	return &f, nil
}
