// Copyright 2022 VectorSQL
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"fmt"
)

type T uint8

const (
	T_any T = iota

	// numerics
	T_bool
	T_int8
	T_int16
	T_int32
	T_int64
	T_uint8
	T_uint16
	T_uint32
	T_uint64
	T_float32
	T_float64

	// temporal
	T_date
	T_datetime
	T_timestamp

	// exact numerics
	T_decimal64
	T_decimal128

	T_uuid

	// variable length
	T_char
	T_varchar
	T_binary
	T_varbinary
	T_blob
	T_text

	// nested, stored through the container serde
	T_json
	T_array
	T_tuple
)

const (
	BoolSize       = 1
	DateSize       = 4
	DatetimeSize   = 8
	TimestampSize  = 8
	Decimal64Size  = 8
	Decimal128Size = 16
	UuidSize       = 16
)

type Date int32

type Datetime int64

type Timestamp int64

type Decimal64 int64

type Decimal128 struct {
	B0_63   uint64
	B64_127 uint64
}

type Uuid [UuidSize]byte

// Type describes one column.  Width and Scale only matter for char/decimal
// kinds; Size is the in-row slot width.
type Type struct {
	Oid   T
	Size  int32
	Width int32
	Scale int32
}

func New(oid T) Type {
	return Type{Oid: oid, Size: int32(TypeSize(oid))}
}

// TypeSize returns the fixed number of bytes a value of the kind takes
// inside a row.  Variable-length and nested kinds take a Varlena view.
func TypeSize(oid T) int {
	switch oid {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32, T_date:
		return 4
	case T_int64, T_uint64, T_float64, T_datetime, T_timestamp, T_decimal64:
		return 8
	case T_decimal128, T_uuid:
		return 16
	case T_char, T_varchar, T_binary, T_varbinary, T_blob, T_text,
		T_json, T_array, T_tuple:
		return VarlenaSize
	default:
		panic(fmt.Sprintf("unknown type %d", oid))
	}
}

func (t Type) IsVarlen() bool {
	return t.Oid.IsVarlen()
}

func (t Type) IsTuple() bool {
	return t.Oid.IsTuple()
}

// IsFixedLen reports whether values of the type live entirely inside the
// row slot.
func (t Type) IsFixedLen() bool {
	return !t.Oid.IsVarlen() && !t.Oid.IsTuple()
}

func (t T) IsVarlen() bool {
	switch t {
	case T_char, T_varchar, T_binary, T_varbinary, T_blob, T_text:
		return true
	}
	return false
}

// IsTuple reports nested kinds that round-trip through the container
// serde rather than raw slot bytes.
func (t T) IsTuple() bool {
	switch t {
	case T_json, T_array, T_tuple:
		return true
	}
	return false
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_date:
		return "DATE"
	case T_datetime:
		return "DATETIME"
	case T_timestamp:
		return "TIMESTAMP"
	case T_decimal64:
		return "DECIMAL64"
	case T_decimal128:
		return "DECIMAL128"
	case T_uuid:
		return "UUID"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	case T_binary:
		return "BINARY"
	case T_varbinary:
		return "VARBINARY"
	case T_blob:
		return "BLOB"
	case T_text:
		return "TEXT"
	case T_json:
		return "JSON"
	case T_array:
		return "ARRAY"
	case T_tuple:
		return "TUPLE"
	}
	return fmt.Sprintf("unexpected type: %d", t)
}

func (t Type) String() string {
	return t.Oid.String()
}
