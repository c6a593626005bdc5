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

package rowstore

import (
	"bytes"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

type ordered interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~string
}

func compareOrdered[T ordered](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if b {
		return -1
	}
	return 1
}

type floaty interface {
	~float32 | ~float64
}

// compareFloat is a total order: NaN equals NaN and sorts after every
// other value, regardless of its bit pattern or sign.
func compareFloat[T floaty](a, b T) int {
	aNaN := a != a
	bNaN := b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareDecimal128(a, b types.Decimal128) int {
	if r := compareOrdered(int64(a.B64_127), int64(b.B64_127)); r != 0 {
		return r
	}
	return compareOrdered(a.B0_63, b.B0_63)
}

// Compare orders the column of two rows.  Null ordering follows
// NullsFirst; the sign of a value comparison follows Ascending.
func (c *RowContainer) Compare(left, right unsafe.Pointer, column int, flags CompareFlags) int {
	rc := c.rowColumns[column]
	leftNull := c.isNullAt(left, rc)
	rightNull := c.isNullAt(right, rc)
	if leftNull || rightNull {
		if leftNull && rightNull {
			return 0
		}
		if leftNull == flags.NullsFirst {
			return -1
		}
		return 1
	}
	result := c.compareRowValues(left, right, column, rc, flags)
	if !flags.Ascending {
		return -result
	}
	return result
}

func (c *RowContainer) compareRowValues(left, right unsafe.Pointer, column int, rc RowColumn, flags CompareFlags) int {
	kind := c.typeKinds[column]
	if comparer, ok := types.GetComparer(kind); ok {
		size := c.fixedSizeAt(column)
		return comparer.CompareFixed(
			rowBytes(left, rc.Offset(), size),
			rowBytes(right, rc.Offset(), size))
	}
	offset := rc.Offset()
	switch kind {
	case types.T_bool:
		return compareBool(ValueAt[bool](left, offset), ValueAt[bool](right, offset))
	case types.T_int8:
		return compareOrdered(ValueAt[int8](left, offset), ValueAt[int8](right, offset))
	case types.T_int16:
		return compareOrdered(ValueAt[int16](left, offset), ValueAt[int16](right, offset))
	case types.T_int32:
		return compareOrdered(ValueAt[int32](left, offset), ValueAt[int32](right, offset))
	case types.T_int64:
		return compareOrdered(ValueAt[int64](left, offset), ValueAt[int64](right, offset))
	case types.T_uint8:
		return compareOrdered(ValueAt[uint8](left, offset), ValueAt[uint8](right, offset))
	case types.T_uint16:
		return compareOrdered(ValueAt[uint16](left, offset), ValueAt[uint16](right, offset))
	case types.T_uint32:
		return compareOrdered(ValueAt[uint32](left, offset), ValueAt[uint32](right, offset))
	case types.T_uint64:
		return compareOrdered(ValueAt[uint64](left, offset), ValueAt[uint64](right, offset))
	case types.T_float32:
		return compareFloat(ValueAt[float32](left, offset), ValueAt[float32](right, offset))
	case types.T_float64:
		return compareFloat(ValueAt[float64](left, offset), ValueAt[float64](right, offset))
	case types.T_date:
		return compareOrdered(ValueAt[types.Date](left, offset), ValueAt[types.Date](right, offset))
	case types.T_datetime:
		return compareOrdered(ValueAt[types.Datetime](left, offset), ValueAt[types.Datetime](right, offset))
	case types.T_timestamp:
		return compareOrdered(ValueAt[types.Timestamp](left, offset), ValueAt[types.Timestamp](right, offset))
	case types.T_decimal64:
		return compareOrdered(ValueAt[types.Decimal64](left, offset), ValueAt[types.Decimal64](right, offset))
	case types.T_decimal128:
		return compareDecimal128(ValueAt[types.Decimal128](left, offset), ValueAt[types.Decimal128](right, offset))
	case types.T_uuid:
		return bytes.Compare(
			rowBytes(left, offset, types.UuidSize),
			rowBytes(right, offset, types.UuidSize))
	case types.T_char, types.T_varchar, types.T_binary, types.T_varbinary,
		types.T_blob, types.T_text:
		var leftScratch, rightScratch []byte
		lv := (*types.Varlena)(unsafe.Add(left, uintptr(offset)))
		rv := (*types.Varlena)(unsafe.Add(right, uintptr(offset)))
		return bytes.Compare(
			c.strHeap.ContiguousBytes(lv, &leftScratch),
			c.strHeap.ContiguousBytes(rv, &rightScratch))
	case types.T_json, types.T_array, types.T_tuple:
		if !flags.nullAsValue() {
			panic(moerr.NewNotSupportedNoCtx("null handling mode for nested comparison"))
		}
		return c.serde.CompareBytes(
			c.varlenBytesCopy(left, rc),
			c.varlenBytesCopy(right, rc),
			c.typs[column], flags)
	default:
		panic(moerr.NewNYINoCtx("compare of type %s", kind))
	}
}

// CompareVec orders a row cell against decoded[index].  The result sign
// is from the row's point of view, with Ascending applied.
func (c *RowContainer) CompareVec(row unsafe.Pointer, column int, decoded *vector.Vector, index int, flags CompareFlags) int {
	rc := c.rowColumns[column]
	rowNull := c.isNullAt(row, rc)
	vecNull := decoded.IsNullAt(index)
	if rowNull || vecNull {
		if rowNull && vecNull {
			return 0
		}
		if rowNull == flags.NullsFirst {
			return -1
		}
		return 1
	}
	result := c.compareRowVecValues(row, column, rc, decoded, index, flags)
	if !flags.Ascending {
		return -result
	}
	return result
}

func (c *RowContainer) compareRowVecValues(row unsafe.Pointer, column int, rc RowColumn, decoded *vector.Vector, index int, flags CompareFlags) int {
	kind := c.typeKinds[column]
	offset := rc.Offset()
	switch kind {
	case types.T_bool:
		return compareBool(ValueAt[bool](row, offset), vector.GetFixedAt[bool](decoded, index))
	case types.T_int8:
		return compareOrdered(ValueAt[int8](row, offset), vector.GetFixedAt[int8](decoded, index))
	case types.T_int16:
		return compareOrdered(ValueAt[int16](row, offset), vector.GetFixedAt[int16](decoded, index))
	case types.T_int32:
		return compareOrdered(ValueAt[int32](row, offset), vector.GetFixedAt[int32](decoded, index))
	case types.T_int64:
		return compareOrdered(ValueAt[int64](row, offset), vector.GetFixedAt[int64](decoded, index))
	case types.T_uint8:
		return compareOrdered(ValueAt[uint8](row, offset), vector.GetFixedAt[uint8](decoded, index))
	case types.T_uint16:
		return compareOrdered(ValueAt[uint16](row, offset), vector.GetFixedAt[uint16](decoded, index))
	case types.T_uint32:
		return compareOrdered(ValueAt[uint32](row, offset), vector.GetFixedAt[uint32](decoded, index))
	case types.T_uint64:
		return compareOrdered(ValueAt[uint64](row, offset), vector.GetFixedAt[uint64](decoded, index))
	case types.T_float32:
		return compareFloat(ValueAt[float32](row, offset), vector.GetFixedAt[float32](decoded, index))
	case types.T_float64:
		return compareFloat(ValueAt[float64](row, offset), vector.GetFixedAt[float64](decoded, index))
	case types.T_date:
		return compareOrdered(ValueAt[types.Date](row, offset), vector.GetFixedAt[types.Date](decoded, index))
	case types.T_datetime:
		return compareOrdered(ValueAt[types.Datetime](row, offset), vector.GetFixedAt[types.Datetime](decoded, index))
	case types.T_timestamp:
		return compareOrdered(ValueAt[types.Timestamp](row, offset), vector.GetFixedAt[types.Timestamp](decoded, index))
	case types.T_decimal64:
		return compareOrdered(ValueAt[types.Decimal64](row, offset), vector.GetFixedAt[types.Decimal64](decoded, index))
	case types.T_decimal128:
		return compareDecimal128(ValueAt[types.Decimal128](row, offset), vector.GetFixedAt[types.Decimal128](decoded, index))
	case types.T_uuid:
		u := vector.GetFixedAt[types.Uuid](decoded, index)
		return bytes.Compare(rowBytes(row, offset, types.UuidSize), u[:])
	case types.T_char, types.T_varchar, types.T_binary, types.T_varbinary,
		types.T_blob, types.T_text:
		var scratch []byte
		v := (*types.Varlena)(unsafe.Add(row, uintptr(offset)))
		return bytes.Compare(
			c.strHeap.ContiguousBytes(v, &scratch),
			decoded.GetBytesAt(index))
	case types.T_json, types.T_array, types.T_tuple:
		if !flags.nullAsValue() {
			panic(moerr.NewNotSupportedNoCtx("null handling mode for nested comparison"))
		}
		return c.serde.Compare(c.varlenBytesCopy(row, rc), decoded, index, c.typs[column], flags)
	default:
		panic(moerr.NewNYINoCtx("compare of type %s", kind))
	}
}
