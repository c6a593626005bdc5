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
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// ValueAt reads a fixed-width value inside a row.
func ValueAt[T any](row unsafe.Pointer, offset int32) T {
	return *(*T)(unsafe.Add(row, uintptr(offset)))
}

// SetValueAt writes a fixed-width value inside a row.
func SetValueAt[T any](row unsafe.Pointer, offset int32, v T) {
	*(*T)(unsafe.Add(row, uintptr(offset))) = v
}

func (c *RowContainer) isNullAt(row unsafe.Pointer, rc RowColumn) bool {
	return rc.MayBeNull() && isBitSet(row, rc.NullOffset())
}

func (c *RowContainer) IsNullAt(row unsafe.Pointer, column int) bool {
	return c.isNullAt(row, c.rowColumns[column])
}

func (c *RowContainer) fixedSizeAt(column int) int32 {
	return int32(types.TypeSize(c.typeKinds[column]))
}

// VariableSizeAt returns the stored length of a varlen or nested cell,
// 0 for nulls, without touching the heap bytes.
func (c *RowContainer) VariableSizeAt(row unsafe.Pointer, column int) int32 {
	rc := c.rowColumns[column]
	if c.isNullAt(row, rc) {
		return 0
	}
	v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
	return int32(v.Len())
}

// Store writes decoded[index] into the column of a row, maintaining the
// column stats and the row's variable-size counter.
func (c *RowContainer) Store(decoded *vector.Vector, index int, row unsafe.Pointer, column int) error {
	rc := c.rowColumns[column]
	var err error
	switch kind := c.typeKinds[column]; kind {
	case types.T_bool:
		storeFixed[bool](decoded, index, row, rc)
	case types.T_int8:
		storeFixed[int8](decoded, index, row, rc)
	case types.T_int16:
		storeFixed[int16](decoded, index, row, rc)
	case types.T_int32:
		storeFixed[int32](decoded, index, row, rc)
	case types.T_int64:
		storeFixed[int64](decoded, index, row, rc)
	case types.T_uint8:
		storeFixed[uint8](decoded, index, row, rc)
	case types.T_uint16:
		storeFixed[uint16](decoded, index, row, rc)
	case types.T_uint32:
		storeFixed[uint32](decoded, index, row, rc)
	case types.T_uint64:
		storeFixed[uint64](decoded, index, row, rc)
	case types.T_float32:
		storeFixed[float32](decoded, index, row, rc)
	case types.T_float64:
		storeFixed[float64](decoded, index, row, rc)
	case types.T_date:
		storeFixed[types.Date](decoded, index, row, rc)
	case types.T_datetime:
		storeFixed[types.Datetime](decoded, index, row, rc)
	case types.T_timestamp:
		storeFixed[types.Timestamp](decoded, index, row, rc)
	case types.T_decimal64:
		storeFixed[types.Decimal64](decoded, index, row, rc)
	case types.T_decimal128:
		storeFixed[types.Decimal128](decoded, index, row, rc)
	case types.T_uuid:
		storeFixed[types.Uuid](decoded, index, row, rc)
	case types.T_char, types.T_varchar, types.T_binary, types.T_varbinary,
		types.T_blob, types.T_text:
		err = c.storeString(decoded, index, row, rc)
	case types.T_json, types.T_array, types.T_tuple:
		err = c.storeComplexType(decoded, index, row, rc)
	default:
		panic(moerr.NewNYINoCtx("store of type %s", kind))
	}
	if err != nil {
		return err
	}
	c.updateColumnStats(decoded, index, row, column)
	return nil
}

// StoreBatch stores one column of decoded into consecutive rows.
func (c *RowContainer) StoreBatch(decoded *vector.Vector, rows []unsafe.Pointer, column int) error {
	if decoded.Length() < len(rows) {
		panic(moerr.NewInvalidInputNoCtx("vector shorter than row batch"))
	}
	for i, row := range rows {
		if err := c.Store(decoded, i, row, column); err != nil {
			return err
		}
	}
	return nil
}

func storeFixed[T any](decoded *vector.Vector, index int, row unsafe.Pointer, rc RowColumn) {
	if rc.MayBeNull() {
		if decoded.IsNullAt(index) {
			setBit(row, rc.NullOffset())
			return
		}
		clearBit(row, rc.NullOffset())
	}
	SetValueAt(row, rc.Offset(), vector.GetFixedAt[T](decoded, index))
}

func (c *RowContainer) storeString(decoded *vector.Vector, index int, row unsafe.Pointer, rc RowColumn) error {
	if rc.MayBeNull() {
		if decoded.IsNullAt(index) {
			setBit(row, rc.NullOffset())
			return nil
		}
		clearBit(row, rc.NullOffset())
	}
	data := decoded.GetBytesAt(index)
	return c.trackRowSize(row, func() error {
		return c.strHeap.CopyMultipart(data, row, rc.Offset())
	})
}

func (c *RowContainer) storeComplexType(decoded *vector.Vector, index int, row unsafe.Pointer, rc RowColumn) error {
	if rc.MayBeNull() {
		if decoded.IsNullAt(index) {
			setBit(row, rc.NullOffset())
			return nil
		}
		clearBit(row, rc.NullOffset())
	}
	return c.trackRowSize(row, func() error {
		stream := c.strHeap.NewWrite()
		c.serde.Serialize(decoded, index, stream)
		p, n, err := c.strHeap.FinishWrite(stream)
		if err != nil {
			return err
		}
		v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
		if n == 0 {
			v.Reset()
		} else {
			v.SetPtr(p, n)
		}
		return nil
	})
}

// trackRowSize adds the string heap bytes allocated inside fn to the
// row's variable-size counter.
func (c *RowContainer) trackRowSize(row unsafe.Pointer, fn func() error) error {
	if c.rowSizeOffset == 0 {
		return fn()
	}
	before := c.strHeap.TotalAllocated()
	if err := fn(); err != nil {
		return err
	}
	delta := c.strHeap.TotalAllocated() - before
	p := (*uint32)(unsafe.Add(row, uintptr(c.rowSizeOffset)))
	*p += uint32(delta)
	return nil
}

func (c *RowContainer) updateColumnStats(decoded *vector.Vector, index int, row unsafe.Pointer, column int) {
	stats := &c.columnStats[column]
	if decoded.IsNullAt(index) && c.rowColumns[column].MayBeNull() {
		stats.addNullCell()
	} else if c.typs[column].IsFixedLen() {
		stats.addCellSize(c.fixedSizeAt(column))
	} else {
		stats.addCellSize(c.VariableSizeAt(row, column))
	}
}

func (c *RowContainer) updateColumnStatsFromRow(row unsafe.Pointer, column int) {
	stats := &c.columnStats[column]
	if c.isNullAt(row, c.rowColumns[column]) {
		stats.addNullCell()
	} else if c.typs[column].IsFixedLen() {
		stats.addCellSize(c.fixedSizeAt(column))
	} else {
		stats.addCellSize(c.VariableSizeAt(row, column))
	}
}

// varlenBytesCopy materializes the full cell bytes as a fresh slice.
func (c *RowContainer) varlenBytesCopy(row unsafe.Pointer, rc RowColumn) []byte {
	v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
	length := v.Len()
	out := make([]byte, length)
	if v.IsInline() {
		copy(out, v.InlineBytes())
	} else {
		p, _ := v.Ptr()
		c.strHeap.ReadAll(p, length, out)
	}
	return out
}

// ExtractColumn appends the cells of the given rows to vec, in order.
func (c *RowContainer) ExtractColumn(rows []unsafe.Pointer, column int, vec *vector.Vector) {
	rc := c.rowColumns[column]
	switch kind := c.typeKinds[column]; kind {
	case types.T_bool:
		extractFixed[bool](c, rows, rc, vec)
	case types.T_int8:
		extractFixed[int8](c, rows, rc, vec)
	case types.T_int16:
		extractFixed[int16](c, rows, rc, vec)
	case types.T_int32:
		extractFixed[int32](c, rows, rc, vec)
	case types.T_int64:
		extractFixed[int64](c, rows, rc, vec)
	case types.T_uint8:
		extractFixed[uint8](c, rows, rc, vec)
	case types.T_uint16:
		extractFixed[uint16](c, rows, rc, vec)
	case types.T_uint32:
		extractFixed[uint32](c, rows, rc, vec)
	case types.T_uint64:
		extractFixed[uint64](c, rows, rc, vec)
	case types.T_float32:
		extractFixed[float32](c, rows, rc, vec)
	case types.T_float64:
		extractFixed[float64](c, rows, rc, vec)
	case types.T_date:
		extractFixed[types.Date](c, rows, rc, vec)
	case types.T_datetime:
		extractFixed[types.Datetime](c, rows, rc, vec)
	case types.T_timestamp:
		extractFixed[types.Timestamp](c, rows, rc, vec)
	case types.T_decimal64:
		extractFixed[types.Decimal64](c, rows, rc, vec)
	case types.T_decimal128:
		extractFixed[types.Decimal128](c, rows, rc, vec)
	case types.T_uuid:
		extractFixed[types.Uuid](c, rows, rc, vec)
	case types.T_char, types.T_varchar, types.T_binary, types.T_varbinary,
		types.T_blob, types.T_text,
		types.T_json, types.T_array, types.T_tuple:
		for _, row := range rows {
			if c.isNullAt(row, rc) {
				vector.AppendBytes(vec, nil, true)
				continue
			}
			vector.AppendBytes(vec, c.varlenBytesCopy(row, rc), false)
		}
	default:
		panic(moerr.NewNYINoCtx("extract of type %s", kind))
	}
}

func extractFixed[T any](c *RowContainer, rows []unsafe.Pointer, rc RowColumn, vec *vector.Vector) {
	var zero T
	for _, row := range rows {
		if c.isNullAt(row, rc) {
			vector.AppendFixed(vec, zero, true)
			continue
		}
		vector.AppendFixed(vec, ValueAt[T](row, rc.Offset()), false)
	}
}
