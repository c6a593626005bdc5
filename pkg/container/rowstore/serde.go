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
	"encoding/binary"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/container/stringheap"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// bytesSerde is the default serde for nested kinds: the vector's
// canonical value bytes are the serialized form, hashed and ordered
// bytewise.
type bytesSerde struct{}

func (bytesSerde) Serialize(vec *vector.Vector, index int, out *stringheap.ByteStream) {
	out.Write(vec.GetBytesAt(index))
}

func (bytesSerde) Hash(data []byte, _ types.Type) uint64 {
	return HashBytes(data)
}

func (bytesSerde) Compare(left []byte, vec *vector.Vector, index int, _ types.Type, _ CompareFlags) int {
	return bytes.Compare(left, vec.GetBytesAt(index))
}

func (bytesSerde) CompareBytes(left, right []byte, _ types.Type, _ CompareFlags) int {
	return bytes.Compare(left, right)
}

// extractVariableSizeAt writes one varlen cell as 4 little-endian size
// bytes followed by the data, 4 zero bytes for nulls, and returns the
// bytes written.
func (c *RowContainer) extractVariableSizeAt(row unsafe.Pointer, column int, output []byte) int {
	rc := c.rowColumns[column]
	if c.isNullAt(row, rc) {
		binary.LittleEndian.PutUint32(output, 0)
		return 4
	}
	v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
	size := v.Len()
	binary.LittleEndian.PutUint32(output, uint32(size))
	if v.IsInline() {
		copy(output[4:], v.InlineBytes())
	} else {
		p, _ := v.Ptr()
		c.strHeap.ReadAll(p, size, output[4:4+size])
	}
	return 4 + size
}

// storeVariableSizeAt reloads one serialized varlen cell into the row
// and returns the bytes consumed.
func (c *RowContainer) storeVariableSizeAt(data []byte, row unsafe.Pointer, column int) (int, error) {
	rc := c.rowColumns[column]
	size := int(binary.LittleEndian.Uint32(data))
	v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
	if size == 0 {
		v.Reset()
		return 4, nil
	}
	if c.typeKinds[column].IsVarlen() {
		if err := c.strHeap.CopyMultipart(data[4:4+size], row, rc.Offset()); err != nil {
			return 0, err
		}
		return 4 + size, nil
	}
	p, err := c.strHeap.AllocateBytes(data[4 : 4+size])
	if err != nil {
		return 0, err
	}
	v.SetPtr(p, size)
	return 4 + size, nil
}

// ExtractSerializedRows appends one serialized blob per row to result.
// The blob is the flag bytes followed by the columns in order, fixed
// columns as raw slot bytes, varlen columns as a 4-byte size and the
// data.
func (c *RowContainer) ExtractSerializedRows(rows []unsafe.Pointer, result *vector.Vector) {
	fixedWidthRowSize := 0
	hasVariableWidth := false
	for i := range c.typs {
		if c.typs[i].IsFixedLen() {
			fixedWidthRowSize += int(c.fixedSizeAt(i))
		} else {
			hasVariableWidth = true
		}
	}
	totalBytes := (int(c.flagBytes) + fixedWidthRowSize) * len(rows)
	if hasVariableWidth {
		for _, row := range rows {
			for i := range c.typs {
				if !c.typs[i].IsFixedLen() {
					totalBytes += 4 + int(c.VariableSizeAt(row, i))
				}
			}
		}
	}

	buffer := make([]byte, totalBytes)
	written := 0
	for _, row := range rows {
		start := written
		written += copy(buffer[written:], rowBytes(row, c.flagBlockOffset, c.flagBytes))
		for i := range c.typs {
			if c.typs[i].IsFixedLen() {
				rc := c.rowColumns[i]
				written += copy(buffer[written:], rowBytes(row, rc.Offset(), c.fixedSizeAt(i)))
			} else {
				written += c.extractVariableSizeAt(row, i, buffer[written:])
			}
		}
		vector.AppendBytes(result, buffer[start:written], false)
	}
	if written != totalBytes {
		panic(moerr.NewInternalErrorNoCtxf("serialized %d of %d bytes", written, totalBytes))
	}
}

// StoreSerializedRow is the inverse of ExtractSerializedRows for one
// blob, loading it into an initialized row of the same layout.
func (c *RowContainer) StoreSerializedRow(serialized *vector.Vector, index int, row unsafe.Pointer) error {
	if serialized.IsNullAt(index) {
		panic(moerr.NewInvalidInputNoCtx("null serialized row"))
	}
	return c.storeSerializedBytes(serialized.GetBytesAt(index), row)
}

func (c *RowContainer) storeSerializedBytes(data []byte, row unsafe.Pointer) error {
	copy(rowBytes(row, c.flagBlockOffset, c.flagBytes), data[:c.flagBytes])
	offset := int(c.flagBytes)
	return c.trackRowSize(row, func() error {
		for i := range c.typs {
			if c.typs[i].IsFixedLen() {
				rc := c.rowColumns[i]
				size := int(c.fixedSizeAt(i))
				copy(rowBytes(row, rc.Offset(), int32(size)), data[offset:offset+size])
				offset += size
			} else {
				n, err := c.storeVariableSizeAt(data[offset:], row, i)
				if err != nil {
					return err
				}
				offset += n
			}
			c.updateColumnStatsFromRow(row, i)
		}
		return nil
	})
}
