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

	"github.com/vectorsql/rowstore/pkg/container/stringheap"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// NotNullOffset marks the descriptor of a column that can never be null
// (a key of a container built with nullableKeys false).
const NotNullOffset = int32(-1)

// numAccumulatorFlags is the per-accumulator flag width: a null bit
// followed by an initialized bit.
const numAccumulatorFlags = 2

// RowColumn packs the in-row location of one column: the payload offset
// and the null bit index counted from the row start.
type RowColumn struct {
	offset     int32
	nullOffset int32
}

func (rc RowColumn) Offset() int32 {
	return rc.offset
}

func (rc RowColumn) NullOffset() int32 {
	return rc.nullOffset
}

func (rc RowColumn) MayBeNull() bool {
	return rc.nullOffset != NotNullOffset
}

func (rc RowColumn) nullByte() int32 {
	return rc.nullOffset >> 3
}

func (rc RowColumn) nullMask() uint8 {
	return 1 << (rc.nullOffset & 7)
}

// initializedByte/initializedMask locate the initialized bit of an
// accumulator, always in the same byte as its null bit.
func (rc RowColumn) initializedByte() int32 {
	return (rc.nullOffset + 1) >> 3
}

func (rc RowColumn) initializedMask() uint8 {
	return 1 << ((rc.nullOffset + 1) & 7)
}

// CompareFlags alter one column comparison.  The zero value is a
// descending, nulls-last, full comparison treating nulls as values.
type CompareFlags struct {
	NullsFirst bool
	Ascending  bool
	// EqualsOnly lets the comparison return any non-zero sign.
	EqualsOnly bool
	// StopAtNull asks for null-propagating semantics, which the
	// container does not support for nested kinds.
	StopAtNull bool
}

func (f CompareFlags) nullAsValue() bool {
	return !f.StopAtNull
}

// SortOrder is the per-key ordering of a RowComparator.
type SortOrder struct {
	Ascending  bool
	NullsFirst bool
}

// Accumulator is the aggregate-state trait the container hosts but does
// not define.  The payload lives inside the row at the offset assigned
// during layout; implementations learn that offset from the caller.
type Accumulator interface {
	IsFixedSize() bool
	FixedWidthSize() int32
	UsesExternalMemory() bool
	// Alignment must be a power of two.
	Alignment() int32
	SpillType() types.Type
	// ExtractForSpill appends one spill value per row to result.
	ExtractForSpill(rows []unsafe.Pointer, result *vector.Vector)
	// Destroy releases any out-of-row state of the given rows.
	Destroy(rows []unsafe.Pointer)
}

// RowSerde serializes, hashes and compares nested values kept in the
// string heap as opaque byte streams.
type RowSerde interface {
	Serialize(vec *vector.Vector, index int, out *stringheap.ByteStream)
	Hash(data []byte, typ types.Type) uint64
	// Compare orders the serialized left value against vec[index].
	Compare(left []byte, vec *vector.Vector, index int, typ types.Type, flags CompareFlags) int
	CompareBytes(left, right []byte, typ types.Type, flags CompareFlags) int
}

// RowContainerIterator walks the arena ranges in insertion order.  The
// zero value positions before the first row.
type RowContainerIterator struct {
	AllocationIndex int32

	// byte offset into the current range, used by ListRows
	RowOffset int32

	// ordinal of the current row
	RowNumber int

	// cursor and range end, used by Skip
	RowBegin unsafe.Pointer
	EndOfRun unsafe.Pointer

	// rows that still carry the normalized-key prefix ahead of the
	// cursor, and the prefix width
	NormalizedKeysLeft int
	normalizedKeySize  int32
}

// CurrentRow returns the row under the cursor, nil when exhausted.
func (iter *RowContainerIterator) CurrentRow() unsafe.Pointer {
	if iter.RowBegin == nil {
		return nil
	}
	if iter.NormalizedKeysLeft > 0 {
		return unsafe.Add(iter.RowBegin, uintptr(iter.normalizedKeySize))
	}
	return iter.RowBegin
}

func (iter *RowContainerIterator) Reset() {
	*iter = RowContainerIterator{}
}
