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

// Package rowstore packs tuples into a dense, append-only arena of
// fixed-stride rows, so that group-by, join build sides, order-by and
// spill pipelines can address rows by raw pointer and hash or compare
// them at vector speed.
package rowstore

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/common/mpool"
	"github.com/vectorsql/rowstore/pkg/container/stringheap"
	"github.com/vectorsql/rowstore/pkg/container/types"
)

// normalizedKeyWidth is the width of the prehash digest stored below
// the row pointer of early-inserted rows.
const normalizedKeyWidth = 8

// RowContainer is a collection of rows with an identical, hand-computed
// byte layout:
//
//	keys | pad-to-pointer | flag block | accumulators | dependents |
//	[row size u32] | [next row ptr]
//
// The flag block holds the key null bits (nullable keys only), the
// accumulator (null, initialized) bit pairs starting on a byte
// boundary, the dependent null bits, the optional probed bit and the
// mandatory free bit.  Rows inserted while normalized keys were active
// carry an 8-byte prehash immediately below the row pointer.
type RowContainer struct {
	keyTypes     []types.Type
	nullableKeys bool
	isJoinBuild  bool

	hasNormalizedKeys bool

	// value columns: keys then dependents
	typs      []types.Type
	typeKinds []types.T

	accumulators []Accumulator

	rowColumns  []RowColumn
	accColumns  []RowColumn
	columnStats []Stats

	// byte offset of the flag block
	flagBlockOffset int32
	flagBytes       int32

	freeFlagOffset   int32
	probedFlagOffset int32
	rowSizeOffset    int32
	nextOffset       int32

	fixedRowSize              int32
	alignment                 int32
	originalNormalizedKeySize int32
	normalizedKeySize         int32

	usesExternalMemory bool

	pool    *mpool.MPool
	strHeap *stringheap.StringHeap
	serde   RowSerde

	rows rowAllocator

	numRows                  int
	numRowsWithNormalizedKey int
	numFreeRows              int
	firstFreeRow             unsafe.Pointer

	mutable bool
}

// NewRowContainer computes the row layout for the given schema and
// returns an empty container drawing memory from pool.
func NewRowContainer(
	keyTypes []types.Type,
	nullableKeys bool,
	accumulators []Accumulator,
	dependentTypes []types.Type,
	hasNext bool,
	isJoinBuild bool,
	hasProbedFlag bool,
	hasNormalizedKeys bool,
	pool *mpool.MPool,
) *RowContainer {
	c := &RowContainer{
		keyTypes:          keyTypes,
		nullableKeys:      nullableKeys,
		isJoinBuild:       isJoinBuild,
		hasNormalizedKeys: hasNormalizedKeys,
		accumulators:      accumulators,
		alignment:         int32(unsafe.Sizeof(uintptr(0))),
		pool:              pool,
		strHeap:           stringheap.New(pool),
		serde:             bytesSerde{},
		mutable:           true,
	}

	var offset, flagOffset int32
	var offsets []int32
	var nullOffsets []int32
	isVariableWidth := false

	for _, t := range keyTypes {
		c.typs = append(c.typs, t)
		c.typeKinds = append(c.typeKinds, t.Oid)
		offsets = append(offsets, offset)
		offset += int32(types.TypeSize(t.Oid))
		nullOffsets = append(nullOffsets, flagOffset)
		isVariableWidth = isVariableWidth || !t.IsFixedLen()
		if nullableKeys {
			flagOffset++
		}
	}

	// Make the value area at least pointer wide, so a freed row can
	// thread the free-list link through its first slot.
	if ptr := int32(unsafe.Sizeof(uintptr(0))); offset < ptr {
		offset = ptr
	}
	firstAggregateOffset := offset

	if len(accumulators) > 0 {
		// Move to the next byte so the null and initialized bits of
		// an accumulator always land in the same byte.
		flagOffset = (flagOffset + 7) &^ 7
	}
	var accNullOffsets []int32
	for _, acc := range accumulators {
		accNullOffsets = append(accNullOffsets, flagOffset)
		flagOffset += numAccumulatorFlags
		isVariableWidth = isVariableWidth || !acc.IsFixedSize()
		c.usesExternalMemory = c.usesExternalMemory || acc.UsesExternalMemory()
		c.alignment = combineAlignments(acc.Alignment(), c.alignment)
	}

	for _, t := range dependentTypes {
		c.typs = append(c.typs, t)
		c.typeKinds = append(c.typeKinds, t.Oid)
		nullOffsets = append(nullOffsets, flagOffset)
		flagOffset++
		isVariableWidth = isVariableWidth || !t.IsFixedLen()
	}
	if hasProbedFlag {
		c.probedFlagOffset = flagOffset + firstAggregateOffset*8
		flagOffset++
	}
	c.freeFlagOffset = flagOffset + firstAggregateOffset*8
	flagOffset++

	c.flagBlockOffset = firstAggregateOffset
	c.flagBytes = nbytes(flagOffset)

	// Rebase the null bit indices to count from the row start.
	for i := range nullOffsets {
		nullOffsets[i] += firstAggregateOffset * 8
	}
	for i := range accNullOffsets {
		accNullOffsets[i] += firstAggregateOffset * 8
	}

	offset += c.flagBytes
	for i, acc := range accumulators {
		offset = roundUp(offset, acc.Alignment())
		c.accColumns = append(c.accColumns, RowColumn{
			offset:     offset,
			nullOffset: accNullOffsets[i],
		})
		offset += acc.FixedWidthSize()
	}
	numKeys := len(keyTypes)
	for _, t := range dependentTypes {
		offsets = append(offsets, offset)
		offset += int32(types.TypeSize(t.Oid))
	}
	if isVariableWidth {
		c.rowSizeOffset = offset
		offset += int32(unsafe.Sizeof(uint32(0)))
	}
	if hasNext {
		c.nextOffset = offset
		offset += int32(unsafe.Sizeof(uintptr(0)))
	}
	c.fixedRowSize = roundUp(offset, c.alignment)
	if hasNormalizedKeys {
		c.originalNormalizedKeySize = roundUp(normalizedKeyWidth, c.alignment)
	}
	c.normalizedKeySize = c.originalNormalizedKeySize

	for i := range c.typs {
		nullOffset := nullOffsets[i]
		if i < numKeys && !nullableKeys {
			nullOffset = NotNullOffset
		}
		c.rowColumns = append(c.rowColumns, RowColumn{
			offset:     offsets[i],
			nullOffset: nullOffset,
		})
	}
	c.columnStats = make([]Stats, len(c.typs))
	c.rows = newRowAllocator(pool, c.alignment)
	return c
}

// NewKeyContainer is the common case of a plain group-by or order-by
// container: keys only, no join bookkeeping.
func NewKeyContainer(keyTypes []types.Type, nullableKeys bool, pool *mpool.MPool) *RowContainer {
	return NewRowContainer(keyTypes, nullableKeys, nil, nil,
		false, false, false, false, pool)
}

// SetSerde replaces the serializer used for nested kinds.
func (c *RowContainer) SetSerde(serde RowSerde) {
	c.serde = serde
}

func (c *RowContainer) NumRows() int {
	return c.numRows
}

func (c *RowContainer) NumFreeRows() int {
	return c.numFreeRows
}

// NumRowsWithNormalizedKey counts rows carrying the prehash prefix.
func (c *RowContainer) NumRowsWithNormalizedKey() int {
	return c.numRowsWithNormalizedKey
}

func (c *RowContainer) FixedRowSize() int32 {
	return c.fixedRowSize
}

func (c *RowContainer) Alignment() int32 {
	return c.alignment
}

func (c *RowContainer) FlagBytes() int32 {
	return c.flagBytes
}

func (c *RowContainer) FreeFlagOffset() int32 {
	return c.freeFlagOffset
}

func (c *RowContainer) ProbedFlagOffset() int32 {
	return c.probedFlagOffset
}

func (c *RowContainer) RowSizeOffset() int32 {
	return c.rowSizeOffset
}

func (c *RowContainer) OriginalNormalizedKeySize() int32 {
	return c.originalNormalizedKeySize
}

func (c *RowContainer) NumColumns() int {
	return len(c.typs)
}

func (c *RowContainer) NumKeys() int {
	return len(c.keyTypes)
}

func (c *RowContainer) ColumnType(column int) types.Type {
	return c.typs[column]
}

// ColumnAt returns the descriptor of a value column (keys then
// dependents).
func (c *RowContainer) ColumnAt(column int) RowColumn {
	return c.rowColumns[column]
}

// AccumulatorColumnAt returns the descriptor of an accumulator payload.
func (c *RowContainer) AccumulatorColumnAt(index int) RowColumn {
	return c.accColumns[index]
}

// IsAccumulatorNull reads the null bit of an accumulator.
func (c *RowContainer) IsAccumulatorNull(row unsafe.Pointer, index int) bool {
	return isBitSet(row, c.accColumns[index].NullOffset())
}

func (c *RowContainer) SetAccumulatorNull(row unsafe.Pointer, index int, null bool) {
	if null {
		setBit(row, c.accColumns[index].NullOffset())
	} else {
		clearBit(row, c.accColumns[index].NullOffset())
	}
}

// IsAccumulatorInitialized reads the initialized bit following the
// accumulator's null bit.
func (c *RowContainer) IsAccumulatorInitialized(row unsafe.Pointer, index int) bool {
	return isBitSet(row, c.accColumns[index].NullOffset()+1)
}

func (c *RowContainer) SetAccumulatorInitialized(row unsafe.Pointer, index int) {
	setBit(row, c.accColumns[index].NullOffset()+1)
}

func (c *RowContainer) StringHeap() *stringheap.StringHeap {
	return c.strHeap
}

// ColumnStats returns a copy of the running statistics of a value
// column.
func (c *RowContainer) ColumnStats(column int) Stats {
	return c.columnStats[column]
}

// DisableNormalizedKeys stops reserving the prehash prefix for rows
// inserted from now on; earlier rows keep theirs.
func (c *RowContainer) DisableNormalizedKeys() {
	c.normalizedKeySize = 0
}

// NewRow returns an initialized row, reusing the most recently erased
// slot when one exists.
func (c *RowContainer) NewRow() (unsafe.Pointer, error) {
	if !c.mutable {
		panic(moerr.NewInvalidStateNoCtx("add row into an immutable row container"))
	}
	var row unsafe.Pointer
	if c.firstFreeRow != nil {
		row = c.firstFreeRow
		if !isBitSet(row, c.freeFlagOffset) {
			panic(moerr.NewInternalErrorNoCtx("free list row without free flag"))
		}
		c.firstFreeRow = c.nextFree(row)
		c.numFreeRows--
	} else {
		slab, err := c.rows.allocateFixed(c.fixedRowSize + c.normalizedKeySize)
		if err != nil {
			return nil, err
		}
		row = unsafe.Add(slab, uintptr(c.normalizedKeySize))
		if c.normalizedKeySize > 0 {
			c.numRowsWithNormalizedKey++
		}
	}
	c.numRows++
	return c.initializeRow(row, false), nil
}

// initializeRow prepares a slab for a fresh tuple.  With reuse the slab
// came off the free list and its payloads are released first.
func (c *RowContainer) initializeRow(row unsafe.Pointer, reuse bool) unsafe.Pointer {
	if reuse {
		rows := []unsafe.Pointer{row}
		c.freeVariableWidthFields(rows)
		c.freeAggregates(rows)
	} else if c.rowSizeOffset != 0 {
		// Zero out the views so that clear never walks uninited
		// bytes as heap references.  Setting the whole row is the
		// fastest way.
		bs := rowBytes(row, 0, c.fixedRowSize)
		for i := range bs {
			bs[i] = 0
		}
	}
	// All null bits to zero; for accumulators the pair (null,
	// initialized) resets together.
	flags := rowBytes(row, c.flagBlockOffset, c.flagBytes)
	for i := range flags {
		flags[i] = 0
	}
	if c.rowSizeOffset != 0 {
		*(*uint32)(unsafe.Add(row, uintptr(c.rowSizeOffset))) = 0
	}
	clearBit(row, c.freeFlagOffset)
	return row
}

// ReuseRow recycles a caller-held live row in place, releasing its
// variable-width payloads and accumulator state.
func (c *RowContainer) ReuseRow(row unsafe.Pointer) unsafe.Pointer {
	return c.initializeRow(row, true)
}

func (c *RowContainer) nextFree(row unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(row)
}

func (c *RowContainer) setNextFree(row, next unsafe.Pointer) {
	*(*unsafe.Pointer)(row) = next
}

// NextRow follows the join-build chain pointer.
func (c *RowContainer) NextRow(row unsafe.Pointer) unsafe.Pointer {
	if c.nextOffset == 0 {
		panic(moerr.NewInternalErrorNoCtx("row container built without next pointers"))
	}
	return *(*unsafe.Pointer)(unsafe.Add(row, uintptr(c.nextOffset)))
}

func (c *RowContainer) SetNextRow(row, next unsafe.Pointer) {
	if c.nextOffset == 0 {
		panic(moerr.NewInternalErrorNoCtx("row container built without next pointers"))
	}
	*(*unsafe.Pointer)(unsafe.Add(row, uintptr(c.nextOffset))) = next
}

// SetAllNull turns every nullable column of a live row to null,
// transferring its stats to null cells.
func (c *RowContainer) SetAllNull(row unsafe.Pointer) {
	if isBitSet(row, c.freeFlagOffset) {
		panic(moerr.NewInternalErrorNoCtx("set nulls on a freed row"))
	}
	c.removeOrUpdateRowColumnStats(row, true)
	for _, rc := range c.rowColumns {
		if rc.MayBeNull() {
			setBit(row, rc.NullOffset())
		}
	}
}

func (c *RowContainer) removeOrUpdateRowColumnStats(row unsafe.Pointer, setToNull bool) {
	for i := range c.typs {
		rc := c.rowColumns[i]
		if c.isNullAt(row, rc) {
			c.columnStats[i].removeOrUpdateCellStats(0, true, setToNull)
		} else if c.typs[i].IsFixedLen() {
			c.columnStats[i].removeOrUpdateCellStats(c.fixedSizeAt(i), false, setToNull)
		} else {
			c.columnStats[i].removeOrUpdateCellStats(c.VariableSizeAt(row, i), false, setToNull)
		}
	}
}

// EraseRows frees the given live rows: variable-width payloads go back
// to the string heap, accumulators are destroyed, stats are decremented
// and the slots are pushed on the free list.
func (c *RowContainer) EraseRows(rows []unsafe.Pointer) {
	if !c.mutable {
		panic(moerr.NewInvalidStateNoCtx("erase rows from an immutable row container"))
	}
	c.freeRowsExtraMemory(rows)
	for _, row := range rows {
		if isBitSet(row, c.freeFlagOffset) {
			panic(moerr.NewInternalErrorNoCtx("double free of row"))
		}
		c.removeOrUpdateRowColumnStats(row, false)
		setBit(row, c.freeFlagOffset)
		c.setNextFree(row, c.firstFreeRow)
		c.firstFreeRow = row
	}
	c.numFreeRows += len(rows)
}

func (c *RowContainer) freeVariableWidthFields(rows []unsafe.Pointer) {
	for i, kind := range c.typeKinds {
		if !kind.IsVarlen() && !kind.IsTuple() {
			continue
		}
		rc := c.rowColumns[i]
		for _, row := range rows {
			if c.isNullAt(row, rc) {
				continue
			}
			v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
			c.strHeap.Free(v)
		}
	}
}

func (c *RowContainer) freeAggregates(rows []unsafe.Pointer) {
	for _, acc := range c.accumulators {
		acc.Destroy(rows)
	}
}

func (c *RowContainer) freeRowsExtraMemory(rows []unsafe.Pointer) {
	c.freeVariableWidthFields(rows)
	c.freeAggregates(rows)
	c.numRows -= len(rows)
}

// FindRows filters candidates down to pointers that lie inside the
// arena, the sole guard against dangling pointers held by callers.
func (c *RowContainer) FindRows(candidates []unsafe.Pointer, result []unsafe.Pointer) int {
	return c.rows.findRows(candidates, result)
}

// Clear drops every row, the arena and the string heap.  The container
// becomes mutable and empty again.
func (c *RowContainer) Clear() {
	if c.usesExternalMemory {
		const kBatch = 1000
		rows := make([]unsafe.Pointer, kBatch)
		var iter RowContainerIterator
		for {
			n := c.ListRows(&iter, kBatch, rows)
			if n == 0 {
				break
			}
			c.freeRowsExtraMemory(rows[:n])
		}
	}
	c.rows.clear()
	c.strHeap.Clear()
	c.numRows = 0
	c.numRowsWithNormalizedKey = 0
	c.normalizedKeySize = c.originalNormalizedKeySize
	c.numFreeRows = 0
	c.firstFreeRow = nil
	c.mutable = true

	c.columnStats = make([]Stats, len(c.typs))
}

// EstimateRowSize returns the average live-row footprint, arena and
// string heap included; ok is false for an empty container.
func (c *RowContainer) EstimateRowSize() (int64, bool) {
	if c.numRows == 0 {
		return 0, false
	}
	freeBytes := c.rows.freeBytes() + int64(c.fixedRowSize)*int64(c.numFreeRows)
	usedSize := c.rows.allocatedBytes() - freeBytes +
		c.strHeap.RetainedSize() - c.strHeap.FreeSpace()
	rowSize := usedSize / int64(c.numRows)
	if rowSize <= 0 {
		panic(moerr.NewInternalErrorNoCtx("estimated row size must be positive"))
	}
	return rowSize, true
}

// SizeIncrement estimates the bytes needed to add numRows rows with
// variableLengthBytes of payload, rounded to the allocation unit.
func (c *RowContainer) SizeIncrement(numRows int, variableLengthBytes int64) int64 {
	const kAllocUnit = kRangeSize
	needRows := int64(numRows - c.numFreeRows)
	if needRows < 0 {
		needRows = 0
	}
	needBytes := variableLengthBytes - c.strHeap.FreeSpace()
	if needBytes < 0 {
		needBytes = 0
	}
	rowBytesNeeded := (needRows*int64(c.fixedRowSize) + kAllocUnit - 1) / kAllocUnit * kAllocUnit
	heapBytes := (needBytes + kAllocUnit - 1) / kAllocUnit * kAllocUnit
	return rowBytesNeeded + heapBytes
}

// SetProbedFlag marks rows selected by a join probe.  The probe phase
// may set this bit from multiple threads; the bit only ever goes from 0
// to 1 and nothing else in the byte mutates during probing, so the
// plain store is tolerated.
func (c *RowContainer) SetProbedFlag(rows []unsafe.Pointer) {
	if c.probedFlagOffset == 0 {
		panic(moerr.NewInternalErrorNoCtx("row container built without probed flags"))
	}
	for _, row := range rows {
		// row may be nil for a miss side of a full join
		if row != nil {
			setBit(row, c.probedFlagOffset)
		}
	}
}

func (c *RowContainer) String() string {
	var out strings.Builder
	out.WriteString("Keys: ")
	for i, t := range c.keyTypes {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(t.String())
	}
	if len(c.typs) > len(c.keyTypes) {
		out.WriteString(" Dependents: ")
		for i := len(c.keyTypes); i < len(c.typs); i++ {
			if i > len(c.keyTypes) {
				out.WriteString(", ")
			}
			out.WriteString(c.typs[i].String())
		}
	}
	if len(c.accumulators) > 0 {
		fmt.Fprintf(&out, " Num accumulators: %d", len(c.accumulators))
	}
	fmt.Fprintf(&out, " Num rows: %d", c.numRows)
	return out.String()
}
