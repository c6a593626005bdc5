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
)

// Skip advances the cursor by numRows.  The stride is the fixed row
// size plus the normalized-key prefix while prefixed rows remain ahead
// of the cursor.  Skipping past the end clamps RowNumber to the row
// count and nulls the cursor.
func (c *RowContainer) Skip(iter *RowContainerIterator, numRows int) {
	if iter.EndOfRun == nil {
		iter.NormalizedKeysLeft = c.numRowsWithNormalizedKey
		iter.normalizedKeySize = c.originalNormalizedKeySize
		if c.rows.numRanges() == 0 {
			iter.RowNumber = c.numRows
			iter.RowBegin = nil
			return
		}
		r := c.rows.rangeAt(0)
		iter.RowBegin = unsafe.Pointer(&r[0])
		iter.EndOfRun = unsafe.Add(iter.RowBegin, len(r))
	}
	if iter.RowNumber+numRows >= c.numRows {
		iter.RowNumber = c.numRows
		iter.RowBegin = nil
		return
	}
	toSkip := numRows
	if iter.NormalizedKeysLeft > 0 && iter.NormalizedKeysLeft < toSkip {
		// consume the prefixed rows at the wide stride first
		n := iter.NormalizedKeysLeft
		c.Skip(iter, n)
		toSkip -= n
	}
	rowSize := int(c.fixedRowSize)
	if iter.NormalizedKeysLeft > 0 {
		rowSize += int(c.originalNormalizedKeySize)
	}
	remaining := toSkip
	for remaining > 0 {
		runLeft := int(uintptr(iter.EndOfRun) - uintptr(iter.RowBegin))
		if remaining*rowSize <= runLeft-rowSize {
			iter.RowBegin = unsafe.Add(iter.RowBegin, remaining*rowSize)
			break
		}
		rowsInRun := runLeft / rowSize
		remaining -= rowsInRun
		iter.AllocationIndex++
		r := c.rows.rangeAt(int(iter.AllocationIndex))
		iter.RowBegin = unsafe.Pointer(&r[0])
		iter.EndOfRun = unsafe.Add(iter.RowBegin, len(r))
	}
	if iter.NormalizedKeysLeft > 0 {
		iter.NormalizedKeysLeft -= toSkip
	}
	iter.RowNumber += toSkip
}

// ListRows fills result with up to maxRows live rows in insertion
// order, resuming from iter, and returns the count.  Freed slots are
// passed over.
func (c *RowContainer) ListRows(iter *RowContainerIterator, maxRows int, result []unsafe.Pointer) int {
	if iter.AllocationIndex == 0 && iter.RowOffset == 0 {
		iter.NormalizedKeysLeft = c.numRowsWithNormalizedKey
		iter.normalizedKeySize = c.originalNormalizedKeySize
	}
	rowSize := int(c.fixedRowSize)
	if iter.NormalizedKeysLeft > 0 {
		rowSize += int(c.originalNormalizedKeySize)
	}
	count := 0
	numAllocations := c.rows.numRanges()
	for i := int(iter.AllocationIndex); i < numAllocations; i++ {
		r := c.rows.rangeAt(i)
		limit := len(r)
		row := int(iter.RowOffset)
		for row+rowSize <= limit {
			var prefix int
			if iter.NormalizedKeysLeft > 0 {
				prefix = int(c.originalNormalizedKeySize)
			}
			res := unsafe.Pointer(&r[row+prefix])
			row += rowSize
			if iter.NormalizedKeysLeft > 0 {
				iter.NormalizedKeysLeft--
				if iter.NormalizedKeysLeft == 0 {
					rowSize -= int(c.originalNormalizedKeySize)
				}
			}
			if isBitSet(res, c.freeFlagOffset) {
				continue
			}
			result[count] = res
			count++
			if count == maxRows {
				iter.AllocationIndex = int32(i)
				iter.RowOffset = int32(row)
				iter.RowNumber += count
				return count
			}
		}
		iter.RowOffset = 0
	}
	iter.AllocationIndex = int32(numAllocations)
	iter.RowNumber += count
	return count
}
