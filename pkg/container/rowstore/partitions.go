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
	"math/bits"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/common/mpool"
	"github.com/vectorsql/rowstore/pkg/vectorize/bytematch"
)

// kPartitionPageSize is a multiple of the match width, so a match block
// never crosses a page.
const kPartitionPageSize = 4096

// RowPartitions assigns each row of a sealed container a partition
// number.  The table is a page-chunked byte array scanned a register at
// a time; pages come zeroed from the pool, which also pads the tail to
// the match width.
type RowPartitions struct {
	capacity int
	size     int
	pool     *mpool.MPool
	pages    [][]byte
}

func newRowPartitions(numRows int, pool *mpool.MPool) (*RowPartitions, error) {
	p := &RowPartitions{capacity: numRows, pool: pool}
	numPages := (numRows + kPartitionPageSize - 1) / kPartitionPageSize
	for i := 0; i < numPages; i++ {
		page, err := pool.Alloc(kPartitionPageSize)
		if err != nil {
			p.Free()
			return nil, err
		}
		p.pages = append(p.pages, page)
	}
	return p, nil
}

func (p *RowPartitions) Capacity() int {
	return p.capacity
}

func (p *RowPartitions) Size() int {
	return p.size
}

// AppendPartitions adds the partition numbers of the next rows.
func (p *RowPartitions) AppendPartitions(partitions []uint8) {
	if p.size+len(partitions) > p.capacity {
		panic(moerr.NewInvalidInputNoCtx("append past the partition table capacity"))
	}
	index := 0
	for index < len(partitions) {
		page := p.pages[p.size/kPartitionPageSize]
		offset := p.size % kPartitionPageSize
		n := copy(page[offset:], partitions[index:])
		p.size += n
		index += n
	}
}

// PartitionAt returns the partition number of one row.
func (p *RowPartitions) PartitionAt(row int) uint8 {
	return p.pages[row/kPartitionPageSize][row%kPartitionPageSize]
}

func (p *RowPartitions) page(row int) ([]byte, int) {
	return p.pages[row/kPartitionPageSize], row % kPartitionPageSize
}

func (p *RowPartitions) Free() {
	for _, page := range p.pages {
		p.pool.Free(page)
	}
	p.pages = nil
}

// CreateRowPartitions seals the container and returns the partition
// table to fill.  This is a one-way transition: further inserts and
// erasures are rejected, only the probed flag stays writable.
func (c *RowContainer) CreateRowPartitions(pool *mpool.MPool) (*RowPartitions, error) {
	if !c.mutable {
		panic(moerr.NewInvalidStateNoCtx("create row partitions once from a row container"))
	}
	c.mutable = false
	return newRowPartitions(c.numRows, pool)
}

// ListPartitionRows fills result with up to maxRows pointers of rows
// whose partition number equals partition, in row order, resuming from
// iter.
func (c *RowContainer) ListPartitionRows(
	iter *RowContainerIterator,
	partition uint8,
	maxRows int,
	rowPartitions *RowPartitions,
	result []unsafe.Pointer,
) int {
	if c.mutable {
		panic(moerr.NewInvalidStateNoCtx("list partition rows from a mutable row container"))
	}
	if rowPartitions.Size() != c.numRows {
		panic(moerr.NewInternalErrorNoCtx("all rows must have a partition"))
	}
	if c.numRows == 0 {
		return 0
	}
	numResults := 0
	for numResults < maxRows && iter.RowNumber < c.numRows {
		// start at a multiple of the match width
		startRow := iter.RowNumber / bytematch.Width * bytematch.Width
		// ignore hits below the cursor in the first block
		firstBlockMask := ^bytematch.LowMask(iter.RowNumber - startRow)
		page, offsetInPage := rowPartitions.page(startRow)
		for ; offsetInPage < len(page); offsetInPage += bytematch.Width {
			hits := bytematch.Mask(page[offsetInPage:], partition) & firstBlockMask
			firstBlockMask = 0xff
			atEnd := false
			if startRow+bytematch.Width >= c.numRows {
				// drop hits past the last row
				hits &= bytematch.LowMask(c.numRows - startRow)
				atEnd = true
			}
			for hits != 0 {
				hit := bits.TrailingZeros8(hits)
				c.Skip(iter, hit+startRow-iter.RowNumber)
				result[numResults] = iter.CurrentRow()
				numResults++
				if numResults == maxRows {
					// step past the hit so the next call resumes
					c.Skip(iter, 1)
					return numResults
				}
				hits &= hits - 1
			}
			startRow += bytematch.Width
			// the tail block may reach past the filled rows
			if atEnd {
				iter.RowNumber = c.numRows
				return numResults
			}
			if iter.RowNumber != startRow {
				c.Skip(iter, startRow-iter.RowNumber)
			}
		}
	}
	return numResults
}
