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
	"sort"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/mpool"
)

const kRangeSize = 256 << 10

// rowAllocator is the bump allocator behind the container.  Rows are
// carved from large pool ranges; each range base is aligned to the
// container alignment, so rows stay aligned as long as the stride is a
// multiple of it.  Ranges are never reused until clear.
type rowAllocator struct {
	pool      *mpool.MPool
	alignment int32

	// raw holds the pool slices, ranges the aligned views rows live in
	raw    [][]byte
	ranges [][]byte
	off    int

	retained int64
}

func newRowAllocator(pool *mpool.MPool, alignment int32) rowAllocator {
	return rowAllocator{pool: pool, alignment: alignment}
}

// allocateFixed hands out size bytes for one row slab.
func (a *rowAllocator) allocateFixed(size int32) (unsafe.Pointer, error) {
	if len(a.ranges) == 0 || a.off+int(size) > len(a.ranges[len(a.ranges)-1]) {
		if err := a.newRange(int(size)); err != nil {
			return nil, err
		}
	}
	r := a.ranges[len(a.ranges)-1]
	p := unsafe.Pointer(&r[a.off])
	a.off += int(size)
	return p, nil
}

func (a *rowAllocator) newRange(atLeast int) error {
	size := kRangeSize
	if atLeast+int(a.alignment) > size {
		size = atLeast + int(a.alignment)
	}
	data, err := a.pool.Alloc(size)
	if err != nil {
		return err
	}
	a.raw = append(a.raw, data)
	a.retained += int64(size)

	// align the usable view so every row lands on the container
	// alignment
	base := uintptr(unsafe.Pointer(&data[0]))
	pad := int((uintptr(a.alignment) - base%uintptr(a.alignment)) % uintptr(a.alignment))
	a.ranges = append(a.ranges, data[pad:])
	a.off = 0
	return nil
}

func (a *rowAllocator) numRanges() int {
	return len(a.ranges)
}

// rangeAt returns the row bytes of range i; the last range is clipped
// to its written portion.
func (a *rowAllocator) rangeAt(i int) []byte {
	if i == len(a.ranges)-1 {
		return a.ranges[i][:a.off]
	}
	return a.ranges[i]
}

func (a *rowAllocator) allocatedBytes() int64 {
	return a.retained
}

// freeBytes is the unwritten tail of the current range.
func (a *rowAllocator) freeBytes() int64 {
	if len(a.ranges) == 0 {
		return 0
	}
	return int64(len(a.ranges[len(a.ranges)-1]) - a.off)
}

func (a *rowAllocator) clear() {
	for _, data := range a.raw {
		a.pool.Free(data)
	}
	a.raw = nil
	a.ranges = nil
	a.off = 0
	a.retained = 0
}

// findRows filters candidates down to the addresses that lie inside one
// of the arena's ranges, by binary search over the sorted range starts.
func (a *rowAllocator) findRows(candidates []unsafe.Pointer, result []unsafe.Pointer) int {
	if len(a.ranges) == 0 {
		return 0
	}
	type span struct {
		start uintptr
		size  uintptr
	}
	spans := make([]span, len(a.ranges))
	for i := range a.ranges {
		r := a.rangeAt(i)
		if len(r) == 0 {
			continue
		}
		spans[i] = span{uintptr(unsafe.Pointer(&r[0])), uintptr(len(r))}
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	n := 0
	for _, row := range candidates {
		addr := uintptr(row)
		// first span with start > addr
		idx := sort.Search(len(spans), func(i int) bool {
			return spans[i].start > addr
		})
		if idx == 0 {
			continue
		}
		s := spans[idx-1]
		if addr < s.start+s.size {
			result[n] = row
			n++
		}
	}
	return n
}
