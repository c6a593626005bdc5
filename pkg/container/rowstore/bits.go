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
)

func isBitSet(row unsafe.Pointer, idx int32) bool {
	b := *(*uint8)(unsafe.Add(row, uintptr(idx>>3)))
	return b&(1<<(idx&7)) != 0
}

func setBit(row unsafe.Pointer, idx int32) {
	p := (*uint8)(unsafe.Add(row, uintptr(idx>>3)))
	*p |= 1 << (idx & 7)
}

func clearBit(row unsafe.Pointer, idx int32) {
	p := (*uint8)(unsafe.Add(row, uintptr(idx>>3)))
	*p &^= 1 << (idx & 7)
}

func nbytes(nbits int32) int32 {
	return (nbits + 7) >> 3
}

func roundUp(value, factor int32) int32 {
	return (value + factor - 1) / factor * factor
}

// combineAlignments returns the larger alignment, checking both are
// powers of two.
func combineAlignments(a, b int32) int32 {
	if bits.OnesCount32(uint32(a)) != 1 || bits.OnesCount32(uint32(b)) != 1 {
		panic(moerr.NewInternalErrorNoCtxf("alignment can only be power of 2, got %d and %d", a, b))
	}
	if a > b {
		return a
	}
	return b
}

// rowBytes views n bytes of a row as a slice.
func rowBytes(row unsafe.Pointer, offset int32, n int32) []byte {
	return unsafe.Slice((*byte)(unsafe.Add(row, uintptr(offset))), n)
}
