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
	"math"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/container/types"
)

// NullHash is the fixed hash of a null cell.
const NullHash = uint64(1)

// canonical quiet NaN bit patterns, so that every NaN hashes alike
const (
	canonicalNaN32 = uint32(0x7fc00000)
	canonicalNaN64 = uint64(0x7ff8000000000000)
)

func fmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// HashMix folds a new column hash into an existing row hash.
func HashMix(upper, lower uint64) uint64 {
	return fmix64(upper ^ (lower + 0x9e3779b97f4a7c15 + upper<<6 + upper>>2))
}

// HashBytes hashes an arbitrary byte string.
func HashBytes(data []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, b := range data {
		h ^= uint64(b)
		h *= prime64
	}
	return fmix64(h)
}

func hashFloat32(v float32) uint64 {
	bits := math.Float32bits(v)
	if v != v {
		bits = canonicalNaN32
	}
	return fmix64(uint64(bits))
}

func hashFloat64(v float64) uint64 {
	bits := math.Float64bits(v)
	if v != v {
		bits = canonicalNaN64
	}
	return fmix64(bits)
}

// Hash fills result with the hash of one column over the given rows.
// With mix, the column hash is combined into the existing result values
// instead of overwriting them.
func (c *RowContainer) Hash(column int, rows []unsafe.Pointer, mix bool, result []uint64) {
	rc := c.rowColumns[column]
	kind := c.typeKinds[column]
	typ := c.typs[column]
	comparer, hasComparer := types.GetComparer(kind)
	var scratch []byte

	for i, row := range rows {
		var h uint64
		switch {
		case c.isNullAt(row, rc):
			h = NullHash
		case hasComparer:
			h = comparer.HashFixed(rowBytes(row, rc.Offset(), c.fixedSizeAt(column)))
		case kind == types.T_float32:
			h = hashFloat32(ValueAt[float32](row, rc.Offset()))
		case kind == types.T_float64:
			h = hashFloat64(ValueAt[float64](row, rc.Offset()))
		case kind.IsVarlen():
			v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
			h = HashBytes(c.strHeap.ContiguousBytes(v, &scratch))
		case kind.IsTuple():
			v := (*types.Varlena)(unsafe.Add(row, uintptr(rc.Offset())))
			h = c.serde.Hash(c.strHeap.ContiguousBytes(v, &scratch), typ)
		default:
			h = HashBytes(rowBytes(row, rc.Offset(), c.fixedSizeAt(column)))
		}
		if mix {
			result[i] = HashMix(result[i], h)
		} else {
			result[i] = h
		}
	}
}
