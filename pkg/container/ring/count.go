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

// Package ring implements aggregate accumulators hosted inside
// container rows.  Each ring learns its payload offset from the
// container layout before the first row is touched.
package ring

import (
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/container/rowstore"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// CountRing is a COUNT accumulator: an in-row int64.
type CountRing struct {
	offset int32
}

func NewCountRing() *CountRing {
	return &CountRing{}
}

// SetOffset wires the ring to its payload slot, obtained from the
// container's accumulator descriptor.
func (r *CountRing) SetOffset(offset int32) {
	r.offset = offset
}

func (r *CountRing) IsFixedSize() bool {
	return true
}

func (r *CountRing) FixedWidthSize() int32 {
	return 8
}

func (r *CountRing) UsesExternalMemory() bool {
	return false
}

func (r *CountRing) Alignment() int32 {
	return 8
}

func (r *CountRing) SpillType() types.Type {
	return types.New(types.T_int64)
}

func (r *CountRing) Add(row unsafe.Pointer, n int64) {
	rowstore.SetValueAt(row, r.offset, r.Count(row)+n)
}

func (r *CountRing) Count(row unsafe.Pointer) int64 {
	return rowstore.ValueAt[int64](row, r.offset)
}

func (r *CountRing) ExtractForSpill(rows []unsafe.Pointer, result *vector.Vector) {
	for _, row := range rows {
		vector.AppendFixed(result, r.Count(row), false)
	}
}

func (r *CountRing) Destroy(rows []unsafe.Pointer) {
}
