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

package ring

import (
	"unsafe"

	"github.com/axiomhq/hyperloglog"
	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/container/rowstore"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// ApproxCountDistinctRing approximates NDV with one hyperloglog sketch
// per group.  The sketches live outside the rows; the in-row payload is
// a 1-based handle into the ring, so the accumulator uses external
// memory and must be destroyed with the rows.
type ApproxCountDistinctRing struct {
	offset   int32
	sketches []*hyperloglog.Sketch
}

func NewApproxCountDistinctRing() *ApproxCountDistinctRing {
	return &ApproxCountDistinctRing{}
}

func (r *ApproxCountDistinctRing) SetOffset(offset int32) {
	r.offset = offset
}

func (r *ApproxCountDistinctRing) IsFixedSize() bool {
	return true
}

func (r *ApproxCountDistinctRing) FixedWidthSize() int32 {
	return 8
}

func (r *ApproxCountDistinctRing) UsesExternalMemory() bool {
	return true
}

func (r *ApproxCountDistinctRing) Alignment() int32 {
	return 8
}

func (r *ApproxCountDistinctRing) SpillType() types.Type {
	return types.New(types.T_varbinary)
}

func (r *ApproxCountDistinctRing) handle(row unsafe.Pointer) uint64 {
	return rowstore.ValueAt[uint64](row, r.offset)
}

func (r *ApproxCountDistinctRing) sketchOf(row unsafe.Pointer) *hyperloglog.Sketch {
	h := r.handle(row)
	if h == 0 {
		panic(moerr.NewInternalErrorNoCtx("approx count distinct on an uninitialized group"))
	}
	return r.sketches[h-1]
}

// Init gives a fresh group its sketch.
func (r *ApproxCountDistinctRing) Init(row unsafe.Pointer) {
	r.sketches = append(r.sketches, hyperloglog.New14())
	rowstore.SetValueAt(row, r.offset, uint64(len(r.sketches)))
}

func (r *ApproxCountDistinctRing) Insert(row unsafe.Pointer, data []byte) {
	r.sketchOf(row).Insert(data)
}

func (r *ApproxCountDistinctRing) Estimate(row unsafe.Pointer) uint64 {
	return r.sketchOf(row).Estimate()
}

func (r *ApproxCountDistinctRing) ExtractForSpill(rows []unsafe.Pointer, result *vector.Vector) {
	for _, row := range rows {
		data, err := r.sketchOf(row).MarshalBinary()
		if err != nil {
			panic(moerr.NewInternalErrorNoCtxf("marshal hyperloglog sketch: %v", err))
		}
		vector.AppendBytes(result, data, false)
	}
}

// Destroy drops the sketches of the given rows.  Rows never
// initialized hold the zero handle and are skipped.
func (r *ApproxCountDistinctRing) Destroy(rows []unsafe.Pointer) {
	for _, row := range rows {
		h := r.handle(row)
		if h == 0 {
			continue
		}
		r.sketches[h-1] = nil
		rowstore.SetValueAt(row, r.offset, uint64(0))
	}
}
