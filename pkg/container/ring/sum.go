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

	"github.com/vectorsql/rowstore/pkg/container/rowstore"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// SumFloat64Ring is a SUM accumulator over doubles.
type SumFloat64Ring struct {
	offset int32
}

func NewSumFloat64Ring() *SumFloat64Ring {
	return &SumFloat64Ring{}
}

func (r *SumFloat64Ring) SetOffset(offset int32) {
	r.offset = offset
}

func (r *SumFloat64Ring) IsFixedSize() bool {
	return true
}

func (r *SumFloat64Ring) FixedWidthSize() int32 {
	return 8
}

func (r *SumFloat64Ring) UsesExternalMemory() bool {
	return false
}

func (r *SumFloat64Ring) Alignment() int32 {
	return 8
}

func (r *SumFloat64Ring) SpillType() types.Type {
	return types.New(types.T_float64)
}

func (r *SumFloat64Ring) Add(row unsafe.Pointer, v float64) {
	rowstore.SetValueAt(row, r.offset, r.Sum(row)+v)
}

func (r *SumFloat64Ring) Sum(row unsafe.Pointer) float64 {
	return rowstore.ValueAt[float64](row, r.offset)
}

func (r *SumFloat64Ring) ExtractForSpill(rows []unsafe.Pointer, result *vector.Vector) {
	for _, row := range rows {
		vector.AppendFixed(result, r.Sum(row), false)
	}
}

func (r *SumFloat64Ring) Destroy(rows []unsafe.Pointer) {
}
