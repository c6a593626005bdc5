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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vectorsql/rowstore/pkg/common/mpool"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

func testPool() *mpool.MPool {
	return mpool.New("rowstore-test", mpool.NoLimit)
}

// testAccumulator is a configurable accumulator stub; the payload is a
// plain int64 counter when wide enough.
type testAccumulator struct {
	fixedSize int32
	align     int32
	external  bool
	offset    int32
	destroyed int
}

func (a *testAccumulator) IsFixedSize() bool          { return true }
func (a *testAccumulator) FixedWidthSize() int32      { return a.fixedSize }
func (a *testAccumulator) UsesExternalMemory() bool   { return a.external }
func (a *testAccumulator) Alignment() int32           { return a.align }
func (a *testAccumulator) SpillType() types.Type      { return types.New(types.T_int64) }
func (a *testAccumulator) Destroy(rows []unsafe.Pointer) {
	a.destroyed += len(rows)
}

func (a *testAccumulator) ExtractForSpill(rows []unsafe.Pointer, result *vector.Vector) {
	for _, row := range rows {
		vector.AppendFixed(result, ValueAt[int64](row, a.offset), false)
	}
}

func fixedVec[T any](kind types.T, vals []T, nullAt ...int) *vector.Vector {
	vec := vector.New(types.New(kind))
	nullSet := map[int]bool{}
	for _, i := range nullAt {
		nullSet[i] = true
	}
	for i, v := range vals {
		vector.AppendFixed(vec, v, nullSet[i])
	}
	return vec
}

func bytesVec(kind types.T, vals [][]byte, nullAt ...int) *vector.Vector {
	vec := vector.New(types.New(kind))
	nullSet := map[int]bool{}
	for _, i := range nullAt {
		nullSet[i] = true
	}
	for i, v := range vals {
		vector.AppendBytes(vec, v, nullSet[i])
	}
	return vec
}

func storeRow(t *testing.T, c *RowContainer, vecs []*vector.Vector, index int) unsafe.Pointer {
	t.Helper()
	row, err := c.NewRow()
	require.NoError(t, err)
	for col, vec := range vecs {
		require.NoError(t, c.Store(vec, index, row, col))
	}
	return row
}

func storeRows(t *testing.T, c *RowContainer, vecs []*vector.Vector, n int) []unsafe.Pointer {
	t.Helper()
	rows := make([]unsafe.Pointer, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, storeRow(t, c, vecs, i))
	}
	return rows
}
