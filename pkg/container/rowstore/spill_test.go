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
	"bytes"
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

func TestSpillRoundTrip(t *testing.T) {
	schema := typs(types.T_int64, types.T_varchar)
	src := NewKeyContainer(schema, true, testPool())

	const n = 500
	keys := make([]int64, n)
	strs := make([][]byte, n)
	for i := range keys {
		keys[i] = int64(i)
		strs[i] = []byte(fmt.Sprintf("value-%04d-%s", i, bytes.Repeat([]byte{'x'}, i%97)))
	}
	vecs := []*vector.Vector{
		fixedVec(types.T_int64, keys, 13, 250),
		bytesVec(types.T_varchar, strs, 7),
	}
	srcRows := storeRows(t, src, vecs, n)

	var buf bytes.Buffer
	require.NoError(t, src.WriteSpill(&buf))
	require.Less(t, buf.Len(), n*120) // lz4 keeps the frame compact

	dst := NewKeyContainer(schema, true, testPool())
	require.NoError(t, dst.ReadSpill(&buf))
	require.Equal(t, n, dst.NumRows())

	var iter RowContainerIterator
	dstRows := make([]unsafe.Pointer, n)
	require.Equal(t, n, dst.ListRows(&iter, n, dstRows))

	for i := range srcRows {
		for col := 0; col < 2; col++ {
			require.Equal(t, src.IsNullAt(srcRows[i], col), dst.IsNullAt(dstRows[i], col))
			srcHash := make([]uint64, 1)
			dstHash := make([]uint64, 1)
			src.Hash(col, srcRows[i:i+1], false, srcHash)
			dst.Hash(col, dstRows[i:i+1], false, dstHash)
			require.Equal(t, srcHash[0], dstHash[0])
		}
	}
}

func TestExtractAccumulatorForSpill(t *testing.T) {
	acc := &testAccumulator{fixedSize: 8, align: 8}
	c := NewRowContainer(typs(types.T_int64), false, []Accumulator{acc},
		nil, false, false, false, false, testPool())
	acc.offset = c.AccumulatorColumnAt(0).Offset()

	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2, 3})}, 1)
	rows = append(rows, storeRow(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{2})}, 0))
	for i, row := range rows {
		SetValueAt(row, acc.offset, int64(100+i))
	}

	out := vector.New(acc.SpillType())
	c.ExtractAccumulator(0, rows, out)
	require.Equal(t, 2, out.Length())
	require.EqualValues(t, 100, vector.GetFixedAt[int64](out, 0))
	require.EqualValues(t, 101, vector.GetFixedAt[int64](out, 1))
}
