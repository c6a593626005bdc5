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
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

func TestSimpleScalarGrouping(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int32, types.T_int32), false, testPool())
	vecs := []*vector.Vector{
		fixedVec(types.T_int32, []int32{1, 3, 1}),
		fixedVec(types.T_int32, []int32{2, 4, 2}),
	}
	rows := storeRows(t, c, vecs, 3)
	require.Equal(t, 3, c.NumRows())
	require.Zero(t, c.FixedRowSize()%8)

	hashes := make([]uint64, 3)
	c.Hash(0, rows, false, hashes)
	c.Hash(1, rows, true, hashes)
	require.Equal(t, hashes[0], hashes[2])
	require.NotEqual(t, hashes[0], hashes[1])

	flags := CompareFlags{Ascending: true}
	require.Zero(t, c.Compare(rows[0], rows[2], 0, flags))
	require.Zero(t, c.Compare(rows[0], rows[2], 1, flags))
	require.Negative(t, c.Compare(rows[0], rows[1], 0, flags))
	require.Positive(t, c.Compare(rows[1], rows[0], 0, flags))
}

func TestNullableKeys(t *testing.T) {
	c := NewKeyContainer(typs(types.T_varchar, types.T_int64), true, testPool())
	vecs := []*vector.Vector{
		bytesVec(types.T_varchar, [][]byte{[]byte("ab"), []byte("ab")}),
		fixedVec(types.T_int64, []int64{0, 5}, 0),
	}
	rows := storeRows(t, c, vecs, 2)

	require.EqualValues(t, 2, c.VariableSizeAt(rows[0], 0))
	require.EqualValues(t, 2, c.VariableSizeAt(rows[1], 0))
	require.True(t, c.IsNullAt(rows[0], 1))
	require.False(t, c.IsNullAt(rows[1], 1))

	flags := CompareFlags{NullsFirst: true, Ascending: true}
	require.Zero(t, c.Compare(rows[0], rows[1], 0, flags))
	require.Negative(t, c.Compare(rows[0], rows[1], 1, flags))

	// nulls last flips the null ordering
	require.Positive(t, c.Compare(rows[0], rows[1], 1, CompareFlags{Ascending: true}))

	stats := c.ColumnStats(1)
	require.EqualValues(t, 1, stats.NullCount())
	require.EqualValues(t, 1, stats.NonNullCount())
}

func TestEraseAndReuse(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int64), false, testPool())
	vecs := []*vector.Vector{fixedVec(types.T_int64, []int64{10, 20, 30, 40})}
	rows := storeRows(t, c, vecs, 4)

	c.EraseRows([]unsafe.Pointer{rows[1], rows[2]})
	require.Equal(t, 2, c.NumRows())
	require.Equal(t, 2, c.NumFreeRows())
	stats := c.ColumnStats(0)
	require.EqualValues(t, 2, stats.NonNullCount())
	_, ok := stats.MinBytes()
	require.False(t, ok)

	// LIFO: the last erased row comes back first
	reused, err := c.NewRow()
	require.NoError(t, err)
	require.Equal(t, rows[2], reused)
	require.Equal(t, 1, c.NumFreeRows())
	require.NoError(t, c.Store(fixedVec(types.T_int64, []int64{25}), 0, reused, 0))
	reusedStats := c.ColumnStats(0)
	require.EqualValues(t, 3, reusedStats.NonNullCount())

	next, err := c.NewRow()
	require.NoError(t, err)
	require.Equal(t, rows[1], next)
	require.Zero(t, c.NumFreeRows())
}

func TestDoubleFreePanics(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int64), false, testPool())
	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2})}, 2)
	c.EraseRows(rows[:1])
	require.Panics(t, func() {
		c.EraseRows(rows[:1])
	})
}

func TestEraseReleasesVarlen(t *testing.T) {
	c := NewKeyContainer(typs(types.T_varchar), false, testPool())
	long := make([]byte, 4096)
	for i := range long {
		long[i] = byte(i)
	}
	rows := storeRows(t, c, []*vector.Vector{bytesVec(types.T_varchar, [][]byte{long})}, 1)

	heapBefore := c.StringHeap().FreeSpace()
	c.EraseRows(rows)
	require.Greater(t, c.StringHeap().FreeSpace(), heapBefore)
}

func TestClearWithExternalMemory(t *testing.T) {
	acc := &testAccumulator{fixedSize: 8, align: 8, external: true}
	c := NewRowContainer(typs(types.T_int64), false, []Accumulator{acc},
		nil, false, false, false, false, testPool())
	vecs := []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2, 3})}
	for i := 0; i < 3; i++ {
		storeRow(t, c, vecs[:1], i%3)
	}
	c.Clear()
	require.Equal(t, 3, acc.destroyed)
	require.Zero(t, c.NumRows())
	require.Zero(t, c.NumFreeRows())
	require.Zero(t, c.StringHeap().RetainedSize())

	// the container is usable again after clear
	storeRow(t, c, vecs, 0)
	require.Equal(t, 1, c.NumRows())
}

func TestFindRows(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int64), false, testPool())
	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2, 3})}, 3)

	stray := make([]byte, 64)
	candidates := append(append([]unsafe.Pointer{}, rows...), unsafe.Pointer(&stray[0]))
	result := make([]unsafe.Pointer, len(candidates))
	n := c.FindRows(candidates, result)
	require.Equal(t, 3, n)
	require.ElementsMatch(t, rows, result[:n])
}

func TestSetAllNull(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int64, types.T_varchar), true, testPool())
	vecs := []*vector.Vector{
		fixedVec(types.T_int64, []int64{7}),
		bytesVec(types.T_varchar, [][]byte{[]byte("hello")}),
	}
	rows := storeRows(t, c, vecs, 1)
	c.SetAllNull(rows[0])
	require.True(t, c.IsNullAt(rows[0], 0))
	require.True(t, c.IsNullAt(rows[0], 1))
	stats := c.ColumnStats(0)
	require.EqualValues(t, 1, stats.NullCount())
	require.Zero(t, stats.NonNullCount())
}

func TestEstimateRowSize(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int64), false, testPool())
	_, ok := c.EstimateRowSize()
	require.False(t, ok)

	storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2, 3, 4})}, 4)
	size, ok := c.EstimateRowSize()
	require.True(t, ok)
	require.Positive(t, size)

	require.Positive(t, c.SizeIncrement(10_000, 1<<20))
}

func TestSealedContainerRejectsMutation(t *testing.T) {
	c := NewRowContainer(typs(types.T_int32), false, nil, nil,
		false, true, true, false, testPool())
	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int32, []int32{1, 2})}, 2)

	rp, err := c.CreateRowPartitions(testPool())
	require.NoError(t, err)
	defer rp.Free()

	require.Panics(t, func() { _, _ = c.NewRow() })
	require.Panics(t, func() { c.EraseRows(rows[:1]) })
	// sealing twice is also a caller bug
	require.Panics(t, func() { _, _ = c.CreateRowPartitions(testPool()) })

	// the probed bit stays writable after sealing
	c.SetProbedFlag(rows)
	out := vector.New(types.New(types.T_bool))
	c.ExtractProbedFlags(rows, false, false, out)
	require.True(t, vector.GetFixedAt[bool](out, 0))
	require.True(t, vector.GetFixedAt[bool](out, 1))
}

func TestProbedFlags(t *testing.T) {
	c := NewRowContainer(typs(types.T_int64), true, nil, nil,
		false, true, true, false, testPool())
	vecs := []*vector.Vector{fixedVec(types.T_int64, []int64{0, 5}, 0)}
	rows := storeRows(t, c, vecs, 2)

	c.SetProbedFlag([]unsafe.Pointer{rows[1], nil})

	out := vector.New(types.New(types.T_bool))
	c.ExtractProbedFlags(rows, true, false, out)
	// row 0 has a null key
	require.True(t, out.IsNullAt(0))
	require.True(t, vector.GetFixedAt[bool](out, 1))

	out2 := vector.New(types.New(types.T_bool))
	c.ExtractProbedFlags(rows, false, true, out2)
	// row 0 was not probed
	require.True(t, out2.IsNullAt(0))
	require.False(t, out2.IsNullAt(1))
}

func TestNextRowChain(t *testing.T) {
	c := NewRowContainer(typs(types.T_int64), false, nil, nil,
		true, true, false, false, testPool())
	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2})}, 2)
	c.SetNextRow(rows[0], rows[1])
	require.Equal(t, rows[1], c.NextRow(rows[0]))
}

func TestReuseRowReleasesPayloads(t *testing.T) {
	c := NewKeyContainer(typs(types.T_varchar), false, testPool())
	long := make([]byte, 1024)
	rows := storeRows(t, c, []*vector.Vector{bytesVec(types.T_varchar, [][]byte{long})}, 1)

	freeBefore := c.StringHeap().FreeSpace()
	c.ReuseRow(rows[0])
	require.Greater(t, c.StringHeap().FreeSpace(), freeBefore)
	require.Zero(t, c.VariableSizeAt(rows[0], 0))
}

func TestAccumulatorBits(t *testing.T) {
	acc := &testAccumulator{fixedSize: 8, align: 8}
	c := NewRowContainer(typs(types.T_int64), false, []Accumulator{acc},
		nil, false, false, false, false, testPool())
	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1})}, 1)

	require.False(t, c.IsAccumulatorInitialized(rows[0], 0))
	require.False(t, c.IsAccumulatorNull(rows[0], 0))
	c.SetAccumulatorInitialized(rows[0], 0)
	c.SetAccumulatorNull(rows[0], 0, true)
	require.True(t, c.IsAccumulatorInitialized(rows[0], 0))
	require.True(t, c.IsAccumulatorNull(rows[0], 0))
	c.SetAccumulatorNull(rows[0], 0, false)
	require.False(t, c.IsAccumulatorNull(rows[0], 0))
	require.True(t, c.IsAccumulatorInitialized(rows[0], 0))
}

func TestNormalizedKeySlot(t *testing.T) {
	c := NewRowContainer(typs(types.T_int64), false, nil, nil,
		false, false, false, true, testPool())
	rows := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{1, 2})}, 2)
	require.Equal(t, 2, c.NumRowsWithNormalizedKey())

	*NormalizedKey(rows[0]) = 0xfeedface
	*NormalizedKey(rows[1]) = 0xdeadbeef
	require.EqualValues(t, 0xfeedface, *NormalizedKey(rows[0]))
	require.EqualValues(t, 0xdeadbeef, *NormalizedKey(rows[1]))

	c.DisableNormalizedKeys()
	more := storeRows(t, c, []*vector.Vector{fixedVec(types.T_int64, []int64{3})}, 1)
	require.Equal(t, 2, c.NumRowsWithNormalizedKey())
	require.Len(t, more, 1)
}
