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
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vectorsql/rowstore/pkg/container/types"
)

// builds a sealed container of n rows with partition ids i % mod
func sealedPartitions(t *testing.T, n, mod int) (*RowContainer, *RowPartitions, []unsafe.Pointer) {
	t.Helper()
	c := NewKeyContainer(typs(types.T_int64), false, testPool())
	rows := fillRows(t, c, n)

	rp, err := c.CreateRowPartitions(testPool())
	require.NoError(t, err)
	ids := make([]uint8, n)
	for i := range ids {
		ids[i] = uint8(i % mod)
	}
	rp.AppendPartitions(ids)
	return c, rp, rows
}

func TestListPartitionRowsBatched(t *testing.T) {
	c, rp, rows := sealedPartitions(t, 100, 4)
	defer rp.Free()

	var expected []unsafe.Pointer
	for i := 2; i < 100; i += 4 {
		expected = append(expected, rows[i])
	}

	var iter RowContainerIterator
	out := make([]unsafe.Pointer, 10)
	var got []unsafe.Pointer
	for {
		n := c.ListPartitionRows(&iter, 2, 10, rp, out)
		if n == 0 {
			break
		}
		require.LessOrEqual(t, n, 10)
		got = append(got, out[:n]...)
	}
	require.Equal(t, expected, got)
}

func TestListPartitionRowsExhaustive(t *testing.T) {
	const n = 10_000
	c, rp, rows := sealedPartitions(t, n, 7)
	defer rp.Free()

	seen := make(map[unsafe.Pointer]bool, n)
	for p := 0; p < 7; p++ {
		var iter RowContainerIterator
		out := make([]unsafe.Pointer, 33)
		idx := p
		for {
			k := c.ListPartitionRows(&iter, uint8(p), len(out), rp, out)
			if k == 0 {
				break
			}
			for _, row := range out[:k] {
				require.False(t, seen[row])
				seen[row] = true
				require.Equal(t, rows[idx], row)
				idx += 7
			}
		}
	}
	require.Len(t, seen, n)
}

func TestListPartitionRowsSingleCall(t *testing.T) {
	c, rp, rows := sealedPartitions(t, 100, 4)
	defer rp.Free()

	var iter RowContainerIterator
	out := make([]unsafe.Pointer, 100)
	n := c.ListPartitionRows(&iter, 3, 100, rp, out)
	require.Equal(t, 25, n)
	require.Equal(t, rows[3], out[0])
	require.Equal(t, rows[99], out[24])

	// the iterator is exhausted
	require.Zero(t, c.ListPartitionRows(&iter, 3, 100, rp, out))
}

func TestListPartitionRowsRequiresSealed(t *testing.T) {
	c := NewKeyContainer(typs(types.T_int64), false, testPool())
	fillRows(t, c, 16)
	rp, err := newRowPartitions(16, testPool())
	require.NoError(t, err)
	defer rp.Free()

	var iter RowContainerIterator
	out := make([]unsafe.Pointer, 16)
	require.Panics(t, func() {
		c.ListPartitionRows(&iter, 0, 16, rp, out)
	})
}

func TestAppendPartitionsOverflowPanics(t *testing.T) {
	rp, err := newRowPartitions(8, testPool())
	require.NoError(t, err)
	defer rp.Free()
	rp.AppendPartitions(make([]uint8, 8))
	require.Panics(t, func() {
		rp.AppendPartitions([]uint8{1})
	})
}

func TestPartitionTableSpansPages(t *testing.T) {
	const n = 3*kPartitionPageSize + 17
	c, rp, rows := sealedPartitions(t, n, 3)
	defer rp.Free()
	require.Equal(t, n, rp.Size())
	require.EqualValues(t, 2, rp.PartitionAt(kPartitionPageSize+1))

	var iter RowContainerIterator
	out := make([]unsafe.Pointer, n)
	k := c.ListPartitionRows(&iter, 0, n, rp, out)
	require.Equal(t, (n+2)/3, k)
	require.Equal(t, rows[0], out[0])
	require.Equal(t, rows[3], out[1])
}

func TestScanPartitionsParallel(t *testing.T) {
	const n = 10_000
	c, rp, _ := sealedPartitions(t, n, 4)
	defer rp.Free()

	var mu sync.Mutex
	counts := map[uint8]int{}
	err := c.ScanPartitions(rp, []uint8{0, 1, 2, 3}, 4, 97,
		func(partition uint8, rows []unsafe.Pointer) error {
			mu.Lock()
			counts[partition] += len(rows)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)
	for p := uint8(0); p < 4; p++ {
		require.Equal(t, n/4, counts[p])
	}
}
