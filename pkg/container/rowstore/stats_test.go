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

	"github.com/stretchr/testify/require"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

func TestColumnStatsOnInsert(t *testing.T) {
	c := NewKeyContainer(typs(types.T_varchar), true, testPool())
	vecs := []*vector.Vector{bytesVec(types.T_varchar,
		[][]byte{[]byte("a"), []byte("abcd"), nil, []byte("ab")}, 2)}
	storeRows(t, c, vecs, 4)

	stats := c.ColumnStats(0)
	require.EqualValues(t, 1, stats.NullCount())
	require.EqualValues(t, 3, stats.NonNullCount())
	require.EqualValues(t, 7, stats.SumBytes())
	min, ok := stats.MinBytes()
	require.True(t, ok)
	require.EqualValues(t, 1, min)
	max, ok := stats.MaxBytes()
	require.True(t, ok)
	require.EqualValues(t, 4, max)
	require.EqualValues(t, 2, stats.AvgSizeBytes())
}

func TestMergeStats(t *testing.T) {
	var a, b Stats
	a.addCellSize(10)
	a.addCellSize(2)
	a.addNullCell()
	b.addCellSize(7)

	merged := MergeStats([]Stats{a, b})
	require.EqualValues(t, 1, merged.NullCount())
	require.EqualValues(t, 3, merged.NonNullCount())
	require.EqualValues(t, 19, merged.SumBytes())
	min, ok := merged.MinBytes()
	require.True(t, ok)
	require.EqualValues(t, 2, min)
	max, _ := merged.MaxBytes()
	require.EqualValues(t, 10, max)

	// a removal poisons min/max through the merge
	b.removeOrUpdateCellStats(7, false, false)
	remerged := MergeStats([]Stats{a, b})
	_, ok = remerged.MinBytes()
	require.False(t, ok)
}
