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

package vector

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vectorsql/rowstore/pkg/container/types"
)

func TestAppendFixed(t *testing.T) {
	v := New(types.New(types.T_int32))
	AppendFixed(v, int32(7), false)
	AppendFixed(v, int32(0), true)
	AppendFixed(v, int32(9), false)

	require.Equal(t, 3, v.Length())
	require.False(t, v.IsNullAt(0))
	require.True(t, v.IsNullAt(1))
	require.True(t, v.MayHaveNulls())
	require.Equal(t, int32(9), GetFixedAt[int32](v, 2))
	require.Equal(t, []int32{7, 0, 9}, MustFixedCol[int32](v))
}

func TestAppendBytes(t *testing.T) {
	v := New(types.New(types.T_varchar))
	AppendBytes(v, []byte("ab"), false)
	AppendBytes(v, nil, true)

	require.Equal(t, 2, v.Length())
	require.Equal(t, []byte("ab"), v.GetBytesAt(0))
	require.True(t, v.IsNullAt(1))
}

func TestReset(t *testing.T) {
	v := New(types.New(types.T_int64))
	AppendFixed(v, int64(1), true)
	v.Reset()
	require.Zero(t, v.Length())
	require.False(t, v.MayHaveNulls())
}

func TestColTypeMismatchPanics(t *testing.T) {
	v := New(types.New(types.T_int64))
	AppendFixed(v, int64(1), false)
	require.Panics(t, func() {
		MustFixedCol[int32](v)
	})
}
