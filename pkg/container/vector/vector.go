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

// Package vector holds the flat columnar vector the row container reads
// from and extracts into.  Fixed-width kinds keep a typed Col slice,
// variable-length and nested kinds keep one byte slice per row.
package vector

import (
	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/container/nulls"
	"github.com/vectorsql/rowstore/pkg/container/types"
)

type Vector struct {
	Typ types.Type

	// Col is a []T for fixed-width kinds, nil otherwise.
	Col any

	// Vs holds the value bytes of varlen and nested kinds, one entry
	// per row, nil entries for nulls.
	Vs [][]byte

	Nsp *nulls.Nulls

	length int
}

func New(typ types.Type) *Vector {
	return &Vector{
		Typ: typ,
		Nsp: &nulls.Nulls{},
	}
}

func (v *Vector) Length() int {
	return v.length
}

func (v *Vector) IsNullAt(i int) bool {
	return nulls.Contains(v.Nsp, uint64(i))
}

func (v *Vector) MayHaveNulls() bool {
	return nulls.Any(v.Nsp)
}

func (v *Vector) Reset() {
	v.Col = nil
	v.Vs = nil
	v.length = 0
	nulls.Reset(v.Nsp)
}

// AppendFixed appends one fixed-width value.  A null still occupies a
// slot so that positions line up with the null set.
func AppendFixed[T any](v *Vector, w T, isNull bool) {
	col, _ := v.Col.([]T)
	col = append(col, w)
	v.Col = col
	if isNull {
		nulls.Add(v.Nsp, uint64(v.length))
	}
	v.length++
}

// AppendBytes appends one varlen or nested value.
func AppendBytes(v *Vector, w []byte, isNull bool) {
	if isNull {
		v.Vs = append(v.Vs, nil)
		nulls.Add(v.Nsp, uint64(v.length))
	} else {
		v.Vs = append(v.Vs, w)
	}
	v.length++
}

// MustFixedCol returns the typed column slice.
func MustFixedCol[T any](v *Vector) []T {
	col, ok := v.Col.([]T)
	if !ok && v.Col != nil {
		panic(moerr.NewInternalErrorNoCtxf("vector col type mismatch for %s", v.Typ))
	}
	return col
}

// GetFixedAt reads the i-th value of a fixed-width vector.
func GetFixedAt[T any](v *Vector, i int) T {
	return v.Col.([]T)[i]
}

// GetBytesAt reads the i-th value bytes of a varlen or nested vector.
func (v *Vector) GetBytesAt(i int) []byte {
	return v.Vs[i]
}
