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

package types

import (
	"encoding/binary"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
)

const (
	VarlenaSize       = 24
	VarlenaInlineSize = 23

	varlenaPtrFlag = 0xff
)

// Varlena is the in-row view of a variable-length value.  Values up to
// VarlenaInlineSize bytes live inline: byte 0 holds the length, the bytes
// follow.  Longer values store 0xff in byte 0, the address of the backing
// bytes at [8, 16) and the length at [16, 20).  A zero Varlena is an empty
// inline value, so a zeroed row is safe to free.
//
// The backing bytes are owned by a string heap whose chunks stay reachable
// through the heap itself, storing the raw address here does not extend
// their lifetime.
type Varlena [VarlenaSize]byte

func (v *Varlena) IsInline() bool {
	return v[0] != varlenaPtrFlag
}

func (v *Varlena) Len() int {
	if v.IsInline() {
		return int(v[0])
	}
	return int(binary.LittleEndian.Uint32(v[16:20]))
}

func (v *Varlena) SetInline(data []byte) {
	if len(data) > VarlenaInlineSize {
		panic(moerr.NewInternalErrorNoCtxf("varlena inline of %d bytes", len(data)))
	}
	v.Reset()
	v[0] = byte(len(data))
	copy(v[1:], data)
}

func (v *Varlena) SetPtr(p unsafe.Pointer, length int) {
	v.Reset()
	v[0] = varlenaPtrFlag
	binary.LittleEndian.PutUint64(v[8:16], uint64(uintptr(p)))
	binary.LittleEndian.PutUint32(v[16:20], uint32(length))
}

// Ptr returns the out-of-line address and length.  Only valid when
// !IsInline().
func (v *Varlena) Ptr() (unsafe.Pointer, int) {
	p := unsafe.Pointer(uintptr(binary.LittleEndian.Uint64(v[8:16])))
	return p, int(binary.LittleEndian.Uint32(v[16:20]))
}

// InlineBytes returns the inline payload without copying.
func (v *Varlena) InlineBytes() []byte {
	return v[1 : 1+int(v[0])]
}

func (v *Varlena) Reset() {
	*v = Varlena{}
}
