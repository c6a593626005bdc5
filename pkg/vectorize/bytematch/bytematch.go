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

// Package bytematch scans byte tables for a target value one register at
// a time.  The kernel is the portable SWAR form; the bitmask it returns
// has the same shape a vector movemask would produce.
package bytematch

import (
	"encoding/binary"
)

// Width is the number of bytes matched per step.
const Width = 8

const (
	lo = 0x0101010101010101
	hi = 0x8080808080808080
)

// Mask compares p[0:Width] against target and returns a bitmask with bit
// i set iff p[i] == target.
func Mask(p []byte, target byte) uint8 {
	x := binary.LittleEndian.Uint64(p) ^ (lo * uint64(target))
	// bit 7 of each byte is set iff the byte is zero; adding 0x7f to the
	// low seven bits of a byte never carries into the next byte
	m := ^(((x &^ hi) + (hi - lo)) | x | (hi - lo))
	// gather the per-byte flags into the low eight bits; every partial
	// product lands on a distinct bit, so the multiply cannot carry
	return uint8(m * 0x0002040810204081 >> 56)
}

// LowMask returns a mask of the n lowest bits.
func LowMask(n int) uint8 {
	return uint8(1<<n - 1)
}
