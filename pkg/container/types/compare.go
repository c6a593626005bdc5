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

// Comparer overrides the builtin ordering and hashing of a fixed-width
// kind.  Both methods see the raw slot bytes of the value.
type Comparer interface {
	HashFixed(v []byte) uint64
	CompareFixed(a, b []byte) int
}

var comparers = map[T]Comparer{}

// RegisterComparer installs c for oid.  Not safe to call concurrently
// with container operations; register at init time.
func RegisterComparer(oid T, c Comparer) {
	comparers[oid] = c
}

func GetComparer(oid T) (Comparer, bool) {
	c, ok := comparers[oid]
	return c, ok
}
