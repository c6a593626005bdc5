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
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// ExtractProbedFlags appends one bool per row to result, true when the
// row was marked by a probe.  setNullForNullKeysRow nulls the output of
// rows with any null key, setNullForNonProbedRow nulls unprobed rows;
// both serve the outer-join output paths.
func (c *RowContainer) ExtractProbedFlags(
	rows []unsafe.Pointer,
	setNullForNullKeysRow bool,
	setNullForNonProbedRow bool,
	result *vector.Vector,
) {
	if c.probedFlagOffset == 0 {
		panic(moerr.NewInternalErrorNoCtx("row container built without probed flags"))
	}
	for _, row := range rows {
		nullResult := false
		if setNullForNullKeysRow && c.nullableKeys {
			for k := range c.keyTypes {
				if c.isNullAt(row, c.rowColumns[k]) {
					nullResult = true
					break
				}
			}
		}
		if nullResult {
			vector.AppendFixed(result, false, true)
			continue
		}
		probed := isBitSet(row, c.probedFlagOffset)
		if setNullForNonProbedRow && !probed {
			vector.AppendFixed(result, false, true)
		} else {
			vector.AppendFixed(result, probed, false)
		}
	}
}

// NormalizedKey returns the prehash slot stored immediately below the
// row pointer.  Only valid for rows counted by
// NumRowsWithNormalizedKey.
func NormalizedKey(row unsafe.Pointer) *uint64 {
	return (*uint64)(unsafe.Add(row, -normalizedKeyWidth))
}
