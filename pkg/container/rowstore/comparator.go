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

type comparatorKey struct {
	channel int
	order   SortOrder
}

// RowComparator orders container rows by a list of sort keys.  It is
// the ordering predicate handed to sorts and priority queues over row
// pointers.
type RowComparator struct {
	container *RowContainer
	keyInfo   []comparatorKey
}

func NewRowComparator(sortingKeys []int, sortingOrders []SortOrder, container *RowContainer) *RowComparator {
	if len(sortingKeys) != len(sortingOrders) {
		panic(moerr.NewInvalidInputNoCtx("sorting keys and orders differ in length"))
	}
	r := &RowComparator{container: container}
	for i, channel := range sortingKeys {
		if channel < 0 || channel >= container.NumColumns() {
			panic(moerr.NewInvalidInputNoCtx("sorting key out of range"))
		}
		r.keyInfo = append(r.keyInfo, comparatorKey{channel: channel, order: sortingOrders[i]})
	}
	return r
}

// Compare returns the first non-zero key comparison of lhs and rhs.
func (r *RowComparator) Compare(lhs, rhs unsafe.Pointer) int {
	if lhs == rhs {
		return 0
	}
	for _, key := range r.keyInfo {
		if result := r.container.Compare(lhs, rhs, key.channel, CompareFlags{
			NullsFirst: key.order.NullsFirst,
			Ascending:  key.order.Ascending,
		}); result != 0 {
			return result
		}
	}
	return 0
}

func (r *RowComparator) Less(lhs, rhs unsafe.Pointer) bool {
	return r.Compare(lhs, rhs) < 0
}

// CompareDecoded orders the index-th tuple of the decoded columns
// against a stored row, for inserting into sorted structures without
// materializing the tuple first.
func (r *RowComparator) CompareDecoded(decoded []*vector.Vector, index int, other unsafe.Pointer) int {
	for _, key := range r.keyInfo {
		if result := r.container.CompareVec(other, key.channel, decoded[key.channel], index, CompareFlags{
			NullsFirst: key.order.NullsFirst,
			Ascending:  key.order.Ascending,
		}); result != 0 {
			return -result
		}
	}
	return 0
}

func (r *RowComparator) LessDecoded(decoded []*vector.Vector, index int, other unsafe.Pointer) bool {
	return r.CompareDecoded(decoded, index, other) < 0
}
