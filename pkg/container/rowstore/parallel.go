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
	"unsafe"

	"github.com/panjf2000/ants/v2"
	"github.com/vectorsql/rowstore/pkg/common/moerr"
)

// ScanPartitions lists the rows of each requested partition on a worker
// pool, calling fn with batches of at most batchSize rows.  Requires a
// sealed container; every partition is scanned with its own iterator,
// so workers touch disjoint state and disjoint row sets.
func (c *RowContainer) ScanPartitions(
	rowPartitions *RowPartitions,
	partitions []uint8,
	parallelism int,
	batchSize int,
	fn func(partition uint8, rows []unsafe.Pointer) error,
) error {
	if c.mutable {
		panic(moerr.NewInvalidStateNoCtx("scan partitions of a mutable row container"))
	}
	pool, err := ants.NewPool(parallelism)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, partition := range partitions {
		partition := partition
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			var iter RowContainerIterator
			rows := make([]unsafe.Pointer, batchSize)
			for {
				n := c.ListPartitionRows(&iter, partition, batchSize, rowPartitions, rows)
				if n == 0 {
					return
				}
				if err := fn(partition, rows[:n]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()
	return firstErr
}
