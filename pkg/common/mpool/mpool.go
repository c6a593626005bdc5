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

package mpool

import (
	"sync/atomic"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/logutil"
	"go.uber.org/zap"
)

const (
	MB = 1 << 20
	GB = 1 << 30

	// NoLimit is the cap of a pool that does not enforce one.
	NoLimit int64 = 0

	// Allocations at or above this size bypass the Go heap and are
	// mmap'ed directly, so freeing them returns memory to the OS.
	kMmapThreshold = 1 * MB
)

// MPool tracks the bytes handed out for one owner (a row container, its
// string heap, its partition table).  The pool itself holds no memory;
// it is an accounting gate in front of the allocator.
type MPool struct {
	name string
	cap  int64

	allocated int64
	highWater int64
	allocs    int64
}

func New(name string, cap int64) *MPool {
	return &MPool{name: name, cap: cap}
}

// MustNew is New for callers that configure the pool statically.
func MustNew(name string) *MPool {
	return New(name, NoLimit)
}

func (m *MPool) Name() string {
	return m.name
}

func (m *MPool) Cap() int64 {
	if m.cap == NoLimit {
		return PoolMaxCap
	}
	return m.cap
}

// PoolMaxCap bounds a no-limit pool so that accounting overflow is still
// an error instead of a wrap.
const PoolMaxCap = 16 * GB * 1024

// CurrNB returns the currently allocated byte count.
func (m *MPool) CurrNB() int64 {
	return atomic.LoadInt64(&m.allocated)
}

func (m *MPool) HighWaterMark() int64 {
	return atomic.LoadInt64(&m.highWater)
}

// Alloc returns a zeroed byte slice of exactly sz bytes.  The slice must
// be given back with Free; subslicing and freeing a subslice is a caller
// bug.
func (m *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		panic(moerr.NewInternalErrorNoCtxf("mpool alloc size %d", sz))
	}
	if sz == 0 {
		return nil, nil
	}
	nb := atomic.AddInt64(&m.allocated, int64(sz))
	if nb > m.Cap() {
		atomic.AddInt64(&m.allocated, -int64(sz))
		logutil.Error("mpool alloc over cap",
			zap.String("pool", m.name),
			zap.Int("size", sz),
			zap.Int64("allocated", nb-int64(sz)),
			zap.Int64("cap", m.Cap()))
		return nil, moerr.NewOOMNoCtx()
	}
	for {
		hw := atomic.LoadInt64(&m.highWater)
		if nb <= hw || atomic.CompareAndSwapInt64(&m.highWater, hw, nb) {
			break
		}
	}
	atomic.AddInt64(&m.allocs, 1)

	if sz >= kMmapThreshold {
		data, err := mmapAlloc(sz)
		if err != nil {
			atomic.AddInt64(&m.allocated, -int64(sz))
			return nil, moerr.NewOOMNoCtx()
		}
		return data, nil
	}
	return make([]byte, sz), nil
}

// Free returns a slice obtained from Alloc.
func (m *MPool) Free(bs []byte) {
	if bs == nil {
		return
	}
	sz := cap(bs)
	if atomic.AddInt64(&m.allocated, -int64(sz)) < 0 {
		panic(moerr.NewInternalErrorNoCtx("mpool double free"))
	}
	if sz >= kMmapThreshold {
		mmapFree(bs[:cap(bs)])
	}
}

// Realloc grows a slice to at least sz bytes, keeping the old content.
func (m *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if sz <= cap(old) {
		return old[:sz], nil
	}
	data, err := m.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(data, old)
	m.Free(old)
	return data, nil
}
