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

// Package stringheap stores the variable-length bytes referenced from
// container rows.  Payloads are header-prefixed chunks inside large pool
// blocks; a payload that does not fit the tail of the current block is
// split into parts chained by a trailing pointer.  Chunk addresses are
// stable for the life of the heap.
package stringheap

import (
	"encoding/binary"
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
	"github.com/vectorsql/rowstore/pkg/common/mpool"
	"github.com/vectorsql/rowstore/pkg/container/types"
)

const (
	HeaderSize = 4

	// continuedMask marks a part whose payload ends with the address of
	// the next part.
	continuedMask = 0x80000000

	// ContinuedPtrSize is the trailing next-part pointer of a continued
	// part, included in the header size.
	ContinuedPtrSize = 8

	// the smallest payload worth starting in a block tail
	minPartSize = 16

	kDefaultBlockSize = 256 << 10
)

// Header sits immediately before every chunk's payload bytes.
type Header uint32

func (h Header) Size() int {
	return int(h &^ continuedMask)
}

func (h Header) IsContinued() bool {
	return h&continuedMask != 0
}

// HeaderOf returns the header of a chunk given its payload address.
func HeaderOf(p unsafe.Pointer) *Header {
	return (*Header)(unsafe.Add(p, -HeaderSize))
}

type StringHeap struct {
	pool      *mpool.MPool
	blockSize int

	blocks [][]byte
	// write offset into the last block
	off int

	retained       int64
	freeBytes      int64
	totalAllocated int64
}

func New(pool *mpool.MPool) *StringHeap {
	return NewWithBlockSize(pool, kDefaultBlockSize)
}

func NewWithBlockSize(pool *mpool.MPool, blockSize int) *StringHeap {
	if blockSize < HeaderSize+minPartSize+ContinuedPtrSize {
		panic(moerr.NewInternalErrorNoCtxf("string heap block size %d", blockSize))
	}
	return &StringHeap{
		pool:      pool,
		blockSize: blockSize,
	}
}

// FreeSpace returns the bytes freed or not yet written inside retained
// blocks.
func (h *StringHeap) FreeSpace() int64 {
	free := h.freeBytes
	if n := len(h.blocks); n > 0 {
		free += int64(len(h.blocks[n-1]) - h.off)
	}
	return free
}

// RetainedSize returns the bytes held from the pool.
func (h *StringHeap) RetainedSize() int64 {
	return h.retained
}

// TotalAllocated is the monotonic count of chunk bytes ever written,
// headers included.  Deltas of this counter give the extra bytes one
// store caused.
func (h *StringHeap) TotalAllocated() int64 {
	return h.totalAllocated
}

func (h *StringHeap) Clear() {
	for _, b := range h.blocks {
		h.pool.Free(b)
	}
	h.blocks = nil
	h.off = 0
	h.retained = 0
	h.freeBytes = 0
}

func (h *StringHeap) newBlock(size int) error {
	b, err := h.pool.Alloc(size)
	if err != nil {
		return err
	}
	h.blocks = append(h.blocks, b)
	h.off = 0
	h.retained += int64(size)
	return nil
}

// tailRoom returns the writable bytes left in the current block.
func (h *StringHeap) tailRoom() int {
	if len(h.blocks) == 0 {
		return 0
	}
	return len(h.blocks[len(h.blocks)-1]) - h.off
}

// allocPart carves one chunk with a payload of want bytes from the
// current block.  The caller must have ensured the room.
func (h *StringHeap) allocPart(want int, continued bool) (payload []byte) {
	blk := h.blocks[len(h.blocks)-1]
	hdr := Header(want)
	if continued {
		hdr |= continuedMask
	}
	binary.LittleEndian.PutUint32(blk[h.off:], uint32(hdr))
	payload = blk[h.off+HeaderSize : h.off+HeaderSize+want]
	h.off += HeaderSize + want
	h.totalAllocated += int64(HeaderSize + want)
	return payload
}

// AllocateBytes copies data into the heap, splitting across blocks when
// the tail of the current block is too small, and returns the address of
// the first chunk's payload.
func (h *StringHeap) AllocateBytes(data []byte) (unsafe.Pointer, error) {
	if len(data) == 0 {
		return nil, moerr.NewInternalErrorNoCtx("string heap empty allocation")
	}
	var first unsafe.Pointer
	// location of the previous part's trailing next pointer, to be
	// patched once this part's address is known
	var pendingNext []byte

	remaining := data
	for len(remaining) > 0 {
		if h.tailRoom() < HeaderSize+minPartSize {
			if err := h.newBlock(h.blockSize); err != nil {
				return nil, err
			}
		}
		room := h.tailRoom() - HeaderSize
		var payload []byte
		if len(remaining) <= room {
			payload = h.allocPart(len(remaining), false)
			copy(payload, remaining)
			remaining = nil
		} else {
			take := room - ContinuedPtrSize
			payload = h.allocPart(take+ContinuedPtrSize, true)
			copy(payload, remaining[:take])
			remaining = remaining[take:]
		}
		if first == nil {
			first = unsafe.Pointer(&payload[0])
		}
		if pendingNext != nil {
			binary.LittleEndian.PutUint64(pendingNext, uint64(uintptr(unsafe.Pointer(&payload[0]))))
		}
		if len(remaining) > 0 {
			pendingNext = payload[len(payload)-ContinuedPtrSize:]
		}
	}
	return first, nil
}

// CopyMultipart stores data as the varlena at row+offset, inline when
// small enough, otherwise backed by heap chunks.
func (h *StringHeap) CopyMultipart(data []byte, row unsafe.Pointer, offset int32) error {
	v := (*types.Varlena)(unsafe.Add(row, uintptr(offset)))
	if len(data) <= types.VarlenaInlineSize {
		v.SetInline(data)
		return nil
	}
	p, err := h.AllocateBytes(data)
	if err != nil {
		return err
	}
	v.SetPtr(p, len(data))
	return nil
}

// readParts copies length payload bytes starting at the chunk p into out.
func readParts(p unsafe.Pointer, length int, out []byte) {
	read := 0
	for read < length {
		hdr := *HeaderOf(p)
		part := unsafe.Slice((*byte)(p), hdr.Size())
		if hdr.IsContinued() {
			data := part[:len(part)-ContinuedPtrSize]
			read += copy(out[read:], data)
			next := binary.LittleEndian.Uint64(part[len(part)-ContinuedPtrSize:])
			p = unsafe.Pointer(uintptr(next))
		} else {
			copy(out[read:], part[:length-read])
			return
		}
	}
}

// ContiguousBytes returns the value bytes of v as one slice, copying
// into scratch only when the value spans chunks.  The returned slice
// aliases either the heap or scratch.
func (h *StringHeap) ContiguousBytes(v *types.Varlena, scratch *[]byte) []byte {
	if v.IsInline() {
		return v.InlineBytes()
	}
	p, length := v.Ptr()
	hdr := *HeaderOf(p)
	if !hdr.IsContinued() && hdr.Size() >= length {
		return unsafe.Slice((*byte)(p), length)
	}
	if cap(*scratch) < length {
		*scratch = make([]byte, length)
	}
	out := (*scratch)[:length]
	readParts(p, length, out)
	return out
}

// ReadAll copies the chunk bytes at p into out.
func (h *StringHeap) ReadAll(p unsafe.Pointer, length int, out []byte) {
	readParts(p, length, out)
}

// Free gives the chunks of v back to the heap's accounting.  Inline
// values hold no heap bytes.
func (h *StringHeap) Free(v *types.Varlena) {
	if v.IsInline() {
		return
	}
	p, length := v.Ptr()
	if p == nil {
		return
	}
	freed := 0
	for {
		hdr := *HeaderOf(p)
		h.freeBytes += int64(HeaderSize + hdr.Size())
		if !hdr.IsContinued() {
			break
		}
		part := unsafe.Slice((*byte)(p), hdr.Size())
		freed += hdr.Size() - ContinuedPtrSize
		if freed >= length {
			break
		}
		next := binary.LittleEndian.Uint64(part[len(part)-ContinuedPtrSize:])
		p = unsafe.Pointer(uintptr(next))
	}
	v.Reset()
}
