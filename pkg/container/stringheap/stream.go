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

package stringheap

import (
	"unsafe"

	"github.com/vectorsql/rowstore/pkg/common/moerr"
)

// ByteStream buffers one serialized value before it lands in the heap as
// chunks.  Obtain with NewWrite, fill through the io.Writer surface,
// then FinishWrite.
type ByteStream struct {
	heap *StringHeap
	buf  []byte
}

func (h *StringHeap) NewWrite() *ByteStream {
	return &ByteStream{heap: h}
}

func (s *ByteStream) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *ByteStream) WriteByte(b byte) error {
	s.buf = append(s.buf, b)
	return nil
}

func (s *ByteStream) Size() int {
	return len(s.buf)
}

func (s *ByteStream) Bytes() []byte {
	return s.buf
}

// FinishWrite moves the buffered bytes into the heap and returns the
// first chunk's payload address and the value length.
func (h *StringHeap) FinishWrite(s *ByteStream) (unsafe.Pointer, int, error) {
	if s.heap != h {
		panic(moerr.NewInternalErrorNoCtx("finish write on a foreign stream"))
	}
	if len(s.buf) == 0 {
		return nil, 0, nil
	}
	p, err := h.AllocateBytes(s.buf)
	if err != nil {
		return nil, 0, err
	}
	return p, len(s.buf), nil
}
