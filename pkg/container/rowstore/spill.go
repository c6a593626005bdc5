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
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/pierrec/lz4"
	"github.com/vectorsql/rowstore/pkg/container/types"
	"github.com/vectorsql/rowstore/pkg/container/vector"
)

// spillBatchSize rows are serialized per write step.
const spillBatchSize = 1024

// ExtractAccumulator appends the spill values of one accumulator over
// the given rows to result.
func (c *RowContainer) ExtractAccumulator(index int, rows []unsafe.Pointer, result *vector.Vector) {
	c.accumulators[index].ExtractForSpill(rows, result)
}

// WriteSpill streams every live row into w as an lz4 frame of
// length-prefixed serialized rows.  The container is not modified.
func (c *RowContainer) WriteSpill(w io.Writer) error {
	zw := lz4.NewWriter(w)
	var iter RowContainerIterator
	rows := make([]unsafe.Pointer, spillBatchSize)
	var sizeBuf [4]byte
	for {
		n := c.ListRows(&iter, spillBatchSize, rows)
		if n == 0 {
			break
		}
		serialized := vector.New(types.New(types.T_varbinary))
		c.ExtractSerializedRows(rows[:n], serialized)
		for i := 0; i < n; i++ {
			data := serialized.GetBytesAt(i)
			binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(data)))
			if _, err := zw.Write(sizeBuf[:]); err != nil {
				return err
			}
			if _, err := zw.Write(data); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

// ReadSpill loads rows written by WriteSpill of a container with the
// same layout, appending them as new rows.
func (c *RowContainer) ReadSpill(r io.Reader) error {
	zr := lz4.NewReader(r)
	var sizeBuf [4]byte
	var data []byte
	for {
		if _, err := io.ReadFull(zr, sizeBuf[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		size := int(binary.LittleEndian.Uint32(sizeBuf[:]))
		if cap(data) < size {
			data = make([]byte, size)
		}
		data = data[:size]
		if _, err := io.ReadFull(zr, data); err != nil {
			return err
		}
		row, err := c.NewRow()
		if err != nil {
			return err
		}
		if err := c.storeSerializedBytes(data, row); err != nil {
			return err
		}
	}
}
