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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vectorsql/rowstore/pkg/common/moerr"
)

func TestMPool(t *testing.T) {
	Convey("mpool allocation accounting", t, func() {
		m := New("test", 1<<20)

		So(m.CurrNB(), ShouldEqual, 0)
		data, err := m.Alloc(1024)
		So(err, ShouldBeNil)
		So(len(data), ShouldEqual, 1024)
		So(m.CurrNB(), ShouldEqual, 1024)
		So(m.HighWaterMark(), ShouldEqual, 1024)

		Convey("allocations come back zeroed", func() {
			for _, b := range data {
				So(b, ShouldEqual, 0)
			}
		})

		Convey("free returns the bytes", func() {
			m.Free(data)
			So(m.CurrNB(), ShouldEqual, 0)
			So(m.HighWaterMark(), ShouldEqual, 1024)
		})

		Convey("over-cap allocation fails with OOM", func() {
			_, err := m.Alloc(2 << 20)
			So(err, ShouldNotBeNil)
			So(moerr.IsMoErrCode(err, moerr.ErrOOM), ShouldBeTrue)
			// the failed allocation is not accounted
			So(m.CurrNB(), ShouldEqual, 1024)
		})
	})

	Convey("large allocations take the mmap path", t, func() {
		m := New("mmap", NoLimit)
		data, err := m.Alloc(2 * MB)
		So(err, ShouldBeNil)
		So(len(data), ShouldEqual, 2*MB)
		data[0] = 1
		data[2*MB-1] = 2
		m.Free(data)
		So(m.CurrNB(), ShouldEqual, 0)
	})

	Convey("realloc keeps the prefix", t, func() {
		m := New("realloc", NoLimit)
		data, err := m.Alloc(16)
		So(err, ShouldBeNil)
		copy(data, "abcdefgh")
		grown, err := m.Realloc(data, 64)
		So(err, ShouldBeNil)
		So(string(grown[:8]), ShouldEqual, "abcdefgh")
		So(m.CurrNB(), ShouldEqual, 64)
	})

	Convey("zero sized alloc is a nil slice", t, func() {
		m := New("zero", NoLimit)
		data, err := m.Alloc(0)
		So(err, ShouldBeNil)
		So(data, ShouldBeNil)
	})
}
