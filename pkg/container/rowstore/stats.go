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

// Stats carries the running cell statistics of one column.  Counts and
// byte sums follow every store and erase; min/max only follow inserts
// and become unknown after the first removal or overwrite, since
// recomputing them would need a full rescan.
type Stats struct {
	nullCount    int64
	nonNullCount int64
	sumBytes     int64
	minBytes     int32
	maxBytes     int32
	minMaxValid  bool
}

func (s *Stats) NullCount() int64 {
	return s.nullCount
}

func (s *Stats) NonNullCount() int64 {
	return s.nonNullCount
}

func (s *Stats) NumCells() int64 {
	return s.nullCount + s.nonNullCount
}

func (s *Stats) SumBytes() int64 {
	return s.sumBytes
}

// MinBytes and MaxBytes return the smallest and largest non-null cell
// seen; ok is false once removals made them unknown.
func (s *Stats) MinBytes() (int32, bool) {
	return s.minBytes, s.minMaxValid
}

func (s *Stats) MaxBytes() (int32, bool) {
	return s.maxBytes, s.minMaxValid
}

func (s *Stats) AvgSizeBytes() int64 {
	if s.nonNullCount == 0 {
		return 0
	}
	return s.sumBytes / s.nonNullCount
}

func (s *Stats) addNullCell() {
	s.nullCount++
}

func (s *Stats) addCellSize(bytes int32) {
	if s.nonNullCount == 0 && s.nullCount == 0 {
		s.minMaxValid = true
	}
	if s.minMaxValid {
		if s.nonNullCount == 0 {
			s.minBytes, s.maxBytes = bytes, bytes
		} else {
			if bytes < s.minBytes {
				s.minBytes = bytes
			}
			if bytes > s.maxBytes {
				s.maxBytes = bytes
			}
		}
	}
	s.nonNullCount++
	s.sumBytes += int64(bytes)
}

// removeOrUpdateCellStats reverses one cell.  setToNull keeps the cell
// but turns it null (SetAllNull), otherwise the cell goes away entirely
// (erase).
func (s *Stats) removeOrUpdateCellStats(bytes int32, wasNull, setToNull bool) {
	if wasNull {
		if !setToNull {
			s.nullCount--
		}
	} else {
		s.nonNullCount--
		s.sumBytes -= int64(bytes)
		if setToNull {
			s.nullCount++
		}
	}
	s.minMaxValid = false
}

// MergeStats folds per-partition statistics of one column into one.
func MergeStats(statsList []Stats) Stats {
	var merged Stats
	merged.minMaxValid = len(statsList) > 0
	for _, stats := range statsList {
		if merged.NumCells() == 0 {
			merged.minBytes = stats.minBytes
			merged.maxBytes = stats.maxBytes
		} else {
			if stats.minBytes < merged.minBytes {
				merged.minBytes = stats.minBytes
			}
			if stats.maxBytes > merged.maxBytes {
				merged.maxBytes = stats.maxBytes
			}
		}
		merged.minMaxValid = merged.minMaxValid && stats.minMaxValid
		merged.nullCount += stats.nullCount
		merged.nonNullCount += stats.nonNullCount
		merged.sumBytes += stats.sumBytes
	}
	return merged
}
