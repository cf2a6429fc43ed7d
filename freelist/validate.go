/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package freelist

import "github.com/cockroachdb/errors"

func corrupted(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorrupted)
}

// Validate checks the bookkeeping of f. It's O(n) and meant for tests and debugging.
//
// The returned error, if any, matches ErrCorrupted.
func (f *FreeList) Validate() error {
	if f.released {
		return nil
	}
	used, free := f.used.items, f.free.items

	sum := 0
	for i, b := range used {
		if b.Size <= 0 {
			return corrupted("used block %d %v has a non-positive size", i, b)
		}
		if i > 0 && used[i-1].End() > b.Start {
			return corrupted("used blocks %d %v and %d %v are out of order or overlap", i-1, used[i-1], i, b)
		}
		sum += b.Size
	}
	if sum != f.usedBytes {
		return corrupted("used blocks add up to %d bytes, but %d bytes are accounted as used", sum, f.usedBytes)
	}

	for i, b := range free {
		if b.Size <= 0 {
			return corrupted("free block %d %v has a non-positive size", i, b)
		}
		if i == 0 {
			continue
		}
		prev := free[i-1]
		if prev.End() > b.Start {
			return corrupted("free blocks %d %v and %d %v are out of order or overlap", i-1, prev, i, b)
		}
		if prev.End() == b.Start {
			return corrupted("free blocks %d %v and %d %v are contiguous but not coalesced", i-1, prev, i, b)
		}
	}

	// walk both tables in address order, the blocks must tile [0, total)
	pos, i, j := 0, 0, 0
	for i < len(used) || j < len(free) {
		var b Block
		if j >= len(free) || (i < len(used) && used[i].Start < free[j].Start) {
			b = used[i]
			i++
		} else {
			b = free[j]
			j++
		}
		if b.Start != pos {
			return corrupted("block %v found at offset %d: gap or overlap", b, pos)
		}
		pos = b.End()
	}
	if pos != f.total {
		return corrupted("blocks cover [0, %d), region is [0, %d)", pos, f.total)
	}
	return nil
}
