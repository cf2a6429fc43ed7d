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

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/cloudwego/memkit/allocx"
	"github.com/cloudwego/memkit/internal/logger"
)

// Block is a contiguous range of the managed region.
type Block struct {
	Start int // offset from the start of the region
	Size  int // in bytes
}

// End returns the offset right after the block.
func (b Block) End() int {
	return b.Start + b.Size
}

func (b Block) String() string {
	return fmt.Sprintf("[%d, %d)", b.Start, b.End())
}

const minNodeCapacity = 4

// blockVec is an array of blocks sorted by Start, stored in memory from alloc.
type blockVec struct {
	alloc allocx.Allocator
	raw   []byte  // the block holding items, nil if nothing is allocated
	items []Block // cap(items) is the reserved capacity
}

func newBlockVec(a allocx.Allocator, n int) (blockVec, error) {
	v := blockVec{alloc: a}
	if n < minNodeCapacity {
		n = minNodeCapacity
	}
	err := v.grow(n)
	return v, err
}

// reserve makes sure n more blocks can be inserted without growing.
func (v *blockVec) reserve(n int) error {
	need := len(v.items) + n
	if need <= cap(v.items) {
		return nil
	}
	c := 2 * cap(v.items)
	if c < need {
		c = need
	}
	return v.grow(c)
}

func (v *blockVec) grow(c int) error {
	s, raw, err := allocx.MakeSlice[Block](v.alloc, c)
	if err != nil {
		return errors.Wrapf(err, "freelist: grow block table to %d", c)
	}
	n := copy(s, v.items)
	old := v.raw
	v.items = s[:n]
	v.raw = raw
	if err := allocx.TryFree(v.alloc, old); err != nil {
		logger.L().Warn("freelist: free old block table", "error", err)
	}
	return nil
}

func (v *blockVec) release() error {
	raw := v.raw
	v.raw, v.items = nil, nil
	return allocx.TryFree(v.alloc, raw)
}

// insert puts b at i. The caller must have reserved room for it.
func (v *blockVec) insert(i int, b Block) {
	n := len(v.items)
	v.items = v.items[:n+1]
	copy(v.items[i+1:], v.items[i:n])
	v.items[i] = b
}

// removeRange removes items[i:j].
func (v *blockVec) removeRange(i, j int) {
	if i >= j {
		return
	}
	n := copy(v.items[i:], v.items[j:])
	v.items = v.items[:i+n]
}

// insertIndex returns the position keeping v sorted once b is inserted.
//
// A block starting exactly where b ends puts b right before it, a block ending
// exactly where b starts puts b right after it, so contiguous neighbours
// always end up next to b.
func (v *blockVec) insertIndex(b Block) int {
	end := b.End()
	lo, hi := 0, len(v.items)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := v.items[mid]
		switch {
		case c.Start == end:
			return mid
		case c.End() == b.Start:
			return mid + 1
		case c.Start < b.Start:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo
}

// lowerBound returns the first index whose block starts at or after off.
func (v *blockVec) lowerBound(off int) int {
	return sort.Search(len(v.items), func(i int) bool {
		return v.items[i].Start >= off
	})
}

// find returns the index of the block equal to b, or -1.
// Start and Size must both match.
func (v *blockVec) find(b Block) int {
	i := v.lowerBound(b.Start)
	if i < len(v.items) && v.items[i] == b {
		return i
	}
	return -1
}

func (v *blockVec) snapshot() []Block {
	ret := make([]Block, len(v.items))
	copy(ret, v.items)
	return ret
}
