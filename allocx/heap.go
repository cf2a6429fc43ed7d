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

package allocx

import (
	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/cockroachdb/errors"
)

// MaxPooledSize is the largest request served from the mcache pools.
// Bigger blocks are allocated directly and left to the GC on Free.
const MaxPooledSize = 64 << 20

// DefaultHeap is the allocator used when none is given.
var DefaultHeap = &HeapAllocator{}

var _ Full = (*HeapAllocator)(nil)

// HeapAllocator is backed by the Go heap.
// It's safe for concurrent use.
//
// Tips for usage:
// * blocks returned by Alloc may not be initialized with zeros.
// * DO NOT use a block after passing it to Free or Realloc.
type HeapAllocator struct{}

// Alloc returns a block of size bytes.
func (h *HeapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "heap alloc %d", size)
	}
	switch {
	case size == 0:
		return []byte{}, nil
	case size > MaxPooledSize:
		return dirtmake.Bytes(size, size), nil
	}
	return mcache.Malloc(size), nil
}

// Realloc grows or shrinks buf to size bytes, keeping its content.
// buf is reused if its cap is large enough.
func (h *HeapAllocator) Realloc(buf []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "heap realloc %d", size)
	}
	if size <= cap(buf) {
		return buf[:size], nil
	}
	nbuf, err := h.Alloc(size)
	if err != nil {
		return nil, err
	}
	copy(nbuf, buf)
	_ = h.Free(buf)
	return nbuf, nil
}

// Free puts buf back to the pools. It never fails.
func (h *HeapAllocator) Free(buf []byte) error {
	c := cap(buf)
	if c == 0 || c > MaxPooledSize {
		return nil
	}
	mcache.Free(buf)
	return nil
}
