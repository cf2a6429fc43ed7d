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

// Package allocx defines the allocator capability shared by memkit containers
// and provides the heap, span and mmap backed implementations of it.
//
// The capability is split into three interfaces. Allocator is the only one an
// implementation must provide; Reallocator and Freer are optional. Code that
// needs to release memory should accept a Freer (or Full) rather than probing
// an Allocator at runtime, so a bump allocator can never be asked to free.
package allocx

import (
	"log/slog"
	"math"
	"unsafe"

	"github.com/cloudwego/memkit/internal/logger"
)

// Allocator hands out blocks of memory.
//
// The returned slice has len == size. Its content is unspecified unless the
// implementation says otherwise.
type Allocator interface {
	Alloc(size int) ([]byte, error)
}

// Reallocator resizes a block returned by the same allocator.
// The old block must not be used after a successful call.
type Reallocator interface {
	Realloc(buf []byte, size int) ([]byte, error)
}

// Freer returns a block to the allocator that produced it.
type Freer interface {
	Free(buf []byte) error
}

// Full is an allocator supporting the whole capability set.
type Full interface {
	Allocator
	Reallocator
	Freer
}

// TryFree frees buf if a supports it, and does nothing otherwise.
//
// It's meant for bookkeeping code that works with any allocator and is fine
// leaking into an arena until the arena is reset.
func TryFree(a Allocator, buf []byte) error {
	if f, ok := a.(Freer); ok && buf != nil {
		return f.Free(buf)
	}
	return nil
}

// MakeSlice allocates a zeroed []T of length n from a.
//
// raw is the block returned by a, it must be kept for freeing the slice later.
// T must NOT contain pointers: the GC does not scan memory handed out by an allocator.
// The allocator is not required to align its blocks, so MakeSlice over-requests
// and adjusts the start itself.
func MakeSlice[T any](a Allocator, n int) (s []T, raw []byte, err error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))
	if n < 0 || (size > 0 && n > (math.MaxInt-align)/size) {
		return nil, nil, ErrInvalidSize
	}
	if n == 0 || size == 0 {
		return make([]T, n), nil, nil
	}
	raw, err = a.Alloc(size*n + align - 1)
	if err != nil {
		return nil, nil, err
	}
	p := unsafe.Pointer(unsafe.SliceData(raw))
	pad := (align - int(uintptr(p)%uintptr(align))) % align
	s = unsafe.Slice((*T)(unsafe.Add(p, pad)), n)
	clear(s)
	return s, raw, nil
}

// SetLogger sets the logger used by memkit packages.
// Nothing is logged by default; pass nil to go back to that.
func SetLogger(l *slog.Logger) {
	logger.Set(l)
}
