//go:build unix

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
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

var _ Allocator = (*MmapAllocator)(nil)
var _ Freer = (*MmapAllocator)(nil)

// MmapAllocator maps anonymous private memory for each block.
//
// It's meant for a few large regions living outside of the Go heap, e.g. the
// backing memory of a free list. Every block is rounded up to the page size.
// Blocks are zero-filled. It's safe for concurrent use.
type MmapAllocator struct {
	mu   sync.Mutex
	maps map[*byte][]byte // first byte -> the mapping returned by mmap
}

// NewMmapAllocator creates a MmapAllocator.
func NewMmapAllocator() (*MmapAllocator, error) {
	return &MmapAllocator{maps: make(map[*byte][]byte)}, nil
}

// Alloc maps size bytes rounded up to the page size.
func (m *MmapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "mmap alloc %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	pagesz := unix.Getpagesize()
	length := (size + pagesz - 1) / pagesz * pagesz
	if length < size {
		return nil, errors.Wrapf(ErrInvalidSize, "mmap alloc %d", size)
	}
	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", length)
	}
	m.mu.Lock()
	m.maps[&data[0]] = data
	m.mu.Unlock()
	return data[:size], nil
}

// Free unmaps a block returned by Alloc.
// buf may be resliced, but it must start at the first byte of the block.
func (m *MmapAllocator) Free(buf []byte) error {
	if cap(buf) == 0 {
		return nil
	}
	p := unsafe.SliceData(buf)
	m.mu.Lock()
	data, ok := m.maps[p]
	if ok {
		delete(m.maps, p)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotMapped
	}
	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}

// Mapped returns the number of live mappings.
func (m *MmapAllocator) Mapped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.maps)
}
