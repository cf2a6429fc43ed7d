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
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/cloudwego/memkit/allocx"
	"github.com/cloudwego/memkit/internal/logger"
)

// DefaultNodeCapacity is the initial capacity of the block tables.
const DefaultNodeCapacity = 16

// Options ...
type Options struct {
	// Bookkeeping allocates the used/free block tables.
	// If it cannot free, replaced tables stay allocated until it's reset.
	Bookkeeping allocx.Allocator

	// Backing allocates the managed region.
	Backing allocx.Allocator

	// NodeCapacity is the initial number of entries of each block table.
	NodeCapacity int
}

// DefaultOptions returns the default values of Options.
func DefaultOptions() *Options {
	return &Options{
		Bookkeeping:  allocx.DefaultHeap,
		Backing:      allocx.DefaultHeap,
		NodeCapacity: DefaultNodeCapacity,
	}
}

var _ allocx.Full = (*FreeList)(nil)

// FreeList manages a fixed region with first-fit allocation and
// address-ordered coalescing on free.
type FreeList struct {
	region  []byte
	raw     []byte // as returned by backing
	backing allocx.Allocator

	used blockVec
	free blockVec

	total     int
	usedBytes int
	released  bool
}

// New creates a FreeList managing totalBytes with the default options.
func New(totalBytes int) (*FreeList, error) {
	return NewWithOptions(totalBytes, nil)
}

// NewWithOptions creates a FreeList managing totalBytes.
// Zero fields of o fall back to DefaultOptions.
func NewWithOptions(totalBytes int, o *Options) (*FreeList, error) {
	if totalBytes <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "total bytes %d", totalBytes)
	}
	def := DefaultOptions()
	if o == nil {
		o = def
	}
	bookkeeping, backing, nodeCap := o.Bookkeeping, o.Backing, o.NodeCapacity
	if bookkeeping == nil {
		bookkeeping = def.Bookkeeping
	}
	if backing == nil {
		backing = def.Backing
	}
	if nodeCap <= 0 {
		nodeCap = def.NodeCapacity
	}

	used, err := newBlockVec(bookkeeping, nodeCap)
	if err != nil {
		return nil, err
	}
	free, err := newBlockVec(bookkeeping, nodeCap)
	if err != nil {
		_ = used.release()
		return nil, err
	}
	raw, err := backing.Alloc(totalBytes)
	if err != nil {
		_ = free.release()
		_ = used.release()
		return nil, errors.Wrapf(err, "freelist: acquire %d bytes", totalBytes)
	}
	f := &FreeList{
		region:  raw[:totalBytes:totalBytes],
		raw:     raw,
		backing: backing,
		used:    used,
		free:    free,
		total:   totalBytes,
	}
	f.free.insert(0, Block{Start: 0, Size: totalBytes})
	return f, nil
}

// AllocBlock reserves size bytes and returns the block describing them.
//
// The lowest-addressed free block large enough is used. ErrNoSpace is
// returned if there is none.
func (f *FreeList) AllocBlock(size int) (Block, error) {
	if f.released {
		return Block{}, ErrReleased
	}
	if size <= 0 {
		return Block{}, errors.Wrapf(ErrInvalidSize, "alloc %d", size)
	}
	idx := f.firstFit(size)
	if idx < 0 {
		logger.L().Debug("freelist: no space", "size", size, "used", f.usedBytes, "total", f.total, "free_blocks", len(f.free.items))
		return Block{}, errors.Wrapf(ErrNoSpace, "alloc %d bytes, %d of %d in use", size, f.usedBytes, f.total)
	}
	if err := f.used.reserve(1); err != nil {
		return Block{}, err
	}

	chosen := &f.free.items[idx]
	b := Block{Start: chosen.Start, Size: size}
	f.used.insert(f.used.insertIndex(b), b)
	if chosen.Size == size {
		f.free.removeRange(idx, idx+1)
	} else {
		chosen.Start += size
		chosen.Size -= size
	}
	f.usedBytes += size
	return b, nil
}

func (f *FreeList) firstFit(size int) int {
	for i, b := range f.free.items {
		if b.Size >= size {
			return i
		}
	}
	return -1
}

// FreeBlock returns b to the free list and merges it with its free neighbours.
// b must be a block returned by AllocBlock and not freed yet, otherwise
// ErrBlockNotFound is returned and nothing changes.
func (f *FreeList) FreeBlock(b Block) error {
	if f.released {
		return ErrReleased
	}
	i := f.used.find(b)
	if i < 0 {
		logger.L().Warn("freelist: free of unknown block", "block", b.String())
		return errors.Wrapf(ErrBlockNotFound, "free %v", b)
	}
	if err := f.free.reserve(1); err != nil {
		return err
	}
	f.used.removeRange(i, i+1)
	f.usedBytes -= b.Size
	f.insertFree(b)
	return nil
}

// insertFree adds b to the free table and coalesces it.
// Room for one more entry must be reserved.
func (f *FreeList) insertFree(b Block) {
	if len(f.free.items) == 0 {
		f.free.insert(0, b)
		return
	}
	idx := f.free.insertIndex(b)
	f.free.insert(idx, b)

	items := f.free.items
	start, size := b.Start, b.Size

	// backward: first is the left-most block absorbed
	first := idx
	for first > 0 && items[first-1].End() == start {
		first--
		start = items[first].Start
		size += items[first].Size
	}
	// forward: last is the right-most block absorbed
	last := idx
	for last+1 < len(items) && start+size == items[last+1].Start {
		last++
		size += items[last].Size
	}

	// items[first] survives, items[first+1 : last+1] are gone
	items[first] = Block{Start: start, Size: size}
	f.free.removeRange(first+1, last+1)
}

// Alloc implements allocx.Allocator.
// The cap of the returned slice equals its len.
func (f *FreeList) Alloc(size int) ([]byte, error) {
	b, err := f.AllocBlock(size)
	if err != nil {
		return nil, err
	}
	return f.Bytes(b), nil
}

// Free implements allocx.Freer.
// buf may be resliced, but it must keep the start and cap returned by Alloc.
func (f *FreeList) Free(buf []byte) error {
	if f.released {
		return ErrReleased
	}
	b, ok := f.blockOf(buf)
	if !ok {
		return errors.Wrapf(ErrBlockNotFound, "free %d bytes outside of the region", cap(buf))
	}
	return f.FreeBlock(b)
}

// Realloc implements allocx.Reallocator.
//
// Shrinking always happens in place. Growing happens in place if the block
// is followed by a large enough free block, otherwise the content is moved.
func (f *FreeList) Realloc(buf []byte, size int) ([]byte, error) {
	if f.released {
		return nil, ErrReleased
	}
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "realloc %d", size)
	}
	old, ok := f.blockOf(buf)
	i := -1
	if ok {
		i = f.used.find(old)
	}
	if i < 0 {
		return nil, errors.Wrapf(ErrBlockNotFound, "realloc %d bytes", cap(buf))
	}

	switch {
	case size == old.Size:
		return f.Bytes(old), nil

	case size < old.Size:
		if err := f.free.reserve(1); err != nil {
			return nil, err
		}
		f.used.items[i].Size = size
		f.usedBytes -= old.Size - size
		f.insertFree(Block{Start: old.Start + size, Size: old.Size - size})
		return f.Bytes(f.used.items[i]), nil
	}

	grow := size - old.Size
	if j := f.free.lowerBound(old.End()); j < len(f.free.items) {
		next := &f.free.items[j]
		if next.Start == old.End() && next.Size >= grow {
			f.used.items[i].Size = size
			f.usedBytes += grow
			if next.Size == grow {
				f.free.removeRange(j, j+1)
			} else {
				next.Start += grow
				next.Size -= grow
			}
			return f.Bytes(f.used.items[i]), nil
		}
	}

	// moving adds one used entry and at most one free entry
	if err := f.used.reserve(1); err != nil {
		return nil, err
	}
	if err := f.free.reserve(1); err != nil {
		return nil, err
	}
	nb, err := f.AllocBlock(size)
	if err != nil {
		return nil, err
	}
	copy(f.Bytes(nb), f.Bytes(old))
	if err := f.FreeBlock(old); err != nil {
		return nil, err
	}
	return f.Bytes(nb), nil
}

// blockOf maps a slice returned by Alloc back to its block.
func (f *FreeList) blockOf(buf []byte) (Block, bool) {
	if cap(buf) == 0 || len(f.region) == 0 {
		return Block{}, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(f.region)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if p < base || p >= base+uintptr(len(f.region)) {
		return Block{}, false
	}
	return Block{Start: int(p - base), Size: cap(buf)}, true
}

// Bytes returns the memory of b.
// b must be a block returned by AllocBlock.
func (f *FreeList) Bytes(b Block) []byte {
	return f.region[b.Start:b.End():b.End()]
}

// Reset frees every block at once.
func (f *FreeList) Reset() {
	if f.released {
		return
	}
	f.used.items = f.used.items[:0]
	f.free.items = f.free.items[:0]
	f.free.insert(0, Block{Start: 0, Size: f.total})
	f.usedBytes = 0
}

// Release returns the region and the block tables to their allocators.
// The FreeList is unusable afterwards.
func (f *FreeList) Release() error {
	if f.released {
		return ErrReleased
	}
	f.released = true
	raw := f.raw
	f.region, f.raw = nil, nil
	f.usedBytes = 0

	err := errors.CombineErrors(f.used.release(), f.free.release())
	err = errors.CombineErrors(err, allocx.TryFree(f.backing, raw))
	if err != nil {
		return errors.Wrap(err, "freelist: release")
	}
	return nil
}

// Cap returns the size of the managed region.
func (f *FreeList) Cap() int { return f.total }

// UsedBytes returns the number of bytes in use.
func (f *FreeList) UsedBytes() int { return f.usedBytes }

// UsedBlocks returns a copy of the used blocks in address order.
func (f *FreeList) UsedBlocks() []Block { return f.used.snapshot() }

// FreeBlocks returns a copy of the free blocks in address order.
func (f *FreeList) FreeBlocks() []Block { return f.free.snapshot() }

// Stats ...
type Stats struct {
	Total       int
	Used        int
	Free        int
	UsedBlocks  int
	FreeBlocks  int
	LargestFree int
}

// Stats returns the current usage.
func (f *FreeList) Stats() Stats {
	s := Stats{
		Total:      f.total,
		Used:       f.usedBytes,
		Free:       f.total - f.usedBytes,
		UsedBlocks: len(f.used.items),
		FreeBlocks: len(f.free.items),
	}
	if f.released {
		s.Free = 0
	}
	for _, b := range f.free.items {
		if b.Size > s.LargestFree {
			s.LargestFree = b.Size
		}
	}
	return s
}
