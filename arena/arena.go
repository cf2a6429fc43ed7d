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

// Package arena implements a monotonic bump allocator over a fixed region.
//
// Blocks are never freed one by one: Reset reclaims the whole region at once.
// A sub-arena is a view of the unused tail of its parent. It shares the
// parent's memory and is invalidated as soon as the parent is reset or released,
// after which every call on it returns ErrInvalidated.
//
// An Arena is not safe for concurrent use.
package arena

import (
	"github.com/cockroachdb/errors"

	"github.com/cloudwego/memkit/allocx"
	"github.com/cloudwego/memkit/internal/logger"
)

// Arena is a fixed-capacity region with a monotonically increasing offset.
type Arena struct {
	buf []byte
	off int

	// gen changes on Reset and Release. Sub-arenas remember the value they
	// were carved at.
	gen    uint64
	parent *Arena
	pgen   uint64

	// backing and raw are only set for arenas created by New*.
	backing  allocx.Allocator
	raw      []byte
	released bool
}

// New creates an arena of capacity bytes from allocx.DefaultHeap.
func New(capacity int, zeroInit bool) (*Arena, error) {
	return NewWithBacking(allocx.DefaultHeap, capacity, zeroInit)
}

// NewWithBacking creates an arena of capacity bytes from backing.
// If zeroInit is true, the region is cleared, otherwise its content is whatever
// backing returned.
func NewWithBacking(backing allocx.Allocator, capacity int, zeroInit bool) (*Arena, error) {
	if capacity < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "capacity %d", capacity)
	}
	if backing == nil {
		backing = allocx.DefaultHeap
	}
	raw, err := backing.Alloc(capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "arena: acquire %d bytes", capacity)
	}
	buf := raw[:capacity:capacity]
	if zeroInit {
		clear(buf)
	}
	return &Arena{buf: buf, backing: backing, raw: raw}, nil
}

// Sub returns a sub-arena starting at the current offset of a.
//
// No memory is allocated. Allocations from a made after this call overlap with
// the sub-arena; the caller decides which of the two is in use.
func (a *Arena) Sub() (*Arena, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	end := len(a.buf)
	return &Arena{
		buf:    a.buf[a.off:end:end],
		parent: a,
		pgen:   a.gen,
	}, nil
}

// Alloc returns the next size bytes of the region.
//
// No alignment is guaranteed. The cap of the returned slice equals its len, so
// appending to it never touches the next block.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "alloc %d", size)
	}
	if size > len(a.buf)-a.off {
		logger.L().Debug("arena exhausted", "size", size, "offset", a.off, "capacity", len(a.buf))
		return nil, errors.Wrapf(ErrCapacityExceeded, "alloc %d bytes at offset %d of %d", size, a.off, len(a.buf))
	}
	end := a.off + size
	b := a.buf[a.off:end:end]
	a.off = end
	return b, nil
}

// Reset moves the offset back to zero. Memory is not cleared.
// Outstanding sub-arenas become invalid.
func (a *Arena) Reset() {
	if a.released {
		return
	}
	a.off = 0
	a.gen++
}

// Release returns the region to the allocator it came from, if that allocator
// supports Free. The arena and its sub-arenas are unusable afterwards.
func (a *Arena) Release() error {
	if a.released {
		return ErrReleased
	}
	a.released = true
	a.gen++
	a.buf = nil
	a.off = 0
	raw := a.raw
	a.raw = nil
	if a.backing == nil {
		return nil
	}
	if err := allocx.TryFree(a.backing, raw); err != nil {
		return errors.Wrap(err, "arena: release")
	}
	return nil
}

// Offset returns the number of bytes allocated since the last Reset.
func (a *Arena) Offset() int { return a.off }

// Cap returns the capacity of the arena.
func (a *Arena) Cap() int { return len(a.buf) }

// Remaining returns the number of bytes left.
func (a *Arena) Remaining() int { return len(a.buf) - a.off }

// Valid reports whether a can still be used.
func (a *Arena) Valid() bool { return a.check() == nil }

func (a *Arena) check() error {
	if a.released {
		return ErrReleased
	}
	for c := a; c.parent != nil; c = c.parent {
		if c.parent.released || c.parent.gen != c.pgen {
			logger.L().Warn("use of invalidated sub-arena", "capacity", len(a.buf))
			return ErrInvalidated
		}
	}
	return nil
}
