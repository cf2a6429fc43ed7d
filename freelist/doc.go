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

// Package freelist implements a first-fit sub-allocator over one contiguous region.
//
// # Overview
//
// A FreeList owns a region of Cap() bytes and tracks it as two tables of
// blocks, used and free, both sorted by start offset. Together they always
// tile the region: every byte belongs to exactly one block.
//
//   - AllocBlock(size): takes the lowest-addressed free block of at least
//     size bytes. The used part is cut from its front, the rest stays free.
//   - FreeBlock(block): moves the block back to the free table and merges
//     it with the free blocks right before and after it, so two free blocks
//     are never contiguous.
//
// Lookups in both tables are binary searches. First-fit needs a linear scan
// of the free table, which stays short as long as the region is not badly
// fragmented.
//
// # Memory
//
// The region comes from Options.Backing and the tables from
// Options.Bookkeeping. Both default to allocx.DefaultHeap. Any allocx.Allocator
// works, e.g. an arena for the tables and an allocx.MmapAllocator for a large
// region kept out of the Go heap:
//
//	mm, _ := allocx.NewMmapAllocator()
//	fl, err := freelist.NewWithOptions(64<<20, &freelist.Options{Backing: mm})
//	if err != nil {
//	    return err
//	}
//	defer fl.Release()
//
// FreeList implements allocx.Full, so containers written against the
// allocator capability can use it directly through Alloc, Realloc and Free.
//
// # Errors
//
// ErrNoSpace is the only expected failure: free something and retry.
// ErrBlockNotFound and ErrInvalidSize report misuse, and leave the FreeList
// unchanged.
//
// # Thread Safety
//
// A FreeList is not safe for concurrent use. Callers must synchronize access
// externally.
package freelist
