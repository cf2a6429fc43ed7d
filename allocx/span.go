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
	"github.com/bytedance/gopkg/lang/span"
	"github.com/cockroachdb/errors"
)

// DefaultSpanSize is the span size used by NewSpanAllocator when size <= 0.
const DefaultSpanSize = 1024 * 1024

// SpanAllocator is an allocate-only allocator for short-lived scratch memory.
//
// Small blocks are carved from shared spans, larger ones are allocated directly.
// Blocks are never returned individually, they are collected by the GC once
// every block of a span is unreachable. It's safe for concurrent use.
type SpanAllocator struct {
	c interface {
		Make(n int) []byte
	}
}

// NewSpanAllocator creates a SpanAllocator with spans of the given size.
func NewSpanAllocator(size int) *SpanAllocator {
	if size <= 0 {
		size = DefaultSpanSize
	}
	return &SpanAllocator{c: span.NewSpanCache(size)}
}

// Alloc returns a block of size bytes. The block is NOT zeroed.
func (s *SpanAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "span alloc %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	// clip cap: neighbours in the same span must not be reachable by append
	b := s.c.Make(size)
	return b[:size:size], nil
}
