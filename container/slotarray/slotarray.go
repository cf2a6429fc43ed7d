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

// Package slotarray provides a fixed-capacity store handing out stable integer indices.
package slotarray

import (
	"math/bits"

	"github.com/cockroachdb/errors"
)

// SlotArray stores up to Cap() items. The index returned by Add stays valid
// until the item is removed, and is reused afterwards.
//
// It's not safe for concurrent use.
type SlotArray[T any] struct {
	items    []T
	occupied []uint64 // bit i set iff items[i] is in use
	freeIdx  []int    // stack, the top is popped by Add
	size     int
}

// New creates a SlotArray with the given capacity.
func New[T any](capacity int) (*SlotArray[T], error) {
	if capacity < 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "capacity %d", capacity)
	}
	s := &SlotArray[T]{
		items:    make([]T, capacity),
		occupied: make([]uint64, (capacity+63)/64),
		freeIdx:  make([]int, capacity),
	}
	// reversed, so index 0 is popped first
	for i := range s.freeIdx {
		s.freeIdx[i] = capacity - 1 - i
	}
	return s, nil
}

// Add stores item and returns its index.
func (s *SlotArray[T]) Add(item T) (int, error) {
	n := len(s.freeIdx)
	if n == 0 {
		return -1, errors.Wrapf(ErrFull, "capacity %d", len(s.items))
	}
	idx := s.freeIdx[n-1]
	s.freeIdx = s.freeIdx[:n-1]
	s.occupied[idx>>6] |= 1 << (idx & 63)
	s.items[idx] = item
	s.size++
	return idx, nil
}

// RemoveAt removes the item at idx, which may be returned by a later Add.
func (s *SlotArray[T]) RemoveAt(idx int) error {
	if idx < 0 || idx >= len(s.items) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, capacity %d", idx, len(s.items))
	}
	if !s.isSet(idx) {
		return errors.Wrapf(ErrNotOccupied, "index %d", idx)
	}
	s.occupied[idx>>6] &^= 1 << (idx & 63)
	var zero T
	s.items[idx] = zero
	s.freeIdx = append(s.freeIdx, idx)
	s.size--
	return nil
}

// Get returns the item at idx, and false if there is none.
func (s *SlotArray[T]) Get(idx int) (T, bool) {
	if idx < 0 || idx >= len(s.items) || !s.isSet(idx) {
		var zero T
		return zero, false
	}
	return s.items[idx], true
}

// GetAll returns the items in ascending index order.
func (s *SlotArray[T]) GetAll() []T {
	ret := make([]T, 0, s.size)
	s.each(func(i int) { ret = append(ret, s.items[i]) })
	return ret
}

// Indices returns the occupied indices in ascending order.
func (s *SlotArray[T]) Indices() []int {
	ret := make([]int, 0, s.size)
	s.each(func(i int) { ret = append(ret, i) })
	return ret
}

// Len returns the number of items.
func (s *SlotArray[T]) Len() int { return s.size }

// Cap returns the max number of items.
func (s *SlotArray[T]) Cap() int { return len(s.items) }

func (s *SlotArray[T]) isSet(idx int) bool {
	return s.occupied[idx>>6]&(1<<(idx&63)) != 0
}

func (s *SlotArray[T]) each(f func(i int)) {
	for w, word := range s.occupied {
		for word != 0 {
			f(w<<6 + bits.TrailingZeros64(word))
			word &= word - 1
		}
	}
}
