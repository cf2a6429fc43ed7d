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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/memkit/allocx"
	"github.com/cloudwego/memkit/arena"
)

func newTestFreeList(t *testing.T, total int) *FreeList {
	t.Helper()
	f, err := New(total)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	return f
}

func mustAlloc(t *testing.T, f *FreeList, size int) Block {
	t.Helper()
	b, err := f.AllocBlock(size)
	require.NoError(t, err, "size=%d", size)
	require.NoError(t, f.Validate())
	return b
}

func mustFree(t *testing.T, f *FreeList, b Block) {
	t.Helper()
	require.NoError(t, f.FreeBlock(b), "block=%v", b)
	require.NoError(t, f.Validate())
}

// limitAllocator fails every Alloc after the first limit calls.
type limitAllocator struct {
	allocx.HeapAllocator
	limit int
	calls int
}

func (a *limitAllocator) Alloc(size int) ([]byte, error) {
	a.calls++
	if a.calls > a.limit {
		return nil, errors.New("limit reached")
	}
	return a.HeapAllocator.Alloc(size)
}

func TestNew(t *testing.T) {
	f := newTestFreeList(t, 100)
	assert.Equal(t, 100, f.Cap())
	assert.Equal(t, 0, f.UsedBytes())
	assert.Equal(t, []Block{{Start: 0, Size: 100}}, f.FreeBlocks())
	assert.Empty(t, f.UsedBlocks())

	for _, n := range []int{0, -1} {
		_, err := New(n)
		assert.True(t, errors.Is(err, ErrInvalidSize), "n=%d", n)
	}

	_, err := NewWithOptions(100, &Options{Backing: &limitAllocator{limit: 0}})
	assert.Error(t, err)
	_, err = NewWithOptions(100, &Options{Bookkeeping: &limitAllocator{limit: 1}})
	assert.Error(t, err)
}

func TestAllocSequential(t *testing.T) {
	f := newTestFreeList(t, 512)

	var blocks []Block
	for i := 0; i < 16; i++ {
		b := mustAlloc(t, f, 32)
		assert.Equal(t, Block{Start: i * 32, Size: 32}, b)
		blocks = append(blocks, b)
	}
	assert.Equal(t, 512, f.UsedBytes())
	assert.Equal(t, 16, len(f.UsedBlocks()))
	assert.Empty(t, f.FreeBlocks())

	_, err := f.AllocBlock(1)
	assert.True(t, errors.Is(err, ErrNoSpace))

	mustFree(t, f, blocks[1])
	mustFree(t, f, blocks[0])
	assert.Equal(t, []Block{{Start: 0, Size: 64}}, f.FreeBlocks())
	assert.Equal(t, 448, f.UsedBytes())
}

func TestFirstFit(t *testing.T) {
	f := newTestFreeList(t, 128)
	var blocks []Block
	for i := 0; i < 4; i++ {
		blocks = append(blocks, mustAlloc(t, f, 32))
	}
	mustFree(t, f, blocks[0])
	mustFree(t, f, blocks[2])
	require.Equal(t, []Block{{0, 32}, {64, 32}}, f.FreeBlocks())

	b := mustAlloc(t, f, 16)
	assert.Equal(t, Block{Start: 0, Size: 16}, b)
	assert.Equal(t, []Block{{16, 16}, {64, 32}}, f.FreeBlocks())

	// too big for the first hole
	b = mustAlloc(t, f, 24)
	assert.Equal(t, Block{Start: 64, Size: 24}, b)
	assert.Equal(t, []Block{{16, 16}, {88, 8}}, f.FreeBlocks())

	// exact fit removes the free block
	b = mustAlloc(t, f, 16)
	assert.Equal(t, Block{Start: 16, Size: 16}, b)
	assert.Equal(t, []Block{{88, 8}}, f.FreeBlocks())

	_, err := f.AllocBlock(9)
	assert.True(t, errors.Is(err, ErrNoSpace))
}

func TestCoalesceOrder(t *testing.T) {
	a := Block{Start: 32, Size: 32}
	b := Block{Start: 64, Size: 32}
	c := Block{Start: 128, Size: 32}
	want := []Block{{32, 64}, {128, 32}}

	orders := map[string][]Block{
		"ABC": {a, b, c},
		"CBA": {c, b, a},
		"BAC": {b, a, c},
		"ACB": {a, c, b},
		"CAB": {c, a, b},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			f := newTestFreeList(t, 192)
			for i := 0; i < 6; i++ {
				mustAlloc(t, f, 32)
			}
			for _, blk := range order {
				mustFree(t, f, blk)
			}
			assert.Equal(t, want, f.FreeBlocks())
			assert.Equal(t, 96, f.UsedBytes())
		})
	}
}

func TestCoalesceBothSides(t *testing.T) {
	f := newTestFreeList(t, 96)
	x := mustAlloc(t, f, 32)
	y := mustAlloc(t, f, 32)
	z := mustAlloc(t, f, 32)

	mustFree(t, f, x)
	mustFree(t, f, z)
	require.Equal(t, []Block{{0, 32}, {64, 32}}, f.FreeBlocks())

	// y bridges both neighbours, including the last entry of the table
	mustFree(t, f, y)
	assert.Equal(t, []Block{{0, 96}}, f.FreeBlocks())
	assert.Equal(t, 0, f.UsedBytes())
}

func TestCoalesceTail(t *testing.T) {
	f := newTestFreeList(t, 100)
	x := mustAlloc(t, f, 60)
	require.Equal(t, []Block{{60, 40}}, f.FreeBlocks())

	mustFree(t, f, x)
	assert.Equal(t, []Block{{0, 100}}, f.FreeBlocks())
}

func TestFreeErrors(t *testing.T) {
	f := newTestFreeList(t, 128)
	x := mustAlloc(t, f, 32)
	mustAlloc(t, f, 32)

	tests := []struct {
		name string
		b    Block
	}{
		{"never_allocated", Block{Start: 64, Size: 32}},
		{"wrong_size", Block{Start: 0, Size: 16}},
		{"wrong_start", Block{Start: 16, Size: 32}},
		{"out_of_region", Block{Start: 1000, Size: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.Stats()
			err := f.FreeBlock(tt.b)
			assert.True(t, errors.Is(err, ErrBlockNotFound))
			assert.Equal(t, before, f.Stats())
			assert.NoError(t, f.Validate())
		})
	}

	mustFree(t, f, x)
	assert.True(t, errors.Is(f.FreeBlock(x), ErrBlockNotFound), "double free")
}

func TestAllocErrors(t *testing.T) {
	f := newTestFreeList(t, 64)
	for _, n := range []int{0, -5} {
		_, err := f.AllocBlock(n)
		assert.True(t, errors.Is(err, ErrInvalidSize))
	}
	_, err := f.AllocBlock(65)
	assert.True(t, errors.Is(err, ErrNoSpace))

	// recoverable
	b := mustAlloc(t, f, 64)
	_, err = f.AllocBlock(1)
	assert.True(t, errors.Is(err, ErrNoSpace))
	mustFree(t, f, b)
	mustAlloc(t, f, 1)
}

func TestBookkeepingGrowth(t *testing.T) {
	f, err := NewWithOptions(4096, &Options{NodeCapacity: 1})
	require.NoError(t, err)

	var blocks []Block
	for i := 0; i < 128; i++ {
		blocks = append(blocks, mustAlloc(t, f, 32))
	}
	// free every other block: the free table grows too
	for i := 0; i < len(blocks); i += 2 {
		mustFree(t, f, blocks[i])
	}
	assert.Equal(t, 64, len(f.FreeBlocks()))
	for i := 1; i < len(blocks); i += 2 {
		mustFree(t, f, blocks[i])
	}
	assert.Equal(t, []Block{{0, 4096}}, f.FreeBlocks())
}

func TestBookkeepingFailure(t *testing.T) {
	la := &limitAllocator{limit: 2} // one table each
	f, err := NewWithOptions(1024, &Options{Bookkeeping: la, NodeCapacity: minNodeCapacity})
	require.NoError(t, err)

	var blocks []Block
	for i := 0; i < minNodeCapacity; i++ {
		blocks = append(blocks, mustAlloc(t, f, 16))
	}
	before := f.Stats()
	_, err = f.AllocBlock(16)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSpace))
	assert.Equal(t, before, f.Stats())
	assert.NoError(t, f.Validate())

	// freeing non-adjacent blocks needs free table entries: 1 existing + 2 new
	mustFree(t, f, blocks[0])
	mustFree(t, f, blocks[2])
	assert.Equal(t, 3, len(f.FreeBlocks()))
	mustFree(t, f, blocks[1])
	mustFree(t, f, blocks[3])
	assert.Equal(t, []Block{{0, 1024}}, f.FreeBlocks())
}

func TestReallocBookkeepingFailure(t *testing.T) {
	la := &limitAllocator{limit: 1 << 30}
	f, err := NewWithOptions(100, &Options{Bookkeeping: la, NodeCapacity: minNodeCapacity})
	require.NoError(t, err)

	var blocks []Block
	for i := 0; i < 7; i++ {
		blocks = append(blocks, mustAlloc(t, f, 10))
	}
	mustFree(t, f, blocks[0])
	mustFree(t, f, blocks[2])
	mustFree(t, f, blocks[4])
	// the free table is full: any new free entry needs a bigger table
	require.Equal(t, []Block{{0, 10}, {20, 10}, {40, 10}, {70, 30}}, f.FreeBlocks())
	require.Equal(t, minNodeCapacity, cap(f.free.items))

	b := f.Bytes(blocks[1])
	for i := range b {
		b[i] = byte(i + 1)
	}
	la.limit = la.calls

	before := f.Stats()
	used, free := f.UsedBlocks(), f.FreeBlocks()
	_, err = f.Realloc(b, 25) // cannot grow in place, must move
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSpace))
	assert.Equal(t, before, f.Stats())
	assert.Equal(t, used, f.UsedBlocks())
	assert.Equal(t, free, f.FreeBlocks())
	assert.NoError(t, f.Validate())

	la.limit = 1 << 30
	nb, err := f.Realloc(b, 25)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nb[:10])
	assert.Equal(t, []Block{{0, 30}, {40, 10}, {95, 5}}, f.FreeBlocks())
}

func TestArenaBookkeeping(t *testing.T) {
	a, err := arena.New(64<<10, false)
	require.NoError(t, err)
	f, err := NewWithOptions(1<<16, &Options{Bookkeeping: arena.AsAllocator(a), NodeCapacity: 2})
	require.NoError(t, err)

	var blocks []Block
	for i := 0; i < 100; i++ {
		blocks = append(blocks, mustAlloc(t, f, 100))
	}
	for i := len(blocks) - 1; i >= 0; i -= 3 {
		mustFree(t, f, blocks[i])
	}
	assert.Greater(t, a.Offset(), 0)
	require.NoError(t, f.Release())
}

func TestBytesAPI(t *testing.T) {
	f := newTestFreeList(t, 256)

	x, err := f.Alloc(32)
	require.NoError(t, err)
	assert.Equal(t, 32, len(x))
	assert.Equal(t, 32, cap(x))
	y, err := f.Alloc(32)
	require.NoError(t, err)
	for i := range x {
		x[i] = 'x'
	}
	for i := range y {
		y[i] = 'y'
	}
	assert.Equal(t, byte('x'), f.Bytes(Block{Start: 0, Size: 32})[31])
	assert.Equal(t, byte('y'), f.Bytes(Block{Start: 32, Size: 32})[0])

	// resliced len is fine
	require.NoError(t, f.Free(x[:3]))
	require.NoError(t, f.Validate())
	assert.True(t, errors.Is(f.Free(x), ErrBlockNotFound))
	assert.True(t, errors.Is(f.Free(make([]byte, 32)), ErrBlockNotFound))
	assert.True(t, errors.Is(f.Free(nil), ErrBlockNotFound))
	// moved start
	assert.True(t, errors.Is(f.Free(y[1:]), ErrBlockNotFound))
	require.NoError(t, f.Free(y))
	assert.Equal(t, []Block{{0, 256}}, f.FreeBlocks())
}

func TestRealloc(t *testing.T) {
	f := newTestFreeList(t, 256)
	x, err := f.Alloc(32)
	require.NoError(t, err)
	y, err := f.Alloc(32)
	require.NoError(t, err)
	for i := range x {
		x[i] = byte(i)
	}

	// shrink in place
	x, err = f.Realloc(x, 16)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, 16, len(x))
	assert.Equal(t, []Block{{0, 16}, {32, 32}}, f.UsedBlocks())
	assert.Equal(t, []Block{{16, 16}, {64, 192}}, f.FreeBlocks())

	// grow in place into the hole
	x, err = f.Realloc(x, 32)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, []Block{{0, 32}, {32, 32}}, f.UsedBlocks())
	assert.Equal(t, []Block{{64, 192}}, f.FreeBlocks())

	// same size
	x2, err := f.Realloc(x, 32)
	require.NoError(t, err)
	assert.Same(t, &x[0], &x2[0])

	// y is in the way: move
	x, err = f.Realloc(x, 48)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, []Block{{32, 32}, {64, 48}}, f.UsedBlocks())
	assert.Equal(t, []Block{{0, 32}, {112, 144}}, f.FreeBlocks())
	for i := 0; i < 16; i++ {
		assert.Equal(t, byte(i), x[i])
	}

	// grow in place consuming the whole tail
	x, err = f.Realloc(x, 192)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, []Block{{0, 32}}, f.FreeBlocks())
	assert.Equal(t, 32+192, f.UsedBytes())

	_, err = f.Realloc(x, 500)
	assert.True(t, errors.Is(err, ErrNoSpace))
	_, err = f.Realloc(x, 0)
	assert.True(t, errors.Is(err, ErrInvalidSize))
	_, err = f.Realloc(make([]byte, 4), 8)
	assert.True(t, errors.Is(err, ErrBlockNotFound))

	require.NoError(t, f.Free(x))
	require.NoError(t, f.Free(y))
	assert.Equal(t, []Block{{0, 256}}, f.FreeBlocks())
}

func TestReset(t *testing.T) {
	f := newTestFreeList(t, 256)
	for i := 0; i < 5; i++ {
		mustAlloc(t, f, 10)
	}
	f.Reset()
	require.NoError(t, f.Validate())
	assert.Equal(t, 0, f.UsedBytes())
	assert.Empty(t, f.UsedBlocks())
	assert.Equal(t, []Block{{0, 256}}, f.FreeBlocks())
}

func TestRelease(t *testing.T) {
	f := newTestFreeList(t, 256)
	b := mustAlloc(t, f, 10)
	require.NoError(t, f.Release())

	assert.True(t, errors.Is(f.Release(), ErrReleased))
	_, err := f.AllocBlock(1)
	assert.True(t, errors.Is(err, ErrReleased))
	assert.True(t, errors.Is(f.FreeBlock(b), ErrReleased))
	assert.True(t, errors.Is(f.Free([]byte{1}), ErrReleased))
	_, err = f.Realloc([]byte{1}, 2)
	assert.True(t, errors.Is(err, ErrReleased))
	assert.NoError(t, f.Validate())
}

func TestMmapBacking(t *testing.T) {
	mm, err := allocx.NewMmapAllocator()
	if err != nil {
		t.Skip(err)
	}
	f, err := NewWithOptions(1<<20, &Options{Backing: mm})
	require.NoError(t, err)
	assert.Equal(t, 1, mm.Mapped())

	x, err := f.Alloc(1000)
	require.NoError(t, err)
	x[999] = 1
	require.NoError(t, f.Free(x))

	require.NoError(t, f.Release())
	assert.Equal(t, 0, mm.Mapped())
}

func TestInsertIndex(t *testing.T) {
	v, err := newBlockVec(allocx.DefaultHeap, 8)
	require.NoError(t, err)
	for _, b := range []Block{{0, 10}, {20, 10}, {50, 10}} {
		v.insert(len(v.items), b)
	}

	tests := []struct {
		b    Block
		want int
	}{
		{Block{10, 10}, 1}, // touches both neighbours
		{Block{30, 5}, 2},  // right after [20, 30)
		{Block{45, 5}, 2},  // right before [50, 60)
		{Block{35, 5}, 2},  // touches nothing
		{Block{60, 5}, 3},
		{Block{70, 5}, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.insertIndex(tt.b), "block=%v", tt.b)
	}

	assert.Equal(t, 1, v.find(Block{20, 10}))
	assert.Equal(t, -1, v.find(Block{20, 5}))
	assert.Equal(t, -1, v.find(Block{25, 5}))
	require.NoError(t, v.release())
}

func TestValidateDetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(f *FreeList)
	}{
		{"adjacent_free", func(f *FreeList) {
			// split the single free block in two contiguous halves
			f.free.items[0].Size = 50
			f.free.insert(1, Block{Start: 50, Size: 50})
		}},
		{"gap", func(f *FreeList) {
			f.free.items[0].Start = 10
			f.free.items[0].Size = 90
		}},
		{"used_accounting", func(f *FreeList) {
			f.usedBytes = 1
		}},
		{"short_cover", func(f *FreeList) {
			f.free.items[0].Size = 99
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFreeList(t, 100)
			tt.corrupt(f)
			err := f.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupted))
		})
	}
}

func TestStats(t *testing.T) {
	f := newTestFreeList(t, 100)
	x := mustAlloc(t, f, 10)
	mustAlloc(t, f, 20)
	mustFree(t, f, x)
	assert.Equal(t, Stats{
		Total:       100,
		Used:        20,
		Free:        80,
		UsedBlocks:  1,
		FreeBlocks:  2,
		LargestFree: 70,
	}, f.Stats())
}
