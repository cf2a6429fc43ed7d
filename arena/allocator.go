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

package arena

import "github.com/cloudwego/memkit/allocx"

type bumpAllocator struct {
	a *Arena
}

// AsAllocator exposes a as an allocx.Allocator.
//
// Only Alloc is available: a bump allocator cannot reclaim individual blocks,
// so the result implements neither allocx.Reallocator nor allocx.Freer.
// Consumers never see Reset either; whoever owns the arena decides when the
// blocks die.
func AsAllocator(a *Arena) allocx.Allocator {
	return bumpAllocator{a: a}
}

func (b bumpAllocator) Alloc(size int) ([]byte, error) {
	return b.a.Alloc(size)
}
