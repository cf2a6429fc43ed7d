//go:build !unix

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

// MmapAllocator is not available on this platform.
type MmapAllocator struct{}

// NewMmapAllocator always returns ErrNotSupported.
func NewMmapAllocator() (*MmapAllocator, error) {
	return nil, ErrNotSupported
}

func (m *MmapAllocator) Alloc(size int) ([]byte, error) { return nil, ErrNotSupported }

func (m *MmapAllocator) Free(buf []byte) error { return ErrNotSupported }

func (m *MmapAllocator) Mapped() int { return 0 }
