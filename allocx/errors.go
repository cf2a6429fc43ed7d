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

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidSize indicates a negative size or one that overflows int.
	ErrInvalidSize = errors.New("allocx: invalid size")

	// ErrNotSupported indicates the allocator is not available on this platform.
	ErrNotSupported = errors.New("allocx: not supported on this platform")

	// ErrNotMapped indicates a Free of a buffer the MmapAllocator did not map.
	ErrNotMapped = errors.New("allocx: buffer not mapped by this allocator")
)
