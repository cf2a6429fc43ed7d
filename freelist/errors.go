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

import "github.com/cockroachdb/errors"

var (
	// ErrNoSpace indicates that no free block is large enough.
	// It's recoverable: free other blocks and retry.
	ErrNoSpace = errors.New("freelist: no free block large enough")

	// ErrBlockNotFound indicates a free of a block that is not in use.
	ErrBlockNotFound = errors.New("freelist: block not in use")

	// ErrInvalidSize indicates a non-positive size.
	ErrInvalidSize = errors.New("freelist: invalid size")

	// ErrReleased indicates the free list was released.
	ErrReleased = errors.New("freelist: released")

	// ErrCorrupted marks errors returned by Validate.
	ErrCorrupted = errors.New("freelist: corrupted")
)
