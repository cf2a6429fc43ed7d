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

import "github.com/cockroachdb/errors"

var (
	// ErrCapacityExceeded indicates the arena has not enough room left.
	ErrCapacityExceeded = errors.New("arena: capacity exceeded")

	// ErrInvalidSize indicates a negative size or capacity.
	ErrInvalidSize = errors.New("arena: invalid size")

	// ErrInvalidated indicates a sub-arena whose parent was reset or released.
	ErrInvalidated = errors.New("arena: sub-arena invalidated by its parent")

	// ErrReleased indicates the arena was released.
	ErrReleased = errors.New("arena: released")
)
