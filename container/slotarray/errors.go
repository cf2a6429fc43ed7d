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

package slotarray

import "github.com/cockroachdb/errors"

var (
	// ErrFull indicates Add found no free index.
	ErrFull = errors.New("slotarray: no free slot")

	// ErrIndexOutOfRange indicates an index outside of [0, Cap()).
	ErrIndexOutOfRange = errors.New("slotarray: index out of range")

	// ErrNotOccupied indicates RemoveAt of an index holding no item.
	ErrNotOccupied = errors.New("slotarray: slot not occupied")

	// ErrInvalidCapacity indicates a negative capacity passed to New.
	ErrInvalidCapacity = errors.New("slotarray: invalid capacity")
)
