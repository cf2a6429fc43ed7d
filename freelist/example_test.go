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

package freelist_test

import (
	"fmt"

	"github.com/cloudwego/memkit/freelist"
)

func Example() {
	fl, err := freelist.New(512)
	if err != nil {
		panic(err)
	}
	defer fl.Release()

	a, _ := fl.AllocBlock(100)
	b, _ := fl.AllocBlock(200)
	fmt.Println(a, b)

	_ = fl.FreeBlock(a)
	fmt.Println(fl.FreeBlocks())

	_ = fl.FreeBlock(b)
	fmt.Println(fl.FreeBlocks())

	// Output:
	// [0, 100) [100, 300)
	// [[0, 100) [300, 512)]
	// [[0, 512)]
}
