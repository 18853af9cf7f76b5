// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package core 決定性亂數來源，給隨機噴流產生器使用。同一個 seed 永遠產生同一串輸出。
package core

// PRNG Core 所需的亂數來源。
type PRNG interface {
	Uint64() uint64
	// IntN 回傳 [0,n)，n <= 0 時回傳 -1。
	IntN(n int) int
	Snapshot() ([]byte, error)
	Restore([]byte) error
}

// Core 封裝 PRNG 並提供常用取樣方法。
type Core struct {
	PRNG
}

// New 以 seed 建立預設的 PCG64 Core
func New(seed int64) *Core {
	return &Core{newPCG64WithSeed(seed)}
}

// NewWith 使用外部實作的 PRNG
func NewWith(rng PRNG) *Core {
	return &Core{rng}
}

// Bool 公平的 true / false
func (c *Core) Bool() bool {
	return c.Uint64()>>63 == 1
}

// Pick 從列表中隨機選一個元素，列表為空回傳 -1
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	return src[c.IntN(len(src))]
}
