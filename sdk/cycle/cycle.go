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

// Package cycle 偵測堆疊的週期性狀態，並把週期外推到極大的岩石數。
//
// 狀態指紋 = (頂部 K 列遮罩, 最後使用的噴流位置, 剛落地的形狀位置)。
// 同一指紋再次出現時，兩次之間的岩石數與高度差即為一個候選週期。
// 頂部 K 列只是近似；相距太近的重複不可信，由 MinRocks 過濾。
package cycle

import (
	"fmt"

	"github.com/zintix-labs/rocklab/sdk/chamber"
)

const (
	DefaultWindow   = 3
	MaxWindow       = 9 // 9*7 = 63 bit，剛好放進 uint64
	DefaultMinRocks = 50
)

// Fingerprint 快取鍵
type Fingerprint struct {
	Surface uint64 `json:"surface"`
	Jet     int    `json:"jet"`
	Shape   int    `json:"shape"`
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("surface=%#x jet=%d shape=%d", f.Surface, f.Jet, f.Shape)
}

// Surface 把最上方 k 列打包成 uint64，最頂列在最高位。
// 高度不足 k 時回傳 false。
func Surface(ch *chamber.Chamber, k int) (uint64, bool) {
	h := ch.Height()
	if k <= 0 || h < k {
		return 0, false
	}
	var v uint64
	for i := h - 1; i >= h-k; i-- {
		v = v<<chamber.Width | uint64(ch.Row(i))
	}
	return v, true
}

type seen struct {
	count  int64
	height int64
}

// Match 一次可信的週期命中
type Match struct {
	Key         Fingerprint `json:"key"`
	RockDelta   int64       `json:"rock_delta"`
	HeightDelta int64       `json:"height_delta"`
	At          int64       `json:"at"` // 命中時已落地的岩石數
	Height      int64       `json:"height"`
}

// Detector 指紋 → 首次（或最近一次可信）出現時的 (岩石數, 高度)。
type Detector struct {
	Window   int
	MinRocks int64
	cache    map[Fingerprint]seen
}

// NewDetector window 超出 [1, MaxWindow] 或 minRocks < 1 時改用預設值。
func NewDetector(window int, minRocks int64) *Detector {
	if window < 1 || window > MaxWindow {
		window = DefaultWindow
	}
	if minRocks < 1 {
		minRocks = DefaultMinRocks
	}
	return &Detector{
		Window:   window,
		MinRocks: minRocks,
		cache:    make(map[Fingerprint]seen, 4096),
	}
}

// Observe 在每顆岩石落地後呼叫，count 為已落地的岩石總數（含本顆）。
//
// 命中但距離小於 MinRocks 時不回報，也不更新紀錄：
// 若在這裡刷新，長度小於門檻的真實週期永遠不會被偵測到。
func (d *Detector) Observe(ch *chamber.Chamber, jetIdx, shapeIdx int, count int64) (Match, bool) {
	surface, ok := Surface(ch, d.Window)
	if !ok {
		return Match{}, false
	}
	key := Fingerprint{Surface: surface, Jet: jetIdx, Shape: shapeIdx}
	height := int64(ch.Height())

	old, hit := d.cache[key]
	if !hit {
		d.cache[key] = seen{count: count, height: height}
		return Match{}, false
	}
	if count-old.count < d.MinRocks {
		return Match{}, false
	}
	d.cache[key] = seen{count: count, height: height}
	return Match{
		Key:         key,
		RockDelta:   count - old.count,
		HeightDelta: height - old.height,
		At:          count,
		Height:      height,
	}, true
}

// Len 目前快取的指紋數
func (d *Detector) Len() int { return len(d.cache) }

func (d *Detector) Reset() {
	clear(d.cache)
}
