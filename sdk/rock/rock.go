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

// Package rock 模擬單顆岩石從出現到靜止的過程。
//
// 每一步固定是「噴流推一次」再「重力落一格」，順序不可交換。
// 被牆壁或堆疊擋住的移動只是控制流程，不是錯誤。
package rock

import (
	"github.com/zintix-labs/rocklab/sdk/chamber"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/shape"
)

// State 岩石生命週期
type State uint8

const (
	Spawned State = iota
	Falling
	Landed
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Falling:
		return "falling"
	case Landed:
		return "landed"
	default:
		return "unknown"
	}
}

// 出生位置：距左牆 2 欄，距堆疊頂 3 列空隙
const (
	SpawnX   = 2
	SpawnGap = 3
)

// Rock 正在下落的岩石，x 為最左格欄位，y 為最底列高度。
type Rock struct {
	Shape shape.Shape
	X     int
	Y     int
	State State
}

// Spawn 在目前堆疊上方產生新岩石
func Spawn(s shape.Shape, ch *chamber.Chamber) *Rock {
	r := &Rock{}
	r.reset(s, ch)
	return r
}

func (r *Rock) reset(s shape.Shape, ch *chamber.Chamber) {
	r.Shape = s
	r.X = SpawnX
	r.Y = ch.Height() + SpawnGap
	r.State = Spawned
}

// Step 推一次、落一次。已落地的岩石不再移動。
func (r *Rock) Step(d jet.Dir, ch *chamber.Chamber) State {
	if r.State == Landed {
		return Landed
	}
	r.State = Falling

	// push
	nx := r.X + int(d)
	if nx >= 0 && nx+shape.Width(r.Shape) <= chamber.Width && ch.CanPlace(shape.RowsAt(r.Shape, nx), r.Y) {
		r.X = nx
	}

	// gravity
	if r.Y == 0 || !ch.CanPlace(shape.RowsAt(r.Shape, r.X), r.Y-1) {
		r.State = Landed
		return Landed
	}
	r.Y--
	return Falling
}

// Land 把岩石寫進堆疊，回傳重疊 bit（正常為 0）。
func (r *Rock) Land(ch *chamber.Chamber) uint8 {
	r.State = Landed
	return ch.Merge(shape.RowsAt(r.Shape, r.X), r.Y)
}

// Landing 單顆岩石的落地紀錄
type Landing struct {
	Shape        shape.Shape `json:"shape"`
	ShapeIdx     int         `json:"shape_idx"`
	JetIdx       int         `json:"jet_idx"` // 最後一次使用的噴流位置
	X            int         `json:"x"`
	Y            int         `json:"y"`
	HeightBefore int         `json:"height_before"`
	HeightAfter  int         `json:"height_after"`
	Overlap      uint8       `json:"overlap"`
	Jets         int         `json:"jets"` // 本顆岩石消耗的噴流數
}

// Gain 本顆岩石讓堆疊長高的列數
func (l Landing) Gain() int { return l.HeightAfter - l.HeightBefore }

// Drop 丟下一顆岩石直到落地並合併。shapeIdx 由呼叫端的形狀序列提供。
func Drop(s shape.Shape, shapeIdx int, jets *jet.Sequence, ch *chamber.Chamber) Landing {
	var r Rock
	r.reset(s, ch)
	l := Landing{Shape: s, ShapeIdx: shapeIdx, HeightBefore: ch.Height()}
	for {
		d, idx := jets.Next()
		l.JetIdx = idx
		l.Jets++
		if r.Step(d, ch) == Landed {
			break
		}
	}
	l.X, l.Y = r.X, r.Y
	l.Overlap = r.Land(ch)
	l.HeightAfter = ch.Height()
	return l
}
