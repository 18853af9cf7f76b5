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

package dto

import (
	"github.com/zintix-labs/rocklab/corefmt"
	"github.com/zintix-labs/rocklab/sdk/cycle"
	"github.com/zintix-labs/rocklab/sdk/tower"
	"github.com/zintix-labs/rocklab/spec"
)

type SolveResult struct {
	PID         spec.PID  `json:"pid"`                    // 題目編號（臨時輸入為 0）
	Name        string    `json:"name"`                   // 題目名稱
	JetPeriod   int       `json:"jet_period"`             // 噴流週期長度
	Target      int64     `json:"target"`                 // 目標岩石數
	Height      int64     `json:"height"`                 // 答案
	StackHeight int64     `json:"stack_height"`           // 實際模擬的堆疊高度
	ExtraHeight int64     `json:"extra_height"`           // 外推補上的高度
	Simulated   int64     `json:"simulated"`              // 實際模擬的岩石數
	Skipped     int64     `json:"skipped"`                // 外推跳過的岩石數
	Cycle       *CycleDTO `json:"cycle,omitempty"`        // 偵測到的週期
	SurfaceB64U string    `json:"surface_b64u,omitempty"` // 最上方數列（由下往上，一列一 byte）
}

// CycleDTO 週期命中的對外表示，表面以 hex 輸出方便人工比對。
type CycleDTO struct {
	RockDelta   int64  `json:"rock_delta"`
	HeightDelta int64  `json:"height_delta"`
	At          int64  `json:"at"`
	Jet         int    `json:"jet"`
	Shape       int    `json:"shape"`
	SurfaceHex  string `json:"surface_hex"`
	Cycles      int64  `json:"cycles"`
}

// NewSolveResultDTO surface 為 nil 時不輸出表面
func NewSolveResultDTO(pid spec.PID, name string, period int, res tower.Result, surface []uint8) SolveResult {
	out := SolveResult{
		PID:         pid,
		Name:        name,
		JetPeriod:   period,
		Target:      res.Target,
		Height:      res.Height,
		StackHeight: res.StackHeight,
		ExtraHeight: res.ExtraHeight,
		Simulated:   res.Simulated,
		Skipped:     res.Skipped,
	}
	if res.Cycle != nil {
		out.Cycle = newCycleDTO(*res.Cycle, res.Jump)
	}
	if len(surface) > 0 {
		out.SurfaceB64U = corefmt.EncodeRows(surface)
	}
	return out
}

func newCycleDTO(m cycle.Match, j cycle.Jump) *CycleDTO {
	var raw [8]byte
	for i := range raw {
		raw[7-i] = byte(m.Key.Surface >> (8 * i))
	}
	return &CycleDTO{
		RockDelta:   m.RockDelta,
		HeightDelta: m.HeightDelta,
		At:          m.At,
		Jet:         m.Key.Jet,
		Shape:       m.Key.Shape,
		SurfaceHex:  corefmt.EncodeHex(raw[:]),
		Cycles:      j.Cycles,
	}
}
