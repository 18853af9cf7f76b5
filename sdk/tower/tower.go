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

// Package tower 是完整的求解迴圈：逐顆丟岩石、偵測週期、外推到目標岩石數。
//
// Tower 不是併發安全的；併發場景請每個 goroutine 各自持有一個（或透過 MachinePool 借用）。
package tower

import (
	"context"
	"log/slog"
	"math"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/chamber"
	"github.com/zintix-labs/rocklab/sdk/cycle"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/rock"
	"github.com/zintix-labs/rocklab/sdk/shape"
)

// MaxTarget 外推後的高度最多是 4*target（每顆岩石最多 4 列），必須放得進 int64。
const MaxTarget = math.MaxInt64 / shape.MaxRows

// MaxDirectRocks 不外推時直接模擬的岩石數上限。
const MaxDirectRocks int64 = 50_000_000

// ctx 檢查間隔（岩石數）
const pollEvery = 4096

// Options 求解參數
type Options struct {
	Window        int   // 指紋頂部列數 [1, 9]
	MinCycleRocks int64 // 週期可信門檻
	NoExtrapolate bool  // 只做直接模擬

	OnLand  func(rock.Landing) // 每顆岩石落地後呼叫（僅限實際模擬的岩石）
	OnCycle func(cycle.Match)  // 每次可信的週期命中
	Logger  *slog.Logger       // nil 時不輸出
}

// Limit 這組參數可接受的最大 target
func (o Options) Limit() int64 {
	if o.NoExtrapolate {
		return MaxDirectRocks
	}
	return MaxTarget
}

func DefaultOptions() Options {
	return Options{
		Window:        cycle.DefaultWindow,
		MinCycleRocks: cycle.DefaultMinRocks,
	}
}

// Result 一次求解的結果
type Result struct {
	Target      int64        `json:"target"`
	Height      int64        `json:"height"`       // StackHeight + ExtraHeight
	StackHeight int64        `json:"stack_height"` // 實際模擬出的堆疊高度
	ExtraHeight int64        `json:"extra_height"` // 外推補上的高度
	Simulated   int64        `json:"simulated"`    // 實際模擬的岩石數
	Skipped     int64        `json:"skipped"`      // 外推跳過的岩石數
	Cycle       *cycle.Match `json:"cycle,omitempty"`
	Jump        cycle.Jump   `json:"jump"`
}

// Extrapolated 是否有跳過任何週期
func (r Result) Extrapolated() bool { return r.Skipped > 0 }

type Tower struct {
	pattern jet.Pattern
	opt     Options
	ch      *chamber.Chamber
	jets    *jet.Sequence
	shapes  *shape.Sequence
	det     *cycle.Detector
}

// New 建立 Tower。空的 pattern 或超出範圍的 Window 回傳 Warn。
func New(p jet.Pattern, opt Options) (*Tower, error) {
	if len(p) == 0 {
		return nil, errs.NewWarn("jet pattern is empty")
	}
	if opt.Window == 0 {
		opt.Window = cycle.DefaultWindow
	}
	if opt.Window < 1 || opt.Window > cycle.MaxWindow {
		return nil, errs.Warnf("window must be in [1, %d], got %d", cycle.MaxWindow, opt.Window)
	}
	if opt.MinCycleRocks == 0 {
		opt.MinCycleRocks = cycle.DefaultMinRocks
	}
	if opt.MinCycleRocks < 1 {
		return nil, errs.Warnf("min cycle rocks must be positive, got %d", opt.MinCycleRocks)
	}
	return &Tower{
		pattern: p,
		opt:     opt,
		ch:      chamber.New(),
		jets:    jet.NewSequence(p),
		shapes:  shape.NewSequence(),
		det:     cycle.NewDetector(opt.Window, opt.MinCycleRocks),
	}, nil
}

// Pattern 綁定的噴流序列
func (t *Tower) Pattern() jet.Pattern { return t.pattern }

// Options 生效中的參數（已補上預設值）
func (t *Tower) Options() Options { return t.opt }

// Reset 回到全新狀態：空堆疊、游標歸零、清空快取。
func (t *Tower) Reset() {
	t.ch.Reset()
	t.jets.Reset()
	t.shapes.Reset()
	t.det.Reset()
}

// Surface 目前最上方 k 列（由下往上），k 大於高度時回傳整個堆疊。
func (t *Tower) Surface(k int) []uint8 {
	if k > t.ch.Height() {
		k = t.ch.Height()
	}
	if k <= 0 {
		return nil
	}
	return t.ch.TopWindow(k)
}

// Run 等同 RunContext(context.Background(), target)。
func (t *Tower) Run(target int64) (Result, error) {
	return t.RunContext(context.Background(), target)
}

// RunContext 從全新狀態開始求解 target 顆岩石後的高度。
//
// 外推最多一次；之後剩下不足一個週期的岩石以直接模擬補完。
func (t *Tower) RunContext(ctx context.Context, target int64) (Result, error) {
	if limit := t.opt.Limit(); target < 0 || target > limit {
		return Result{}, errs.Warnf("target must be in [0, %d], got %d", limit, target)
	}
	t.Reset()

	res := Result{Target: target}
	jumped := false
	var count int64
	for count+res.Skipped < target {
		s, sidx := t.shapes.Next()
		l := rock.Drop(s, sidx, t.jets, t.ch)
		count++
		if t.opt.OnLand != nil {
			t.opt.OnLand(l)
		}

		if !jumped {
			if m, ok := t.det.Observe(t.ch, l.JetIdx, sidx, count); ok {
				if t.opt.OnCycle != nil {
					t.opt.OnCycle(m)
				}
				if res.Cycle == nil {
					mm := m
					res.Cycle = &mm
				}
				if !t.opt.NoExtrapolate {
					j, err := cycle.Extrapolate(m, count, target)
					if err != nil {
						return Result{}, errs.Wrap(err, "extrapolate")
					}
					if j.Cycles > 0 {
						jumped = true
						mm := m
						res.Cycle = &mm
						res.Jump = j
						res.Skipped = j.Rocks
						res.ExtraHeight = j.Height
						if t.opt.Logger != nil {
							t.opt.Logger.Debug("cycle.found",
								slog.Int64("at", m.At),
								slog.Int64("rock_delta", m.RockDelta),
								slog.Int64("height_delta", m.HeightDelta),
								slog.Int64("cycles", j.Cycles),
								slog.Int64("skipped", j.Rocks),
							)
						}
					}
				}
			}
		}

		if count%pollEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
	}

	res.Simulated = count
	res.StackHeight = int64(t.ch.Height())
	res.Height = res.StackHeight + res.ExtraHeight
	return res, nil
}
