package spec

import (
	"fmt"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/cycle"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/tower"
)

// PID 題目編號，在同一個 Catalog 內唯一。
type PID uint

// DefaultTargets 未指定 targets 時使用：第一部分與第二部分的岩石數。
var DefaultTargets = []int64{2022, 1_000_000_000_000}

// PuzzleSetting 描述一份噴流輸入以及求解它所需的全部設定。
type PuzzleSetting struct {
	PuzzleName    string  `yaml:"puzzle_name"     json:"puzzle_name"`
	PuzzleID      PID     `yaml:"puzzle_id"       json:"puzzle_id"`
	Jets          string  `yaml:"jets"            json:"jets"`
	Targets       []int64 `yaml:"targets"         json:"targets"`
	Window        int     `yaml:"window"          json:"window"`
	MinCycleRocks int64   `yaml:"min_cycle_rocks" json:"min_cycle_rocks"`
	StrictJets    *bool   `yaml:"strict_jets"     json:"strict_jets"`
	Extrapolate   *bool   `yaml:"extrapolate"     json:"extrapolate"`

	pattern jet.Pattern
}

// init 補上預設值、解析噴流並檢查
func (ps *PuzzleSetting) init() error {
	if len(ps.Targets) == 0 {
		ps.Targets = append([]int64(nil), DefaultTargets...)
	}
	if ps.Window == 0 {
		ps.Window = cycle.DefaultWindow
	}
	if ps.MinCycleRocks == 0 {
		ps.MinCycleRocks = cycle.DefaultMinRocks
	}
	if ps.StrictJets == nil {
		t := true
		ps.StrictJets = &t
	}
	if ps.Extrapolate == nil {
		t := true
		ps.Extrapolate = &t
	}
	return ps.valid()
}

func (ps *PuzzleSetting) valid() error {
	if ps.PuzzleName == "" {
		return errs.NewFatal("empty puzzle_name")
	}
	if ps.Window < 1 || ps.Window > cycle.MaxWindow {
		return errs.NewFatal(fmt.Sprintf("puzzle_name: %s err:window must be in [1, %d]", ps.PuzzleName, cycle.MaxWindow))
	}
	if ps.MinCycleRocks < 1 {
		return errs.NewFatal(fmt.Sprintf("puzzle_name: %s err:min_cycle_rocks must be positive", ps.PuzzleName))
	}
	// 不外推時每個 target 都要直接模擬完，上限較低
	limit := ps.Options().Limit()
	for _, t := range ps.Targets {
		if t < 0 || t > limit {
			return errs.NewFatal(fmt.Sprintf("puzzle_name: %s err:target out of range [0, %d]: %d", ps.PuzzleName, limit, t))
		}
	}

	p, err := jet.Parse(ps.Jets, *ps.StrictJets)
	if err != nil {
		e := errs.NewFatal(fmt.Sprintf("puzzle_name: %s err:invalid jets", ps.PuzzleName))
		e.Cause = err
		return e
	}
	ps.pattern = p
	return nil
}

// Pattern 已解析的噴流序列
func (ps *PuzzleSetting) Pattern() jet.Pattern { return ps.pattern }

// Strict 是否以嚴格模式解析外部輸入的噴流
func (ps *PuzzleSetting) Strict() bool { return ps.StrictJets == nil || *ps.StrictJets }

// Options 轉成 tower 的求解參數
func (ps *PuzzleSetting) Options() tower.Options {
	opt := tower.DefaultOptions()
	opt.Window = ps.Window
	opt.MinCycleRocks = ps.MinCycleRocks
	opt.NoExtrapolate = ps.Extrapolate != nil && !*ps.Extrapolate
	return opt
}
