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

// Package gen 以固定 seed 產生隨機噴流序列，給交叉驗證與效能量測使用。
package gen

import (
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/core"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/sampler"
)

// DefaultRunWeights 同方向連續長度 1..5 的權重，接近實際謎題輸入的分布
var DefaultRunWeights = []int{45, 25, 15, 10, 5}

// MaxJets 單次產生的噴流長度上限
const MaxJets = 1 << 20

// JetGenerator 交替方向，每段長度由 run 權重抽出。
type JetGenerator struct {
	c    *core.Core
	runs *sampler.AliasTable
}

// NewJetGenerator runWeights[i] 是長度 i+1 的權重；nil 使用 DefaultRunWeights。
func NewJetGenerator(seed int64, runWeights []int) (*JetGenerator, error) {
	if runWeights == nil {
		runWeights = DefaultRunWeights
	}
	at, err := sampler.BuildAliasTable(runWeights)
	if err != nil {
		return nil, errs.Wrap(err, "build jet run table")
	}
	return &JetGenerator{c: core.New(seed), runs: at}, nil
}

// State 目前的亂數狀態；以 Restore 載回後，接下來的 Gen 輸出完全相同。
func (g *JetGenerator) State() ([]byte, error) {
	b, err := g.c.Snapshot()
	if err != nil {
		return nil, errs.Wrap(err, "snapshot jet generator")
	}
	return b, nil
}

// Restore 載回 State 取得的狀態；格式不合時回傳 Warn。
func (g *JetGenerator) Restore(state []byte) error {
	if err := g.c.Restore(state); err != nil {
		e := errs.NewWarn("invalid jet generator state")
		e.Cause = err
		return e
	}
	return nil
}

// Gen 產生長度 n 的噴流序列
func (g *JetGenerator) Gen(n int) (jet.Pattern, error) {
	if n < 1 || n > MaxJets {
		return nil, errs.Warnf("jet length must be in [1, %d]", MaxJets)
	}
	p := make(jet.Pattern, 0, n)
	dir := jet.Right
	if g.c.Bool() {
		dir = jet.Left
	}
	for len(p) < n {
		run := g.runs.Pick(g.c) + 1
		for i := 0; i < run && len(p) < n; i++ {
			p = append(p, dir)
		}
		if dir == jet.Left {
			dir = jet.Right
		} else {
			dir = jet.Left
		}
	}
	return p, nil
}
