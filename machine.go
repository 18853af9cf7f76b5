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

package rocklab

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/zintix-labs/rocklab/dto"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/tower"
	"github.com/zintix-labs/rocklab/spec"
)

// MaxSurface 單次請求最多回傳的表面列數
const MaxSurface = 64

// Machine 綁定單一題目的求解機台。
//
// 你可以把 Machine 視為 Tower 的外殼：
//   - 對外：提供 Solve 入口（HTTP / 模擬器只操作 Machine）。
//   - 對內：持有一座可重用的 Tower（堆疊與週期快取的 buffer 會沿用，避免 GC）。
//
// 同一台 Machine 以 mutex 序列化；要併發請建立多台（MachinePool / Simulator）。
type Machine struct {
	puzzleName string   // 題目名稱（來自 PuzzleSetting，主要用於觀測/日誌）
	puzzleId   spec.PID // 題目 ID（Catalog 內唯一）
	ps         *spec.PuzzleSetting
	tw         *tower.Tower
	mu         sync.Mutex
}

func newMachine(ps *spec.PuzzleSetting, log *slog.Logger) (*Machine, error) {
	if ps == nil {
		return nil, errs.NewFatal("puzzle setting required")
	}
	opt := ps.Options()
	opt.Logger = log
	tw, err := tower.New(ps.Pattern(), opt)
	if err != nil {
		return nil, err
	}
	return &Machine{
		puzzleName: ps.PuzzleName,
		puzzleId:   ps.PuzzleID,
		ps:         ps,
		tw:         tw,
	}, nil
}

func (m *Machine) PuzzleName() string { return m.puzzleName }

func (m *Machine) PuzzleID() spec.PID { return m.puzzleId }

// JetPeriod 噴流週期長度
func (m *Machine) JetPeriod() int { return len(m.ps.Pattern()) }

// Setting 機台使用的題目設定（唯讀）
func (m *Machine) Setting() *spec.PuzzleSetting { return m.ps }

// Solve 為主要公開入口：驗證請求、求解並回傳 DTO。
func (m *Machine) Solve(r *dto.SolveRequest) (dto.SolveResult, error) {
	return m.SolveContext(context.Background(), r)
}

// SolveContext 同 Solve，可由 ctx 取消長時間的直接模擬。
func (m *Machine) SolveContext(ctx context.Context, r *dto.SolveRequest) (dto.SolveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.valid(r); err != nil {
		return dto.SolveResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return dto.SolveResult{}, asSolveErr(err)
	}
	res, err := m.tw.RunContext(ctx, r.Target)
	if err != nil {
		return dto.SolveResult{}, asSolveErr(err)
	}
	var surface []uint8
	if r.Surface > 0 {
		surface = m.tw.Surface(r.Surface)
	}
	return dto.NewSolveResultDTO(m.puzzleId, m.puzzleName, m.JetPeriod(), res, surface), nil
}

// SolveInternal 直接取得 tower.Result；給模擬器與測試使用，跳過請求檢查。
func (m *Machine) SolveInternal(ctx context.Context, target int64) (tower.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return tower.Result{}, asSolveErr(err)
	}
	res, err := m.tw.RunContext(ctx, target)
	if err != nil {
		return res, asSolveErr(err)
	}
	return res, nil
}

func (m *Machine) valid(req *dto.SolveRequest) error {
	if req == nil {
		return errs.NewWarn("nil solve request")
	}
	if req.PID != 0 && req.PID != m.puzzleId {
		return errs.NewWarn("puzzle id is not matched")
	}
	if req.Name != "" && !strings.EqualFold(strings.TrimSpace(req.Name), m.puzzleName) {
		return errs.NewWarn("puzzle name is not matched")
	}
	if req.Jets != "" {
		return errs.NewWarn("machine is bound to a registered puzzle; jets not accepted")
	}
	if limit := m.ps.Options().Limit(); req.Target < 0 || req.Target > limit {
		return errs.Warnf("target out of range [0, %d]: %d", limit, req.Target)
	}
	if req.Surface < 0 || req.Surface > MaxSurface {
		return errs.Warnf("surface must be in [0, %d]", MaxSurface)
	}
	return nil
}
