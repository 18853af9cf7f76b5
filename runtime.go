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
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/rocklab/dto"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/tower"
	"github.com/zintix-labs/rocklab/spec"
)

// Runtime 後端服務使用的執行期：每個題目一個 MachinePool。
type Runtime struct {
	lab *Rocklab

	pools map[spec.PID]*MachinePool
	ids   []spec.PID // 固定順序，用於觀測/列舉

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	poolSize int
}

func newRuntime(lab *Rocklab, poolSize int) (*Runtime, error) {
	poolSize = max(1, poolSize)
	rt := &Runtime{
		lab:      lab,
		pools:    map[spec.PID]*MachinePool{},
		ids:      lab.IDs(),
		done:     make(chan struct{}),
		poolSize: poolSize,
	}
	for _, id := range rt.ids {
		ps, err := lab.setting(id)
		if err != nil {
			return nil, err
		}
		mp, err := newMachinePool(poolSize, ps, lab.log)
		if err != nil {
			return nil, err
		}
		rt.pools[id] = mp
	}
	return rt, nil
}

// Solve 依請求求解。
//
// 帶 jets 的請求是臨時輸入：建一座新的 Tower 求解，不占用機台池；pid/name 只用於回顯。
// 其餘依 pid（或 name）找到題目的機台池。
func (rt *Runtime) Solve(ctx context.Context, req *dto.SolveRequest) (dto.SolveResult, error) {
	select {
	case <-ctx.Done():
		return dto.SolveResult{}, asSolveErr(ctx.Err())
	case <-rt.done:
		rt.closed.Store(true)
		return dto.SolveResult{}, errs.NewFatal("runtime closed: " + rt.ClosedReason())
	default:
	}
	if req == nil {
		return dto.SolveResult{}, errs.NewWarn("nil solve request")
	}

	if req.Jets != "" {
		return rt.solveAdHoc(ctx, req)
	}

	ent, err := rt.lab.Resolve(req.PID, req.Name)
	if err != nil {
		return dto.SolveResult{}, err
	}
	mp, ok := rt.pools[ent.PID]
	if !ok {
		return dto.SolveResult{}, errs.NewWarn("puzzle id not found")
	}
	return mp.Solve(ctx, req)
}

func (rt *Runtime) solveAdHoc(ctx context.Context, req *dto.SolveRequest) (dto.SolveResult, error) {
	if req.Surface < 0 || req.Surface > MaxSurface {
		return dto.SolveResult{}, errs.Warnf("surface must be in [0, %d]", MaxSurface)
	}
	pat, err := jet.Parse(req.Jets, req.IsStrict())
	if err != nil {
		return dto.SolveResult{}, err
	}
	opt := tower.DefaultOptions()
	opt.Logger = rt.lab.log
	tw, err := tower.New(pat, opt)
	if err != nil {
		return dto.SolveResult{}, err
	}
	res, err := tw.RunContext(ctx, req.Target)
	if err != nil {
		return dto.SolveResult{}, asSolveErr(err)
	}
	var surface []uint8
	if req.Surface > 0 {
		surface = tw.Surface(req.Surface)
	}
	return dto.NewSolveResultDTO(req.PID, req.Name, len(pat), res, surface), nil
}

// Pool 取得題目的機台池（觀測用）
func (rt *Runtime) Pool(id spec.PID) (*MachinePool, bool) {
	mp, ok := rt.pools[id]
	return mp, ok
}

// Metrics 依題目 ID 順序回傳每個池的快照
func (rt *Runtime) Metrics() []MachinePoolMetrics {
	out := make([]MachinePoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		out = append(out, rt.pools[id].Metrics())
	}
	return out
}

// Close 關閉執行期與所有機台池；可重複呼叫。
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
		for _, mp := range rt.pools {
			mp.closeWithReason(reason)
		}
	})
}

func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
