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
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/rocklab/dto"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/spec"
)

// brokenCap broken 通道容量。壞機台只進不出，池的生命週期內累計故障達到此數時池會自行關閉。
const brokenCap = 100

// MachinePool 管理「某一個題目」的所有機台實例。
// 它透過兩個通道管理機台生命週期：
//  1. pool：健康且可用的機台，供 Solve() 借出 / 歸還。
//  2. broken：發生 panic 或致命錯誤的壞機台留在此通道供事後檢查，不會再借出。
//
// 壞機台送出後會立即補上一台新機以維持容量。
type MachinePool struct {
	puzzleName    string
	puzzleId      spec.PID
	ps            *spec.PuzzleSetting
	log           *slog.Logger
	pool          chan *Machine // 可用機台
	broken        chan *Machine // 壞掉的機台
	done          chan struct{} // 關閉訊號：關閉後不再允許借機/歸還/補機
	closeOnce     sync.Once
	poolsize      int
	rebuild       atomic.Int32 // 補機次數
	inflight      atomic.Int32 // 使用中
	solves        atomic.Int64 // 成功求解次數
	panics        atomic.Int32
	fatals        atomic.Int32 // fatal 次數（機台狀態不可信）
	closeReason   atomic.Value // string
	closeInflight atomic.Int32 // 關閉當下 inflight（快照）
	closeAvail    atomic.Int32 // 關閉當下 len(pool)
	closeBroken   atomic.Int32 // 關閉當下 len(broken)
}

// newMachinePool 建立指定題目的機台池，預先建好 n 台（至少 1 台）。
func newMachinePool(n int, ps *spec.PuzzleSetting, log *slog.Logger) (*MachinePool, error) {
	n = max(1, n)
	p := &MachinePool{
		puzzleName: ps.PuzzleName,
		puzzleId:   ps.PuzzleID,
		ps:         ps,
		log:        log,
		pool:       make(chan *Machine, n),
		broken:     make(chan *Machine, brokenCap),
		done:       make(chan struct{}),
		poolsize:   n,
	}

	p.closeReason.Store("")
	p.closeInflight.Store(-1)
	p.closeAvail.Store(-1)
	p.closeBroken.Store(-1)

	for i := 0; i < n; i++ {
		m, err := newMachine(ps, log)
		if err != nil {
			return nil, err
		}
		p.pool <- m
	}
	return p, nil
}

// Close 進入關閉狀態：之後的 Solve() 直接回 error，歸還中的機台會被丟棄。
func (p *MachinePool) Close() {
	p.closeWithReason("closed")
}

func (p *MachinePool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeWithReason reason 只會寫入一次
func (p *MachinePool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		p.closeInflight.Store(p.inflight.Load())
		p.closeAvail.Store(int32(len(p.pool)))
		p.closeBroken.Store(int32(len(p.broken)))
		close(p.done)
	})
}

// isFatalErr 只有錯誤本身宣告 Fatal 才淘汰機台；請求錯誤與取消不算。
func isFatalErr(err error) bool {
	if e, ok := errs.AsErr(err); ok {
		return e.ErrLv == errs.Fatal
	}
	return false
}

// Solve 借一台機台求解並歸還。
func (p *MachinePool) Solve(ctx context.Context, req *dto.SolveRequest) (out dto.SolveResult, err error) {
	var m *Machine
	select {
	case <-p.done:
		return out, errs.NewFatal("machine pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		return out, asSolveErr(ctx.Err())
	case m = <-p.pool:
		p.inflight.Add(1)
	}

	if m == nil {
		return out, errs.NewFatal("machine pool got nil machine")
	}

	defer func() {
		p.inflight.Add(-1)
		isPanic := false
		if r := recover(); r != nil {
			isPanic = true
			p.panics.Add(1)
			err = errs.NewFatal(fmt.Sprintf("machine %s panic : %v", m.puzzleName, r))
		}

		if p.Closed() {
			return
		}

		if isPanic || isFatalErr(err) {
			if !isPanic {
				p.fatals.Add(1)
			}
			select {
			case p.broken <- m:
			default:
				p.closeWithReason("overwhelmed_by_failures")
				return
			}

			fresh, buildErr := newMachine(p.ps, p.log)
			p.rebuild.Add(1)
			if buildErr != nil {
				err = errs.NewFatal(fmt.Sprintf("machine %s can not build", p.puzzleName))
				p.closeWithReason("rebuild_failed")
				return
			}
			select {
			case <-p.done:
			case p.pool <- fresh:
			}
			return
		}

		// 非致命錯誤：機台仍健康，歸還並把 err 原樣回傳
		select {
		case <-p.done:
		case p.pool <- m:
		}
	}()

	out, err = m.SolveContext(ctx, req)
	if err == nil {
		p.solves.Add(1)
	}
	return out, err
}

func (mp *MachinePool) PoolSize() int {
	return mp.poolsize
}

func (mp *MachinePool) Inflight() int {
	return int(mp.inflight.Load())
}

func (mp *MachinePool) ReBuild() int {
	return int(mp.rebuild.Load())
}

func (mp *MachinePool) ClosedReason() string {
	if v := mp.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (mp *MachinePool) Panics() int {
	return int(mp.panics.Load())
}

func (mp *MachinePool) Fatals() int {
	return int(mp.fatals.Load())
}

// Available 當下可借出的機台數；高併發下為近似值。
func (mp *MachinePool) Available() int {
	return len(mp.pool)
}

// MachinePoolMetrics 拉取式的觀測快照。
//
// Available / BrokenBacklog 來自 len(chan)，高併發下為近似值。
// Close* 欄位只在關閉時寫入一次，-1 表示尚未關閉。
type MachinePoolMetrics struct {
	PuzzleName string   `json:"puzzle_name"`
	PuzzleID   spec.PID `json:"puzzle_id"`

	PoolSize      int    `json:"pool_size"`
	Available     int    `json:"available"`
	Inflight      int    `json:"inflight"`
	BrokenBacklog int    `json:"broken_backlog"`
	Solves        int64  `json:"solves"`
	Rebuild       int    `json:"rebuild"`
	Panics        int    `json:"panics"`
	Fatals        int    `json:"fatals"`
	Closed        bool   `json:"closed"`
	CloseReason   string `json:"close_reason"`

	CloseInflight int `json:"close_inflight"`
	CloseAvail    int `json:"close_avail"`
	CloseBroken   int `json:"close_broken"`
}

func (mp *MachinePool) Metrics() MachinePoolMetrics {
	return MachinePoolMetrics{
		PuzzleName:    mp.puzzleName,
		PuzzleID:      mp.puzzleId,
		PoolSize:      mp.poolsize,
		Available:     len(mp.pool),
		Inflight:      int(mp.inflight.Load()),
		BrokenBacklog: len(mp.broken),
		Solves:        mp.solves.Load(),
		Rebuild:       int(mp.rebuild.Load()),
		Panics:        int(mp.panics.Load()),
		Fatals:        int(mp.fatals.Load()),
		Closed:        mp.Closed(),
		CloseReason:   mp.ClosedReason(),
		CloseInflight: int(mp.closeInflight.Load()),
		CloseAvail:    int(mp.closeAvail.Load()),
		CloseBroken:   int(mp.closeBroken.Load()),
	}
}
