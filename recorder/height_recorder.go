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

package recorder

import (
	"fmt"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/cycle"
	"github.com/zintix-labs/rocklab/sdk/rock"
	"github.com/zintix-labs/rocklab/spec"
	"github.com/zintix-labs/rocklab/stats"
)

// maxSamples 回歸取樣點上限
const maxSamples = 4096

// HeightRecorder 高度紀錄員
//
// 掛在 tower.Options.OnLand / OnCycle 上，逐顆紀錄高度增量，透過 Done 輸出 ProfileReport。
// 非併發安全：一個 recorder 只服務一個 Tower。
type HeightRecorder struct {
	PuzzleName string
	PID        spec.PID
	JetPeriod  int
	report     *stats.ProfileReport
	stride     int64 // 每 stride 顆取樣一次 (岩石數, 高度)
}

// NewHeightRecorder expect 為預計模擬的岩石數，用來決定取樣間隔。
func NewHeightRecorder(name string, pid spec.PID, period int, expect int64) (*HeightRecorder, error) {
	if expect < 1 {
		return nil, errs.Warnf("expected rocks must be positive, got %d", expect)
	}
	if period < 1 {
		return nil, errs.Fatalf("jet period must be positive, got %d", period)
	}
	stride := max(1, expect/maxSamples)
	return &HeightRecorder{
		PuzzleName: name,
		PID:        pid,
		JetPeriod:  period,
		report:     stats.NewProfileReport(name, pid, period),
		stride:     stride,
	}, nil
}

// Record 紀錄一顆落地的岩石
func (h *HeightRecorder) Record(l rock.Landing) {
	s := h.report.Summary
	g := h.report.Gain

	gain := l.Gain()
	if gain < 0 || gain > stats.MaxGain {
		// 不可能發生；堆疊高度只增不減且單顆最多 4 列
		panic(fmt.Sprintf("rock gain out of range: %d", gain))
	}
	s.Rocks++
	s.Height = int64(l.HeightAfter)
	s.Jets += int64(l.Jets)
	g.Counts[gain]++
	g.ShapeRocks[l.Shape]++
	g.ShapeGain[l.Shape] += int64(gain)

	if s.Rocks%h.stride == 0 {
		t := h.report.Trend
		t.Xs = append(t.Xs, float64(s.Rocks))
		t.Ys = append(t.Ys, float64(s.Height))
	}
}

// RecordCycle 紀錄一次可信的週期命中；只保留第一次的週期長度。
func (h *HeightRecorder) RecordCycle(m cycle.Match) {
	c := h.report.Cycle
	c.Matches++
	if c.Matches == 1 {
		c.FirstAt = m.At
		c.RockDelta = m.RockDelta
		c.HeightDelta = m.HeightDelta
	}
}

// Done 結束紀錄並回傳報告（已計算完成）
func (h *HeightRecorder) Done() *stats.ProfileReport {
	h.report.Done()
	return h.report
}
