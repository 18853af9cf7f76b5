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

package stats

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/zintix-labs/rocklab/sdk/tower"
	"github.com/zintix-labs/rocklab/spec"
	"golang.org/x/text/message"
)

// SolveReport 同一份輸入、多個目標岩石數的求解結果
type SolveReport struct {
	PuzzleName string     `json:"PuzzleName" yaml:"PuzzleName"`
	PID        spec.PID   `json:"PID"        yaml:"PID"`
	JetPeriod  int        `json:"JetPeriod"  yaml:"JetPeriod"`
	Rows       []SolveRow `json:"Rows"       yaml:"Rows"`
}

// SolveRow 單一目標的結果
type SolveRow struct {
	Target      int64 `json:"Target"      yaml:"Target"`
	Height      int64 `json:"Height"      yaml:"Height"`
	Simulated   int64 `json:"Simulated"   yaml:"Simulated"`
	Skipped     int64 `json:"Skipped"     yaml:"Skipped"`
	RockDelta   int64 `json:"RockDelta"   yaml:"RockDelta"`   // 0 表示沒有使用週期
	HeightDelta int64 `json:"HeightDelta" yaml:"HeightDelta"` // 同上
}

func NewSolveReport(name string, pid spec.PID, period int) *SolveReport {
	return &SolveReport{
		PuzzleName: name,
		PID:        pid,
		JetPeriod:  period,
		Rows:       make([]SolveRow, 0, 4),
	}
}

// Add 加入一筆結果；併發呼叫需由呼叫端自行保護。
func (s *SolveReport) Add(res tower.Result) {
	row := SolveRow{
		Target:    res.Target,
		Height:    res.Height,
		Simulated: res.Simulated,
		Skipped:   res.Skipped,
	}
	if res.Cycle != nil && res.Skipped > 0 {
		row.RockDelta = res.Cycle.RockDelta
		row.HeightDelta = res.Cycle.HeightDelta
	}
	s.Rows = append(s.Rows, row)
}

// Sort 依 Target 由小到大排序
func (s *SolveReport) Sort() {
	sort.SliceStable(s.Rows, func(i, j int) bool { return s.Rows[i].Target < s.Rows[j].Target })
}

// Simulated 全部目標實際模擬的岩石總數
func (s *SolveReport) Simulated() int64 {
	var n int64
	for _, r := range s.Rows {
		n += r.Simulated
	}
	return n
}

func (s *SolveReport) WriteWith(w io.Writer, rep Render) error {
	s.Sort()
	return rep.Write(w, s)
}

func (s *SolveReport) StdOut(ut time.Duration) {
	fmt.Print(s.Table(ut))
}

// Table 與 StdOut 相同內容，方便測試與寫檔
func (s *SolveReport) Table(ut time.Duration) string {
	s.Sort()
	p := message.NewPrinter(lang)
	keys := []string{"Puzzle", "Puzzle ID", "Jet Period"}
	msg := map[string]string{
		"Puzzle":     s.PuzzleName,
		"Puzzle ID":  fmt.Sprintf("%d", s.PID),
		"Jet Period": p.Sprintf("%d", s.JetPeriod),
	}
	for _, r := range s.Rows {
		k := p.Sprintf("Height @ %d", r.Target)
		v := p.Sprintf("%d", r.Height)
		if r.RockDelta > 0 {
			v = p.Sprintf("%d  (cycle %d rocks / %d rows)", r.Height, r.RockDelta, r.HeightDelta)
		}
		keys = append(keys, k)
		msg[k] = v
	}
	return formatDuration(ut, s.Simulated()) + fmtTable(s.PuzzleName, keys, msg)
}
