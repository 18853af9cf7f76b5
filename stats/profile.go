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
	"math"
	"time"

	"github.com/zintix-labs/rocklab/sdk/shape"
	"github.com/zintix-labs/rocklab/spec"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxGain 單顆岩石最多讓堆疊長高的列數
const MaxGain = shape.MaxRows

const confidence = 0.95

// ProfileReport 直接模擬的高度成長報告
//
// 紀錄時只累計整數計數，Done() 時一次算出所有浮點統計。
type ProfileReport struct {
	Summary *ProfileSummary `json:"Summary" yaml:"Summary"`
	Gain    *GainReport     `json:"Gain"    yaml:"Gain"`
	Trend   *TrendReport    `json:"Trend"   yaml:"Trend"`
	Cycle   *CycleReport    `json:"Cycle"   yaml:"Cycle"`
	isDone  bool
}

type ProfileSummary struct {
	PuzzleName string   `json:"PuzzleName" yaml:"PuzzleName"`
	PID        spec.PID `json:"PID"        yaml:"PID"`
	JetPeriod  int      `json:"JetPeriod"  yaml:"JetPeriod"`
	Rocks      int64    `json:"Rocks"      yaml:"Rocks"`
	Height     int64    `json:"Height"     yaml:"Height"`
	Jets       int64    `json:"Jets"       yaml:"Jets"` // 消耗的噴流總數
	MeanGain   float64  `json:"MeanGain"   yaml:"MeanGain"`
	StdGain    float64  `json:"StdGain"    yaml:"StdGain"`
	MeanGainCI CI       `json:"MeanGainCI" yaml:"MeanGainCI"` // Student-t 95%
}

// GainReport 每顆岩石高度增量的分布
type GainReport struct {
	Counts     [MaxGain + 1]int64 `json:"Counts"     yaml:"Counts"`
	Probs      []float64          `json:"Probs"      yaml:"Probs"`
	ProbCI     []CI               `json:"ProbCI"     yaml:"ProbCI"` // Clopper–Pearson 95%
	ShapeRocks [shape.Count]int64 `json:"ShapeRocks" yaml:"ShapeRocks"`
	ShapeGain  [shape.Count]int64 `json:"ShapeGain"  yaml:"ShapeGain"`
	ShapeMean  map[string]float64 `json:"ShapeMean"  yaml:"ShapeMean"`
}

// TrendReport 高度對岩石數的線性回歸
type TrendReport struct {
	Xs        []float64 `json:"-"         yaml:"-"` // 取樣點：岩石數
	Ys        []float64 `json:"-"         yaml:"-"` // 取樣點：高度
	Samples   int       `json:"Samples"   yaml:"Samples"`
	Slope     float64   `json:"Slope"     yaml:"Slope"`
	Intercept float64   `json:"Intercept" yaml:"Intercept"`
	R2        float64   `json:"R2"        yaml:"R2"`
}

// CycleReport 模擬期間觀察到的週期
type CycleReport struct {
	Matches     int64   `json:"Matches"     yaml:"Matches"`
	FirstAt     int64   `json:"FirstAt"     yaml:"FirstAt"`
	RockDelta   int64   `json:"RockDelta"   yaml:"RockDelta"`
	HeightDelta int64   `json:"HeightDelta" yaml:"HeightDelta"`
	Rate        float64 `json:"Rate"        yaml:"Rate"` // 每顆岩石的平均高度
}

// NewProfileReport 建立空報告，由 recorder 填入計數
func NewProfileReport(name string, pid spec.PID, period int) *ProfileReport {
	return &ProfileReport{
		Summary: &ProfileSummary{PuzzleName: name, PID: pid, JetPeriod: period},
		Gain:    &GainReport{},
		Trend:   &TrendReport{},
		Cycle:   &CycleReport{},
	}
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 把累積計數轉成最終統計結果，只會計算一次。
func (p *ProfileReport) Done() {
	if p.isDone {
		return
	}
	p.doneGain()
	p.doneTrend()
	if p.Cycle.RockDelta > 0 {
		p.Cycle.Rate = float64(p.Cycle.HeightDelta) / float64(p.Cycle.RockDelta)
	}
	p.isDone = true
}

func (p *ProfileReport) doneGain() {
	g := p.Gain
	values := make([]float64, MaxGain+1)
	weights := make([]float64, MaxGain+1)
	var n int64
	for i, c := range g.Counts {
		values[i] = float64(i)
		weights[i] = float64(c)
		n += c
	}

	g.Probs = make([]float64, MaxGain+1)
	g.ProbCI = make([]CI, MaxGain+1)
	for i, c := range g.Counts {
		g.Probs[i], g.ProbCI[i] = proportionCICP(c, n, confidence)
	}

	g.ShapeMean = make(map[string]float64, shape.Count)
	for s := shape.Shape(0); s < shape.Count; s++ {
		if g.ShapeRocks[s] > 0 {
			g.ShapeMean[s.String()] = float64(g.ShapeGain[s]) / float64(g.ShapeRocks[s])
		}
	}

	if n == 0 {
		return
	}
	mean, std := stat.MeanStdDev(values, weights)
	if n < 2 || math.IsNaN(std) {
		std = 0
	}
	p.Summary.MeanGain = mean
	p.Summary.StdGain = std
	p.Summary.MeanGainCI = meanCI(mean, std, n, confidence)
}

func (p *ProfileReport) doneTrend() {
	t := p.Trend
	t.Samples = len(t.Xs)
	if t.Samples < 2 {
		return
	}
	alpha, beta := stat.LinearRegression(t.Xs, t.Ys, nil, false)
	t.Intercept = alpha
	t.Slope = beta
	t.R2 = stat.RSquared(t.Xs, t.Ys, nil, alpha, beta)
	if math.IsNaN(t.R2) {
		t.R2 = 0
	}
}

func (p *ProfileReport) WriteWith(w io.Writer, rep Render) error {
	p.Done()
	return rep.Write(w, p)
}

func (p *ProfileReport) StdOut(ut time.Duration) {
	fmt.Print(p.Table(ut))
}

// Table 與 StdOut 相同內容
func (p *ProfileReport) Table(ut time.Duration) string {
	p.Done()
	pr := message.NewPrinter(lang)
	s := p.Summary
	keys := []string{"Puzzle", "Puzzle ID", "Jet Period", "Rocks", "Height", "Jets Used", "Mean Gain", "Gain 95% CI", "Gain STD"}
	msg := map[string]string{
		"Puzzle":      s.PuzzleName,
		"Puzzle ID":   fmt.Sprintf("%d", s.PID),
		"Jet Period":  pr.Sprintf("%d", s.JetPeriod),
		"Rocks":       pr.Sprintf("%d", s.Rocks),
		"Height":      pr.Sprintf("%d", s.Height),
		"Jets Used":   pr.Sprintf("%d", s.Jets),
		"Mean Gain":   pr.Sprintf("%.4f", s.MeanGain),
		"Gain 95% CI": pr.Sprintf("[%.4f, %.4f]", s.MeanGainCI.Lo, s.MeanGainCI.Hi),
		"Gain STD":    pr.Sprintf("%.4f", s.StdGain),
	}
	for i, prob := range p.Gain.Probs {
		k := fmt.Sprintf("P(gain=%d)", i)
		keys = append(keys, k)
		msg[k] = pr.Sprintf("%.2f%% [%.2f%%, %.2f%%]", 100*prob, 100*p.Gain.ProbCI[i].Lo, 100*p.Gain.ProbCI[i].Hi)
	}
	keys = append(keys, "Trend Slope", "Trend R2")
	msg["Trend Slope"] = pr.Sprintf("%.4f", p.Trend.Slope)
	msg["Trend R2"] = pr.Sprintf("%.6f", p.Trend.R2)
	if p.Cycle.Matches > 0 {
		keys = append(keys, "Cycle", "Cycle Rate")
		msg["Cycle"] = pr.Sprintf("%d rocks / %d rows (first at %d)", p.Cycle.RockDelta, p.Cycle.HeightDelta, p.Cycle.FirstAt)
		msg["Cycle Rate"] = pr.Sprintf("%.4f", p.Cycle.Rate)
	}
	return formatDuration(ut, s.Rocks) + fmtTable(s.PuzzleName, keys, msg)
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int64, n int64, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// meanCI 以 Student-t 估計平均數的信賴區間
func meanCI(mean, std float64, n int64, confidence float64) CI {
	if n < 2 {
		return CI{Lo: mean, Hi: mean}
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	se := std / math.Sqrt(float64(n))
	q := t.Quantile(1 - (1-confidence)/2)
	return CI{Lo: mean - q*se, Hi: mean + q*se}
}
