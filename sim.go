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
	"io"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/recorder"
	"github.com/zintix-labs/rocklab/sdk/rock"
	"github.com/zintix-labs/rocklab/sdk/tower"
	"github.com/zintix-labs/rocklab/spec"
	"github.com/zintix-labs/rocklab/stats"
	"golang.org/x/sync/errgroup"
)

const capPrepare int = 16

// MaxProfileRocks Profile 直接模擬的岩石數上限
const MaxProfileRocks = tower.MaxDirectRocks

// Simulator 對單一題目做多目標掃描與高度成長分析，可建立多台機台平行求解。
type Simulator struct {
	PuzzleName string   // 題目名稱
	PuzzleId   spec.PID // 題目 ID
	ps         *spec.PuzzleSetting
	log        *slog.Logger
	mBuf       []*Machine // 併發求解機台
}

func newSimulator(ps *spec.PuzzleSetting, log *slog.Logger) (*Simulator, error) {
	s := &Simulator{
		PuzzleName: ps.PuzzleName,
		PuzzleId:   ps.PuzzleID,
		ps:         ps,
		log:        log,
		mBuf:       make([]*Machine, 1, capPrepare),
	}
	m, err := newMachine(ps, log)
	if err != nil {
		return nil, err
	}
	s.mBuf[0] = m
	return s, nil
}

// Targets 設定檔內的預設目標
func (s *Simulator) Targets() []int64 {
	return append([]int64(nil), s.ps.Targets...)
}

func (s *Simulator) validTargets(targets []int64) error {
	if len(targets) == 0 {
		return errs.NewWarn("targets required")
	}
	limit := s.ps.Options().Limit()
	for _, t := range targets {
		if t < 0 || t > limit {
			return errs.Warnf("target out of range [0, %d]: %d", limit, t)
		}
	}
	return nil
}

// Sweep 單線：以一台機台依序求解每個目標，回傳報表與用時。
func (s *Simulator) Sweep(targets []int64, showpb bool) (*stats.SolveReport, time.Duration, error) {
	if err := s.validTargets(targets); err != nil {
		return nil, 0, err
	}
	rep := stats.NewSolveReport(s.PuzzleName, s.PuzzleId, len(s.ps.Pattern()))
	m := s.mBuf[0]

	bar := pb.StartNew(len(targets))
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for _, t := range targets {
		res, err := m.SolveInternal(context.Background(), t)
		if err != nil {
			bar.Finish()
			return nil, 0, err
		}
		rep.Add(res)
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	rep.Sort()
	return rep, used, nil
}

// SweepMP 以 workers 台機台平行求解；每個目標由一台機台獨立完成，結果與 Sweep 相同。
func (s *Simulator) SweepMP(ctx context.Context, targets []int64, workers int, showpb bool) (*stats.SolveReport, time.Duration, error) {
	if workers <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if err := s.validTargets(targets); err != nil {
		return nil, 0, err
	}
	workers = min(workers, len(targets))
	for len(s.mBuf) < workers {
		m, err := newMachine(s.ps, s.log)
		if err != nil {
			return nil, 0, err
		}
		s.mBuf = append(s.mBuf, m)
	}

	results := make([]tower.Result, len(targets))
	jobs := make(chan int)

	bar := pb.StartNew(len(targets))
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range targets {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		m := s.mBuf[w]
		g.Go(func() error {
			for i := range jobs {
				res, err := m.SolveInternal(gctx, targets[i])
				if err != nil {
					return err
				}
				results[i] = res
				bar.Increment()
			}
			return nil
		})
	}
	err := g.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, asSolveErr(err)
	}

	rep := stats.NewSolveReport(s.PuzzleName, s.PuzzleId, len(s.ps.Pattern()))
	for _, res := range results {
		rep.Add(res)
	}
	rep.Sort()
	return rep, used, nil
}

// Profile 直接模擬 rocks 顆岩石（不外推），紀錄每顆岩石的高度增量與觀察到的週期。
func (s *Simulator) Profile(rocks int64, showpb bool) (*stats.ProfileReport, time.Duration, error) {
	return s.ProfileContext(context.Background(), rocks, showpb)
}

func (s *Simulator) ProfileContext(ctx context.Context, rocks int64, showpb bool) (*stats.ProfileReport, time.Duration, error) {
	if rocks < 1 || rocks > MaxProfileRocks {
		return nil, 0, errs.Warnf("rocks must be in [1, %d]", MaxProfileRocks)
	}
	period := len(s.ps.Pattern())
	rec, err := recorder.NewHeightRecorder(s.PuzzleName, s.PuzzleId, period, rocks)
	if err != nil {
		return nil, 0, err
	}

	bar := pb.Start64(rocks)
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	opt := s.ps.Options()
	opt.NoExtrapolate = true
	opt.Logger = s.log
	opt.OnCycle = rec.RecordCycle
	opt.OnLand = func(l rock.Landing) {
		rec.Record(l)
		bar.Increment()
	}
	res, err := SolvePattern(ctx, s.ps.Pattern(), rocks, opt)
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, 0, err
	}

	rep := rec.Done()
	if rep.Summary.Height != res.Height {
		return nil, 0, errs.Fatalf("profile height mismatch: recorded %d, tower %d", rep.Summary.Height, res.Height)
	}
	return rep, used, nil
}
