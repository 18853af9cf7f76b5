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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/rocklab/catalog"
	"github.com/zintix-labs/rocklab/dto"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/presets"
	"github.com/zintix-labs/rocklab/spec"
)

const (
	sampleID   spec.PID = 1
	realID     spec.PID = 2
	sampleJets          = ">>><<><>><<<>><>>><<<>>><<<><<<>><>><<>>"
)

func newLab(t *testing.T) *Rocklab {
	t.Helper()
	lab, err := NewAuto(Configs(presets.FS))
	require.NoError(t, err)
	return lab
}

func TestNewAutoRegistersPresets(t *testing.T) {
	lab := newLab(t)
	require.Equal(t, []spec.PID{sampleID, realID}, lab.IDs())

	e, ok := lab.EntryByName("sample")
	require.True(t, ok)
	require.Equal(t, sampleID, e.PID)

	sum, err := lab.Summaries()
	require.NoError(t, err)
	require.Len(t, sum, 2)
	require.Equal(t, 40, sum[0].JetPeriod)
	require.Equal(t, 10091, sum[1].JetPeriod)
	require.True(t, sum[0].Strict)
}

func TestNewRequiresConfigs(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.LevelOf(err))
}

func TestRegisterAllRejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("puzzle_name: a\npuzzle_id: 1\njets: \"<>\"\n")},
		"b.yaml": {Data: []byte("puzzle_name: b\npuzzle_id: 1\njets: \"<>\"\n")},
	}
	lab, err := New(Configs(fsys))
	require.NoError(t, err)
	require.Error(t, lab.RegisterAll())
}

func TestRegisterEntries(t *testing.T) {
	lab, err := New(Configs(presets.FS))
	require.NoError(t, err)
	require.NoError(t, lab.Register(catalog.Entry{PID: 5, Name: " Sample ", ConfigName: "sample.yaml"}))
	require.Error(t, lab.Register(catalog.Entry{PID: 5, Name: "again", ConfigName: "pyroclastic.yaml"}))
	lab.Freeze()

	e, err := lab.Resolve(0, "SAMPLE")
	require.NoError(t, err)
	require.Equal(t, spec.PID(5), e.PID)
	require.Len(t, lab.IDs(), 1)
}

func TestMachineRequiresFrozenCatalog(t *testing.T) {
	lab, err := New(Configs(presets.FS))
	require.NoError(t, err)
	require.NoError(t, lab.RegisterAll())
	_, err = lab.NewMachine(sampleID)
	require.Error(t, err)

	lab.Freeze()
	_, err = lab.NewMachine(sampleID)
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	lab := newLab(t)

	e, err := lab.Resolve(0, "Sample")
	require.NoError(t, err)
	require.Equal(t, sampleID, e.PID)

	e, err = lab.Resolve(realID, "")
	require.NoError(t, err)
	require.Equal(t, "pyroclastic", e.Name)

	for _, tc := range []struct {
		id   spec.PID
		name string
	}{{0, ""}, {99, ""}, {0, "nope"}, {sampleID, "pyroclastic"}} {
		_, err := lab.Resolve(tc.id, tc.name)
		require.Error(t, err, "%d/%s", tc.id, tc.name)
		require.Equal(t, errs.Warn, errs.LevelOf(err))
	}
}

func TestMachineSolve(t *testing.T) {
	lab := newLab(t)
	m, err := lab.NewMachine(sampleID)
	require.NoError(t, err)
	require.Equal(t, 40, m.JetPeriod())

	out, err := m.Solve(&dto.SolveRequest{PID: sampleID, Name: "sample", Target: 2022})
	require.NoError(t, err)
	require.Equal(t, int64(3068), out.Height)

	// 同一台機台重用，結果不受前一次影響
	out, err = m.Solve(&dto.SolveRequest{PID: sampleID, Target: 1_000_000_000_000, Surface: 4})
	require.NoError(t, err)
	require.Equal(t, int64(1514285714288), out.Height)
	require.NotNil(t, out.Cycle)
	require.NotEmpty(t, out.SurfaceB64U)
	require.Equal(t, out.Height, out.StackHeight+out.ExtraHeight)

	out, err = m.Solve(&dto.SolveRequest{Target: 2022})
	require.NoError(t, err)
	require.Equal(t, int64(3068), out.Height)
}

func TestMachineSolveValidation(t *testing.T) {
	lab := newLab(t)
	m, err := lab.NewMachine(sampleID)
	require.NoError(t, err)

	cases := map[string]*dto.SolveRequest{
		"nil":         nil,
		"wrong_id":    {PID: realID, Target: 1},
		"wrong_name":  {Name: "pyroclastic", Target: 1},
		"jets":        {Jets: "<>", Target: 1},
		"neg_target":  {Target: -1},
		"big_surface": {Target: 1, Surface: MaxSurface + 1},
		"neg_surface": {Target: 1, Surface: -1},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Solve(req)
			require.Error(t, err)
			require.Equal(t, errs.Warn, errs.LevelOf(err))
		})
	}
}

func TestMachineSolveCanceled(t *testing.T) {
	lab := newLab(t)
	m, err := lab.NewMachine(realID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.SolveContext(ctx, &dto.SolveRequest{Target: 100_000})
	require.Error(t, err)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewMachineByYAML(t *testing.T) {
	lab := newLab(t)

	m, err := lab.NewMachineByYAML([]byte("puzzle_name: mine\npuzzle_id: 7\njets: \"" + sampleJets + "\"\n"))
	require.NoError(t, err)
	out, err := m.Solve(&dto.SolveRequest{Target: 2022})
	require.NoError(t, err)
	require.Equal(t, int64(3068), out.Height)

	_, err = lab.NewMachineByYAML([]byte("puzzle_name: other\npuzzle_id: 1\njets: \"<>\"\n"))
	require.Error(t, err)

	_, err = lab.NewMachineByJSON([]byte(`{"puzzle_name":"sample","puzzle_id":1,"jets":"` + sampleJets + `"}`))
	require.NoError(t, err)
}

func TestDirectPuzzleRejectsHugeTargets(t *testing.T) {
	lab := newLab(t)

	_, err := lab.NewMachineByYAML([]byte("puzzle_name: direct\npuzzle_id: 8\nextrapolate: false\njets: \"" + sampleJets + "\"\n"))
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.LevelOf(err))

	m, err := lab.NewMachineByYAML([]byte("puzzle_name: direct\npuzzle_id: 8\nextrapolate: false\ntargets: [2022]\njets: \"" + sampleJets + "\"\n"))
	require.NoError(t, err)
	out, err := m.Solve(&dto.SolveRequest{Target: 2022})
	require.NoError(t, err)
	require.Equal(t, int64(3068), out.Height)

	_, err = m.Solve(&dto.SolveRequest{Target: 1_000_000_000_000})
	require.Error(t, err)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
}

// breakNext 讓池內下一台被借出的機台在求解時 panic
func breakNext(t *testing.T, p *MachinePool) {
	t.Helper()
	m := <-p.pool
	m.tw = nil
	p.pool <- m
}

func TestMachinePoolRebuildsBrokenMachine(t *testing.T) {
	lab := newLab(t)
	ps, err := lab.setting(sampleID)
	require.NoError(t, err)
	p, err := newMachinePool(1, ps, nil)
	require.NoError(t, err)

	breakNext(t, p)
	_, err = p.Solve(context.Background(), &dto.SolveRequest{Target: 2022})
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.LevelOf(err))

	mt := p.Metrics()
	require.Equal(t, 1, mt.Panics)
	require.Equal(t, 1, mt.Rebuild)
	require.Equal(t, 1, mt.BrokenBacklog)
	require.False(t, mt.Closed)

	out, err := p.Solve(context.Background(), &dto.SolveRequest{Target: 2022})
	require.NoError(t, err)
	require.Equal(t, int64(3068), out.Height)
}

func TestMachinePoolClosesAfterCumulativeFailures(t *testing.T) {
	lab := newLab(t)
	ps, err := lab.setting(sampleID)
	require.NoError(t, err)
	p, err := newMachinePool(1, ps, nil)
	require.NoError(t, err)

	// 故障之間穿插成功的求解，broken 仍不會被清空
	for i := 0; i < brokenCap; i++ {
		breakNext(t, p)
		_, err = p.Solve(context.Background(), &dto.SolveRequest{Target: 10})
		require.Error(t, err)
		_, err = p.Solve(context.Background(), &dto.SolveRequest{Target: 10})
		require.NoError(t, err)
	}
	require.False(t, p.Closed())
	require.Equal(t, brokenCap, p.Metrics().BrokenBacklog)

	breakNext(t, p)
	_, err = p.Solve(context.Background(), &dto.SolveRequest{Target: 10})
	require.Error(t, err)
	require.True(t, p.Closed())
	require.Equal(t, "overwhelmed_by_failures", p.ClosedReason())
}

func TestRuntimeConcurrentSolve(t *testing.T) {
	lab := newLab(t)
	rt, err := lab.NewRuntime(2)
	require.NoError(t, err)
	defer rt.Close()

	const n = 16
	var wg sync.WaitGroup
	heights := make([]int64, n)
	errsOut := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := rt.Solve(context.Background(), &dto.SolveRequest{PID: sampleID, Target: 2022})
			heights[i], errsOut[i] = out.Height, err
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errsOut[i])
		require.Equal(t, int64(3068), heights[i])
	}

	mp, ok := rt.Pool(sampleID)
	require.True(t, ok)
	met := mp.Metrics()
	require.Equal(t, int64(n), met.Solves)
	require.Equal(t, 0, met.Inflight)
	require.Equal(t, 2, met.Available)
	require.Equal(t, -1, met.CloseInflight)
	require.Len(t, rt.Metrics(), 2)
}

func TestRuntimeByNameAndErrors(t *testing.T) {
	lab := newLab(t)
	rt, err := lab.NewRuntime(1)
	require.NoError(t, err)

	out, err := rt.Solve(context.Background(), &dto.SolveRequest{Name: "pyroclastic", Target: 2022})
	require.NoError(t, err)
	require.Equal(t, int64(3147), out.Height)

	// 請求錯誤不淘汰機台
	_, err = rt.Solve(context.Background(), &dto.SolveRequest{PID: sampleID, Target: -5})
	require.Error(t, err)
	mp, _ := rt.Pool(sampleID)
	require.Equal(t, 0, mp.ReBuild())
	require.Equal(t, 1, mp.Available())

	_, err = rt.Solve(context.Background(), &dto.SolveRequest{PID: 42, Target: 1})
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rt.Solve(ctx, &dto.SolveRequest{PID: sampleID, Target: 1})
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	rt.Close()
	rt.Close()
	require.True(t, rt.Closed())
	require.Equal(t, "closed", rt.ClosedReason())
	require.True(t, mp.Closed())
	_, err = rt.Solve(context.Background(), &dto.SolveRequest{PID: sampleID, Target: 1})
	require.Equal(t, errs.Fatal, errs.LevelOf(err))
}

func TestRuntimeAdHocJets(t *testing.T) {
	lab := newLab(t)
	rt, err := lab.NewRuntime(1)
	require.NoError(t, err)
	defer rt.Close()

	out, err := rt.Solve(context.Background(), &dto.SolveRequest{Name: "mine", Jets: sampleJets, Target: 1_000_000_000_000, Surface: 8})
	require.NoError(t, err)
	require.Equal(t, int64(1514285714288), out.Height)
	require.Equal(t, 40, out.JetPeriod)
	require.Equal(t, "mine", out.Name)
	require.NotEmpty(t, out.SurfaceB64U)

	_, err = rt.Solve(context.Background(), &dto.SolveRequest{Jets: "<>x", Target: 1})
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	lax := false
	out, err = rt.Solve(context.Background(), &dto.SolveRequest{Jets: "<<x", Target: 1, Strict: &lax})
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Height)
}

func TestIsFatalErr(t *testing.T) {
	require.False(t, isFatalErr(nil))
	require.False(t, isFatalErr(errs.NewWarn("w")))
	require.False(t, isFatalErr(context.Canceled))
	require.True(t, isFatalErr(errs.NewFatal("f")))
	require.True(t, isFatalErr(errs.Wrap(errs.NewFatal("f"), "wrapped")))
}

func TestSimulatorSweep(t *testing.T) {
	lab := newLab(t)
	sim, err := lab.NewSimulator(sampleID)
	require.NoError(t, err)

	targets := []int64{1_000_000_000_000, 500, 2022, 3000, 0}
	rep, _, err := sim.Sweep(targets, false)
	require.NoError(t, err)
	want := map[int64]int64{0: 0, 500: 761, 2022: 3068, 3000: 4548, 1_000_000_000_000: 1514285714288}
	require.Len(t, rep.Rows, len(targets))
	for i, r := range rep.Rows {
		require.Equal(t, want[r.Target], r.Height, "target %d", r.Target)
		if i > 0 {
			require.Less(t, rep.Rows[i-1].Target, r.Target)
		}
	}

	mp, _, err := sim.SweepMP(context.Background(), targets, 3, false)
	require.NoError(t, err)
	require.Equal(t, rep.Rows, mp.Rows)

	_, _, err = sim.Sweep(nil, false)
	require.Error(t, err)
	_, _, err = sim.SweepMP(context.Background(), targets, 0, false)
	require.Error(t, err)
	_, _, err = sim.SweepMP(context.Background(), []int64{-1}, 2, false)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
}

func TestSimulatorSweepMPCanceled(t *testing.T) {
	lab := newLab(t)
	sim, err := lab.NewSimulator(realID)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = sim.SweepMP(ctx, []int64{100_000, 200_000}, 2, false)
	require.Error(t, err)
}

func TestSimulatorProfile(t *testing.T) {
	lab := newLab(t)
	sim, err := lab.NewSimulator(sampleID)
	require.NoError(t, err)

	rep, _, err := sim.Profile(2022, false)
	require.NoError(t, err)
	require.Equal(t, int64(2022), rep.Summary.Rocks)
	require.Equal(t, int64(3068), rep.Summary.Height)
	require.Equal(t, int64(70), rep.Cycle.RockDelta)
	require.Equal(t, int64(106), rep.Cycle.HeightDelta)
	require.InDelta(t, 3068.0/2022.0, rep.Summary.MeanGain, 1e-9)

	_, _, err = sim.Profile(0, false)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
	_, _, err = sim.Profile(MaxProfileRocks+1, false)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
}

func TestReadJetsPlain(t *testing.T) {
	s, err := ReadJets(strings.NewReader("  " + sampleJets + "\n"))
	require.NoError(t, err)
	require.Equal(t, sampleJets, s)
}

func TestReadJetsZstd(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(sampleJets + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "jets.txt.zst")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	s, err := LoadJets(path)
	require.NoError(t, err)
	require.Equal(t, sampleJets, s)

	lab := newLab(t)
	res, _, err := lab.SolveJets(context.Background(), s, true, 1_000_000_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(1514285714288), res.Height)
}

func TestLoadJetsMissing(t *testing.T) {
	_, err := LoadJets(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
