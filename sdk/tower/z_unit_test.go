package tower

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/chamber"
	"github.com/zintix-labs/rocklab/sdk/cycle"
	"github.com/zintix-labs/rocklab/sdk/gen"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/rock"
	"github.com/zintix-labs/rocklab/sdk/shape"
)

const sample = ">>><<><>><<<>><>>><<<>>><<<><<<>><>><<>>"

func newTower(t *testing.T, jets string, opt Options) *Tower {
	t.Helper()
	p, err := jet.Parse(jets, true)
	require.NoError(t, err)
	tw, err := New(p, opt)
	require.NoError(t, err)
	return tw
}

func realInput(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/input.txt")
	require.NoError(t, err)
	return string(b)
}

func TestSampleHeights(t *testing.T) {
	tw := newTower(t, sample, DefaultOptions())

	res, err := tw.Run(2022)
	require.NoError(t, err)
	require.Equal(t, int64(3068), res.Height)
	require.Equal(t, res.StackHeight+res.ExtraHeight, res.Height)
	require.Equal(t, int64(2022), res.Simulated+res.Skipped)

	res, err = tw.Run(1_000_000_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(1514285714288), res.Height)
	require.True(t, res.Extrapolated())
	require.NotNil(t, res.Cycle)
	require.Equal(t, int64(1_000_000_000_000), res.Simulated+res.Skipped)
	require.Less(t, res.Simulated, int64(1000))
}

func TestRealInputHeights(t *testing.T) {
	tw := newTower(t, realInput(t), DefaultOptions())

	res, err := tw.Run(2022)
	require.NoError(t, err)
	require.Equal(t, int64(3147), res.Height)

	res, err = tw.Run(1_000_000_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(1532163742758), res.Height)
	require.Equal(t, int64(1710), res.Cycle.RockDelta)
	require.Equal(t, int64(2620), res.Cycle.HeightDelta)
}

func TestTinyTargets(t *testing.T) {
	tw := newTower(t, sample, DefaultOptions())
	for target, want := range map[int64]int64{0: 0, 1: 1, 2: 4, 3: 6, 10: 17} {
		res, err := tw.Run(target)
		require.NoError(t, err)
		require.Equal(t, want, res.Height, "target %d", target)
		require.False(t, res.Extrapolated())
	}
}

func TestExtrapolationMatchesDirectSimulation(t *testing.T) {
	for _, jets := range []string{sample, realInput(t)} {
		fast := newTower(t, jets, DefaultOptions())
		slow := newTower(t, jets, Options{NoExtrapolate: true})
		for _, target := range []int64{500, 3000, 5000} {
			a, err := fast.Run(target)
			require.NoError(t, err)
			b, err := slow.Run(target)
			require.NoError(t, err)
			require.Equal(t, b.Height, a.Height, "target %d", target)
			require.Zero(t, b.Skipped)
			require.Equal(t, target, b.Simulated)
		}
	}
}

func TestExtrapolationMatchesRandomJets(t *testing.T) {
	for _, seed := range []int64{1, 7, 2022} {
		g, err := gen.NewJetGenerator(seed, nil)
		require.NoError(t, err)
		p, err := g.Gen(int(200 + seed%5*300))
		require.NoError(t, err)

		fast, err := New(p, Options{Window: cycle.MaxWindow})
		require.NoError(t, err)
		slow, err := New(p, Options{NoExtrapolate: true})
		require.NoError(t, err)

		const target = 20_000
		a, err := fast.Run(target)
		require.NoError(t, err)
		b, err := slow.Run(target)
		require.NoError(t, err)
		require.Equal(t, b.Height, a.Height, "seed %d", seed)
		require.True(t, a.Extrapolated(), "seed %d", seed)
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	tw := newTower(t, sample, DefaultOptions())
	first, err := tw.Run(1_000_000_000_000)
	require.NoError(t, err)
	surface := tw.Surface(8)

	for i := 0; i < 3; i++ {
		again, err := tw.Run(1_000_000_000_000)
		require.NoError(t, err)
		require.Equal(t, first, again)
		require.Equal(t, surface, tw.Surface(8))
	}

	other := newTower(t, sample, DefaultOptions())
	res, err := other.Run(1_000_000_000_000)
	require.NoError(t, err)
	require.Equal(t, first, res)
}

func TestLandingInvariants(t *testing.T) {
	var prev int
	var n int
	opt := Options{NoExtrapolate: true}
	opt.OnLand = func(l rock.Landing) {
		require.Zero(t, l.Overlap, "rock %d", n)
		require.GreaterOrEqual(t, l.HeightAfter, prev, "rock %d", n)
		require.Equal(t, prev, l.HeightBefore, "rock %d", n)
		require.Equal(t, n%shape.Count, l.ShapeIdx)
		require.GreaterOrEqual(t, l.X, 0)
		require.LessOrEqual(t, l.X+shape.Width(l.Shape), chamber.Width)
		prev = l.HeightAfter
		n++
	}
	tw := newTower(t, realInput(t), opt)
	res, err := tw.Run(3000)
	require.NoError(t, err)
	require.Equal(t, 3000, n)
	require.Equal(t, int64(prev), res.Height)
}

func TestCycleDeltasStableInSteadyState(t *testing.T) {
	p, err := jet.Parse(sample, true)
	require.NoError(t, err)
	ch := chamber.New()
	jets := jet.NewSequence(p)
	shapes := shape.NewSequence()
	det := cycle.NewDetector(cycle.DefaultWindow, cycle.DefaultMinRocks)

	deltas := map[cycle.Fingerprint][2]int64{}
	for count := int64(1); count <= 3000; count++ {
		s, idx := shapes.Next()
		l := rock.Drop(s, idx, jets, ch)
		m, ok := det.Observe(ch, l.JetIdx, idx, count)
		if !ok || count < 1000 {
			continue
		}
		got := [2]int64{m.RockDelta, m.HeightDelta}
		if prev, seen := deltas[m.Key]; seen {
			require.Equal(t, prev, got, "fingerprint %s", m.Key)
		}
		deltas[m.Key] = got
	}
	require.NotEmpty(t, deltas)
	for _, d := range deltas {
		require.Equal(t, [2]int64{70, 106}, d)
	}
}

func TestOnCycleAndNoExtrapolate(t *testing.T) {
	var hits int
	opt := Options{NoExtrapolate: true, OnCycle: func(m cycle.Match) {
		require.GreaterOrEqual(t, m.RockDelta, int64(cycle.DefaultMinRocks))
		hits++
	}}
	tw := newTower(t, sample, opt)
	res, err := tw.Run(2022)
	require.NoError(t, err)
	require.Equal(t, int64(3068), res.Height)
	require.NotNil(t, res.Cycle)
	require.False(t, res.Extrapolated())
	require.Positive(t, hits)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, DefaultOptions())
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	p := jet.Pattern{jet.Left}
	_, err = New(p, Options{Window: 10})
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	_, err = New(p, Options{MinCycleRocks: -1})
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	tw, err := New(p, Options{})
	require.NoError(t, err)
	require.Equal(t, DefaultOptions().Window, tw.Options().Window)
	require.Equal(t, DefaultOptions().MinCycleRocks, tw.Options().MinCycleRocks)
}

func TestRunRejectsBadTarget(t *testing.T) {
	tw := newTower(t, sample, DefaultOptions())
	_, err := tw.Run(-1)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
	_, err = tw.Run(MaxTarget + 1)
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	// 不外推時 10^12 無法直接模擬完，必須在開始前拒絕
	direct := newTower(t, sample, Options{NoExtrapolate: true})
	_, err = direct.Run(1_000_000_000_000)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
	_, err = direct.Run(MaxDirectRocks + 1)
	require.Equal(t, errs.Warn, errs.LevelOf(err))
	require.Equal(t, int64(MaxDirectRocks), direct.Options().Limit())
}

func TestRunContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tw := newTower(t, sample, Options{NoExtrapolate: true})
	_, err := tw.RunContext(ctx, 100_000)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSurface(t *testing.T) {
	tw := newTower(t, sample, DefaultOptions())
	require.Nil(t, tw.Surface(3))
	_, err := tw.Run(2)
	require.NoError(t, err)
	require.Equal(t, []uint8{0b0011110, 0b0001000, 0b0011100, 0b0001000}, tw.Surface(10))
	require.Equal(t, []uint8{0b0001000}, tw.Surface(1))
}
