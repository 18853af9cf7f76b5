package recorder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/cycle"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/rock"
	"github.com/zintix-labs/rocklab/sdk/shape"
	"github.com/zintix-labs/rocklab/sdk/tower"
)

const sample = ">>><<><>><<<>><>>><<<>>><<<><<<>><>><<>>"

func TestNewHeightRecorderValidation(t *testing.T) {
	_, err := NewHeightRecorder("x", 1, 40, 0)
	require.Error(t, err)
	require.Equal(t, errs.Warn, errs.LevelOf(err))

	_, err = NewHeightRecorder("x", 1, 0, 10)
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.LevelOf(err))

	h, err := NewHeightRecorder("x", 1, 40, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), h.stride)

	h, err = NewHeightRecorder("x", 1, 40, 10*maxSamples)
	require.NoError(t, err)
	require.Equal(t, int64(10), h.stride)
}

func TestRecordAccumulates(t *testing.T) {
	h, err := NewHeightRecorder("x", 1, 40, 2)
	require.NoError(t, err)

	h.Record(rock.Landing{Shape: shape.Flat, HeightBefore: 0, HeightAfter: 1, Jets: 4})
	h.Record(rock.Landing{Shape: shape.Cross, HeightBefore: 1, HeightAfter: 4, Jets: 4})
	rep := h.Done()

	require.Equal(t, int64(2), rep.Summary.Rocks)
	require.Equal(t, int64(4), rep.Summary.Height)
	require.Equal(t, int64(8), rep.Summary.Jets)
	require.Equal(t, int64(1), rep.Gain.Counts[1])
	require.Equal(t, int64(1), rep.Gain.Counts[3])
	require.Equal(t, int64(3), rep.Gain.ShapeGain[shape.Cross])
	require.InDelta(t, 2.0, rep.Summary.MeanGain, 1e-9)
	require.Equal(t, 2, rep.Trend.Samples)
}

func TestRecordPanicsOnImpossibleGain(t *testing.T) {
	h, err := NewHeightRecorder("x", 1, 40, 1)
	require.NoError(t, err)
	require.Panics(t, func() { h.Record(rock.Landing{HeightBefore: 5, HeightAfter: 4}) })
}

func TestRecordCycleKeepsFirst(t *testing.T) {
	h, err := NewHeightRecorder("x", 1, 40, 1)
	require.NoError(t, err)
	h.RecordCycle(cycle.Match{RockDelta: 35, HeightDelta: 53, At: 100})
	h.RecordCycle(cycle.Match{RockDelta: 70, HeightDelta: 106, At: 135})
	rep := h.Done()
	require.Equal(t, int64(2), rep.Cycle.Matches)
	require.Equal(t, int64(100), rep.Cycle.FirstAt)
	require.Equal(t, int64(35), rep.Cycle.RockDelta)
	require.InDelta(t, 53.0/35.0, rep.Cycle.Rate, 1e-12)
}

func TestRecorderOnTower(t *testing.T) {
	p, err := jet.Parse(sample, true)
	require.NoError(t, err)

	h, err := NewHeightRecorder("sample", 1, len(p), 2022)
	require.NoError(t, err)

	opt := tower.DefaultOptions()
	opt.NoExtrapolate = true
	opt.OnLand = h.Record
	opt.OnCycle = h.RecordCycle
	tw, err := tower.New(p, opt)
	require.NoError(t, err)

	res, err := tw.Run(2022)
	require.NoError(t, err)
	require.Equal(t, int64(3068), res.Height)

	rep := h.Done()
	require.Equal(t, int64(2022), rep.Summary.Rocks)
	require.Equal(t, int64(3068), rep.Summary.Height)
	require.Greater(t, rep.Cycle.Matches, int64(0))
	require.Equal(t, int64(87), rep.Cycle.FirstAt)
	require.Equal(t, int64(70), rep.Cycle.RockDelta)
	require.Equal(t, int64(106), rep.Cycle.HeightDelta)

	var total int64
	for _, c := range rep.Gain.Counts {
		total += c
	}
	require.Equal(t, int64(2022), total)
	require.InDelta(t, 53.0/35.0, rep.Trend.Slope, 0.05)
}

func TestRecorderOnRealInput(t *testing.T) {
	raw, err := os.ReadFile("../sdk/tower/testdata/input.txt")
	require.NoError(t, err)
	p, err := jet.Parse(string(raw), false)
	require.NoError(t, err)

	h, err := NewHeightRecorder("real", 2, len(p), 5000)
	require.NoError(t, err)
	opt := tower.DefaultOptions()
	opt.NoExtrapolate = true
	opt.OnLand = h.Record
	tw, err := tower.New(p, opt)
	require.NoError(t, err)
	res, err := tw.Run(5000)
	require.NoError(t, err)

	rep := h.Done()
	require.Equal(t, res.Height, rep.Summary.Height)
	require.Equal(t, 5000, rep.Trend.Samples)
	require.Greater(t, rep.Trend.R2, 0.99)
}
