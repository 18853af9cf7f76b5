package cycle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/chamber"
	"github.com/zintix-labs/rocklab/sdk/shape"
)

// stack 依序把 rows 疊成一個 chamber（每個元素一列）
func stack(rows ...uint8) *chamber.Chamber {
	ch := chamber.New()
	for i, r := range rows {
		ch.Merge(shape.Rows{r}, i)
	}
	return ch
}

func TestSurfacePacksTopRows(t *testing.T) {
	ch := stack(0b0000001, 0b1000000, 0b0011110, 0b0001000)

	v, ok := Surface(ch, 3)
	require.True(t, ok)
	want := uint64(0b0001000)<<14 | uint64(0b0011110)<<7 | uint64(0b1000000)
	require.Equal(t, want, v)

	v, ok = Surface(ch, 1)
	require.True(t, ok)
	require.Equal(t, uint64(0b0001000), v)

	_, ok = Surface(ch, 5)
	require.False(t, ok)
	_, ok = Surface(ch, 0)
	require.False(t, ok)
}

func TestSurfaceMaxWindowFits(t *testing.T) {
	rows := make([]uint8, MaxWindow)
	for i := range rows {
		rows[i] = 0b1111111
	}
	v, ok := Surface(stack(rows...), MaxWindow)
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxInt64), v)
}

func TestNewDetectorDefaults(t *testing.T) {
	d := NewDetector(0, 0)
	require.Equal(t, DefaultWindow, d.Window)
	require.Equal(t, int64(DefaultMinRocks), d.MinRocks)

	d = NewDetector(MaxWindow+1, 7)
	require.Equal(t, DefaultWindow, d.Window)
	require.Equal(t, int64(7), d.MinRocks)
}

func TestObserveSkipsShallowStack(t *testing.T) {
	d := NewDetector(3, 50)
	_, ok := d.Observe(stack(1, 1), 0, 0, 2)
	require.False(t, ok)
	require.Zero(t, d.Len())
}

func TestObserveThresholdDoesNotRefresh(t *testing.T) {
	d := NewDetector(3, 50)
	low := stack(0b0011110, 0b0001000, 0b0011100)
	high := stack(0b1111111, 0b1111111, 0b0011110, 0b0001000, 0b0011100)

	_, ok := d.Observe(low, 4, 2, 10)
	require.False(t, ok)
	require.Equal(t, 1, d.Len())

	// 距離 30 < 50：不回報，也不覆蓋 count=10 的紀錄
	_, ok = d.Observe(high, 4, 2, 40)
	require.False(t, ok)

	m, ok := d.Observe(high, 4, 2, 60)
	require.True(t, ok)
	require.Equal(t, int64(50), m.RockDelta)
	require.Equal(t, int64(2), m.HeightDelta)
	require.Equal(t, int64(60), m.At)
	require.Equal(t, int64(5), m.Height)
	require.Equal(t, 4, m.Key.Jet)
	require.Equal(t, 2, m.Key.Shape)

	// 可信命中後刷新為 count=60
	m, ok = d.Observe(high, 4, 2, 115)
	require.True(t, ok)
	require.Equal(t, int64(55), m.RockDelta)
	require.Zero(t, m.HeightDelta)
	require.Equal(t, 1, d.Len())
}

func TestObserveKeyIncludesIndices(t *testing.T) {
	d := NewDetector(3, 1)
	ch := stack(1, 2, 4)
	d.Observe(ch, 0, 0, 1)
	_, ok := d.Observe(ch, 1, 0, 2)
	require.False(t, ok)
	_, ok = d.Observe(ch, 0, 1, 3)
	require.False(t, ok)
	require.Equal(t, 3, d.Len())

	_, ok = d.Observe(ch, 0, 0, 4)
	require.True(t, ok)

	d.Reset()
	require.Zero(t, d.Len())
}

func TestExtrapolate(t *testing.T) {
	m := Match{RockDelta: 35, HeightDelta: 53}

	j, err := Extrapolate(m, 100, 1000)
	require.NoError(t, err)
	require.Equal(t, Jump{Cycles: 25, Rocks: 875, Height: 1325}, j)

	j, err = Extrapolate(m, 100, 134)
	require.NoError(t, err)
	require.Zero(t, j)

	j, err = Extrapolate(m, 100, 135)
	require.NoError(t, err)
	require.Equal(t, Jump{Cycles: 1, Rocks: 35, Height: 53}, j)

	j, err = Extrapolate(m, 1000, 100)
	require.NoError(t, err)
	require.Zero(t, j)
}

func TestExtrapolateLargeTarget(t *testing.T) {
	m := Match{RockDelta: 35, HeightDelta: 53}
	j, err := Extrapolate(m, 80, 1_000_000_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(28_571_428_569), j.Cycles)
	require.Equal(t, int64(999_999_999_915), j.Rocks)
	require.Less(t, int64(1_000_000_000_000)-80-j.Rocks, m.RockDelta)
}

func TestExtrapolateErrors(t *testing.T) {
	_, err := Extrapolate(Match{RockDelta: 0, HeightDelta: 3}, 0, 100)
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.LevelOf(err))

	_, err = Extrapolate(Match{RockDelta: 1, HeightDelta: math.MaxInt64 / 2}, 0, 3)
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.LevelOf(err))

	_, err = Extrapolate(Match{RockDelta: 1, HeightDelta: -1}, 0, 3)
	require.Error(t, err)
}
