package cycle

import (
	"math"

	"github.com/zintix-labs/rocklab/errs"
)

// Jump 一次外推的結果：跳過 Cycles 個週期，共 Rocks 顆岩石、Height 列高度。
type Jump struct {
	Cycles int64 `json:"cycles"`
	Rocks  int64 `json:"rocks"`
	Height int64 `json:"height"`
}

// Extrapolate 從目前的岩石數 count 往 target 跳過盡可能多的完整週期。
//
// 剩餘不足一個週期時回傳零值。乘積超出 int64 時回傳 Fatal。
func Extrapolate(m Match, count, target int64) (Jump, error) {
	if m.RockDelta <= 0 {
		return Jump{}, errs.Fatalf("cycle rock delta must be positive, got %d", m.RockDelta)
	}
	if m.HeightDelta < 0 {
		return Jump{}, errs.Fatalf("cycle height delta must not be negative, got %d", m.HeightDelta)
	}
	remaining := target - count
	if remaining < m.RockDelta {
		return Jump{}, nil
	}
	cycles := remaining / m.RockDelta
	if m.HeightDelta > 0 && cycles > math.MaxInt64/m.HeightDelta {
		return Jump{}, errs.Fatalf("extrapolated height overflows int64: %d cycles of %d rows", cycles, m.HeightDelta)
	}
	return Jump{
		Cycles: cycles,
		Rocks:  cycles * m.RockDelta, // <= remaining，不會溢位
		Height: cycles * m.HeightDelta,
	}, nil
}
