// Package chamber 是寬度固定為 7 的豎井，記錄已靜止岩石堆疊出的每一列。
package chamber

import "github.com/zintix-labs/rocklab/sdk/shape"

// Width 豎井寬度（欄數）
const Width = 7

// Chamber 以列遮罩保存堆疊，index 0 為最底列。
//
// 已設定的 bit 永遠不會被清除：列只會被附加或與落下岩石做 OR 合併。
type Chamber struct {
	rows []uint8
}

func New() *Chamber {
	return &Chamber{rows: make([]uint8, 0, 4096)}
}

// CanPlace 檢查 rows 放在高度 y 時是否與既有的列重疊。
//
// 超出目前高度的列一定是空的。牆壁邊界由呼叫端負責。
func (c *Chamber) CanPlace(rows shape.Rows, y int) bool {
	for i, r := range rows {
		if r == 0 {
			continue
		}
		at := y + i
		if at < len(c.rows) && c.rows[at]&r != 0 {
			return false
		}
	}
	return true
}

// Merge 把 rows OR 進高度 y 開始的列，必要時附加新列。
//
// 回傳合併前就已經被佔用的 bit（合法的落地應該為 0）。
func (c *Chamber) Merge(rows shape.Rows, y int) uint8 {
	var overlap uint8
	for i, r := range rows {
		if r == 0 {
			continue
		}
		at := y + i
		for at >= len(c.rows) {
			c.rows = append(c.rows, 0)
		}
		overlap |= c.rows[at] & r
		c.rows[at] |= r
	}
	return overlap
}

// Height 目前的列數
func (c *Chamber) Height() int { return len(c.rows) }

// Row 第 i 列，超出高度回傳 0。
func (c *Chamber) Row(i int) uint8 {
	if i < 0 || i >= len(c.rows) {
		return 0
	}
	return c.rows[i]
}

// TopWindow 最上方 k 列的複本（由下往上）。呼叫端需先確認 Height() >= k。
func (c *Chamber) TopWindow(k int) []uint8 {
	return append([]uint8(nil), c.rows[len(c.rows)-k:]...)
}

// Reset 清空堆疊但保留容量，讓池化的機台可以重用。
func (c *Chamber) Reset() {
	c.rows = c.rows[:0]
}
