// Package shape 定義固定的五種岩石形狀，以及依序循環取用它們的 Sequence。
//
// 每一列以 7 bit 遮罩表示（bit 6 為最左欄、bit 0 為最右欄），
// 列由下往上排列，不足 4 列的形狀以 0 補齊，讓所有形狀都能用固定長度迴圈處理。
package shape

// Shape 岩石形狀。集合封閉且順序固定，直接以表格索引。
type Shape uint8

const (
	Flat  Shape = iota // ####
	Cross              // .#. / ### / .#.
	Angle              // ..# / ..# / ###
	Tall               // # x4
	Block              // ## / ##
)

// Count 形狀總數
const Count = 5

// MaxRows 所有形狀的最大列數
const MaxRows = 4

// Rows 形狀在某個水平位移下每一列的遮罩，由下往上，上方以 0 補齊。
type Rows [MaxRows]uint8

type info struct {
	name  string
	rows  Rows // 位移 0（貼齊最左欄）時的遮罩
	width int
	high  int
}

var table = [Count]info{
	Flat:  {name: "flat", rows: Rows{0b1111000, 0, 0, 0}, width: 4, high: 1},
	Cross: {name: "cross", rows: Rows{0b0100000, 0b1110000, 0b0100000, 0}, width: 3, high: 3},
	Angle: {name: "angle", rows: Rows{0b1110000, 0b0010000, 0b0010000, 0}, width: 3, high: 3},
	Tall:  {name: "tall", rows: Rows{0b1000000, 0b1000000, 0b1000000, 0b1000000}, width: 1, high: 4},
	Block: {name: "block", rows: Rows{0b1100000, 0b1100000, 0, 0}, width: 2, high: 2},
}

// RowsAt 回傳形狀最左格位於第 x 欄時的各列遮罩。純函數，不檢查牆壁。
func RowsAt(s Shape, x int) Rows {
	r := table[s].rows
	for i := range r {
		r[i] >>= uint(x)
	}
	return r
}

// Width 形狀佔用的欄數
func Width(s Shape) int { return table[s].width }

// Height 形狀佔用的列數（不含補齊列）
func Height(s Shape) int { return table[s].high }

func (s Shape) String() string {
	if int(s) >= Count {
		return "unknown"
	}
	return table[s].name
}

// Sequence 依 Flat, Cross, Angle, Tall, Block 的順序無限循環。
type Sequence struct {
	idx int
}

func NewSequence() *Sequence { return &Sequence{} }

// Next 回傳下一個形狀以及它在循環中的位置 [0, Count)。
func (q *Sequence) Next() (Shape, int) {
	i := q.idx
	q.idx = (q.idx + 1) % Count
	return Shape(i), i
}

// Index 下一次 Next 會回傳的位置
func (q *Sequence) Index() int { return q.idx }

func (q *Sequence) Reset() { q.idx = 0 }
