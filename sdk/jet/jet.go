// Package jet 處理噴流方向序列：解析輸入字串，並提供無限循環的讀取器。
package jet

import (
	"strings"

	"github.com/zintix-labs/rocklab/errs"
)

// Dir 噴流方向，數值即為水平位移量。
type Dir int8

const (
	Left  Dir = -1
	Right Dir = 1
)

func (d Dir) String() string {
	if d == Left {
		return "<"
	}
	return ">"
}

// Pattern 噴流序列的一個完整週期
type Pattern []Dir

// Parse 將 '<' / '>' 字串轉成 Pattern。前後空白（含換行）會先去除。
//
// strict=true 時任何其他字元都回傳 Warn；strict=false 則沿用寬鬆行為：非 '<' 一律視為向右。
func Parse(s string, strict bool) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errs.NewWarn("empty jet pattern")
	}
	p := make(Pattern, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			p = append(p, Left)
		case '>':
			p = append(p, Right)
		default:
			if strict {
				return nil, errs.Warnf("invalid jet %q at position %d", c, i)
			}
			p = append(p, Right)
		}
	}
	return p, nil
}

func (p Pattern) String() string {
	var sb strings.Builder
	sb.Grow(len(p))
	for _, d := range p {
		sb.WriteString(d.String())
	}
	return sb.String()
}

// Sequence 以模數索引在 Pattern 上無限循環，不會結束。
type Sequence struct {
	p   Pattern
	idx int
}

// NewSequence p 不可為空（由 Parse 保證）。
func NewSequence(p Pattern) *Sequence {
	return &Sequence{p: p}
}

// Next 回傳下一個方向以及它在週期內的位置（不是累計呼叫次數）。
func (s *Sequence) Next() (Dir, int) {
	i := s.idx
	s.idx = (s.idx + 1) % len(s.p)
	return s.p[i], i
}

// Index 下一次 Next 會回傳的位置
func (s *Sequence) Index() int { return s.idx }

// Period 週期長度
func (s *Sequence) Period() int { return len(s.p) }

func (s *Sequence) Reset() { s.idx = 0 }
