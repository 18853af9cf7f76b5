// Package corefmt 負責堆疊列遮罩的對外表示：URL-safe base64、hex 與文字圖。
package corefmt

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/chamber"
)

const rowMask = 1<<chamber.Width - 1

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64url failed")
	}
	return b, err
}

func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode hex failed")
	}
	return b, err
}

// EncodeRows 列遮罩（由下往上）轉 base64url，一列一個 byte。
func EncodeRows(rows []uint8) string {
	return EncodeBase64URL(rows)
}

// DecodeRows 反向解碼；任何 byte 超出 7 bit 視為格式錯誤。
func DecodeRows(s string) ([]uint8, error) {
	b, err := DecodeBase64URL(s)
	if err != nil {
		return nil, errs.NewWarn("decode rows failed: " + err.Error())
	}
	for i, r := range b {
		if r&^rowMask != 0 {
			return nil, errs.Warnf("decode rows failed: row %d has bits outside the shaft: %#x", i, r)
		}
	}
	return b, nil
}

// RenderRows 把列遮罩畫成文字，最上面一列在第一行：
//
//	|..#....|
//	|.###...|
//	+-------+  (只有 withFloor 時)
func RenderRows(rows []uint8, withFloor bool) string {
	var sb strings.Builder
	sb.Grow((len(rows) + 1) * (chamber.Width + 3))
	for i := len(rows) - 1; i >= 0; i-- {
		sb.WriteByte('|')
		for c := chamber.Width - 1; c >= 0; c-- {
			if rows[i]>>c&1 == 1 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	if withFloor {
		sb.WriteByte('+')
		sb.WriteString(strings.Repeat("-", chamber.Width))
		sb.WriteString("+\n")
	}
	return sb.String()
}
