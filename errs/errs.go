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

// Package errs 提供 rocklab 全域統一的分級錯誤型別。
//
// 分級的目的是讓最上層（CLI / HTTP）不必理解細節，也能決定怎麼處理：
//   - Warn : 呼叫端輸入有問題（噴流字元不合法、target 超出範圍、找不到 puzzle）
//   - Fatal: 系統狀態不可信（設定檔來源損毀、整數溢位）
//   - Log  : 只需要記錄的情況
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel 錯誤分級
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

func (lv ErrLevel) String() string {
	switch lv {
	case Fatal:
		return "fatal"
	case Warn:
		return "warn"
	case Log:
		return "log"
	default:
		return ""
	}
}

// E 是統一的錯誤型別。
//
// Message 為主訊息；Extra 為額外上下文（例如出錯的設定檔名）；Cause 為下層錯誤。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", e.ErrLv, e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E { return New(Fatal, msg) }

func NewWarn(msg string) *E { return New(Warn, msg) }

func NewLog(msg string) *E { return New(Log, msg) }

func Fatalf(format string, a ...any) *E { return NewFatal(fmt.Sprintf(format, a...)) }

func Warnf(format string, a ...any) *E { return NewWarn(fmt.Sprintf(format, a...)) }

func Logf(format string, a ...any) *E { return NewLog(fmt.Sprintf(format, a...)) }

// NewWithExtra 與 New 相同，但附加不影響主訊息的上下文。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 以 msg 包裝 cause。
//
// 若 cause 已經是 *E，沿用它的 ErrLv；標準庫或三方錯誤一律視為 Fatal。
// 已知可處理的情境請直接用 NewWarn 建立，不要 Wrap。
func Wrap(cause error, msg string) *E {
	return WrapWithExtra(cause, msg, "")
}

// WrapWithExtra 同 Wrap，另外附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := NewWithExtra(LevelOf(cause), msg, extra)
	r.Cause = cause
	return r
}

// LevelOf 回傳 err 鏈上第一個 *E 的等級；找不到時視為 Fatal，nil 為 None。
func LevelOf(err error) ErrLevel {
	if err == nil {
		return None
	}
	var e *E
	if errors.As(err, &e) {
		return e.ErrLv
	}
	return Fatal
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}
