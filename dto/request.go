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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/spec"
)

// 防止 body 過大（1MiB，足以容納一般的噴流輸入）
const maxBody = 1 << 20

// SolveRequest 求解單一目標岩石數。
//
// 以 pid / name 指定已註冊的題目；或直接帶 jets 做臨時求解（此時 pid / name 僅供回顯）。
type SolveRequest struct {
	PID     spec.PID `json:"pid"`               // 題目編號
	Name    string   `json:"name"`              // 題目名稱
	Jets    string   `json:"jets,omitempty"`    // 可選：臨時噴流輸入
	Target  int64    `json:"target"`            // 目標岩石數
	Strict  *bool    `json:"strict,omitempty"`  // 可選：臨時噴流的解析模式（預設嚴格）
	Surface int      `json:"surface,omitempty"` // 可選：回傳最上方幾列的堆疊表面
}

// IsStrict strict 缺省視為 true
func (r *SolveRequest) IsStrict() bool { return r.Strict == nil || *r.Strict }

// SweepRequest 對同一份輸入求解多個目標
type SweepRequest struct {
	PID     spec.PID `json:"pid"`
	Name    string   `json:"name"`
	Targets []int64  `json:"targets"`
	Workers int      `json:"workers,omitempty"`
}

// ProfileRequest 直接模擬 rocks 顆岩石並統計高度成長
type ProfileRequest struct {
	PID   spec.PID `json:"pid"`
	Name  string   `json:"name"`
	Rocks int64    `json:"rocks"`
}

// DecodeSolveRequest 會把 HTTP 請求解碼成 SolveRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（pid/name/target/strict/surface）。
//     GET 不接受 jets，臨時輸入請用 POST。
//   - POST：從 JSON body 反序列化，開啟 DisallowUnknownFields()。
//
// 這裡只負責解碼與型別轉換；題目是否存在、target 是否合法由上層決定。
func DecodeSolveRequest(r *http.Request) (*SolveRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(SolveRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Name = q.Get("name")

		if s := q.Get("pid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid pid: %v", err))
			}
			req.PID = spec.PID(u)
		}

		if s := q.Get("target"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid target: %v", err))
			}
			req.Target = v
		}

		if s := q.Get("strict"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid strict value " + err.Error())
			}
			req.Strict = &v
		}

		if s := q.Get("surface"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid surface: %v", err))
			}
			req.Surface = v
		}

		return req, nil

	case http.MethodPost:
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// DecodeSweepRequest 只接受 POST JSON
func DecodeSweepRequest(r *http.Request) (*SweepRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.NewWarn("method not allowed")
	}
	req := new(SweepRequest)
	if err := decodeJSON(r.Body, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeProfileRequest GET 讀 query（pid/name/rocks），POST 讀 JSON
func DecodeProfileRequest(r *http.Request) (*ProfileRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(ProfileRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Name = q.Get("name")
		if s := q.Get("pid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid pid: %v", err))
			}
			req.PID = spec.PID(u)
		}
		if s := q.Get("rocks"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid rocks: %v", err))
			}
			req.Rocks = v
		}
		return req, nil
	case http.MethodPost:
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}
		return req, nil
	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

func decodeJSON(body io.Reader, v any) error {
	if body == nil {
		return errs.NewWarn("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.NewWarn(fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}
