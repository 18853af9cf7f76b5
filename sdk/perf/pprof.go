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
// Package perf 以 runtime/pprof 包住一次求解或掃描，產出可給 go tool pprof 或 PGO 使用的檔案。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/rocklab/errs"
)

// DefaultDir pprof 檔案預設寫入路徑
const DefaultDir = "build/profiling"

// RunPProf 依 mode 執行 exe 並寫出 <dir>/<mode>.pprof，回傳檔案路徑（mode 為空時為空字串）。
//
//	go run ./cmd/run -pid 2 -p cpu
func RunPProf(exe func(), mode string, dir string) (string, error) {
	if mode == "" {
		exe()
		return "", nil
	}
	if mode != "cpu" && mode != "heap" && mode != "allocs" {
		return "", errs.Warnf("unknown pprof mode: %s", mode)
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create pprof dir")
	}
	path := filepath.Join(dir, mode+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(err, "create pprof file")
	}
	defer f.Close()

	if mode == "cpu" {
		if err := pprof.StartCPUProfile(f); err != nil {
			return "", errs.Wrap(err, "start cpu profile")
		}
		exe()
		pprof.StopCPUProfile()
		return path, nil
	}

	exe()
	if mode == "heap" {
		runtime.GC() // 取得執行後仍存活的物件
	}
	if err := pprof.Lookup(mode).WriteTo(f, 0); err != nil {
		return "", errs.Wrap(err, "write "+mode+" profile")
	}
	return path, nil
}
