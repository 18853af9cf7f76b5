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
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/server/api"
	"github.com/zintix-labs/rocklab/server/app"
	"github.com/zintix-labs/rocklab/server/netsvr"
	"github.com/zintix-labs/rocklab/server/svrcfg"
)

// Run 是 server 套件的組裝器與啟動入口：
//  1. 驗證 SvrCfg（含 logger 與 Rocklab）。
//  2. 以 SvrCfg.Addr 建立 chi HTTP server，write timeout 跟著求解期限放寬。
//  3. 註冊路由與 middleware。
//  4. 啟動 app.Run()，直到收到信號或 server 停止。
//
// Run 不綁定檔案路徑或環境變數；題目設定一律透過 SvrCfg.Rocklab 注入。
func Run(sCfg *svrcfg.SvrCfg) {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	svr := netsvr.NewChiServer(sCfg.Addr, sCfg.SolveTimeout*2)
	run(sCfg, svr)
}

// RunWithSvr 與 Run 相同，但由呼叫端注入 NetSvr（自訂 listener、timeout 或其他框架的 adapter）。
// svr 必須非 nil；若是 ChiAdapter 則要求 Ready()。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
		return
	}
	run(sCfg, svr)
}

func run(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	release, err := api.RegisterRoutes(svr, sCfg)
	if err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return
	}

	// 先關 HTTP server，再關求解執行期
	a := app.NewWith(sCfg.Log, svr, app.NewCloser(release))
	sCfg.Log.Info("[rocklab] listening", slog.String("addr", svr.Address()))
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
	}
}
