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
package api

import (
	"log/slog"
	"net/http"

	v1 "github.com/zintix-labs/rocklab/server/api/v1"
	"github.com/zintix-labs/rocklab/server/netsvr"
	"github.com/zintix-labs/rocklab/server/netsvr/middleware"
	"github.com/zintix-labs/rocklab/server/svrcfg"
)

// RegisterRoutes 註冊所有路由，回傳的 release 用於關閉求解執行期。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) (release func(), err error) {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr)                // 2. 註冊主頁
	return registerV1API(svr, sCfg)   // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

const indexText = `rocklab

GET  /v1/puzzles
GET  /v1/solve?pid=1&target=2022
POST /v1/solve    {"pid":1,"target":1000000000000} | {"jets":"<<>>","target":2022}
POST /v1/sweep    {"pid":1,"targets":[2022,1000000000000],"workers":4}
GET  /v1/profile?pid=1&rocks=2022
GET  /v1/metrics

?format=json|yaml
`

// 註冊主頁
func registerIndex(svr netsvr.NetRouter) {
	svr.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(indexText))
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) (func(), error) {
	s, err := v1.NewSolveHandler(sCfg)
	if err != nil {
		return nil, err
	}
	m, err := v1.NewSimHandler(sCfg)
	if err != nil {
		s.Runtime().Close()
		return nil, err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/puzzles", v1.Puzzles(sCfg.Rocklab))
		vOne.Get("/metrics", s.Metrics)

		vOne.Get("/solve", s.Solve)
		vOne.Post("/solve", s.Solve)

		vOne.Post("/sweep", m.Sweep)

		vOne.Get("/profile", m.Profile)
		vOne.Post("/profile", m.Profile)
	})
	return s.Runtime().Close, nil
}
