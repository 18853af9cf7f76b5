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
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/rocklab"
	"github.com/zintix-labs/rocklab/dto"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/server/httperr"
	"github.com/zintix-labs/rocklab/server/svrcfg"
)

// ============================================================
// ** SolveHandler **
// ============================================================

type SolveHandler struct {
	rt      *rocklab.Runtime
	log     *slog.Logger
	timeout time.Duration
}

func NewSolveHandler(sCfg *svrcfg.SvrCfg) (*SolveHandler, error) {
	rt, err := sCfg.Rocklab.NewRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, errs.Wrap(err, "build solve handler error")
	}
	return &SolveHandler{rt: rt, log: sCfg.Log, timeout: sCfg.SolveTimeout}, nil
}

// Runtime 給 server 關閉時使用
func (h *SolveHandler) Runtime() *rocklab.Runtime { return h.rt }

// Solve GET /v1/solve?pid=1&target=2022 或 POST JSON（可帶 jets 臨時求解）
func (h *SolveHandler) Solve(w http.ResponseWriter, q *http.Request) {
	req, err := dto.DecodeSolveRequest(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(q.Context(), h.timeout)
	defer cancel()

	result, err := h.rt.Solve(ctx, req)
	if err != nil {
		fail(w, h.log, "v1.solve", err)
		return
	}
	respond(w, q, result)
}

// Metrics GET /v1/metrics 每個題目機台池的快照
func (h *SolveHandler) Metrics(w http.ResponseWriter, q *http.Request) {
	respond(w, q, h.rt.Metrics())
}
