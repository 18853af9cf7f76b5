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
	"github.com/zintix-labs/rocklab/spec"
	"github.com/zintix-labs/rocklab/stats"
)

// ============================================================
// ** SimHandler **
// ============================================================

// SimHandler 多目標掃描與高度成長分析。
// 每個請求各自建立 Simulator，Simulator 本身不可併發共用。
type SimHandler struct {
	lab        *rocklab.Rocklab
	log        *slog.Logger
	workers    int
	maxProfile int64
	timeout    time.Duration
}

func NewSimHandler(sCfg *svrcfg.SvrCfg) (*SimHandler, error) {
	if sCfg.Rocklab == nil {
		return nil, errs.NewFatal("rocklab is required")
	}
	return &SimHandler{
		lab:        sCfg.Rocklab,
		log:        sCfg.Log,
		workers:    sCfg.SweepWorkers,
		maxProfile: sCfg.MaxProfile,
		timeout:    sCfg.SolveTimeout,
	}, nil
}

type SweepResult struct {
	Report *stats.SolveReport `json:"report" yaml:"report"`
	UsedMs int64              `json:"used_ms" yaml:"used_ms"`
}

type ProfileResult struct {
	Report *stats.ProfileReport `json:"report" yaml:"report"`
	UsedMs int64                `json:"used_ms" yaml:"used_ms"`
}

// Sweep POST /v1/sweep
//
//	{"pid":1,"targets":[2022,1000000000000],"workers":4}
//
// targets 留空時使用設定檔預設目標；workers 不超過伺服器設定。
func (h *SimHandler) Sweep(w http.ResponseWriter, q *http.Request) {
	req, err := dto.DecodeSweepRequest(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	sim, err := h.simulator(req.PID, req.Name)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	targets := req.Targets
	if len(targets) == 0 {
		targets = sim.Targets()
	}
	workers := req.Workers
	if workers <= 0 || workers > h.workers {
		workers = h.workers
	}

	ctx, cancel := context.WithTimeout(q.Context(), h.timeout)
	defer cancel()
	rep, used, err := sim.SweepMP(ctx, targets, workers, false)
	if err != nil {
		fail(w, h.log, "v1.sweep", err)
		return
	}
	respond(w, q, SweepResult{Report: rep, UsedMs: used.Milliseconds()})
}

// Profile GET /v1/profile?pid=1&rocks=2022 或 POST JSON
func (h *SimHandler) Profile(w http.ResponseWriter, q *http.Request) {
	req, err := dto.DecodeProfileRequest(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Rocks < 1 || req.Rocks > h.maxProfile {
		httperr.Errs(w, errs.Warnf("rocks must be in [1, %d]", h.maxProfile))
		return
	}
	sim, err := h.simulator(req.PID, req.Name)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(q.Context(), h.timeout)
	defer cancel()
	rep, used, err := sim.ProfileContext(ctx, req.Rocks, false)
	if err != nil {
		fail(w, h.log, "v1.profile", err)
		return
	}
	respond(w, q, ProfileResult{Report: rep, UsedMs: used.Milliseconds()})
}

func (h *SimHandler) simulator(pid spec.PID, name string) (*rocklab.Simulator, error) {
	ent, err := h.lab.Resolve(pid, name)
	if err != nil {
		return nil, err
	}
	return h.lab.NewSimulator(ent.PID)
}
