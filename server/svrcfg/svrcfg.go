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

package svrcfg

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/zintix-labs/rocklab"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/server/logger"
)

const (
	DefaultSolveTimeout  = 5 * time.Second
	DefaultMaxProfile    = int64(1_000_000)
	maxPoolSize          = 10
	defaultAsyncLogQueue = 1024
)

type SvrCfg struct {
	Log          *slog.Logger
	Addr         string           // 空字串使用預設位址
	PoolSize     int              // 每個題目的機台數 [1, 10]
	SweepWorkers int              // /v1/sweep 最多平行機台數，0 為 CPU 數
	SolveTimeout time.Duration    // 單次請求的求解期限
	MaxProfile   int64            // /v1/profile 直接模擬的岩石數上限
	Rocklab      *rocklab.Rocklab // 必填，且 catalog 已凍結
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(defaultAsyncLogQueue, logger.ModeDev)
	}

	sc.PoolSize = min(maxPoolSize, max(1, sc.PoolSize))
	if sc.SweepWorkers <= 0 {
		sc.SweepWorkers = runtime.NumCPU()
	}
	if sc.SolveTimeout <= 0 {
		sc.SolveTimeout = DefaultSolveTimeout
	}
	if sc.MaxProfile <= 0 {
		sc.MaxProfile = DefaultMaxProfile
	}
	sc.MaxProfile = min(sc.MaxProfile, rocklab.MaxProfileRocks)
	if sc.Rocklab == nil {
		return errs.NewFatal("rocklab is required")
	}
	return nil
}
