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
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zintix-labs/rocklab"
	"github.com/zintix-labs/rocklab/presets"
	"github.com/zintix-labs/rocklab/server"
	"github.com/zintix-labs/rocklab/server/logger"
	"github.com/zintix-labs/rocklab/server/svrcfg"
)

// rocklab HTTP 服務：內建題目之外，可用 -configs 指定額外的設定檔目錄。
func main() {
	sCfg, closeLog, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()
	server.Run(sCfg)
}

type config struct {
	LogMode    string
	Addr       string
	Configs    string
	PoolSize   int
	Workers    int
	Timeout    time.Duration
	MaxProfile int64
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, func(), error) {
	cfg := new(config)
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.Addr, "addr", ":5808", "listen address")
	flag.StringVar(&cfg.Configs, "configs", "", "extra puzzle config directory")
	flag.IntVar(&cfg.PoolSize, "pool", 3, "number of machines per puzzle")
	flag.IntVar(&cfg.Workers, "workers", 0, "max machines for /v1/sweep (0 = NumCPU)")
	flag.DurationVar(&cfg.Timeout, "timeout", svrcfg.DefaultSolveTimeout, "per request solve timeout")
	flag.Int64Var(&cfg.MaxProfile, "max-profile", svrcfg.DefaultMaxProfile, "max rocks for /v1/profile")
	flag.Parse()

	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	log, ah := logger.NewAsync(4096, mode)

	srcs := rocklab.Configs(presets.FS)
	if cfg.Configs != "" {
		srcs = rocklab.Configs(presets.FS, os.DirFS(cfg.Configs))
	}
	lab, err := rocklab.NewAuto(srcs)
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	lab.SetLogger(log)

	sCfg := &svrcfg.SvrCfg{
		Log:          log,
		Addr:         cfg.Addr,
		PoolSize:     cfg.PoolSize,
		SweepWorkers: cfg.Workers,
		SolveTimeout: cfg.Timeout,
		MaxProfile:   cfg.MaxProfile,
		Rocklab:      lab,
	}
	return sCfg, ah.Close, nil
}
