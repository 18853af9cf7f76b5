package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zintix-labs/rocklab"
	"github.com/zintix-labs/rocklab/corefmt"
	"github.com/zintix-labs/rocklab/dto"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/presets"
	"github.com/zintix-labs/rocklab/sdk/gen"
	"github.com/zintix-labs/rocklab/server/logger"
	"github.com/zintix-labs/rocklab/spec"
	"github.com/zintix-labs/rocklab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	id        spec.PID
	name      string
	jets      string // 臨時輸入檔（純文字或 .zst）
	gen       int    // 隨機噴流長度
	seed      int64
	genState  string // -gen 的亂數狀態，重現先前印出的隨機序列
	strict    bool
	targets   targetsFlag
	worker    int
	profile   int64
	format    string
	surface   int // 印出最後一個目標的堆疊表面
	logMode   string
	pprofmode string
}

type pidFlag struct{ p *spec.PID }

func (f pidFlag) String() string {
	if f.p == nil {
		return "0"
	}
	return fmt.Sprint(uint(*f.p))
}

func (f pidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.PID(uint(u))
	return nil
}

// targetsFlag 逗號分隔，可寫成 1e12 或 1_000_000_000_000
type targetsFlag []int64

func (f *targetsFlag) String() string {
	parts := make([]string, len(*f))
	for i, t := range *f {
		parts[i] = strconv.FormatInt(t, 10)
	}
	return strings.Join(parts, ",")
}

func (f *targetsFlag) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		t, err := parseTarget(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		*f = append(*f, t)
	}
	return nil
}

func parseTarget(s string) (int64, error) {
	s = strings.ReplaceAll(s, "_", "")
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid target %q", s)
	}
	return int64(f), nil
}

func bindVar() error {
	flag.Var(pidFlag{&cfg.id}, "pid", "puzzle id")
	flag.StringVar(&cfg.name, "name", "", "puzzle name (used when -pid is 0)")
	flag.StringVar(&cfg.jets, "jets", "", "ad hoc jet pattern file, plain text or zstd")
	flag.IntVar(&cfg.gen, "gen", 0, "solve a random jet pattern of this length instead of a puzzle")
	flag.Int64Var(&cfg.seed, "seed", 1, "seed for -gen")
	flag.StringVar(&cfg.genState, "gen-state", "", "generator state printed by an earlier -gen run (overrides -seed)")
	flag.BoolVar(&cfg.strict, "strict", true, "reject characters other than < and > in -jets")
	flag.Var(&cfg.targets, "targets", "comma separated rock counts (default: puzzle targets)")
	flag.IntVar(&cfg.worker, "worker", 1, "number of machines solving targets in parallel")
	flag.Int64Var(&cfg.profile, "profile", 0, "simulate N rocks without extrapolation and report height growth")
	flag.IntVar(&cfg.surface, "surface", 0, "print the top N rows after the last target (table output only)")
	flag.StringVar(&cfg.format, "format", "", "output: table (default), json, yaml")
	flag.StringVar(&cfg.logMode, "log-mode", "silence", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	flag.Parse()
	return cfg.valid()
}

func (cfg *config) valid() error {
	if cfg.surface < 0 || cfg.surface > rocklab.MaxSurface {
		return errs.Warnf("value err : surface must be in [0, %d]", rocklab.MaxSurface)
	}
	if cfg.worker < 1 {
		return errs.NewWarn("value err : worker must > 0")
	}
	if cfg.profile < 0 || cfg.profile > rocklab.MaxProfileRocks {
		return errs.Warnf("value err : profile must be in [0, %d]", rocklab.MaxProfileRocks)
	}
	if cfg.gen < 0 || cfg.gen > gen.MaxJets {
		return errs.Warnf("value err : gen must be in [0, %d]", gen.MaxJets)
	}
	if cfg.jets != "" && cfg.gen > 0 {
		return errs.NewWarn("value err : -jets and -gen are exclusive")
	}
	if cfg.genState != "" && cfg.gen == 0 {
		return errs.NewWarn("value err : -gen-state needs -gen")
	}
	adhoc := cfg.jets != "" || cfg.gen > 0
	if cfg.profile > 0 && adhoc {
		return errs.NewWarn("value err : -profile needs a registered puzzle")
	}
	if !adhoc && cfg.id == 0 && cfg.name == "" {
		return errs.NewWarn("value err : -pid, -name, -jets or -gen required")
	}
	switch cfg.format {
	case "", "table", "json", "yaml":
	default:
		return errs.Warnf("value err : unknown format %s", cfg.format)
	}
	return nil
}

// 這裡解析並分支要執行的模式
func execute() error {
	mode, err := logger.ParseMode(cfg.logMode)
	if err != nil {
		return err
	}
	lab, err := rocklab.NewAuto(rocklab.Configs(presets.FS))
	if err != nil {
		return err
	}
	lab.SetLogger(logger.NewDefaultLogger(mode))

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	showpb := cfg.format == "" || cfg.format == "table"

	if cfg.jets != "" || cfg.gen > 0 {
		return solveAdHoc(lab, p, showpb)
	}

	ent, err := lab.Resolve(cfg.id, cfg.name)
	if err != nil {
		return err
	}
	sim, err := lab.NewSimulator(ent.PID)
	if err != nil {
		return err
	}

	if cfg.profile > 0 {
		if showpb {
			p.Printf("%s[PUZZLE:%s] [PROFILE ROCKS:%d]%s\n", green, ent.Name, cfg.profile, reset)
		}
		rep, used, err := sim.Profile(cfg.profile, showpb)
		if err != nil {
			return err
		}
		return output(rep.StdOut, rep.WriteWith, used)
	}

	targets := []int64(cfg.targets)
	if len(targets) == 0 {
		targets = sim.Targets()
	}
	if showpb {
		p.Printf("%s[WORKERS:%d] [PUZZLE:%s] [TARGETS:%d]%s\n", green, cfg.worker, ent.Name, len(targets), reset)
	}
	var rep *stats.SolveReport
	var used time.Duration
	if cfg.worker == 1 {
		rep, used, err = sim.Sweep(targets, showpb)
	} else {
		rep, used, err = sim.SweepMP(context.Background(), targets, cfg.worker, showpb)
	}
	if err != nil {
		return err
	}
	if err := output(rep.StdOut, rep.WriteWith, used); err != nil {
		return err
	}
	if cfg.surface > 0 && showpb {
		return printSurface(lab, ent.PID, targets[len(targets)-1])
	}
	return nil
}

func printSurface(lab *rocklab.Rocklab, pid spec.PID, target int64) error {
	m, err := lab.NewMachine(pid)
	if err != nil {
		return err
	}
	res, err := m.Solve(&dto.SolveRequest{PID: pid, Target: target, Surface: cfg.surface})
	if err != nil {
		return err
	}
	rows, err := corefmt.DecodeRows(res.SurfaceB64U)
	if err != nil {
		return err
	}
	fmt.Print(corefmt.RenderRows(rows, int64(len(rows)) >= res.StackHeight))
	return nil
}

// adHocJets -jets 讀檔，-gen 產生隨機序列
func adHocJets() (string, string, error) {
	if cfg.gen > 0 {
		g, err := gen.NewJetGenerator(cfg.seed, nil)
		if err != nil {
			return "", "", err
		}
		if cfg.genState != "" {
			raw, err := corefmt.DecodeBase64URL(cfg.genState)
			if err != nil {
				return "", "", err
			}
			if err := g.Restore(raw); err != nil {
				return "", "", err
			}
		}
		state, err := g.State()
		if err != nil {
			return "", "", err
		}
		pat, err := g.Gen(cfg.gen)
		if err != nil {
			return "", "", err
		}
		// 報表名稱帶上狀態，之後以 -gen N -gen-state 重現同一串噴流
		return pat.String(), fmt.Sprintf("random(%d, state %s)", cfg.gen, corefmt.EncodeBase64URL(state)), nil
	}
	jets, err := rocklab.LoadJets(cfg.jets)
	return jets, cfg.jets, err
}

// solveAdHoc 臨時輸入：逐一求解每個目標（沒有指定目標時用 2022 與 10^12）
func solveAdHoc(lab *rocklab.Rocklab, p *message.Printer, showpb bool) error {
	jets, label, err := adHocJets()
	if err != nil {
		return err
	}
	targets := []int64(cfg.targets)
	if len(targets) == 0 {
		targets = []int64{2022, 1_000_000_000_000}
	}
	if showpb {
		p.Printf("\033[1;32m[JETS:%s] [TARGETS:%d]\033[0m\n", label, len(targets))
	}

	start := time.Now()
	var rep *stats.SolveReport
	for _, t := range targets {
		res, pat, err := lab.SolveJets(context.Background(), jets, cfg.strict, t)
		if err != nil {
			return err
		}
		if rep == nil {
			rep = stats.NewSolveReport(label, 0, len(pat))
		}
		rep.Add(res)
	}
	return output(rep.StdOut, rep.WriteWith, time.Since(start))
}

func output(stdout func(time.Duration), write func(w io.Writer, rep stats.Render) error, used time.Duration) error {
	if cfg.format == "" || cfg.format == "table" {
		stdout(used)
		return nil
	}
	return write(os.Stdout, stats.RenderByName(cfg.format))
}
