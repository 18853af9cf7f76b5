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

// Package rocklab 提供落石塔求解引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Rocklab 持有一份 Catalog（有哪些題目、各自對應的設定檔），並由它建出：
//   - Machine：綁定單一題目、可重用的求解機台。
//   - Simulator：多目標掃描（Sweep）與高度成長分析（Profile）。
//   - Runtime：每個題目一個 MachinePool，給後端服務使用。
//
// Rocklab 本身不綁定任何檔案路徑：設定檔來源一律以 fs.FS 注入（go:embed 或 os.DirFS）。
package rocklab

import (
	"context"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/zintix-labs/rocklab/catalog"
	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/jet"
	"github.com/zintix-labs/rocklab/sdk/tower"
	"github.com/zintix-labs/rocklab/spec"
)

// Configs 把一或多個設定檔來源打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Rocklab 組裝器
//
// 使用流程分成兩階段：
//   - 註冊階段：建立 catalog、登記題目（Register / RegisterAll），最後 Freeze。
//   - 執行階段：依題目 ID 建立 Machine / Simulator / Runtime。
//
// Catalog 的 ID 唯一性只保證在同一個 Rocklab instance 內。
type Rocklab struct {
	cat *catalog.Catalog
	log *slog.Logger // nil 表示不輸出；傳給每一座 Tower
}

// New 建立一個尚未註冊任何題目的 Rocklab。cfgs 至少一個。
func New(cfgs []fs.FS) (*Rocklab, error) {
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	return &Rocklab{cat: cata}, nil
}

// NewAuto 建立 Rocklab、登記所有設定檔並凍結，直接進入執行階段。
func NewAuto(cfgs []fs.FS) (*Rocklab, error) {
	lab, err := New(cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

// SetLogger 設定之後建立的 Tower 使用的 logger（週期偵測會以 debug 等級輸出）。
func (p *Rocklab) SetLogger(l *slog.Logger) {
	p.log = l
}

func (p *Rocklab) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll
//
// 解析所有設定檔來源內的 .yaml/.yml/.json，以檔內宣告的 PuzzleID/PuzzleName 一次性註冊。
//
//  1. Fail-fast：任何檔案讀取、解析或檢查失敗都立刻回傳 error。
//  2. 原子性：全部通過才寫入，不會留下註冊一半的 catalog。
func (p *Rocklab) RegisterAll() error {
	entries, err := p.cat.Discover()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	for _, e := range entries {
		if _, ok := p.cat.GetByID(e.PID); ok {
			return errs.Fatalf("puzzle id already registered: %d (config=%s)", e.PID, e.ConfigName)
		}
		if _, ok := p.cat.GetByName(e.Name); ok {
			return errs.Fatalf("puzzle name already registered: %s (config=%s)", e.Name, e.ConfigName)
		}
	}
	return p.Register(entries...)
}

func (p *Rocklab) Freeze() {
	p.cat.Freeze()
}

func (p *Rocklab) EntryById(id spec.PID) (catalog.Entry, bool) {
	return p.cat.GetByID(id)
}

func (p *Rocklab) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

func (p *Rocklab) IDs() []spec.PID {
	return p.cat.IDs()
}

func (p *Rocklab) All() []catalog.Entry {
	return p.cat.All()
}

// Resolve 以 id 或名稱找出題目；id 為 0 時改用名稱。
func (p *Rocklab) Resolve(id spec.PID, name string) (catalog.Entry, error) {
	if id != 0 {
		e, ok := p.cat.GetByID(id)
		if !ok {
			return catalog.Entry{}, errs.Warnf("puzzle id not found: %d", id)
		}
		if name != "" && !strings.EqualFold(strings.TrimSpace(name), e.Name) {
			return catalog.Entry{}, errs.NewWarn("puzzle name is not matched")
		}
		return e, nil
	}
	if name == "" {
		return catalog.Entry{}, errs.NewWarn("puzzle id or name required")
	}
	e, ok := p.cat.GetByName(name)
	if !ok {
		return catalog.Entry{}, errs.Warnf("puzzle name not found: %s", name)
	}
	return e, nil
}

// Summaries 每個題目的摘要。Catalog 必須已凍結。
func (p *Rocklab) Summaries() ([]catalog.Summary, error) {
	return p.cat.Summaries()
}

// setting 取得已凍結 catalog 內的題目設定
func (p *Rocklab) setting(id spec.PID) (*spec.PuzzleSetting, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return p.cat.Setting(id)
}

// NewMachine 依題目 ID 建立一台 Machine。
func (p *Rocklab) NewMachine(id spec.PID) (*Machine, error) {
	ps, err := p.setting(id)
	if err != nil {
		return nil, err
	}
	return newMachine(ps, p.log)
}

// NewMachineByYAML 以臨時設定建立 Machine（不需要事先註冊）。
//
// 若設定內的 puzzle_id 已在 catalog 內，名稱必須一致，避免同一個 ID 代表兩份不同輸入。
func (p *Rocklab) NewMachineByYAML(raw []byte) (*Machine, error) {
	ps, err := spec.GetPuzzleSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(ps); err != nil {
		return nil, err
	}
	return newMachine(ps, p.log)
}

func (p *Rocklab) NewMachineByJSON(raw []byte) (*Machine, error) {
	ps, err := spec.GetPuzzleSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(ps); err != nil {
		return nil, err
	}
	return newMachine(ps, p.log)
}

func (p *Rocklab) validCfg(ps *spec.PuzzleSetting) error {
	ent, ok := p.cat.GetByID(ps.PuzzleID)
	if !ok {
		return nil
	}
	if !strings.EqualFold(ent.Name, strings.TrimSpace(ps.PuzzleName)) {
		return errs.Warnf("puzzle id %d already registered as %s", ps.PuzzleID, ent.Name)
	}
	return nil
}

// NewSimulator 依題目 ID 建立模擬器。
func (p *Rocklab) NewSimulator(id spec.PID) (*Simulator, error) {
	ps, err := p.setting(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(ps, p.log)
}

// NewRuntime 為每個已註冊題目建立 poolSize 台機台的池。
func (p *Rocklab) NewRuntime(poolSize int) (*Runtime, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return newRuntime(p, poolSize)
}

// SolveJets 以預設參數求解臨時的噴流輸入。
func (p *Rocklab) SolveJets(ctx context.Context, jets string, strict bool, target int64) (tower.Result, jet.Pattern, error) {
	pat, err := jet.Parse(jets, strict)
	if err != nil {
		return tower.Result{}, nil, err
	}
	opt := tower.DefaultOptions()
	opt.Logger = p.log
	res, err := SolvePattern(ctx, pat, target, opt)
	return res, pat, err
}

// SolvePattern 建一座新的 Tower 求解一次。
func SolvePattern(ctx context.Context, p jet.Pattern, target int64, opt tower.Options) (tower.Result, error) {
	tw, err := tower.New(p, opt)
	if err != nil {
		return tower.Result{}, err
	}
	res, err := tw.RunContext(ctx, target)
	if err != nil {
		return res, asSolveErr(err)
	}
	return res, nil
}

// asSolveErr 取消與逾時不代表機台壞掉，轉成 Warn；保留 cause 讓 errors.Is 仍可辨識。
func asSolveErr(err error) error {
	if _, ok := errs.AsErr(err); ok {
		return err
	}
	e := errs.NewWarn("solve canceled/timeout")
	e.Cause = err
	return e
}
