package catalog

import (
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate puzzle id")
	ErrDupName = errs.NewFatal("duplicate puzzle name")
)

// Entry 一個題目在目錄中的登記：編號、小寫名稱、設定檔名（basename）。
type Entry struct {
	PID        spec.PID
	Name       string
	ConfigName string
}

// Summary 對外列出題目時使用，不含完整噴流內容。
type Summary struct {
	PID       spec.PID `json:"pid"         yaml:"pid"`
	Name      string   `json:"name"        yaml:"name"`
	JetPeriod int      `json:"jet_period"  yaml:"jet_period"`
	Targets   []int64  `json:"targets"     yaml:"targets"`
	Strict    bool     `json:"strict_jets" yaml:"strict_jets"`
}

// Catalog 題目目錄。
//
// 註冊階段可以多次 Register；Freeze 之後只讀，設定檔只會解析一次並快取。
type Catalog struct {
	byID   map[spec.PID]Entry
	byName map[string]Entry
	files  map[string]spec.PID // 設定檔 -> 題目，一個檔只屬於一題
	ids    []spec.PID          // 遞增排序
	src    *sources
	frozen atomic.Bool

	mu     sync.Mutex
	parsed map[spec.PID]*spec.PuzzleSetting
}

func New(cfg ...fs.FS) (*Catalog, error) {
	src, err := newSources(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[spec.PID]Entry{},
		byName: map[string]Entry{},
		files:  map[string]spec.PID{},
		ids:    make([]spec.PID, 0, 16),
		src:    src,
		parsed: map[spec.PID]*spec.PuzzleSetting{},
	}, nil
}

func normName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register 一次性登記多個題目：全部通過檢查才寫入，失敗時目錄保持原狀。
func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen.Load() {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	batch := &claims{
		ids:   map[spec.PID]struct{}{},
		names: map[string]struct{}{},
		files: map[string]struct{}{},
	}
	staged := make([]Entry, 0, len(metas))
	for _, meta := range metas {
		meta.Name = normName(meta.Name)
		if err := c.admit(meta, batch); err != nil {
			return err
		}
		staged = append(staged, meta)
	}
	for _, meta := range staged {
		c.files[meta.ConfigName] = meta.PID
		c.byID[meta.PID] = meta
		c.byName[meta.Name] = meta
		c.ids = append(c.ids, meta.PID)
	}
	slices.Sort(c.ids)
	return nil
}

// claims 同一批 Register 內已占用的編號/名稱/檔名
type claims struct {
	ids   map[spec.PID]struct{}
	names map[string]struct{}
	files map[string]struct{}
}

func (c *Catalog) admit(meta Entry, batch *claims) error {
	if meta.Name == "" {
		return errs.NewFatal("puzzle name required")
	}
	if err := validFileName(meta.ConfigName); err != nil {
		return err
	}
	if !c.src.has(meta.ConfigName) {
		return errs.Fatalf("config file not found: %s", meta.ConfigName)
	}
	if _, ok := c.byID[meta.PID]; ok {
		return ErrDupID
	}
	if _, ok := batch.ids[meta.PID]; ok {
		return ErrDupID
	}
	if _, ok := c.byName[meta.Name]; ok {
		return ErrDupName
	}
	if _, ok := batch.names[meta.Name]; ok {
		return ErrDupName
	}
	_, used := c.files[meta.ConfigName]
	if _, ok := batch.files[meta.ConfigName]; ok || used {
		return errs.Fatalf("duplicate config name: %s", meta.ConfigName)
	}
	batch.ids[meta.PID] = struct{}{}
	batch.names[meta.Name] = struct{}{}
	batch.files[meta.ConfigName] = struct{}{}
	return nil
}

// Discover 解析所有來源內的設定檔，以檔內宣告的 puzzle_id / puzzle_name 產生 Entry（依檔名排序）。
//
// 檔案之間互相重複會直接回報並指出兩個檔名；與已登記題目的衝突留給 Register。
func (c *Catalog) Discover() ([]Entry, error) {
	names := c.src.names()
	out := make([]Entry, 0, len(names))
	seenID := map[spec.PID]string{}
	seenName := map[string]string{}
	for _, file := range names {
		ps, err := c.parse(file)
		if err != nil {
			return nil, errs.Fatalf("parse puzzle setting failed: %s: %v", file, err)
		}
		name := normName(ps.PuzzleName)
		if prev, ok := seenID[ps.PuzzleID]; ok {
			return nil, errs.Fatalf("duplicate puzzle id: %d (config=%s and %s)", ps.PuzzleID, prev, file)
		}
		if prev, ok := seenName[name]; ok {
			return nil, errs.Fatalf("duplicate puzzle name: %s (config=%s and %s)", name, prev, file)
		}
		seenID[ps.PuzzleID] = file
		seenName[name] = file
		out = append(out, Entry{PID: ps.PuzzleID, Name: name, ConfigName: file})
	}
	return out, nil
}

func (c *Catalog) GetByID(id spec.PID) (Entry, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	m, ok := c.byName[normName(name)]
	return m, ok
}

func (c *Catalog) IDs() []spec.PID {
	if len(c.ids) == 0 {
		return nil
	}
	return slices.Clone(c.ids)
}

func (c *Catalog) All() []Entry {
	m := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		m = append(m, c.byID[id])
	}
	return m
}

func (c *Catalog) Freeze() {
	c.frozen.Store(true)
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen.Load()
}

// Setting 取得題目的設定；凍結後的結果會快取並共用，呼叫端不可修改。
func (c *Catalog) Setting(id spec.PID) (*spec.PuzzleSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.Warnf("puzzle id not found: %d", id)
	}
	return c.load(e)
}

func (c *Catalog) SettingByName(name string) (*spec.PuzzleSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.Warnf("puzzle name not found: %s", name)
	}
	return c.load(e)
}

// Summaries 依 PID 順序列出題目摘要；目錄必須已凍結。
func (c *Catalog) Summaries() ([]Summary, error) {
	if !c.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	out := make([]Summary, 0, len(c.ids))
	for _, id := range c.ids {
		ps, err := c.Setting(id)
		if err != nil {
			return nil, errs.Wrap(err, "parse puzzle setting failed")
		}
		out = append(out, Summary{
			PID:       id,
			Name:      ps.PuzzleName,
			JetPeriod: len(ps.Pattern()),
			Targets:   slices.Clone(ps.Targets),
			Strict:    ps.Strict(),
		})
	}
	return out, nil
}

func (c *Catalog) load(e Entry) (*spec.PuzzleSetting, error) {
	frozen := c.IsFrozen()
	if frozen {
		c.mu.Lock()
		ps, ok := c.parsed[e.PID]
		c.mu.Unlock()
		if ok {
			return ps, nil
		}
	}
	ps, err := c.parse(e.ConfigName)
	if err != nil {
		return nil, err
	}
	if frozen {
		c.mu.Lock()
		if prev, ok := c.parsed[e.PID]; ok {
			ps = prev
		} else {
			c.parsed[e.PID] = ps
		}
		c.mu.Unlock()
	}
	return ps, nil
}

func (c *Catalog) parse(file string) (*spec.PuzzleSetting, error) {
	raw, err := c.src.read(file)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return ParseSetting(file, raw)
}

// ParseSetting 依副檔名選擇 YAML 或 JSON 解析設定檔。
func ParseSetting(filename string, raw []byte) (*spec.PuzzleSetting, error) {
	switch configExt(filename) {
	case ".yaml", ".yml":
		return spec.GetPuzzleSettingByYAML(raw)
	case ".json":
		return spec.GetPuzzleSettingByJSON(raw)
	default:
		return nil, errs.Fatalf("unsupported config format: %q", filename)
	}
}

// configExt 回傳小寫副檔名；不是設定檔時回傳空字串
func configExt(file string) string {
	ext := strings.ToLower(path.Ext(file))
	switch ext {
	case ".yaml", ".yml", ".json":
		return ext
	}
	return ""
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	if strings.ContainsAny(file, `/\:`) {
		return errs.Fatalf("invalid config filename: %q (must be a basename; no / \\ :)", file)
	}
	if configExt(file) == "" {
		return errs.Fatalf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file)
	}
	// 不能只有副檔名
	if strings.HasPrefix(file, ".") {
		return errs.Fatalf("invalid config filename: %q (cannot start with '.')", file)
	}
	return nil
}

// sources 多個扁平設定檔來源；檔名在所有來源之間唯一。
type sources struct {
	fsys  []fs.FS
	index map[string]int // 檔名 -> 來源
}

func newSources(src ...fs.FS) (*sources, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	s := &sources{fsys: src, index: make(map[string]int, 16)}
	for i, f := range src {
		if f == nil {
			return nil, errs.Fatalf("fs[%d] is nil", i)
		}
		if err := s.scan(i, f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *sources) scan(i int, f fs.FS) error {
	return fs.WalkDir(f, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == "." {
				return nil
			}
			return errs.Fatalf("config FS must be flat (no subdirectories): %q", p)
		}
		// 噴流原始檔、說明文件、隱藏檔都略過
		if configExt(p) == "" || strings.HasPrefix(p, ".") {
			return nil
		}
		if prev, ok := s.index[p]; ok {
			return errs.Fatalf("duplicate config %q in fs[%d] and fs[%d]", p, prev, i)
		}
		s.index[p] = i
		return nil
	})
}

func (s *sources) has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *sources) read(name string) ([]byte, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, errs.Warnf("config %q does not exist in catalog", name)
	}
	return fs.ReadFile(s.fsys[i], name)
}

// names 所有設定檔名，字典序
func (s *sources) names() []string {
	out := make([]string, 0, len(s.index))
	for name := range s.index {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
