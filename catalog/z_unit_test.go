package catalog

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/rocklab/errs"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"sample.yaml": {Data: []byte("puzzle_name: sample\npuzzle_id: 1\njets: \">>><<\"\n")},
		"other.json":  {Data: []byte(`{"puzzle_name":"other","puzzle_id":2,"jets":"<<>"}`)},
		"README.md":   {Data: []byte("ignored")},
	}
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	err = c.Register(
		Entry{PID: 2, Name: "Other", ConfigName: "other.json"},
		Entry{PID: 1, Name: " sample ", ConfigName: "sample.yaml"},
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ids := c.IDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids should be sorted: %v", ids)
	}
	e, ok := c.GetByName("SAMPLE")
	if !ok || e.PID != 1 {
		t.Fatalf("lookup by name failed: %+v %v", e, ok)
	}

	ps, err := c.Setting(1)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ps.Pattern().String() != ">>><<" {
		t.Fatalf("pattern mismatch: %s", ps.Pattern())
	}
	ps, err = c.SettingByName("other")
	if err != nil || ps.PuzzleID != 2 {
		t.Fatalf("parse json: %v %+v", err, ps)
	}

	if _, err := c.Setting(99); errs.LevelOf(err) != errs.Warn {
		t.Fatalf("unknown id should be warn, got %v", err)
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	c, _ := New(testFS())
	if err := c.Register(Entry{PID: 1, Name: "a", ConfigName: "sample.yaml"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Register(Entry{PID: 1, Name: "b", ConfigName: "other.json"}); !errors.Is(err, ErrDupID) {
		t.Fatalf("expected dup id, got %v", err)
	}
	if err := c.Register(Entry{PID: 2, Name: "a", ConfigName: "other.json"}); !errors.Is(err, ErrDupName) {
		t.Fatalf("expected dup name, got %v", err)
	}
	if err := c.Register(Entry{PID: 3, Name: "c", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("expected missing config error")
	}
	c.Freeze()
	if err := c.Register(Entry{PID: 2, Name: "b", ConfigName: "other.json"}); err == nil {
		t.Fatalf("frozen catalog should reject register")
	}
}

func TestCatalogFlatFS(t *testing.T) {
	fsys := fstest.MapFS{"sub/x.yaml": {Data: []byte("puzzle_name: x\njets: \"<\"")}}
	if _, err := New(fsys); err == nil {
		t.Fatalf("nested config fs should be rejected")
	}
	if _, err := New(); err == nil {
		t.Fatalf("empty source list should be rejected")
	}
}

func TestValidFileName(t *testing.T) {
	for _, name := range []string{"", "a/b.yaml", ".yaml", "x.txt"} {
		if validFileName(name) == nil {
			t.Fatalf("%q should be invalid", name)
		}
	}
	if err := validFileName("ok.yml"); err != nil {
		t.Fatalf("ok.yml should be valid: %v", err)
	}
}

func TestCatalogDiscover(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	ents, err := c.Discover()
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	// 依檔名排序：other.json 在 sample.yaml 之前，README.md 略過
	if len(ents) != 2 || ents[0].ConfigName != "other.json" || ents[1].PID != 1 || ents[1].Name != "sample" {
		t.Fatalf("unexpected entries: %+v", ents)
	}
	if err := c.Register(ents...); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.Summaries(); err == nil {
		t.Fatalf("summaries before freeze should fail")
	}
	c.Freeze()
	sum, err := c.Summaries()
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(sum) != 2 || sum[0].PID != 1 || sum[0].JetPeriod != 5 || sum[1].JetPeriod != 3 || !sum[0].Strict {
		t.Fatalf("unexpected summaries: %+v", sum)
	}
	a, _ := c.Setting(1)
	b, _ := c.SettingByName("sample")
	if a != b {
		t.Fatalf("frozen catalog should reuse parsed settings")
	}
}

func TestCatalogDiscoverDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml":       {Data: []byte("puzzle_name: a\npuzzle_id: 1\njets: \"<>\"\n")},
		"b.yaml":       {Data: []byte("puzzle_name: A\npuzzle_id: 2\njets: \"<>\"\n")},
		".hidden.yaml": {Data: []byte("not: [valid")},
	}
	c, err := New(fsys)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if _, err := c.Discover(); errs.LevelOf(err) != errs.Fatal {
		t.Fatalf("duplicate names should be fatal, got %v", err)
	}
}
