package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/db47h/cosim"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	scs, err := cfg.Expand(rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	// counting, counting_wide, random and fault on two languages, boundary
	// on two languages and three widths.
	if want := 4*2 + 3*2; len(scs) != want {
		t.Fatalf("got %d scenarios, want %d", len(scs), want)
	}

	var wide *cosim.Scenario
	for i := range scs {
		if scs[i].Name == "counting_wide" && scs[i].Session.Language == cosim.Verilog {
			wide = &scs[i]
		}
	}
	if wide == nil {
		t.Fatal("counting_wide/verilog not found")
	}
	if wide.Width != 64 || wide.Session.Design != "xsim.dir/counter_wide_verilog/xsimk.so" {
		t.Errorf("unexpected wide scenario: %+v", wide)
	}
	seq, ok := wide.Policy.(*cosim.Sequential)
	if !ok {
		t.Fatalf("unexpected policy %T", wide.Policy)
	}
	if seq.Base.Uint64() != 1<<32+1 || seq.Skew != 1 || seq.Count != 10 {
		t.Errorf("unexpected sequential policy: %+v", seq)
	}
}

func TestScenarios_trace(t *testing.T) {
	cfg := Default()
	cfg.TraceDir = "waves"
	scs, err := cfg.Expand(nil)
	if err != nil {
		t.Fatal(err)
	}
	found := 0
	for _, sc := range scs {
		switch sc.ID() {
		case "random/vhdl/16":
			found++
			if want := filepath.Join("waves", "random_vhdl.wdb"); sc.Session.Trace != want {
				t.Errorf("%s: trace %q, want %q", sc.ID(), sc.Session.Trace, want)
			}
		case "counting/verilog/16":
			found++
			if want := filepath.Join("waves", "counter_verilog.wdb"); sc.Session.Trace != want {
				t.Errorf("%s: trace %q, want %q", sc.ID(), sc.Session.Trace, want)
			}
		case "fault/vhdl/16":
			found++
			if sc.Fault == nil || sc.Fault.Idle != 10 || sc.Fault.Active != 10 {
				t.Errorf("%s: bad fault config %+v", sc.ID(), sc.Fault)
			}
		}
	}
	if found != 3 {
		t.Fatalf("found %d of 3 scenarios", found)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	data := `
backend: sim
seed: 42
logging:
  level: debug
designs:
  - language: vhdl
    width: 32
    path: xsim.dir/widget32/xsimk.so
scenarios:
  - name: rnd
    width: 32
    languages: [vhdl]
    policy: random
    count: 100
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Seed != 42 || cfg.Logging.Level != "debug" || cfg.HalfPeriod != cosim.DefaultHalfPeriod {
		t.Errorf("unexpected config: %+v", cfg)
	}
	scs, err := cfg.Expand(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scs) != 1 || scs[0].ID() != "rnd/vhdl/32" {
		t.Fatalf("unexpected scenarios: %+v", scs)
	}
	if p, ok := scs[0].Policy.(*cosim.Random); !ok || p.Count != 100 {
		t.Errorf("unexpected policy %+v", scs[0].Policy)
	}

	// round trip
	out, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if err = os.WriteFile(path, out, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg2, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg2.Scenarios) != 1 || cfg2.Scenarios[0].Count != 100 || cfg2.Seed != 42 {
		t.Errorf("round trip mismatch: %+v", cfg2)
	}
}

func TestValidate(t *testing.T) {
	td := []struct {
		name string
		mod  func(c *Config)
	}{
		{"backend", func(c *Config) { c.Backend = "modelsim" }},
		{"half_period", func(c *Config) { c.HalfPeriod = -1 }},
		{"log_level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"design_language", func(c *Config) { c.Designs[0].Language = "chisel" }},
		{"design_width", func(c *Config) { c.Designs[0].Width = 129 }},
		{"policy", func(c *Config) { c.Scenarios[0].Policy = "exhaustive" }},
		{"duplicate", func(c *Config) { c.Scenarios[1].Name = c.Scenarios[0].Name }},
		{"no_design", func(c *Config) { c.Scenarios[0].Width = 8 }},
		{"fault", func(c *Config) { c.Scenarios[4].Fault = nil }},
		{"base", func(c *Config) { c.Scenarios[1].Base = "abc" }},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			c := Default()
			d.mod(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COSIM_BACKEND", "xsi")
	t.Setenv("COSIM_HALF_PERIOD", "10")
	t.Setenv("COSIM_SEED", "7")
	t.Setenv("COSIM_LEDGER", "results.db")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendXSI || cfg.HalfPeriod != 10 || cfg.Seed != 7 || cfg.Ledger.Path != "results.db" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestEnvOverrides_invalid(t *testing.T) {
	for _, env := range []string{"COSIM_HALF_PERIOD", "COSIM_SEED"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, "fast")
			t.Chdir(t.TempDir())
			if _, err := Load(""); err == nil {
				t.Fatalf("%s=fast: expected an error", env)
			}
		})
	}
}
