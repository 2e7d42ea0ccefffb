// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config loads harness suites from YAML files and the environment.
package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/internal/logging"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the suite file looked up in the working directory when no
// explicit path is given.
const DefaultFile = "cosim.yaml"

// Backends.
const (
	BackendSim = "sim"
	BackendXSI = "xsi"
)

// Stimulus policy names.
const (
	PolicySequential = "sequential"
	PolicyRandom     = "random"
	PolicyBoundary   = "boundary"
	PolicyFault      = "fault"
)

// Config is a test suite: how to reach the kernel, which compiled designs to
// use and which scenarios to run against them.
type Config struct {
	// Backend selects the kernel: "sim" (in-process) or "xsi" (Vivado).
	Backend string `yaml:"backend"`

	// KernelLib is the XSI simulation kernel library.
	KernelLib string `yaml:"kernel_lib,omitempty"`

	// HalfPeriod is the clock half period in kernel time units.
	HalfPeriod int64 `yaml:"half_period"`

	// StepTime is the simulated time of one in-process circuit step.
	StepTime int64 `yaml:"step_time,omitempty"`

	// Workers is the number of goroutines evaluating in-process circuits.
	Workers int `yaml:"workers,omitempty"`

	// Seed seeds random stimulus. 0 means a time based seed.
	Seed int64 `yaml:"seed,omitempty"`

	// TraceAll records all signals in the waveform files.
	TraceAll bool `yaml:"trace_all,omitempty"`

	// TraceDir is prepended to relative trace file names.
	TraceDir string `yaml:"trace_dir,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
	Ledger  LedgerConfig  `yaml:"ledger,omitempty"`

	Designs   []DesignConfig   `yaml:"designs"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level is one of error, warn, info, debug or trace.
	Level string `yaml:"level"`
}

// LedgerConfig configures the result ledger.
type LedgerConfig struct {
	// Path of the SQLite database. Results are not recorded if empty.
	Path string `yaml:"path,omitempty"`
}

// DesignConfig locates the compiled design for one language and width.
type DesignConfig struct {
	Language string `yaml:"language"`
	Width    int    `yaml:"width"`
	Path     string `yaml:"path"`
	Trace    string `yaml:"trace,omitempty"`
	Log      string `yaml:"log,omitempty"`
}

// ScenarioConfig describes a scenario. It expands to one cosim.Scenario per
// width and language.
type ScenarioConfig struct {
	Name      string   `yaml:"name"`
	Width     int      `yaml:"width,omitempty"`
	Widths    []int    `yaml:"widths,omitempty"`
	Languages []string `yaml:"languages,omitempty"` // all languages if empty
	Policy    string   `yaml:"policy"`
	Count     int      `yaml:"count,omitempty"`
	// Base is the first operand of a sequential sweep, in decimal.
	Base string `yaml:"base,omitempty"`
	// Skew is added to the second operand of a sequential sweep.
	Skew uint64 `yaml:"skew,omitempty"`
	// Trace overrides the design's trace file. "{name}" and "{language}"
	// are replaced with the scenario name and language.
	Trace string       `yaml:"trace,omitempty"`
	Fault *FaultConfig `yaml:"fault,omitempty"`
}

// FaultConfig configures a fault-injection scenario.
type FaultConfig struct {
	Idle   int `yaml:"idle"`
	Active int `yaml:"active"`
}

// Default returns the standard suite: the counting, wide and random
// scenarios on both languages, boundary vectors at every width and a fault
// injection run.
func Default() *Config {
	return &Config{
		Backend:    BackendSim,
		KernelLib:  "librdi_simulator_kernel.so",
		HalfPeriod: cosim.DefaultHalfPeriod,
		Logging:    LoggingConfig{Level: "info"},
		Designs: []DesignConfig{
			{Language: "vhdl", Width: 16, Path: "xsim.dir/widget/xsimk.so", Trace: "widget.wdb"},
			{Language: "verilog", Width: 16, Path: "xsim.dir/counter_verilog/xsimk.so", Trace: "counter_verilog.wdb"},
			{Language: "vhdl", Width: 32, Path: "xsim.dir/widget32/xsimk.so", Trace: "widget32.wdb"},
			{Language: "verilog", Width: 32, Path: "xsim.dir/counter32_verilog/xsimk.so", Trace: "counter32_verilog.wdb"},
			{Language: "vhdl", Width: 64, Path: "xsim.dir/widget64/xsimk.so", Trace: "widget64.wdb"},
			{Language: "verilog", Width: 64, Path: "xsim.dir/counter_wide_verilog/xsimk.so", Trace: "counter_wide_verilog.wdb"},
		},
		Scenarios: []ScenarioConfig{
			{Name: "counting", Width: 16, Policy: PolicySequential, Count: 65535 + 2},
			{Name: "counting_wide", Width: 64, Policy: PolicySequential, Count: 10, Base: "4294967297", Skew: 1},
			{Name: "random", Width: 16, Policy: PolicyRandom, Count: 65535, Trace: "random_{language}.wdb"},
			{Name: "boundary", Widths: []int{16, 32, 64}, Policy: PolicyBoundary},
			{Name: "fault", Width: 16, Policy: PolicyFault, Fault: &FaultConfig{Idle: 10, Active: 10}},
		},
	}
}

// Load loads the suite from path. If path is empty, DefaultFile is used if it
// exists, otherwise the Default suite. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		c, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads a suite from a YAML file. Settings absent from the file
// keep their default values; designs and scenarios present in the file
// replace the default lists.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}

// Marshal returns the YAML encoding of c.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("COSIM_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("COSIM_KERNEL_LIB"); v != "" {
		c.KernelLib = v
	}
	if v := os.Getenv("COSIM_HALF_PERIOD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "COSIM_HALF_PERIOD")
		}
		c.HalfPeriod = n
	}
	if v := os.Getenv("COSIM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "COSIM_SEED")
		}
		c.Seed = n
	}
	if v := os.Getenv("COSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COSIM_LEDGER"); v != "" {
		c.Ledger.Path = v
	}
	return nil
}

// Validate checks the suite for consistency.
func (c *Config) Validate() error {
	if c.Backend != BackendSim && c.Backend != BackendXSI {
		return errors.Errorf("invalid backend %q (valid: sim, xsi)", c.Backend)
	}
	if c.HalfPeriod < 0 {
		return errors.Errorf("half_period must be non-negative, got %d", c.HalfPeriod)
	}
	if c.StepTime < 0 {
		return errors.Errorf("step_time must be non-negative, got %d", c.StepTime)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return errors.Errorf("invalid log level %q (valid: error, warn, info, debug, trace)", c.Logging.Level)
	}
	for i, d := range c.Designs {
		if _, err := cosim.ParseLanguage(d.Language); err != nil {
			return errors.Wrapf(err, "design #%d", i)
		}
		if d.Width < 1 || 2*d.Width > cosim.MaxWidth {
			return errors.Errorf("design #%d: invalid width %d", i, d.Width)
		}
		if d.Path == "" {
			return errors.Errorf("design #%d: missing path", i)
		}
	}
	seen := make(map[string]bool)
	for _, s := range c.Scenarios {
		if s.Name == "" {
			return errors.New("scenario with no name")
		}
		if seen[s.Name] {
			return errors.Errorf("duplicate scenario %q", s.Name)
		}
		seen[s.Name] = true
		if err := c.validateScenario(&s); err != nil {
			return errors.Wrapf(err, "scenario %s", s.Name)
		}
	}
	return nil
}

func (c *Config) validateScenario(s *ScenarioConfig) error {
	switch s.Policy {
	case PolicySequential, PolicyRandom:
		if s.Count < 0 {
			return errors.Errorf("negative count %d", s.Count)
		}
	case PolicyBoundary:
	case PolicyFault:
		if s.Fault == nil || s.Fault.Idle < 0 || s.Fault.Active < 1 {
			return errors.New("fault policy needs idle >= 0 and active >= 1 cycles")
		}
	default:
		return errors.Errorf("invalid policy %q", s.Policy)
	}
	if s.Base != "" {
		if _, err := uint256.FromDecimal(s.Base); err != nil {
			return errors.Wrapf(err, "invalid base %q", s.Base)
		}
	}
	langs, err := languages(s.Languages)
	if err != nil {
		return err
	}
	ws := widths(s)
	if len(ws) == 0 {
		return errors.New("no width")
	}
	for _, w := range ws {
		for _, l := range langs {
			if _, ok := c.design(l, w); !ok {
				return errors.Errorf("no %s design of width %d", l, w)
			}
		}
	}
	return nil
}

func widths(s *ScenarioConfig) []int {
	if len(s.Widths) > 0 {
		return s.Widths
	}
	if s.Width > 0 {
		return []int{s.Width}
	}
	return nil
}

func languages(names []string) ([]cosim.Language, error) {
	if len(names) == 0 {
		return cosim.Languages, nil
	}
	ls := make([]cosim.Language, 0, len(names))
	for _, n := range names {
		l, err := cosim.ParseLanguage(n)
		if err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	return ls, nil
}

func (c *Config) design(l cosim.Language, width int) (DesignConfig, bool) {
	for _, d := range c.Designs {
		if dl, err := cosim.ParseLanguage(d.Language); err == nil && dl == l && d.Width == width {
			return d, true
		}
	}
	return DesignConfig{}, false
}

// Expand validates the suite and expands it into runnable scenarios.
// rng is shared by all random policies.
func (c *Config) Expand(rng *rand.Rand) ([]cosim.Scenario, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var out []cosim.Scenario
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		langs, _ := languages(s.Languages)
		for _, w := range widths(s) {
			for _, l := range langs {
				d, _ := c.design(l, w)
				sc := cosim.Scenario{
					Name:  s.Name,
					Width: w,
					Session: cosim.SessionConfig{
						Design:   d.Path,
						Language: l,
						Trace:    c.tracePath(s, &d, l),
						Log:      d.Log,
						TraceAll: c.TraceAll,
					},
				}
				switch s.Policy {
				case PolicySequential:
					p := &cosim.Sequential{Count: s.Count, Skew: s.Skew}
					if s.Base != "" {
						b, _ := uint256.FromDecimal(s.Base)
						p.Base = *b
					}
					sc.Policy = p
				case PolicyRandom:
					sc.Policy = &cosim.Random{Count: s.Count, Rand: rng}
				case PolicyBoundary:
					sc.Policy = cosim.Boundary{}
				case PolicyFault:
					sc.Fault = &cosim.FaultInjection{Idle: s.Fault.Idle, Active: s.Fault.Active}
				}
				out = append(out, sc)
			}
		}
	}
	return out, nil
}

func (c *Config) tracePath(s *ScenarioConfig, d *DesignConfig, l cosim.Language) string {
	t := d.Trace
	if s.Trace != "" {
		t = strings.NewReplacer("{name}", s.Name, "{language}", l.String()).Replace(s.Trace)
	}
	if t != "" && c.TraceDir != "" && !filepath.IsAbs(t) {
		t = filepath.Join(c.TraceDir, t)
	}
	return t
}
