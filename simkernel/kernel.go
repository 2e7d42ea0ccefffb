// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package simkernel implements a cosim.Backend that runs designs as hwsim
// circuits in process.
//
// Designs are looked up by name in a Registry. The design name is derived
// from the session's design path (see DesignName), so that the same suite
// configuration can drive both this backend and a compiled simulator.
//
// The kernel is two-state: inputs accept 0, 1, L and H. Outputs read as U
// (VHDL) or X (Verilog) until the first rising edge of the clock.
package simkernel

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/hwlib"
	"github.com/db47h/cosim/hwsim"
	"github.com/db47h/cosim/internal/logging"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// DefaultStepTime is the default simulation time of a circuit step.
const DefaultStepTime = 10

// Backend loads registered designs into hwsim circuits.
type Backend struct {
	Registry *Registry
	// StepTime is the simulation time of a circuit step. When the kernel runs
	// for a given duration, it runs at most duration/StepTime steps, or until
	// the circuit is stable. Defaults to DefaultStepTime.
	StepTime int64
	// Workers is the number of goroutines used to update circuits. Defaults
	// to 1. See hwsim.NewCircuit.
	Workers int
}

type port struct {
	cosim.Port
	cur     uint256.Int // applied input value or last output value
	pending uint256.Int
	dirty   bool
}

type kernel struct {
	d        *Design
	c        *hwsim.Circuit
	ports    map[string]*port
	clk      *port
	stepTime int64
	now      int64
	started  bool // seen a rising clock edge
	err      error
	vcd      *vcdWriter
	log      *slog.Logger
	logf     *os.File
	closed   bool
}

// Open implements cosim.Backend.
func (b *Backend) Open(cfg cosim.SessionConfig) (cosim.Kernel, error) {
	if b.Registry == nil {
		return nil, errors.New("no design registry")
	}
	name := DesignName(cfg.Design)
	d, ok := b.Registry.Lookup(name)
	if !ok {
		return nil, errors.Errorf("unknown design %q", name)
	}
	if d.Language != cfg.Language {
		return nil, errors.Errorf("design %s is written in %v, not %v", name, d.Language, cfg.Language)
	}

	k := &kernel{
		d:        d,
		ports:    make(map[string]*port, len(d.Ports)),
		stepTime: b.StepTime,
		log:      logging.Discard(),
	}
	if k.stepTime <= 0 {
		k.stepTime = DefaultStepTime
	}

	var (
		parts hwsim.Parts
		conns []string
	)
	for _, dp := range d.Ports {
		p := &port{Port: dp}
		k.ports[dp.Name] = p
		rng := hwlib.BusRange(dp.Name, dp.Width)
		conns = append(conns, rng+"="+rng)
		switch {
		case dp.Direction == cosim.Output && dp.Width == 1:
			parts = append(parts, hwlib.Output(func(v bool) { p.cur.SetUint64(b2u(v)) })("in="+rng))
		case dp.Direction == cosim.Output:
			parts = append(parts, hwlib.OutputN(dp.Width, func(v *uint256.Int) { p.cur.Set(v) })("in[0.."+strconv.Itoa(dp.Width-1)+"]="+rng))
		case dp.Width == 1:
			parts = append(parts, hwlib.Input(func() bool { return !p.cur.IsZero() })("out="+rng))
		default:
			parts = append(parts, hwlib.InputN(dp.Width, func() *uint256.Int { return &p.cur })("out[0.."+strconv.Itoa(dp.Width-1)+"]="+rng))
		}
	}
	if d.Clock != "" {
		k.clk = k.ports[d.Clock]
		if k.clk == nil || k.clk.Direction == cosim.Output || k.clk.Width != 1 {
			return nil, errors.Errorf("design %s: invalid clock port %q", name, d.Clock)
		}
	}
	parts = append(parts, d.Chip(strings.Join(conns, ", ")))

	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}
	c, err := hwsim.NewCircuit(workers, parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "build design %s", name)
	}
	k.c = c

	if cfg.Log != "" {
		if k.logf, err = os.Create(cfg.Log); err != nil {
			k.Close()
			return nil, errors.Wrap(err, "create log file")
		}
		k.log = slog.New(slog.NewTextHandler(k.logf, nil))
	}
	k.log = k.log.With("design", name)
	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			k.Close()
			return nil, errors.Wrap(err, "create trace file")
		}
		k.vcd = newVCDWriter(f, name, k.signals(cfg.TraceAll))
	}

	k.log.Info("design loaded", "components", c.Size(), "pins", c.Pins(), "language", d.Language.String())
	return k, nil
}

func (k *kernel) signals(all bool) []*vcdSignal {
	var sigs []*vcdSignal
	for _, p := range k.d.Ports {
		if !all && p.Direction != cosim.Output {
			continue
		}
		sigs = append(sigs, &vcdSignal{name: p.Name, width: p.Width, v: &k.ports[p.Name].cur})
	}
	return sigs
}

func (k *kernel) Ports() []cosim.Port {
	ps := make([]cosim.Port, len(k.d.Ports))
	copy(ps, k.d.Ports)
	return ps
}

func (k *kernel) port(name string) (*port, error) {
	if k.closed {
		return nil, errors.New("kernel closed")
	}
	p, ok := k.ports[name]
	if !ok {
		return nil, errors.Errorf("no port %q", name)
	}
	return p, nil
}

func (k *kernel) PutValue(name string, value string) error {
	p, err := k.port(name)
	if err != nil {
		return err
	}
	if p.Direction == cosim.Output {
		return errors.Errorf("port %s is an output", name)
	}
	if len(value) != p.Width {
		return errors.Errorf("port %s: got %d bits, expected %d", name, len(value), p.Width)
	}
	var v uint256.Int
	for i := 0; i < len(value); i++ {
		bit := len(value) - 1 - i
		switch value[i] {
		case '0', 'L':
		case '1', 'H':
			v[bit/64] |= 1 << uint(bit%64)
		default:
			return errors.Errorf("port %s: unsupported value %q in two-state kernel", name, value[i])
		}
	}
	p.pending = v
	p.dirty = true
	return nil
}

func (k *kernel) GetValue(name string) (string, error) {
	p, err := k.port(name)
	if err != nil {
		return "", err
	}
	if p.Direction == cosim.Output && !k.started {
		mv := "U"
		if k.d.Language == cosim.Verilog {
			mv = "X"
		}
		return strings.Repeat(mv, p.Width), nil
	}
	return bits(&p.cur, p.Width), nil
}

func (k *kernel) Run(duration int64) error {
	if k.closed {
		return errors.New("kernel closed")
	}
	if k.err != nil {
		return k.err
	}
	steps := int(duration / k.stepTime)
	if steps < 1 {
		steps = 1
	}

	// data inputs first, then the clock
	for _, p := range k.ports {
		if p.dirty && p != k.clk {
			k.apply(p)
		}
	}
	k.settle(steps)
	if k.clk != nil && k.clk.dirty {
		rising := k.clk.cur.IsZero() && !k.clk.pending.IsZero()
		k.apply(k.clk)
		k.settle(steps)
		if rising {
			k.started = true
		}
	}
	k.now += duration

	if k.vcd != nil {
		if err := k.vcd.dump(k.now); err != nil {
			k.log.Error("trace write failed", "err", err)
		}
	}
	if err := k.c.Err(); err != nil {
		k.log.Error(err.Error(), "time", k.now)
		k.err = &cosim.KernelFault{Time: k.now, Info: err.Error()}
		return k.err
	}
	return nil
}

func (k *kernel) apply(p *port) {
	p.cur = p.pending
	p.dirty = false
}

func (k *kernel) settle(steps int) {
	n, err := k.c.Settle(steps)
	if err != nil {
		k.log.Warn("circuit not stable", "time", k.now, "steps", n)
		return
	}
	k.log.Debug("circuit stable", "time", k.now, "steps", n)
}

func (k *kernel) TraceAll() error {
	if k.closed {
		return errors.New("kernel closed")
	}
	if k.vcd != nil && !k.vcd.hdr {
		k.vcd.sigs = k.signals(true)
	}
	return nil
}

func (k *kernel) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	var err error
	if k.c != nil {
		k.c.Dispose()
	}
	if k.vcd != nil {
		err = k.vcd.Close()
	}
	if k.logf != nil {
		k.log.Info("kernel closed", "time", k.now)
		if cerr := k.logf.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close log file")
		}
	}
	return err
}

// bits returns the width least significant bits of v, MSB first.
func bits(v *uint256.Int, width int) string {
	b := make([]byte, width)
	for i := range b {
		bit := width - 1 - i
		b[i] = '0'
		if bit < 256 && v[bit/64]&(1<<uint(bit%64)) != 0 {
			b[i] = '1'
		}
	}
	return string(b)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
