// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Port names of the designs driven by the harness.
const (
	PortClk     = "clk"
	PortA       = "a"
	PortB       = "b"
	PortSum     = "sum"
	PortProduct = "product"
	PortFault   = "fault"
)

// ErrClosed is returned by Session methods called after Close.
var ErrClosed = errors.New("session closed")

// Language identifies the hardware description language a design variant was
// written in. Both variants of a design are functionally equivalent.
type Language int

// Supported languages.
const (
	VHDL Language = iota
	Verilog
)

// Languages lists all supported languages.
var Languages = []Language{VHDL, Verilog}

func (l Language) String() string {
	switch l {
	case VHDL:
		return "vhdl"
	case Verilog:
		return "verilog"
	}
	return "language(" + strconv.Itoa(int(l)) + ")"
}

// ParseLanguage returns the Language named s (case insensitive).
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vhdl", "a":
		return VHDL, nil
	case "verilog", "b":
		return Verilog, nil
	}
	return 0, errors.Errorf("unknown language %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(b []byte) error {
	v, err := ParseLanguage(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Direction is the direction of a port, as seen from the design.
type Direction int

// Port directions.
const (
	Input Direction = iota
	Output
	Inout
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "in"
	case Output:
		return "out"
	case Inout:
		return "inout"
	}
	return "direction(" + strconv.Itoa(int(d)) + ")"
}

// Port describes a top level port of a design.
type Port struct {
	Name      string
	Width     int
	Direction Direction
}

// SessionConfig holds the parameters used to open a kernel.
type SessionConfig struct {
	Design   string   // path to the compiled design
	Language Language // language the design was written in
	Trace    string   // waveform file, optional
	Log      string   // kernel log file, optional
	TraceAll bool     // record all signals in the waveform file
}

// A Kernel is a running simulation of a compiled design. This is the control
// surface of the simulator; calls block until the kernel has completed them.
//
// Port values are MSB first strings with one character per bit. Kernels may
// return any std_logic character ("UX01ZWLH-") from GetValue.
type Kernel interface {
	Ports() []Port
	PutValue(port string, value string) error
	GetValue(port string) (string, error)
	// Run advances simulation time by duration. An error means the kernel
	// has entered a failure state and should be reported as a *KernelFault.
	Run(duration int64) error
	TraceAll() error
	Close() error
}

// A Backend loads compiled designs into kernels.
type Backend interface {
	Open(cfg SessionConfig) (Kernel, error)
}

// Session owns a Kernel for its whole lifetime. Sessions are not safe for
// concurrent use.
type Session struct {
	k      Kernel
	cfg    SessionConfig
	ports  map[string]Port
	now    int64
	closed bool
	cerr   error
}

// Open loads the design described by cfg with the given backend and returns a
// new session. Any error is returned as a *KernelLoadError. Callers must call
// Close once done with the session; see WithSession.
func Open(b Backend, cfg SessionConfig) (*Session, error) {
	k, err := b.Open(cfg)
	if err != nil {
		var le *KernelLoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &KernelLoadError{Design: cfg.Design, Language: cfg.Language, Err: err}
	}
	s := &Session{k: k, cfg: cfg, ports: make(map[string]Port)}
	for _, p := range k.Ports() {
		s.ports[p.Name] = p
	}
	if cfg.TraceAll {
		if err := k.TraceAll(); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "enable tracing")
		}
	}
	return s, nil
}

// WithSession opens a session, calls fn and closes the session, regardless of
// how fn returns. A close error is returned only if fn succeeded.
func WithSession(b Backend, cfg SessionConfig, fn func(s *Session) error) (err error) {
	s, err := Open(b, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close session")
		}
	}()
	return fn(s)
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() SessionConfig { return s.cfg }

// Now returns the simulation time.
func (s *Session) Now() int64 { return s.now }

// Port returns the description of the named port.
func (s *Session) Port(name string) (Port, bool) {
	p, ok := s.ports[name]
	return p, ok
}

// Ports returns all ports sorted by name.
func (s *Session) Ports() []Port {
	ps := make([]Port, 0, len(s.ports))
	for _, p := range s.ports {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}

func (s *Session) port(name string) (Port, error) {
	if s.closed {
		return Port{}, ErrClosed
	}
	p, ok := s.ports[name]
	if !ok {
		return p, errors.Errorf("design %s has no port %q", s.cfg.Design, name)
	}
	return p, nil
}

// SetPort writes v to an input port. The width of v must match the port width.
func (s *Session) SetPort(name string, v BinaryValue) error {
	p, err := s.port(name)
	if err != nil {
		return err
	}
	if p.Direction == Output {
		return errors.Errorf("cannot write to output port %q", name)
	}
	if v.Width() != p.Width {
		return &RangeError{Port: name, Value: string(v), Width: p.Width}
	}
	return errors.Wrapf(s.k.PutValue(name, string(v)), "set port %s", name)
}

// GetPort reads the value of a port. If the port holds a metavalue, the error
// is a *MetaValueError.
func (s *Session) GetPort(name string) (BinaryValue, error) {
	p, err := s.port(name)
	if err != nil {
		return "", err
	}
	raw, err := s.k.GetValue(name)
	if err != nil {
		return "", s.fault(err)
	}
	if len(raw) != p.Width {
		return "", errors.Errorf("port %s: kernel returned %d bits, expected %d", name, len(raw), p.Width)
	}
	v, err := ParseBinary(raw)
	if err != nil {
		var me *MetaValueError
		if errors.As(err, &me) {
			me.Port = name
		}
		return "", err
	}
	return v, nil
}

// Advance runs the simulation for the given duration. It returns a
// *KernelFault if the kernel reports an error.
func (s *Session) Advance(duration int64) error {
	if s.closed {
		return ErrClosed
	}
	if duration < 0 {
		return errors.Errorf("negative duration %d", duration)
	}
	err := s.k.Run(duration)
	s.now += duration
	if err != nil {
		return s.fault(err)
	}
	return nil
}

func (s *Session) fault(err error) error {
	var kf *KernelFault
	if errors.As(err, &kf) {
		return err
	}
	return &KernelFault{Time: s.now, Info: err.Error()}
}

// Close releases the kernel. It is safe to call Close more than once; only the
// first call reaches the kernel and later calls return the same error.
func (s *Session) Close() error {
	if s.closed {
		return s.cerr
	}
	s.closed = true
	s.cerr = s.k.Close()
	return s.cerr
}
