// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package xsi implements a cosim.Backend on top of the Vivado simulator
// (xsim) shared library interface, XSI.
//
// A design compiled with "xelab -dll" is loaded from its xsimk.so together
// with the simulation kernel library. Both libraries are loaded at run time,
// without cgo. On platforms where this is not supported, Open always fails.
package xsi

import (
	"strings"

	"github.com/db47h/cosim"
	"github.com/pkg/errors"
)

// DefaultKernelLib is the default simulation kernel library.
const DefaultKernelLib = "librdi_simulator_kernel.so"

// Design and port properties.
const (
	xsiNumTopPorts         = 1
	xsiTimePrecisionKernel = 2
	xsiDirectionTopPort    = 3
	xsiHDLValueSize        = 4
	xsiNameTopPort         = 5
)

// Port directions.
const (
	xsiInputPort  = 1
	xsiOutputPort = 2
	xsiInoutPort  = 3
)

// Kernel status.
const (
	xsiNormal = 0
)

// std_logic values, in XSI encoding order.
const stdLogic = "UX01ZWLH-"

// EncodeStdLogic converts a string of std_logic characters to the XSI
// encoding, one byte per element.
func EncodeStdLogic(s string) ([]byte, error) {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		n := strings.IndexByte(stdLogic, s[i])
		if n < 0 {
			return nil, errors.Errorf("invalid std_logic value %q", s[i])
		}
		b[i] = byte(n)
	}
	return b, nil
}

// DecodeStdLogic converts XSI encoded std_logic values to a string.
func DecodeStdLogic(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, v := range b {
		if int(v) >= len(stdLogic) {
			return "", errors.Errorf("unexpected std_logic code %d", v)
		}
		sb.WriteByte(stdLogic[v])
	}
	return sb.String(), nil
}

// setupInfo mirrors s_xsi_setup_info. Older kernels ignore xsimDir.
type setupInfo struct {
	logFileName *byte
	wdbFileName *byte
	xsimDir     *byte // unused, always nil
}

// library holds the XSI entry points.
type library struct {
	design, kernel uintptr

	open          func(info *setupInfo) uintptr
	close         func(h uintptr)
	run           func(h uintptr, step int64)
	restart       func(h uintptr)
	getValue      func(h uintptr, port int32, value *byte)
	putValue      func(h uintptr, port int32, value *byte)
	getStatus     func(h uintptr) int32
	getErrorInfo  func(h uintptr) string
	getPortNumber func(h uintptr, name string) int32
	getInt        func(h uintptr, prop int32) int32
	getIntPort    func(h uintptr, port int32, prop int32) int32
	getStrPort    func(h uintptr, port int32, prop int32) string
	traceAll      func(h uintptr)
}

// Backend loads compiled designs through XSI.
type Backend struct {
	// KernelLib is the path of the simulation kernel library. Defaults to
	// DefaultKernelLib, which is looked up in the dynamic loader path.
	KernelLib string
}

type port struct {
	cosim.Port
	num int32
}

type kernel struct {
	lib   *library
	h     uintptr
	ports []port
	byNm  map[string]*port
	buf   []byte

	// referenced by the kernel for the lifetime of the design
	info     setupInfo
	log, wdb []byte
}

// Open implements cosim.Backend.
func (b *Backend) Open(cfg cosim.SessionConfig) (cosim.Kernel, error) {
	kl := b.KernelLib
	if kl == "" {
		kl = DefaultKernelLib
	}
	lib, err := loadLibrary(cfg.Design, kl)
	if err != nil {
		return nil, err
	}
	k := &kernel{lib: lib, byNm: make(map[string]*port)}
	k.info.logFileName, k.log = cstring(cfg.Log)
	k.info.wdbFileName, k.wdb = cstring(cfg.Trace)
	k.h = lib.open(&k.info)
	if k.h == 0 {
		lib.unload()
		return nil, errors.Errorf("xsi_open failed for %s", cfg.Design)
	}

	n := lib.getInt(k.h, xsiNumTopPorts)
	k.ports = make([]port, n)
	for i := range k.ports {
		num := int32(i)
		p := &k.ports[i]
		p.num = num
		p.Name = lib.getStrPort(k.h, num, xsiNameTopPort)
		p.Width = int(lib.getIntPort(k.h, num, xsiHDLValueSize))
		switch lib.getIntPort(k.h, num, xsiDirectionTopPort) {
		case xsiInputPort:
			p.Direction = cosim.Input
		case xsiOutputPort:
			p.Direction = cosim.Output
		case xsiInoutPort:
			p.Direction = cosim.Inout
		}
		k.byNm[p.Name] = p
	}
	return k, nil
}

func cstring(s string) (*byte, []byte) {
	if s == "" {
		return nil, nil
	}
	b := append([]byte(s), 0)
	return &b[0], b
}

func (k *kernel) Ports() []cosim.Port {
	ps := make([]cosim.Port, len(k.ports))
	for i := range k.ports {
		ps[i] = k.ports[i].Port
	}
	return ps
}

func (k *kernel) port(name string) (*port, error) {
	if k.h == 0 {
		return nil, errors.New("kernel closed")
	}
	p, ok := k.byNm[name]
	if !ok {
		return nil, errors.Errorf("no port %q", name)
	}
	return p, nil
}

func (k *kernel) status() error {
	if k.lib.getStatus(k.h) != xsiNormal {
		return errors.New(k.lib.getErrorInfo(k.h))
	}
	return nil
}

func (k *kernel) PutValue(name string, value string) error {
	p, err := k.port(name)
	if err != nil {
		return err
	}
	if len(value) != p.Width {
		return errors.Errorf("port %s: got %d bits, expected %d", name, len(value), p.Width)
	}
	b, err := EncodeStdLogic(value)
	if err != nil {
		return errors.Wrapf(err, "port %s", name)
	}
	if len(b) == 0 {
		return nil
	}
	k.lib.putValue(k.h, p.num, &b[0])
	return nil
}

func (k *kernel) GetValue(name string) (string, error) {
	p, err := k.port(name)
	if err != nil {
		return "", err
	}
	if p.Width == 0 {
		return "", nil
	}
	if cap(k.buf) < p.Width {
		k.buf = make([]byte, p.Width)
	}
	b := k.buf[:p.Width]
	k.lib.getValue(k.h, p.num, &b[0])
	if err := k.status(); err != nil {
		return "", err
	}
	return DecodeStdLogic(b)
}

func (k *kernel) Run(duration int64) error {
	if k.h == 0 {
		return errors.New("kernel closed")
	}
	k.lib.run(k.h, duration)
	return k.status()
}

func (k *kernel) TraceAll() error {
	if k.h == 0 {
		return errors.New("kernel closed")
	}
	k.lib.traceAll(k.h)
	return nil
}

func (k *kernel) Close() error {
	if k.h == 0 {
		return nil
	}
	k.lib.close(k.h)
	k.h = 0
	return k.lib.unload()
}
