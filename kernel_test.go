package cosim_test

import (
	"strings"

	"github.com/db47h/cosim"
	"github.com/pkg/errors"
)

// pipeKernel is a behavioral kernel of a registered adder/multiplier. Its
// outputs read as metavalues until undef rising clock edges have occurred.
type pipeKernel struct {
	width    int
	undef    int
	values   map[string]string
	ra, rb   cosim.BinaryValue
	edges    int
	closes   int
	traceAll bool
	runErr   error
}

func newPipeKernel(width, undef int) *pipeKernel {
	k := &pipeKernel{width: width, undef: undef, values: make(map[string]string)}
	for _, p := range k.Ports() {
		k.values[p.Name] = strings.Repeat("0", p.Width)
	}
	k.ra, k.rb = cosim.BinaryValue(k.values[cosim.PortA]), cosim.BinaryValue(k.values[cosim.PortB])
	return k
}

func (k *pipeKernel) Ports() []cosim.Port {
	return []cosim.Port{
		{Name: cosim.PortClk, Width: 1, Direction: cosim.Input},
		{Name: cosim.PortA, Width: k.width, Direction: cosim.Input},
		{Name: cosim.PortB, Width: k.width, Direction: cosim.Input},
		{Name: cosim.PortFault, Width: 1, Direction: cosim.Input},
		{Name: cosim.PortSum, Width: k.width, Direction: cosim.Output},
		{Name: cosim.PortProduct, Width: 2 * k.width, Direction: cosim.Output},
	}
}

func (k *pipeKernel) PutValue(port, value string) error {
	if port == cosim.PortClk && value == "1" && k.values[port] == "0" {
		k.ra, k.rb = cosim.BinaryValue(k.values[cosim.PortA]), cosim.BinaryValue(k.values[cosim.PortB])
		k.edges++
	}
	k.values[port] = value
	return nil
}

func (k *pipeKernel) GetValue(port string) (string, error) {
	v, ok := k.values[port]
	if !ok {
		return "", errors.Errorf("no port %s", port)
	}
	if port != cosim.PortSum && port != cosim.PortProduct {
		return v, nil
	}
	if k.edges < k.undef {
		return strings.Repeat("U", len(v)), nil
	}
	var vec cosim.Vector
	vec.A, vec.B = *cosim.Decode(k.ra), *cosim.Decode(k.rb)
	e := cosim.Expect(vec, k.width)
	if port == cosim.PortSum {
		b, err := cosim.Encode(&e.Sum, k.width)
		return string(b), err
	}
	b, err := cosim.Encode(&e.Product, 2*k.width)
	return string(b), err
}

func (k *pipeKernel) Run(int64) error { return k.runErr }

func (k *pipeKernel) TraceAll() error {
	k.traceAll = true
	return nil
}

func (k *pipeKernel) Close() error {
	k.closes++
	return nil
}

type fakeBackend struct {
	k   cosim.Kernel
	err error
}

func (b *fakeBackend) Open(cosim.SessionConfig) (cosim.Kernel, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.k, nil
}
