// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/cosim/hwsim"
	"github.com/holiman/uint256"
)

var hAdder = &hwsim.PartSpec{
	Name:    "HalfAdder",
	Inputs:  hwsim.Inputs{pA, pB},
	Outputs: hwsim.Outputs{"s", "c"},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		a, b := s.Pin(pA), s.Pin(pB)
		sum, cout := s.Pin("s"), s.Pin("c")
		return []hwsim.Component{
			func(c *hwsim.Circuit) {
				va, vb := c.Get(a), c.Get(b)
				c.Set(sum, va != vb)
				c.Set(cout, va && vb)
			}}
	}}

// HalfAdder returns a half adder.
//
//	Inputs: a, b
//	Outputs: s, c
//	Function: s = lsb(a + b)
//	          c = msb(a + b)
func HalfAdder(c string) hwsim.Part {
	return hAdder.NewPart(c)
}

type fullAdder struct {
	A    int `hw:"in"`
	B    int `hw:"in"`
	Cin  int `hw:"in"`
	S    int `hw:"out"`
	Cout int `hw:"out"`
}

func (f *fullAdder) Update(c *hwsim.Circuit) {
	a, b, cin := c.Get(f.A), c.Get(f.B), c.Get(f.Cin)
	s := a != b
	c.Set(f.S, s != cin)
	c.Set(f.Cout, s && cin || a && b)
}

var adder = hwsim.MakePart((*fullAdder)(nil))

// FullAdder returns a 3 bit adder.
//
//	Inputs: a, b, cin
//	Outputs: s, cout
//	Function: s = lsb(a + b + cin)
//	          cout = msb(a + b + cin)
func FullAdder(c string) hwsim.Part {
	return adder.NewPart(c)
}

// AdderN returns a N-bits adder.
//
//	Inputs: a[bits], b[bits]
//	Outputs: out[bits], c
//	Function: out = lsb(a + b), c = carry out
func AdderN(bits int) hwsim.NewPartFn {
	adderN := &hwsim.PartSpec{
		Name:    "Adder" + strconv.Itoa(bits),
		Inputs:  bus(bits, pA, pB),
		Outputs: append(bus(bits, pOut), "c"),
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			a, b := s.Bus(pA, bits), s.Bus(pB, bits)
			out, cout := s.Bus(pOut, bits), s.Pin("c")
			return []hwsim.Component{
				func(c *hwsim.Circuit) {
					cc := false
					for i, o := range out {
						va, vb := c.Get(a[i]), c.Get(b[i])
						s0 := va != vb
						c.Set(o, s0 != cc)
						cc = va && vb || s0 && cc
					}
					c.Set(cout, cc)
				}}
		}}
	return adderN.NewPart
}

// RippleAdderN returns a N-bits ripple carry adder built from FullAdder parts.
// Its outputs are the same as AdderN, but take up to bits steps to settle.
func RippleAdderN(bits int) (hwsim.NewPartFn, error) {
	parts := make(hwsim.Parts, 0, bits)
	for i := 0; i < bits; i++ {
		cin := "c" + strconv.Itoa(i)
		if i == 0 {
			cin = hwsim.False
		}
		cout := "c" + strconv.Itoa(i+1)
		if i == bits-1 {
			cout = "c"
		}
		n := strconv.Itoa(i)
		parts = append(parts, FullAdder("a=a["+n+"], b=b["+n+"], cin="+cin+", s=out["+n+"], cout="+cout))
	}
	return hwsim.Chip("RippleAdder"+strconv.Itoa(bits),
		hwsim.In("a["+strconv.Itoa(bits)+"], b["+strconv.Itoa(bits)+"]"),
		hwsim.Out("out["+strconv.Itoa(bits)+"], c"),
		parts)
}

// MulN returns a N-bits unsigned multiplier.
//
//	Inputs: a[bits], b[bits]
//	Outputs: out[2*bits]
//	Function: out = a * b
func MulN(bits int) hwsim.NewPartFn {
	return (&hwsim.PartSpec{
		Name:    "Mul" + strconv.Itoa(bits),
		Inputs:  bus(bits, pA, pB),
		Outputs: bus(2*bits, pOut),
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			a, b, out := s.Bus(pA, bits), s.Bus(pB, bits), s.Bus(pOut, 2*bits)
			var va, vb, p uint256.Int
			return []hwsim.Component{
				func(c *hwsim.Circuit) {
					GetBus(c, a, &va)
					GetBus(c, b, &vb)
					p.Mul(&va, &vb)
					SetBus(c, out, &p)
				}}
		}}).NewPart
}
