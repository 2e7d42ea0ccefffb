// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/cosim/hwsim"
	"github.com/holiman/uint256"
)

// GetBus reads the pins into v. Pin 0 is lsb. At most 256 pins are read.
func GetBus(c *hwsim.Circuit, pins []int, v *uint256.Int) {
	v.Clear()
	for bit := 0; bit < len(pins) && bit < 256; bit++ {
		if c.Get(pins[bit]) {
			v[bit/64] |= 1 << uint(bit%64)
		}
	}
}

// SetBus sets the pins to the given value. Pin 0 is lsb. Bits of v beyond
// len(pins) are ignored.
func SetBus(c *hwsim.Circuit, pins []int, v *uint256.Int) {
	for bit := 0; bit < len(pins); bit++ {
		c.Set(pins[bit], bit < 256 && v[bit/64]&(1<<uint(bit%64)) != 0)
	}
}

// Input creates a function based input.
//
//	Outputs: out
//	Function: out = f()
func Input(f func() bool) hwsim.NewPartFn {
	p := &hwsim.PartSpec{
		Name:    "Input",
		Inputs:  nil,
		Outputs: hwsim.Outputs{pOut},
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			pin := s.Pin(pOut)
			return []hwsim.Component{
				func(c *hwsim.Circuit) {
					c.Set(pin, f())
				},
			}
		},
	}
	return p.NewPart
}

// Output creates an output or probe. The fn function is
// called with the named pin state on every circuit update.
//
//	Inputs: in
//	Function: f(in)
func Output(f func(bool)) hwsim.NewPartFn {
	p := &hwsim.PartSpec{
		Name:    "Output",
		Inputs:  hwsim.Inputs{pIn},
		Outputs: nil,
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			in := s.Pin(pIn)
			return []hwsim.Component{
				func(c *hwsim.Circuit) { f(c.Get(in)) },
			}
		},
	}
	return p.NewPart
}

// InputN creates an input bus of the given bits size. f must return a value
// that remains valid until the next call.
//
//	Outputs: out[bits]
//	Function: out = f()
func InputN(bits int, f func() *uint256.Int) hwsim.NewPartFn {
	return (&hwsim.PartSpec{
		Name:    "INPUT" + strconv.Itoa(bits),
		Inputs:  nil,
		Outputs: bus(bits, pOut),
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			pins := s.Bus(pOut, bits)
			return []hwsim.Component{func(c *hwsim.Circuit) {
				SetBus(c, pins, f())
			}}
		}}).NewPart
}

// OutputN creates an output bus of the given bits size. The value passed to f
// is only valid for the duration of the call.
//
//	Inputs: in[bits]
//	Function: f(in)
func OutputN(bits int, f func(*uint256.Int)) hwsim.NewPartFn {
	return (&hwsim.PartSpec{
		Name:    "OUTPUT" + strconv.Itoa(bits),
		Inputs:  bus(bits, pIn),
		Outputs: nil,
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			pins := s.Bus(pIn, bits)
			var v uint256.Int
			return []hwsim.Component{func(c *hwsim.Circuit) {
				GetBus(c, pins, &v)
				f(&v)
			}}
		}}).NewPart
}
