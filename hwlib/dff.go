// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/cosim/hwsim"
)

var dff = &hwsim.PartSpec{
	Name:    "DFF",
	Inputs:  hwsim.Inputs{pIn, pClk},
	Outputs: hwsim.Outputs{pOut},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		in, clk, out := s.Pin(pIn), s.Pin(pClk), s.Pin(pOut)
		var prev, cur bool
		return []hwsim.Component{
			func(c *hwsim.Circuit) {
				k := c.Get(clk)
				// rising edge?
				if k && !prev {
					cur = c.Get(in)
				}
				prev = k
				c.Set(out, cur)
			}}
	}}

// DFF returns a data flip flop triggered on the rising edge of clk.
//
//	Inputs: in, clk
//	Outputs: out
//	Function: out(t) = in(t-1) // where t is the current clock cycle.
func DFF(w string) hwsim.Part {
	return dff.NewPart(w)
}

// Register returns a N-bits register triggered on the rising edge of clk.
//
//	Inputs: in[bits], clk
//	Outputs: out[bits]
//	Function: out(t) = in(t-1) // where t is the current clock cycle.
func Register(bits int) hwsim.NewPartFn {
	return (&hwsim.PartSpec{
		Name:    "Register" + strconv.Itoa(bits),
		Inputs:  append(bus(bits, pIn), pClk),
		Outputs: bus(bits, pOut),
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			in, clk, out := s.Bus(pIn, bits), s.Pin(pClk), s.Bus(pOut, bits)
			var prev bool
			cur := make([]bool, bits)
			return []hwsim.Component{
				func(c *hwsim.Circuit) {
					k := c.Get(clk)
					if k && !prev {
						for i, p := range in {
							cur[i] = c.Get(p)
						}
					}
					prev = k
					for i, p := range out {
						c.Set(p, cur[i])
					}
				}}
		}}).NewPart
}
