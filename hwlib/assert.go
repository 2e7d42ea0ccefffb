// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/cosim/hwsim"
	"github.com/pkg/errors"
)

// Assert returns a part that fails the circuit with the given message when
// its input is high on a rising edge of clk. See hwsim.Circuit.Fail.
//
//	Inputs: in, clk
func Assert(msg string) hwsim.NewPartFn {
	return (&hwsim.PartSpec{
		Name:   "Assert",
		Inputs: hwsim.Inputs{pIn, pClk},
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			in, clk := s.Pin(pIn), s.Pin(pClk)
			var prev bool
			return []hwsim.Component{func(c *hwsim.Circuit) {
				k := c.Get(clk)
				if k && !prev && c.Get(in) {
					c.Fail(errors.New(msg))
				}
				prev = k
			}}
		}}).NewPart
}
