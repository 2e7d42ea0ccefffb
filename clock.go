// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

// DefaultHalfPeriod is the default clock half period in kernel time units.
// Kernels default to a 1ps time step, so this gives a 100 MHz clock.
const DefaultHalfPeriod = 5000

// Clock drives the clock port of a session. A full cycle is a high half
// period followed by a low half period.
type Clock struct {
	Port       string // clock port name, "clk" if empty
	HalfPeriod int64  // DefaultHalfPeriod if <= 0
}

func (c *Clock) port() string {
	if c.Port == "" {
		return PortClk
	}
	return c.Port
}

func (c *Clock) half() int64 {
	if c.HalfPeriod <= 0 {
		return DefaultHalfPeriod
	}
	return c.HalfPeriod
}

// Period returns the duration of a full clock cycle.
func (c *Clock) Period() int64 { return 2 * c.half() }

// Pulse runs one full clock cycle: the rising edge at the start of the cycle,
// the falling edge half way through. Errors from the kernel are returned as is
// and leave the session in an undefined state.
func (c *Clock) Pulse(s *Session) error {
	p, d := c.port(), c.half()
	if err := s.SetPort(p, "1"); err != nil {
		return err
	}
	if err := s.Advance(d); err != nil {
		return err
	}
	if err := s.SetPort(p, "0"); err != nil {
		return err
	}
	return s.Advance(d)
}
