// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"runtime"
	"slices"
	"sync"

	"github.com/pkg/errors"
)

// A Component is a component in a circuit that can Get and Set states.
//
// Components must Set all of their output pins on every step.
type Component func(c *Circuit)

// A MountFn mounts a part into socket s. MountFn's should query
// the socket for assigned pin numbers and return closures around
// these pin numbers.
//
// For example, a Not gate can be defined like this:
//
//	not := &PartSpec{
//		Name:    "Not",
//		Inputs:  In("in"),
//		Outputs: Out("out"),
//		Mount: func(s *Socket) []Component {
//			in, out := s.Pin("in"), s.Pin("out")
//			return []Component{
//				func(c *Circuit) { c.Set(out, !c.Get(in)) },
//			}
//		}}
type MountFn func(s *Socket) []Component

// A PartSpec wraps a part specification (its blueprint).
type PartSpec struct {
	// Part name.
	Name string
	// Input pin names. Must be distinct pin names.
	// Use In() to expand an input description like "a, b, bus[2]"
	// to []string{"a", "b", "bus[0]", "bus[1]"}.
	Inputs Inputs
	// Output pin names. Must be distinct pin names.
	Outputs Outputs
	// Mount function (see MountFn).
	Mount MountFn
}

// NewPart is a NewPartFn that wraps p with the given connections into a Part.
// It panics if the connection string cannot be parsed.
func (p *PartSpec) NewPart(connections string) Part {
	cs, err := ParseConnections(connections)
	if err != nil {
		panic(err)
	}
	return Part{p, cs}
}

func (p *PartSpec) isInput(name string) bool  { return slices.Contains(p.Inputs, name) }
func (p *PartSpec) isOutput(name string) bool { return slices.Contains(p.Outputs, name) }

// A NewPartFn is a function that takes a connection configuration and returns a
// new Part. See ParseConnections for the syntax of the connection configuration
// string.
type NewPartFn func(c string) Part

// A Part wraps a part specification together with its connections within a host
// chip.
type Part struct {
	*PartSpec
	Conns []Connection
}

// Parts is a convenience wrapper for []Part.
type Parts []Part

// Circuit is a runnable circuit simulation.
type Circuit struct {
	s0    []bool // wire states frame #0
	s1    []bool // wire states frame #1
	cs    []Component
	count int // wire count
	steps uint

	wc []chan struct{}
	wg sync.WaitGroup

	mu  sync.Mutex
	err error
}

// NewCircuit builds a new circuit based on the given parts.
//
// workers is the number of goroutines used to update the state of the Circuit
// each step of the simulation. If less or equal to 0, the value of GOMAXPROCS
// will be used. With a single worker, components run on the calling goroutine.
//
// Callers must make sure to call Dispose() once the circuit is no longer needed
// in order to release allocated resources.
func NewCircuit(workers int, parts ...Part) (*Circuit, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty part list")
	}

	// new circuit with room for constant value pins.
	cc := &Circuit{count: cstCount}
	wrap, err := Chip("CIRCUIT", nil, nil, parts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chip wrapper")
	}
	cc.cs = wrap("").Mount(newSocket(cc))
	cc.s0 = make([]bool, cc.count)
	cc.s1 = make([]bool, cc.count)
	cc.s0[cstTrue] = true
	cc.s1[cstTrue] = true

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	if workers <= 1 {
		return cc, nil
	}
	ups := cc.cs
	for len(ups) > 0 {
		size := len(ups) / workers
		if size*workers < len(ups) {
			size++
		}
		wc := make(chan struct{}, 1)
		cc.wc = append(cc.wc, wc)
		go worker(cc, ups[:size], wc)
		ups = ups[size:]
	}

	return cc, nil
}

// Dispose releases all resources allocated for a circuit and stops
// worker goroutines.
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		close(wc)
	}
	c.wg.Wait()
	c.wc = nil
}

func worker(c *Circuit, cs []Component, wc <-chan struct{}) {
	for {
		_, ok := <-wc
		if !ok {
			c.wg.Done()
			return
		}
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
}

// allocPin allocates a pin and returns its number.
func (c *Circuit) allocPin() int {
	cnt := c.count
	c.count++
	return cnt
}

// Steps returns the value of the step counter.
func (c *Circuit) Steps() uint {
	return c.steps
}

// Get returns the state of pin n. The value of n should be obtained in a
// MountFn by a call to one of the Socket methods.
func (c *Circuit) Get(n int) bool {
	return c.s0[n]
}

// Set sets the state s of pin n. The value of n should be obtained in a
// MountFn by a call to one of the Socket methods.
func (c *Circuit) Set(n int, s bool) {
	c.s1[n] = s
}

// Toggle toggles the state of pin n.
func (c *Circuit) Toggle(n int) {
	c.s1[n] = !c.s0[n]
}

// Step advances the simulation by one step and reports whether any pin changed
// state.
func (c *Circuit) Step() bool {
	if len(c.wc) == 0 {
		for _, f := range c.cs {
			f(c)
		}
	} else {
		c.wg.Add(len(c.wc))
		for _, wc := range c.wc {
			wc <- struct{}{}
		}
		c.wg.Wait()
	}
	if c.s1[cstFalse] || !c.s1[cstTrue] {
		panic("true or false constants have been overwritten")
	}
	c.steps++
	changed := !slices.Equal(c.s0, c.s1)
	c.s0, c.s1 = c.s1, c.s0
	return changed
}

// Settle runs the simulation until no pin changes state, for at most limit
// steps. It returns the number of steps run. An error is returned if the
// circuit is still changing after limit steps, which usually means that it
// contains a combinational loop.
func (c *Circuit) Settle(limit int) (int, error) {
	for i := 1; i <= limit; i++ {
		if !c.Step() {
			return i, nil
		}
	}
	return limit, errors.Errorf("circuit not stable after %d steps", limit)
}

// Fail reports a failure from within a component, like a failed assertion.
// Only the first failure is kept. Fail is safe for concurrent use.
func (c *Circuit) Fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// Err returns the first failure reported by a component.
func (c *Circuit) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Size returns the component count in the circuit.
func (c *Circuit) Size() int { return len(c.cs) }

// Pins returns the number of pins in the circuit, including the constant
// pins.
func (c *Circuit) Pins() int { return c.count }
