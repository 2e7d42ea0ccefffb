// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import "github.com/holiman/uint256"

// Expectation holds the outputs a design must produce for the operand pair
// latched on the previous cycle.
type Expectation struct {
	A, B    uint256.Int // latched operands
	Sum     uint256.Int // (A + B) mod 2^width
	Product uint256.Int // (A * B) mod 2^(2*width)
}

// Expect computes the Expectation for operands a and b.
func Expect(v Vector, width int) Expectation {
	e := Expectation{A: v.A, B: v.B}
	e.Sum.Add(&v.A, &v.B)
	e.Sum.And(&e.Sum, Mask(width))
	e.Product.Mul(&v.A, &v.B)
	e.Product.And(&e.Product, Mask(2*width))
	return e
}

// Model is the reference model of a single pipeline register stage feeding
// an adder and a multiplier. The outputs observed on a cycle are a function of
// the operands presented on the previous cycle, never of the current ones.
//
// A new Model is uninitialized: it behaves as if an all-zero vector had been
// latched.
type Model struct {
	width   int
	latched bool
	state   Vector
}

// NewModel returns a new uninitialized Model for operands of the given width.
func NewModel(width int) *Model {
	return &Model{width: width}
}

// Width returns the operand width.
func (m *Model) Width() int { return m.width }

// Latched returns true once a vector has been latched.
func (m *Model) Latched() bool { return m.latched }

// Expect returns the expected outputs for the current cycle, i.e. computed
// from the last latched vector. It does not change the model state.
func (m *Model) Expect() Expectation {
	return Expect(m.state, m.width)
}

// Latch replaces the pipeline state with v. Call it exactly once per cycle,
// after the outputs for that cycle have been checked.
func (m *Model) Latch(v Vector) {
	m.state.A.And(&v.A, Mask(m.width))
	m.state.B.And(&v.B, Mask(m.width))
	m.latched = true
}

// Observe returns the expectation for the current cycle and then latches v.
func (m *Model) Observe(v Vector) Expectation {
	e := m.Expect()
	m.Latch(v)
	return e
}

// Reset returns the model to its uninitialized state.
func (m *Model) Reset() {
	m.state = Vector{}
	m.latched = false
}
