// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import (
	"iter"
	"math/rand"
	"time"

	"github.com/holiman/uint256"
)

// A Vector is the operand pair presented to the design on one clock cycle.
type Vector struct {
	A, B uint256.Int
}

// Vec returns a Vector from two uint64 operands.
func Vec(a, b uint64) Vector {
	var v Vector
	v.A.SetUint64(a)
	v.B.SetUint64(b)
	return v
}

// A Policy generates stimulus. Vectors must return a finite sequence of
// operand pairs that fit in width bits. Each call starts a new sequence, and
// no simulation I/O happens while iterating.
type Policy interface {
	Name() string
	Vectors(width int) iter.Seq[Vector]
}

// Sequential emits (Base+n, Base+n+Skew) mod 2^width for n in [0, Count).
//
// With a zero Base and Skew this sweeps (n, n), which exercises the full
// operand range of 16 bits designs in 65536 cycles.
type Sequential struct {
	Count int
	Base  uint256.Int
	Skew  uint64
}

// Name implements Policy.
func (p *Sequential) Name() string { return "sequential" }

// Vectors implements Policy.
func (p *Sequential) Vectors(width int) iter.Seq[Vector] {
	return func(yield func(Vector) bool) {
		mask := Mask(width)
		skew := uint256.NewInt(p.Skew)
		n := p.Base
		for i := 0; i < p.Count; i++ {
			var v Vector
			v.A.And(&n, mask)
			v.B.Add(&n, skew)
			v.B.And(&v.B, mask)
			if !yield(v) {
				return
			}
			n.AddUint64(&n, 1)
		}
	}
}

// Random emits Count independent, uniformly distributed operand pairs.
// Rand is the source of randomness; seeding it is up to the caller. If nil,
// a time seeded source is created for each sequence.
type Random struct {
	Count int
	Rand  *rand.Rand
}

// Name implements Policy.
func (p *Random) Name() string { return "random" }

// Vectors implements Policy.
func (p *Random) Vectors(width int) iter.Seq[Vector] {
	return func(yield func(Vector) bool) {
		r := p.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		mask := Mask(width)
		for i := 0; i < p.Count; i++ {
			var v Vector
			randInt(r, &v.A, mask)
			randInt(r, &v.B, mask)
			if !yield(v) {
				return
			}
		}
	}
}

func randInt(r *rand.Rand, z *uint256.Int, mask *uint256.Int) {
	for i := range z {
		z[i] = r.Uint64()
	}
	z.And(z, mask)
}

// Boundary emits operand pairs around the largest value representable in
// width bits (max), forcing both the sum and the product through their
// wraparound paths:
//
//	(max, 1)      sum wraps to 0
//	(max, max)    sum = max-1, low half of the product = 1
//	(max-1, max)
//	(max, 0)
//	(0, 1)        (max+1, max+2) after wrapping
//	(h, h)        h = 2^(width-1): product = 2^(2*width-2)
//	(h, 2)        sum and product carry out of the low half
//	(max, 2)
//	(1, max)
//	(0, 0)
type Boundary struct{}

// Name implements Policy.
func (Boundary) Name() string { return "boundary" }

// Vectors implements Policy.
func (Boundary) Vectors(width int) iter.Seq[Vector] {
	return func(yield func(Vector) bool) {
		top := Mask(width)
		one := uint256.NewInt(1)
		topm1 := new(uint256.Int).Sub(top, one)
		half := new(uint256.Int).Lsh(one, uint(width-1))
		wrap := func(v *uint256.Int) *uint256.Int { return Wrap(v, width) }
		pairs := [][2]*uint256.Int{
			{top, one},
			{top, top},
			{topm1, top},
			{top, new(uint256.Int)},
			{wrap(new(uint256.Int).AddUint64(top, 1)), wrap(new(uint256.Int).AddUint64(top, 2))},
			{half, half},
			{half, uint256.NewInt(2)},
			{top, uint256.NewInt(2)},
			{one, top},
			{new(uint256.Int), new(uint256.Int)},
		}
		for _, p := range pairs {
			var v Vector
			v.A.Set(p[0])
			v.B.Set(p[1])
			if !yield(v) {
				return
			}
		}
	}
}
