// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import "github.com/holiman/uint256"

// Check compares the outputs observed at cycle against exp. It returns an
// *InvariantViolation if either the sum or the product differ.
//
// This is the only place where the harness asserts anything about the design.
func Check(cycle int, exp Expectation, sum, product *uint256.Int) error {
	if sum.Eq(&exp.Sum) && product.Eq(&exp.Product) {
		return nil
	}
	return &InvariantViolation{
		Cycle:    cycle,
		Expected: exp,
		Sum:      *sum,
		Product:  *product,
	}
}
