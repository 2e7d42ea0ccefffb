// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
package hwtest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/db47h/cosim/hwsim"
	"github.com/db47h/cosim/hwlib"
)

// ClockPin is the name of the input pin that ComparePart drives as a clock.
const ClockPin = "clk"

// SettleSteps is the maximum number of steps ComparePart waits for a circuit
// to settle.
const SettleSteps = 10000

func connString(prefix string, pins []string) string {
	var b strings.Builder
	for _, n := range pins {
		if b.Len() > 0 {
			b.WriteRune(',')
		}
		b.WriteString(n)
		b.WriteRune('=')
		b.WriteString(prefix)
		b.WriteString(n)
	}
	return b.String()
}

// ComparePart takes two parts and compares their outputs given the same inputs.
// Both parts must have the same Input/Output interface.
//
// Inputs are set randomly. If the parts have an input pin named clk, it is
// pulsed after each input change and outputs are compared after the rising
// edge. iter is the number of random input sets to try, in addition to all 0
// and all 1.
func ComparePart(t *testing.T, iter int, part1 hwsim.NewPartFn, part2 hwsim.NewPartFn) {
	t.Helper()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	ps1, ps2 := part1("").PartSpec, part2("").PartSpec

	// compare specs
	if len(ps1.Inputs) != len(ps2.Inputs) {
		t.Fatal("len(ps1.Inputs) != len(ps2.Inputs)")
	}
	if len(ps1.Outputs) != len(ps2.Outputs) {
		t.Fatal("len(ps1.Outputs) != len(ps2.Outputs)")
	}
	for i := range ps1.Inputs {
		if ps1.Inputs[i] != ps2.Inputs[i] {
			t.Fatalf("ps1.Inputs[i] = %q != ps2.Inputs[i] = %q", ps1.Inputs[i], ps2.Inputs[i])
		}
	}
	for i := range ps1.Outputs {
		if ps1.Outputs[i] != ps2.Outputs[i] {
			t.Fatalf("ps1.Outputs[i] = %q != ps2.Outputs[i] = %q", ps1.Outputs[i], ps2.Outputs[i])
		}
	}

	inputs := make([]bool, len(ps1.Inputs))
	outputs := make([][2]bool, len(ps1.Outputs))
	clk := -1

	var parts hwsim.Parts
	for i, n := range ps1.Inputs {
		k := i
		if n == ClockPin {
			clk = i
		}
		parts = append(parts, hwlib.Input(func() bool { return inputs[k] })("out=in_"+n))
	}
	ins := connString("in_", ps1.Inputs)
	sep := ""
	if ins != "" && len(ps1.Outputs) > 0 {
		sep = ","
	}
	parts = append(parts,
		part1(ins+sep+connString("p1_", ps1.Outputs)),
		part2(ins+sep+connString("p2_", ps2.Outputs)))
	for i, o := range ps1.Outputs {
		n := i
		parts = append(parts,
			hwlib.Output(func(b bool) { outputs[n][0] = b })("in=p1_"+o),
			hwlib.Output(func(b bool) { outputs[n][1] = b })("in=p2_"+o))
	}

	c, err := hwsim.NewCircuit(0, parts...)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	settle := func() {
		t.Helper()
		if _, err := c.Settle(SettleSteps); err != nil {
			t.Fatal(err)
		}
	}

	errString := func(oname string, ex, got bool) string {
		var b strings.Builder
		for i, n := range ps1.Inputs {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", n, inputs[i])
		}
		return fmt.Sprintf("\nExpected %s => %s=%v\nGot %v", b.String(), oname, ex, got)
	}

	check := func() {
		t.Helper()
		settle()
		if clk >= 0 {
			inputs[clk] = true
			settle()
		}
		for o, out := range outputs {
			if out[0] != out[1] {
				t.Fatal(errString(ps1.Outputs[o], out[0], out[1]))
			}
		}
		if clk >= 0 {
			inputs[clk] = false
			settle()
		}
	}

	start := time.Now()

	// try all 0
	check()

	// try all 1
	for in := range inputs {
		inputs[in] = in != clk
	}
	check()

	for i := 0; i < iter; i++ {
		for in := range inputs {
			inputs[in] = in != clk && rnd.Int63()&(1<<62) != 0
		}
		check()
	}

	elapsed := time.Since(start)
	t.Logf("%d components. %d steps in %v.", c.Size(), c.Steps(), elapsed)
}
