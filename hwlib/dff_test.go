package hwlib_test

import (
	"math/rand"
	"strings"
	"testing"

	hw "github.com/db47h/cosim/hwsim"
	hl "github.com/db47h/cosim/hwlib"
	"github.com/holiman/uint256"
)

func TestRegister(t *testing.T) {
	var (
		in, out uint256.Int
		clk     bool
	)
	c, err := hw.NewCircuit(0,
		hl.Input(func() bool { return clk })("out=clk"),
		hl.InputN(4, func() *uint256.Int { return &in })("out[0..3]=in[0..3]"),
		hl.Register(4)("in[0..3]=in[0..3], clk=clk, out[0..3]=out[0..3]"),
		hl.OutputN(4, func(v *uint256.Int) { out.Set(v) })("in[0..3]=out[0..3]"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	pulse := func() {
		t.Helper()
		for _, v := range []bool{true, false} {
			clk = v
			if _, err := c.Settle(testSettle); err != nil {
				t.Fatal(err)
			}
		}
	}

	var prev uint64
	for i := uint64(15); i < 16; i-- {
		in.SetUint64(i)
		if _, err := c.Settle(testSettle); err != nil {
			t.Fatal(err)
		}
		// no edge yet
		if out.Uint64() != prev {
			t.Fatalf("output changed before clock edge: expected %d, got %d", prev, out.Uint64())
		}
		pulse()
		if out.Uint64() != i {
			t.Fatalf("bad output for input %d: got %d", i, out.Uint64())
		}
		prev = i
	}
}

func TestDFF_chain(t *testing.T) {
	// 3 stage shift register
	var in, clk bool
	var outs [3]bool
	c, err := hw.NewCircuit(1,
		hl.Input(func() bool { return in })("out=in"),
		hl.Input(func() bool { return clk })("out=clk"),
		hl.DFF("in=in, clk=clk, out=q0"),
		hl.DFF("in=q0, clk=clk, out=q1"),
		hl.DFF("in=q1, clk=clk, out=q2"),
		hl.Output(func(b bool) { outs[0] = b })("in=q0"),
		hl.Output(func(b bool) { outs[1] = b })("in=q1"),
		hl.Output(func(b bool) { outs[2] = b })("in=q2"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	var hist []bool
	for i := 0; i < 100; i++ {
		in = rand.Intn(2) == 1
		c.Settle(testSettle)
		clk = true
		c.Settle(testSettle)
		clk = false
		c.Settle(testSettle)
		hist = append(hist, in)
		for k := 0; k < 3 && k < len(hist); k++ {
			if exp := hist[len(hist)-1-k]; outs[k] != exp {
				t.Fatalf("cycle %d: q%d = %v, expected %v", i, k, outs[k], exp)
			}
		}
	}
}

func TestAssert(t *testing.T) {
	var in, clk bool
	c, err := hw.NewCircuit(1,
		hl.Input(func() bool { return in })("out=in"),
		hl.Input(func() bool { return clk })("out=clk"),
		hl.Assert("boom")("in=in, clk=clk"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	cycle := func() {
		clk = true
		c.Settle(testSettle)
		clk = false
		c.Settle(testSettle)
	}
	cycle()
	if c.Err() != nil {
		t.Fatalf("unexpected failure: %v", c.Err())
	}
	// a high input without a clock edge does not fail.
	in = true
	c.Settle(testSettle)
	if c.Err() != nil {
		t.Fatalf("failure without clock edge: %v", c.Err())
	}
	cycle()
	if err := c.Err(); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected failure \"boom\", got %v", err)
	}
}
