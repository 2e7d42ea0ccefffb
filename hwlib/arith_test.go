package hwlib_test

import (
	"math"
	"strconv"
	"testing"
	"testing/quick"

	hw "github.com/db47h/cosim/hwsim"
	hl "github.com/db47h/cosim/hwlib"
	"github.com/db47h/cosim/hwtest"
	"github.com/holiman/uint256"
)

func TestHalfAdder(t *testing.T) {
	h, err := hw.Chip("myHalfAdder", hw.In("a, b"), hw.Out("s, c"), hw.Parts{
		hl.Xor("a=a, b=b, out=s"),
		hl.And("a=a, b=b, out=c"),
	})
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, 8, hl.HalfAdder, h)
}

func TestFullAdder(t *testing.T) {
	h, err := hw.Chip("myHalfAdder", hw.In("a, b"), hw.Out("s, c"), hw.Parts{
		hl.Xor("a=a, b=b, out=s"),
		hl.And("a=a, b=b, out=c"),
	})
	if err != nil {
		t.Fatal(err)
	}
	adder, err := hw.Chip("myFullAdder", hw.In("a, b, cin"), hw.Out("s, cout"), hw.Parts{
		h("a=a, b=b, s=s0, c=c0"),
		h("a=s0, b=cin, s=s, c=c1"),
		hl.Or("a=c0, b=c1, out=cout"),
	})
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, 16, hl.FullAdder, adder)
}

func TestRippleAdderN(t *testing.T) {
	for _, bits := range []int{1, 4, 16} {
		t.Run(strconv.Itoa(bits), func(t *testing.T) {
			add, err := hl.RippleAdderN(bits)
			if err != nil {
				t.Fatal(err)
			}
			hwtest.ComparePart(t, 64, hl.AdderN(bits), add)
		})
	}
}

// arithCircuit wires a two operand part with a 2*bits output bus.
func arithCircuit(t *testing.T, bits, outBits int, part hw.NewPartFn) func(a, b *uint256.Int) *uint256.Int {
	t.Helper()
	var a, b, out uint256.Int
	c, err := hw.NewCircuit(1,
		hl.InputN(bits, func() *uint256.Int { return &a })("out["+rng(bits)+"]=a["+rng(bits)+"]"),
		hl.InputN(bits, func() *uint256.Int { return &b })("out["+rng(bits)+"]=b["+rng(bits)+"]"),
		part("a["+rng(bits)+"]=a["+rng(bits)+"], b["+rng(bits)+"]=b["+rng(bits)+"], out["+rng(outBits)+"]=out["+rng(outBits)+"]"),
		hl.OutputN(outBits, func(v *uint256.Int) { out.Set(v) })("in["+rng(outBits)+"]=out["+rng(outBits)+"]"),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Dispose)
	return func(x, y *uint256.Int) *uint256.Int {
		a.Set(x)
		b.Set(y)
		if _, err := c.Settle(testSettle); err != nil {
			t.Fatal(err)
		}
		return new(uint256.Int).Set(&out)
	}
}

func rng(bits int) string { return "0.." + strconv.Itoa(bits-1) }

func TestAdderN(t *testing.T) {
	add := arithCircuit(t, 64, 64, hl.AdderN(64))
	f := func(x, y uint64) bool {
		return add(uint256.NewInt(x), uint256.NewInt(y)).Uint64() == x+y
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestMulN(t *testing.T) {
	mul := arithCircuit(t, 64, 128, hl.MulN(64))
	f := func(x, y uint64) bool {
		exp := new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
		return mul(uint256.NewInt(x), uint256.NewInt(y)).Eq(exp)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
	top := uint256.NewInt(math.MaxUint64)
	exp, _ := uint256.FromHex("0xfffffffffffffffe0000000000000001")
	if got := mul(top, top); !got.Eq(exp) {
		t.Fatalf("%s * %s = %s, got %s", top.Hex(), top.Hex(), exp.Hex(), got.Hex())
	}
}
