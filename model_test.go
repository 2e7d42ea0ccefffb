package cosim_test

import (
	"testing"

	"github.com/db47h/cosim"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

func TestModel_latency(t *testing.T) {
	m := cosim.NewModel(16)
	if m.Latched() {
		t.Fatal("new model latched")
	}
	e := m.Observe(cosim.Vec(3, 5))
	if !e.Sum.IsZero() || !e.Product.IsZero() {
		t.Fatalf("cycle 0: expected zero outputs, got sum=%s product=%s", e.Sum.Dec(), e.Product.Dec())
	}
	if !m.Latched() {
		t.Fatal("model not latched")
	}
	e = m.Observe(cosim.Vec(7, 11))
	if e.Sum.Uint64() != 8 || e.Product.Uint64() != 15 {
		t.Fatalf("cycle 1: got sum=%s product=%s", e.Sum.Dec(), e.Product.Dec())
	}
	// Expect does not change the state
	e = m.Expect()
	e2 := m.Expect()
	if e.Sum.Uint64() != 18 || e.Product.Uint64() != 77 || !e.Sum.Eq(&e2.Sum) {
		t.Fatalf("cycle 2: got sum=%s product=%s", e.Sum.Dec(), e.Product.Dec())
	}
	m.Reset()
	if e = m.Expect(); m.Latched() || !e.Sum.IsZero() {
		t.Fatal("Reset did not clear the model")
	}
}

func TestModel_wrap(t *testing.T) {
	for _, td := range []struct {
		a, b         uint64
		sum, product uint64
	}{
		{65535, 1, 0, 65535},
		{65535, 65535, 65534, 4294836225},
		{32768, 2, 32770, 65536},
		{32768, 32768, 0, 1073741824},
		{0, 0, 0, 0},
	} {
		m := cosim.NewModel(16)
		m.Latch(cosim.Vec(td.a, td.b))
		e := m.Expect()
		if e.Sum.Uint64() != td.sum || e.Product.Uint64() != td.product {
			t.Errorf("%d, %d: got sum=%s product=%s, expected %d, %d", td.a, td.b, e.Sum.Dec(), e.Product.Dec(), td.sum, td.product)
		}
	}

	// 64 bits product needs 128 bits
	e := cosim.Expect(cosim.Vec(^uint64(0), ^uint64(0)), 64)
	if e.Product.Hex() != "0xfffffffffffffffe0000000000000001" || e.Sum.Uint64() != ^uint64(0)-1 {
		t.Errorf("got sum=%s product=%s", e.Sum.Hex(), e.Product.Hex())
	}
}

func TestCheck(t *testing.T) {
	exp := cosim.Expect(cosim.Vec(8, 8), 16)
	if err := cosim.Check(9, exp, uint256.NewInt(16), uint256.NewInt(64)); err != nil {
		t.Fatal(err)
	}
	err := cosim.Check(9, exp, uint256.NewInt(17), uint256.NewInt(64))
	var v *cosim.InvariantViolation
	if !errors.As(err, &v) {
		t.Fatalf("expected InvariantViolation, got %v", err)
	}
	if v.Cycle != 9 || v.Sum.Uint64() != 17 || v.Expected.Sum.Uint64() != 16 || v.Expected.A.Uint64() != 8 {
		t.Errorf("unexpected violation %v", v)
	}
	if err = cosim.Check(9, exp, uint256.NewInt(16), uint256.NewInt(0)); !errors.As(err, &v) {
		t.Error("product mismatch not detected")
	}
}
