package cosim_test

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/db47h/cosim"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

type value struct {
	v     *uint256.Int
	width int
}

func (value) Generate(r *rand.Rand, size int) reflect.Value {
	w := 1 + r.Intn(cosim.MaxWidth)
	var z uint256.Int
	for i := range z {
		z[i] = r.Uint64()
	}
	return reflect.ValueOf(value{cosim.Wrap(&z, w), w})
}

func TestCodec_roundTrip(t *testing.T) {
	f := func(v value) bool {
		b, err := cosim.Encode(v.v, v.width)
		if err != nil || b.Width() != v.width {
			return false
		}
		return cosim.Decode(b).Eq(v.v)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}
}

func TestEncode(t *testing.T) {
	for _, td := range []struct {
		v     uint64
		width int
		out   cosim.BinaryValue
	}{
		{0, 1, "0"},
		{1, 1, "1"},
		{5, 4, "0101"},
		{65535, 16, "1111111111111111"},
		{0x8001, 16, "1000000000000001"},
	} {
		b, err := cosim.EncodeUint64(td.v, td.width)
		if err != nil {
			t.Errorf("Encode(%d, %d): %v", td.v, td.width, err)
			continue
		}
		if b != td.out {
			t.Errorf("Encode(%d, %d) = %s, expected %s", td.v, td.width, b, td.out)
		}
	}
}

func TestEncode_range(t *testing.T) {
	for _, w := range []int{1, 16, 32, 64, 128} {
		v := new(uint256.Int).Lsh(uint256.NewInt(1), uint(w))
		_, err := cosim.Encode(v, w)
		var re *cosim.RangeError
		if !errors.As(err, &re) {
			t.Errorf("Encode(2^%d, %d): expected RangeError, got %v", w, w, err)
			continue
		}
		if re.Width != w || re.Value != v.Dec() {
			t.Errorf("unexpected error fields %+v", re)
		}
		if _, err = cosim.Encode(cosim.Mask(w), w); err != nil {
			t.Errorf("Encode(2^%d-1, %d): %v", w, w, err)
		}
	}
	for _, w := range []int{0, -1, cosim.MaxWidth + 1} {
		if _, err := cosim.EncodeUint64(0, w); err == nil {
			t.Errorf("width %d: expected error", w)
		}
	}
}

func TestParseBinary(t *testing.T) {
	for _, td := range []struct {
		in   string
		out  cosim.BinaryValue
		meta bool
		err  bool
	}{
		{in: "0101", out: "0101"},
		{in: "LHLH", out: "0101"},
		{in: "1h0l", out: "1100"},
		{in: "UUUU", meta: true},
		{in: "01X1", meta: true},
		{in: "Z", meta: true},
		{in: "W-", meta: true},
		{in: "", err: true},
	} {
		b, err := cosim.ParseBinary(td.in)
		var me *cosim.MetaValueError
		switch {
		case td.meta:
			if !errors.As(err, &me) || me.Value != td.in {
				t.Errorf("ParseBinary(%q): expected MetaValueError, got %v", td.in, err)
			}
		case td.err:
			if err == nil {
				t.Errorf("ParseBinary(%q): expected error", td.in)
			}
		case err != nil:
			t.Errorf("ParseBinary(%q): %v", td.in, err)
		case b != td.out:
			t.Errorf("ParseBinary(%q) = %s, expected %s", td.in, b, td.out)
		}
	}
}

func TestWrap(t *testing.T) {
	v := uint256.NewInt(0x1ffff)
	if got := cosim.Wrap(v, 16).Uint64(); got != 0xffff {
		t.Errorf("got %x", got)
	}
	if got := cosim.Mask(64); !got.Eq(uint256.NewInt(^uint64(0))) {
		t.Errorf("Mask(64) = %s", got.Hex())
	}
}
