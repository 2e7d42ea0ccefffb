// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import (
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// MaxWidth is the widest port the codec can represent.
const MaxWidth = 256

// BinaryValue is a fixed-width, MSB first string of '0' and '1' characters.
// Its length is the width of the port it is written to or read from.
type BinaryValue string

// Width returns the number of bits in b.
func (b BinaryValue) Width() int { return len(b) }

func (b BinaryValue) String() string { return string(b) }

// Mask returns 2^width - 1.
func Mask(width int) *uint256.Int {
	m := new(uint256.Int).Lsh(uint256.NewInt(1), uint(width))
	return m.Sub(m, uint256.NewInt(1))
}

// Wrap returns v mod 2^width.
func Wrap(v *uint256.Int, width int) *uint256.Int {
	return new(uint256.Int).And(v, Mask(width))
}

// Encode returns the width bits binary representation of v, zero padded.
// It returns a *RangeError if v does not fit in width bits.
func Encode(v *uint256.Int, width int) (BinaryValue, error) {
	if width < 1 || width > MaxWidth || v.BitLen() > width {
		return "", &RangeError{Value: v.Dec(), Width: width}
	}
	b := make([]byte, width)
	for i := range b {
		bit := width - 1 - i
		if v[bit/64]>>(uint(bit)%64)&1 != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return BinaryValue(b), nil
}

// EncodeUint64 is a shorthand for Encode(uint256.NewInt(v), width).
func EncodeUint64(v uint64, width int) (BinaryValue, error) {
	return Encode(uint256.NewInt(v), width)
}

// Decode returns the unsigned value of b. Any character other than '1' is
// read as a zero bit, so Decode is defined for every input. For values built
// with Encode or ParseBinary, Decode is the exact inverse of Encode.
func Decode(b BinaryValue) *uint256.Int {
	z := new(uint256.Int)
	n := len(b)
	for i := 0; i < n; i++ {
		if b[i] != '1' {
			continue
		}
		if bit := n - 1 - i; bit < MaxWidth {
			z[bit/64] |= 1 << (uint(bit) % 64)
		}
	}
	return z
}

// ParseBinary validates a port value string as returned by a kernel.
// Weak levels 'L' and 'H' are normalized to '0' and '1'. Any other
// metavalue (U, X, Z, W, -) yields a *MetaValueError.
func ParseBinary(s string) (BinaryValue, error) {
	if len(s) == 0 || len(s) > MaxWidth {
		return "", errors.Errorf("invalid binary value length %d", len(s))
	}
	if strings.IndexFunc(s, func(r rune) bool { return r != '0' && r != '1' }) < 0 {
		return BinaryValue(s), nil
	}
	b := []byte(s)
	for i, c := range b {
		switch c {
		case '0', '1':
		case 'L', 'l':
			b[i] = '0'
		case 'H', 'h':
			b[i] = '1'
		default:
			return "", &MetaValueError{Value: s}
		}
	}
	return BinaryValue(b), nil
}
