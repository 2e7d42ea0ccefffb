// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package widget implements the design verified by the cosim harness, for
// the built-in simulation backend.
//
// The widget registers its a and b inputs on the rising edge of clk and
// drives the sum and product of the registered values:
//
//	sum(t)     = (a(t-1) + b(t-1)) mod 2^W
//	product(t) = (a(t-1) * b(t-1)) mod 2^(2W)
//
// If the fault input is high on a rising edge of clk, the design fails with
// an assertion. Silent variants leave the fault input unconnected.
//
// The widget comes in two functionally equivalent variants: the VHDL one is
// built from behavioral parts, the Verilog one from flip flops and a ripple
// carry adder.
package widget

import (
	"fmt"
	"strconv"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/hwlib"
	"github.com/db47h/cosim/hwsim"
	"github.com/db47h/cosim/simkernel"
	"github.com/pkg/errors"
)

// FaultMessage is the assertion message reported when a fault is injected.
const FaultMessage = "Failure: fault injected"

// SilentSuffix is appended to design names of silent variants.
const SilentSuffix = "_silent"

// Widths lists the operand widths of the registered designs.
var Widths = []int{16, 32, 64}

// DesignName returns the registered name of the widget design of the given
// language and width.
func DesignName(lang cosim.Language, width int) string {
	w := strconv.Itoa(width)
	if lang == cosim.Verilog {
		switch width {
		case 16:
			return "counter_verilog"
		case 64:
			return "counter_wide_verilog"
		}
		return "counter" + w + "_verilog"
	}
	if width == 16 {
		return "widget"
	}
	return "widget" + w
}

// Ports returns the top level ports of a widget of the given operand width.
func Ports(width int) []cosim.Port {
	return []cosim.Port{
		{Name: cosim.PortClk, Width: 1, Direction: cosim.Input},
		{Name: cosim.PortA, Width: width, Direction: cosim.Input},
		{Name: cosim.PortB, Width: width, Direction: cosim.Input},
		{Name: cosim.PortFault, Width: 1, Direction: cosim.Input},
		{Name: cosim.PortSum, Width: width, Direction: cosim.Output},
		{Name: cosim.PortProduct, Width: 2 * width, Direction: cosim.Output},
	}
}

// r returns a bus range of a part pin, like "in[0..15]".
func r(name string, bits int) string {
	return name + "[0.." + strconv.Itoa(bits-1) + "]"
}

// New returns the widget chip for the given language and operand width.
func New(lang cosim.Language, width int, silent bool) (hwsim.NewPartFn, error) {
	if width < 2 || 2*width > cosim.MaxWidth {
		return nil, errors.Errorf("unsupported widget width %d", width)
	}
	a, b := hwlib.BusRange(cosim.PortA, width), hwlib.BusRange(cosim.PortB, width)
	sum, product := hwlib.BusRange(cosim.PortSum, width), hwlib.BusRange(cosim.PortProduct, 2*width)

	var parts hwsim.Parts
	switch lang {
	case cosim.VHDL:
		reg := hwlib.Register(width)
		parts = hwsim.Parts{
			reg(r("in", width) + "=" + a + ", clk=clk, " + r("out", width) + "=" + r("ra", width)),
			reg(r("in", width) + "=" + b + ", clk=clk, " + r("out", width) + "=" + r("rb", width)),
			hwlib.AdderN(width)(r("a", width) + "=" + r("ra", width) + ", " + r("b", width) + "=" + r("rb", width) + ", " + r("out", width) + "=" + sum),
		}
	case cosim.Verilog:
		reg, err := dffRegister(width)
		if err != nil {
			return nil, err
		}
		add, err := hwlib.RippleAdderN(width)
		if err != nil {
			return nil, err
		}
		parts = hwsim.Parts{
			reg(r("d", width) + "=" + a + ", clk=clk, " + r("q", width) + "=" + r("ra", width)),
			reg(r("d", width) + "=" + b + ", clk=clk, " + r("q", width) + "=" + r("rb", width)),
			add(r("a", width) + "=" + r("ra", width) + ", " + r("b", width) + "=" + r("rb", width) + ", " + r("out", width) + "=" + sum),
		}
	default:
		return nil, errors.Errorf("unsupported language %v", lang)
	}
	parts = append(parts, hwlib.MulN(width)(r("a", width)+"="+r("ra", width)+", "+r("b", width)+"="+r("rb", width)+", "+r("out", 2*width)+"="+product))
	if !silent {
		parts = append(parts, hwlib.Assert(FaultMessage)("in=fault, clk=clk"))
	}

	name := DesignName(lang, width)
	if silent {
		name += SilentSuffix
	}
	return hwsim.Chip(name,
		hwsim.In(fmt.Sprintf("clk, %s, %s, fault", hwlib.BusSpec(cosim.PortA, width), hwlib.BusSpec(cosim.PortB, width))),
		hwsim.Out(hwlib.BusSpec(cosim.PortSum, width)+", "+hwlib.BusSpec(cosim.PortProduct, 2*width)),
		parts)
}

// dffRegister returns a register made of one DFF per bit.
//
//	Inputs: d[bits], clk
//	Outputs: q[bits]
func dffRegister(bits int) (hwsim.NewPartFn, error) {
	parts := make(hwsim.Parts, bits)
	for i := range parts {
		n := strconv.Itoa(i)
		parts[i] = hwlib.DFF("in=d[" + n + "], clk=clk, out=q[" + n + "]")
	}
	return hwsim.Chip("REG"+strconv.Itoa(bits), hwsim.In(hwlib.BusSpec("d", bits)+", clk"), hwsim.Out(hwlib.BusSpec("q", bits)), parts)
}

// Register registers all widget variants with reg: both languages, all
// Widths, with and without fault assertion.
func Register(reg *simkernel.Registry) error {
	for _, lang := range cosim.Languages {
		for _, w := range Widths {
			for _, silent := range []bool{false, true} {
				chip, err := New(lang, w, silent)
				if err != nil {
					return err
				}
				name := DesignName(lang, w)
				if silent {
					name += SilentSuffix
				}
				err = reg.Register(&simkernel.Design{
					Name:     name,
					Language: lang,
					Ports:    Ports(w),
					Clock:    cosim.PortClk,
					Chip:     chip,
				})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// NewRegistry returns a registry with all widget variants registered.
func NewRegistry() *simkernel.Registry {
	reg := simkernel.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}
