// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

type chip struct {
	PartSpec // PartSpec for this chip
	parts    []mountedPart
	// canon maps wires driven by a part output to the name of the wire that
	// is actually allocated in the circuit. All the wires driven by the same
	// part output share the same canonical wire.
	canon map[string]string
	// buffers copies canonical wires to chip outputs they drive in addition
	// to the canonical one.
	buffers [][2]string
}

type mountedPart struct {
	spec *PartSpec
	// wires maps the part's pins to wire names within the chip.
	// Output pins not in the map are left floating, input pins not in the map
	// are wired to false.
	ins  map[string]string
	outs map[string]string
}

func (c *chip) mount(s *Socket) []Component {
	var cs []Component

	for _, p := range c.parts {
		// make a sub-socket
		sub := newSocket(s.c)
		for _, k := range p.spec.Inputs {
			w, ok := p.ins[k]
			if !ok {
				sub.m[k] = cstFalse
				continue
			}
			if cw, ok := c.canon[w]; ok {
				w = cw
			}
			sub.m[k] = s.PinOrNew(w)
		}
		for _, k := range p.spec.Outputs {
			if w, ok := p.outs[k]; ok {
				sub.m[k] = s.PinOrNew(w)
			} else {
				sub.m[k] = s.c.allocPin()
			}
		}
		cs = append(cs, p.spec.Mount(sub)...)
	}
	for _, b := range c.buffers {
		src, dst := s.Pin(b[0]), s.Pin(b[1])
		cs = append(cs, func(c *Circuit) { c.Set(dst, c.Get(src)) })
	}
	return cs
}

// Chip composes existing parts into a new part packaged into a chip.
// The pin names specified as inputs and outputs will be the inputs
// and outputs of the chip.
//
// An Xor gate could be created like this:
//
//	xor, err := Chip(
//		"XOR",
//		In("a, b"),
//		Out("out"),
//		Parts{
//			hwlib.Nand("a=a, b=b, out=nandAB"),
//			hwlib.Nand("a=a, b=nandAB, out=w0"),
//			hwlib.Nand("a=b, b=nandAB, out=w1"),
//			hwlib.Nand("a=w0, b=w1, out=out"),
//		})
//
// The returned value is a function of type NewPartFn that can be used to
// compose the new part with others into other chips:
//
//	xnor, err := Chip(
//		"XNOR",
//		In("a, b"),
//		Out("out"),
//		Parts{
//			xor("a=a, b=b, out=xorAB"),
//			hwlib.Not("in=xorAB, out=out"),
//		})
func Chip(name string, inputs Inputs, outputs Outputs, parts Parts) (NewPartFn, error) {
	if err := checkPins(inputs, outputs); err != nil {
		return nil, errors.Wrap(err, name)
	}
	isIn := func(w string) bool { return slices.Contains(inputs, w) }
	isOut := func(w string) bool { return slices.Contains(outputs, w) }

	mps := make([]mountedPart, len(parts))
	driver := make(map[string]pin) // wire -> part output pin driving it
	var order []pin                // part output pins in declaration order
	nets := make(map[pin][]string) // part output pin -> wires

	for pnum, p := range parts {
		sp := p.PartSpec
		mp := mountedPart{spec: sp, ins: make(map[string]string), outs: make(map[string]string)}
		for _, cn := range p.Conns {
			switch {
			case sp.isInput(cn.PP):
				if len(cn.CP) > 1 {
					return nil, errors.New(sp.Name + " input pin " + cn.PP + " connected to more than one wire")
				}
				mp.ins[cn.PP] = cn.CP[0]
			case sp.isOutput(cn.PP):
				o := pin{pnum, cn.PP}
				for _, w := range cn.CP {
					pn := sp.Name + "." + cn.PP + ":" + w
					switch {
					case isConstant(w):
						return nil, errors.New(pn + ": output pin connected to constant " + w + " input")
					case isIn(w):
						return nil, errors.New(pn + ": chip input pin used as output")
					}
					if _, ok := driver[w]; ok {
						return nil, errors.New(pn + ": output pin already used as output")
					}
					driver[w] = o
					if len(nets[o]) == 0 {
						order = append(order, o)
					}
					nets[o] = append(nets[o], w)
				}
			default:
				return nil, errors.New("invalid pin name " + cn.PP + " for part " + sp.Name)
			}
		}
		mps[pnum] = mp
	}

	// check that part inputs are driven
	used := make(map[string]bool)
	for _, mp := range mps {
		for _, w := range mp.ins {
			if _, ok := driver[w]; !ok && !isConstant(w) && !isIn(w) {
				return nil, errors.New("pin " + w + " not connected to any output")
			}
			used[w] = true
		}
	}

	// assign canonical wire names
	c := &chip{
		PartSpec: PartSpec{Name: name, Inputs: inputs, Outputs: outputs},
		parts:    mps,
		canon:    make(map[string]string),
	}
	wireNum := 0
	for _, o := range order {
		ws := nets[o]
		var cw string
		for _, w := range ws {
			if !isOut(w) {
				continue
			}
			if cw == "" {
				cw = w
			} else {
				c.buffers = append(c.buffers, [2]string{cw, w})
			}
		}
		if cw == "" {
			cw = "__" + strconv.Itoa(wireNum)
			wireNum++
		}
		for _, w := range ws {
			if !isOut(w) && !used[w] {
				return nil, errors.New("pin " + w + " not connected to any input")
			}
			c.canon[w] = cw
		}
		mps[o.p].outs[o.name] = cw
	}

	c.PartSpec.Mount = c.mount
	return c.PartSpec.NewPart, nil
}

// a pin is identified by the part it belongs to and its name in that part's interface
type pin struct {
	p    int
	name string
}

func checkPins(inputs Inputs, outputs Outputs) error {
	seen := make(map[string]bool, len(inputs)+len(outputs))
	for _, ps := range [][]string{inputs, outputs} {
		for _, n := range ps {
			switch {
			case isConstant(n):
				return errors.New("constant " + n + " used as chip pin name")
			case seen[n]:
				return errors.New("duplicate pin name " + n)
			}
			seen[n] = true
		}
	}
	return nil
}
