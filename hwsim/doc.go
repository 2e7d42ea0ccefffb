// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package hwsim is a gate level circuit simulator. It is the engine behind the
built-in simulation backend of cosim.

A circuit is made of parts. Parts are built from a PartSpec, which names the
part's input and output pins and provides a MountFn. Parts can be composed
into new parts with Chip:

	xor, err := hwsim.Chip("XOR", hwsim.In("a, b"), hwsim.Out("out"), hwsim.Parts{
		hwlib.Nand("a=a, b=b, out=nandAB"),
		hwlib.Nand("a=a, b=nandAB, out=w0"),
		hwlib.Nand("a=b, b=nandAB, out=w1"),
		hwlib.Nand("a=w0, b=w1, out=out"),
	})

Connection strings map a part's pins (left) to wires in the host chip
(right). Buses are addressed by index (bus[3]) or by range (bus[0..7]):

	"a[0..7]=x[8..15], b[0..7]=false, out=w0, out=w1"

Part inputs that are not connected are wired to false. Part outputs that are
not connected are left floating.

The simulation runs in steps. On each step, every component reads the pin
states of the previous step and writes the next ones. There is no built-in
clock: sequential parts watch a regular input pin for rising edges, and the
host drives that pin. Circuit.Settle runs steps until no pin changes.
*/
package hwsim
