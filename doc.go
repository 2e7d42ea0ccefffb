/*
Package cosim is a co-simulation verification harness for clocked designs.

A design compiled by an HDL simulator is loaded into a Kernel through a
Backend and driven one clock cycle at a time. On each cycle, a stimulus Policy
provides the operands written to the design inputs, and the outputs are
checked against a reference Model of the design: a one cycle pipeline
register feeding an adder and a multiplier.

	sum(n)     = (a(n-1) + b(n-1)) mod 2^W
	product(n) = (a(n-1) * b(n-1)) mod 2^(2W)

Port values cross the kernel boundary as fixed width, MSB first strings of
'0' and '1' (see Encode and Decode). Integers are uint256.Int values, so any
operand width up to 128 bits can be checked.

A Runner runs Scenarios. Each scenario gets its own Session, which is closed
on every exit path. Scenario failures are reported as typed errors:
*InvariantViolation for a mismatch, *KernelFault when the kernel reports an
error, *KernelLoadError when the design cannot be loaded and
*UnexpectedSilentCompletion when a fault injection went unnoticed.

Two backends are provided: package simkernel runs the reference designs of
package widget in process, and package xsi loads designs compiled with the
Vivado simulator.
*/
package cosim
