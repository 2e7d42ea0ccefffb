// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cosim

import (
	"strconv"

	"github.com/holiman/uint256"
)

// KernelLoadError is returned by Open when the design binary is missing or
// incompatible with the requested language. No cycle has run when it occurs.
type KernelLoadError struct {
	Design   string
	Language Language
	Err      error
}

func (e *KernelLoadError) Error() string {
	return "load " + e.Language.String() + " design " + strconv.Quote(e.Design) + ": " + e.Err.Error()
}

func (e *KernelLoadError) Unwrap() error { return e.Err }

// RangeError reports a value that does not fit the width of a port.
type RangeError struct {
	Port  string // empty when raised by Encode
	Value string // decimal value, or the offending bit string for width mismatches
	Width int
}

func (e *RangeError) Error() string {
	msg := "value " + e.Value + " does not fit in " + strconv.Itoa(e.Width) + " bits"
	if e.Port != "" {
		msg = "port " + e.Port + ": " + msg
	}
	return msg
}

// InvariantViolation is the defining failure of a scenario: the outputs
// observed at Cycle disagree with the reference model.
type InvariantViolation struct {
	Cycle    int
	Expected Expectation
	Sum      uint256.Int
	Product  uint256.Int
}

func (e *InvariantViolation) Error() string {
	return "cycle " + strconv.Itoa(e.Cycle) +
		": a=" + e.Expected.A.Dec() + " b=" + e.Expected.B.Dec() +
		": expected sum=" + e.Expected.Sum.Dec() + " product=" + e.Expected.Product.Dec() +
		", got sum=" + e.Sum.Dec() + " product=" + e.Product.Dec()
}

// UnexpectedSilentCompletion is returned by a fault-injection scenario that
// ran to completion without the kernel reporting the injected fault.
type UnexpectedSilentCompletion struct {
	Cycles int
}

func (e *UnexpectedSilentCompletion) Error() string {
	return "fault injected but kernel completed " + strconv.Itoa(e.Cycles) + " cycles without reporting an error"
}

// KernelFault is a failure reported by the kernel through its own status
// channel, e.g. an assertion of severity failure inside the design.
type KernelFault struct {
	Time int64 // simulation time at which the fault was observed
	Info string
}

func (e *KernelFault) Error() string {
	return "kernel fault at t=" + strconv.FormatInt(e.Time, 10) + ": " + e.Info
}

// MetaValueError is returned when a port holds a value that is not a plain
// binary number (U, X, Z, W or -).
type MetaValueError struct {
	Port  string
	Value string
}

func (e *MetaValueError) Error() string {
	if e.Port == "" {
		return "non-binary value " + strconv.Quote(e.Value)
	}
	return "port " + e.Port + ": non-binary value " + strconv.Quote(e.Value)
}
