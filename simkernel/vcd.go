// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simkernel

import (
	"bufio"
	"io"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// vcdWriter writes value changes of a set of signals in Value Change Dump
// format.
type vcdWriter struct {
	w      *bufio.Writer
	c      io.Closer
	module string
	sigs   []*vcdSignal // may change until the header is written
	hdr    bool
	last   int64
	err    error
}

type vcdSignal struct {
	id    string
	name  string
	width int
	v     *uint256.Int
	prev  uint256.Int
	init  bool
}

// vcdID returns the short identifier of the n-th signal.
func vcdID(n int) string {
	const first, last = '!', '~'
	var b []byte
	for {
		b = append(b, byte(first+n%(last-first+1)))
		n /= last - first + 1
		if n == 0 {
			return string(b)
		}
		n--
	}
}

func newVCDWriter(w io.WriteCloser, module string, sigs []*vcdSignal) *vcdWriter {
	return &vcdWriter{w: bufio.NewWriter(w), c: w, module: module, sigs: sigs, last: -1}
}

func (vw *vcdWriter) header() {
	vw.hdr = true
	vw.write("$timescale 1ps $end\n$scope module " + vw.module + " $end\n")
	for i, s := range vw.sigs {
		s.id = vcdID(i)
		vw.write("$var wire " + strconv.Itoa(s.width) + " " + s.id + " " + s.name + " $end\n")
	}
	vw.write("$upscope $end\n$enddefinitions $end\n")
}

func (vw *vcdWriter) write(s string) {
	if vw.err == nil {
		_, vw.err = vw.w.WriteString(s)
	}
}

// dump records the signals that changed since the last dump.
func (vw *vcdWriter) dump(now int64) error {
	if !vw.hdr {
		vw.header()
	}
	for _, s := range vw.sigs {
		if s.init && s.prev.Eq(s.v) {
			continue
		}
		if now != vw.last {
			vw.write("#" + strconv.FormatInt(now, 10) + "\n")
			vw.last = now
		}
		s.prev.Set(s.v)
		s.init = true
		if s.width == 1 {
			vw.write(strconv.FormatUint(s.v.Uint64()&1, 10) + s.id + "\n")
			continue
		}
		vw.write("b" + bits(s.v, s.width) + " " + s.id + "\n")
	}
	return vw.err
}

func (vw *vcdWriter) Close() error {
	if !vw.hdr {
		vw.header()
	}
	if vw.err == nil {
		vw.err = vw.w.Flush()
	}
	if err := vw.c.Close(); err != nil && vw.err == nil {
		vw.err = err
	}
	return errors.Wrap(vw.err, "trace")
}
