// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Inputs is a list of input pin names.
type Inputs []string

// Outputs is a list of output pin names.
type Outputs []string

// In parses a pin specification string and returns the list of input pin
// names. It panics if spec is malformed. See ParseIOSpec.
func In(spec string) Inputs {
	pins, err := ParseIOSpec(spec)
	if err != nil {
		panic(err)
	}
	return pins
}

// Out parses a pin specification string and returns the list of output pin
// names. It panics if spec is malformed. See ParseIOSpec.
func Out(spec string) Outputs {
	pins, err := ParseIOSpec(spec)
	if err != nil {
		panic(err)
	}
	return pins
}

// ParseIOSpec parses a comma separated list of pin names and returns
// individual pin names in a slice, also expanding bus declarations to
// individual pin names. For example:
//
//	ParseIOSpec("in[2], sel") // returns []string{"in[0]", "in[1]", "sel"}
func ParseIOSpec(spec string) ([]string, error) {
	var out []string
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		name, idx, ok := strings.Cut(f, "[")
		if err := checkName(name); err != nil {
			return nil, parseError(spec, err.Error())
		}
		if !ok {
			out = append(out, name)
			continue
		}
		sz, ok := strings.CutSuffix(idx, "]")
		if !ok {
			return nil, parseError(spec, "missing close bracket after "+name)
		}
		n, err := strconv.Atoi(sz)
		if err != nil || n <= 0 {
			return nil, parseError(spec, "invalid bus size for "+name)
		}
		for i := 0; i < n; i++ {
			out = append(out, BusPinName(name, i))
		}
	}
	return out, nil
}

// A Connection connects a part pin to one or more wires of the host chip.
type Connection struct {
	PP string   // part pin name
	CP []string // chip pin names
}

// ParseConnections parses a connection configuration like "partPin1=chipPin1,
// partPin2=chipPin2". Bus ranges are expanded, so that "a[0..1]=x[2..3]" is
// equivalent to "a[0]=x[2], a[1]=x[3]".
//
// A single part pin may be connected to a range of chip pins (fan out), and a
// range of part pins may be connected to a single chip pin, like "b[0..7]=false".
// Connecting the same part pin more than once is also allowed: "out=a, out=b".
// Whether this makes sense for the given pin is checked by Chip.
func ParseConnections(c string) ([]Connection, error) {
	var conns []Connection
	idx := make(map[string]int)
	if strings.TrimSpace(c) == "" {
		return nil, nil
	}
	for _, f := range strings.Split(c, ",") {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, parseError(c, "missing '=' in "+strings.TrimSpace(f))
		}
		ks, err := expandRange(strings.TrimSpace(k))
		if err != nil {
			return nil, parseError(c, err.Error())
		}
		vs, err := expandRange(strings.TrimSpace(v))
		if err != nil {
			return nil, parseError(c, err.Error())
		}
		add := func(k string, vs ...string) {
			if i, ok := idx[k]; ok {
				conns[i].CP = append(conns[i].CP, vs...)
				return
			}
			idx[k] = len(conns)
			conns = append(conns, Connection{PP: k, CP: vs})
		}
		switch {
		case len(ks) == len(vs):
			for i := range ks {
				add(ks[i], vs[i])
			}
		case len(ks) == 1:
			add(ks[0], vs...)
		case len(vs) == 1:
			for _, k := range ks {
				add(k, vs[0])
			}
		default:
			return nil, parseError(c, "pin count mismatch in "+strings.TrimSpace(f))
		}
	}
	return conns, nil
}

func expandRange(pin string) ([]string, error) {
	name, idx, ok := strings.Cut(pin, "[")
	if err := checkName(name); err != nil {
		return nil, err
	}
	if !ok {
		return []string{name}, nil
	}
	idx, ok = strings.CutSuffix(idx, "]")
	if !ok {
		return nil, errors.New("missing close bracket after " + name)
	}
	lo, hi, isRange := strings.Cut(idx, "..")
	start, err := strconv.Atoi(lo)
	if err != nil || start < 0 {
		return nil, errors.New("invalid index in " + pin)
	}
	if !isRange {
		return []string{BusPinName(name, start)}, nil
	}
	end, err := strconv.Atoi(hi)
	if err != nil || end < start {
		return nil, errors.New("invalid range in " + pin)
	}
	r := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		r = append(r, BusPinName(name, i))
	}
	return r, nil
}

func checkName(name string) error {
	if name == "" {
		return errors.New("expected pin name")
	}
	for i, r := range name {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case '0' <= r && r <= '9' && i > 0:
		default:
			return errors.Errorf("invalid character %q in pin name %q", r, name)
		}
	}
	return nil
}

func parseError(in string, msg string) error {
	return errors.Errorf("in %q: %s", in, msg)
}
