// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simkernel

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/hwsim"
	"github.com/pkg/errors"
)

// A Design is a circuit that can be loaded into a kernel.
//
// The pins of the top level chip are named after the design ports. Ports
// wider than one bit are busses (a[0] .. a[15]), 1 bit ports are plain pins.
type Design struct {
	Name     string
	Language cosim.Language
	Ports    []cosim.Port
	// Clock is the name of the clock input port. On each Run, the kernel
	// applies all other pending input values and lets the circuit settle
	// before applying the clock.
	Clock string
	Chip  hwsim.NewPartFn
}

// Registry is a set of designs, looked up by name. It is safe for concurrent
// use.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*Design
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*Design)}
}

// Register adds a design to the registry.
func (r *Registry) Register(d *Design) error {
	if d.Name == "" || d.Chip == nil {
		return errors.New("invalid design")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[d.Name]; ok {
		return errors.Errorf("design %s already registered", d.Name)
	}
	r.m[d.Name] = d
	return nil
}

// Lookup returns the named design.
func (r *Registry) Lookup(name string) (*Design, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.m[name]
	return d, ok
}

// Names returns the sorted names of all registered designs.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns := make([]string, 0, len(r.m))
	for n := range r.m {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

// DesignName returns the design name for a design path. Paths of compiled
// simulator snapshots, like "xsim.dir/widget/xsimk.so", resolve to the
// snapshot directory name. Other paths resolve to their base name without
// extension.
func DesignName(path string) string {
	base := filepath.Base(path)
	if base == "xsimk.so" {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
